package domain

import (
	"fmt"
	"sort"
	"strings"
)

type ControlKind string

const (
	ControlMoveToRoom ControlKind = "move"
	ControlSetMute    ControlKind = "mute"
)

// ControlCommand is a parsed operator command. Muted is only meaningful for
// ControlSetMute.
type ControlCommand struct {
	Kind     ControlKind
	RoomName string
	Muted    bool
}

func MoveToRoom(roomName string) ControlCommand {
	return ControlCommand{Kind: ControlMoveToRoom, RoomName: roomName}
}

func SetMute(roomName string, muted bool) ControlCommand {
	return ControlCommand{Kind: ControlSetMute, RoomName: roomName, Muted: muted}
}

func (c ControlCommand) Validate() error {
	if strings.TrimSpace(c.RoomName) == "" {
		return fmt.Errorf("room name is required")
	}
	switch c.Kind {
	case ControlMoveToRoom, ControlSetMute:
		return nil
	case "":
		return fmt.Errorf("kind is required")
	default:
		return fmt.Errorf("unsupported command kind %q", c.Kind)
	}
}

func (c ControlCommand) String() string {
	switch c.Kind {
	case ControlMoveToRoom:
		return fmt.Sprintf("move to %q", c.RoomName)
	case ControlSetMute:
		if c.Muted {
			return fmt.Sprintf("mute %q", c.RoomName)
		}
		return fmt.Sprintf("unmute %q", c.RoomName)
	default:
		return fmt.Sprintf("%s %q", c.Kind, c.RoomName)
	}
}

// Vocabulary maps a single control-channel word to the command it stands for.
type Vocabulary map[string]ControlCommand

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		"afk":  MoveToRoom("AFK"),
		"core": MoveToRoom("Core"),
	}
}

func (v Vocabulary) Lookup(word string) (ControlCommand, bool) {
	command, ok := v[word]
	return command, ok
}

func (v Vocabulary) Validate() error {
	for word, command := range v {
		if strings.TrimSpace(word) == "" || strings.ContainsAny(word, " \t\r\n") {
			return fmt.Errorf("invalid vocabulary word %q", word)
		}
		if err := command.Validate(); err != nil {
			return fmt.Errorf("vocabulary word %q: %w", word, err)
		}
	}
	return nil
}

func (v Vocabulary) Words() []string {
	words := make([]string, 0, len(v))
	for word := range v {
		words = append(words, word)
	}
	sort.Strings(words)
	return words
}
