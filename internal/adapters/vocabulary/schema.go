package vocabulary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bnema/oabot/internal/domain"
)

const currentSchemaVersion = 1

const (
	actionMove   = "move"
	actionMute   = "mute"
	actionUnmute = "unmute"
)

type fileSchema struct {
	Version  int             `toml:"version"`
	Commands []commandSchema `toml:"commands"`
}

type commandSchema struct {
	Word   string `toml:"word"`
	Action string `toml:"action"`
	Room   string `toml:"room"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported vocabulary schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

func (s fileSchema) toVocabulary() (domain.Vocabulary, error) {
	vocabulary := make(domain.Vocabulary, len(s.Commands))
	for _, entry := range s.Commands {
		word := strings.TrimSpace(entry.Word)
		if _, ok := vocabulary[word]; ok {
			return nil, fmt.Errorf("duplicate vocabulary word %q", word)
		}

		command, err := fromSchema(entry)
		if err != nil {
			return nil, fmt.Errorf("vocabulary word %q: %w", word, err)
		}
		vocabulary[word] = command
	}

	if err := vocabulary.Validate(); err != nil {
		return nil, err
	}

	return vocabulary, nil
}

func fromSchema(entry commandSchema) (domain.ControlCommand, error) {
	room := strings.TrimSpace(entry.Room)
	switch strings.ToLower(strings.TrimSpace(entry.Action)) {
	case actionMove, "":
		return domain.MoveToRoom(room), nil
	case actionMute:
		return domain.SetMute(room, true), nil
	case actionUnmute:
		return domain.SetMute(room, false), nil
	default:
		return domain.ControlCommand{}, fmt.Errorf("unsupported action %q", entry.Action)
	}
}

func toSchema(vocabulary domain.Vocabulary) fileSchema {
	words := vocabulary.Words()
	commands := make([]commandSchema, 0, len(words))
	for _, word := range words {
		command := vocabulary[word]
		action := actionMove
		if command.Kind == domain.ControlSetMute {
			action = actionUnmute
			if command.Muted {
				action = actionMute
			}
		}
		commands = append(commands, commandSchema{Word: word, Action: action, Room: command.RoomName})
	}

	sort.SliceStable(commands, func(i, j int) bool { return commands[i].Word < commands[j].Word })
	return fileSchema{Version: currentSchemaVersion, Commands: commands}
}
