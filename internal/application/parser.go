package application

import (
	"strings"

	"github.com/bnema/oabot/internal/domain"
	"github.com/bnema/oabot/internal/ports"
)

// ParseControlLine maps one control-channel line to a command. Anything that
// is not a single vocabulary word yields ok == false.
func ParseControlLine(vocabulary ports.Vocabulary, line string) (domain.ControlCommand, bool) {
	if vocabulary == nil {
		return domain.ControlCommand{}, false
	}

	word := strings.TrimSpace(line)
	if word == "" || strings.ContainsAny(word, " \t") {
		return domain.ControlCommand{}, false
	}

	command, ok := vocabulary.Lookup(word)
	if !ok || command.Validate() != nil {
		return domain.ControlCommand{}, false
	}

	return command, true
}

type MoveRequest struct {
	RoomName   string
	MemberName string
}

// ParseMoveArgs reads `mva <room> [member]`. An empty MemberName means the
// sender moves themselves.
func ParseMoveArgs(args []string) (MoveRequest, bool) {
	switch len(args) {
	case 0:
		return MoveRequest{}, false
	case 1:
		return MoveRequest{RoomName: args[0]}, true
	default:
		return MoveRequest{RoomName: args[0], MemberName: args[1]}, true
	}
}

// ParseRoomArgs reads `mc <room...>` and `umc <room...>`; the whole remainder
// is the room name.
func ParseRoomArgs(rest string) (string, bool) {
	room := strings.TrimSpace(rest)
	return room, room != ""
}
