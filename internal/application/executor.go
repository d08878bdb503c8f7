package application

import (
	"context"
	"fmt"

	"github.com/bnema/oabot/internal/domain"
	"github.com/bnema/oabot/internal/ports"
	"go.uber.org/zap"
)

type Executor struct {
	directory ports.Directory
	actions   ports.Actions
	logger    *zap.Logger
}

func NewExecutor(directory ports.Directory, actions ports.Actions, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Executor{directory: directory, actions: actions, logger: logger}
}

// Execute applies a control command on behalf of identity, the member the
// control channel acts for.
func (e *Executor) Execute(ctx context.Context, guild domain.GuildID, identity string, command domain.ControlCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	switch command.Kind {
	case domain.ControlMoveToRoom:
		return e.MoveMemberToRoom(ctx, guild, identity, command.RoomName)
	case domain.ControlSetMute:
		return e.SetRoomMute(ctx, guild, command.RoomName, command.Muted)
	default:
		return fmt.Errorf("unsupported command kind %q", command.Kind)
	}
}

func (e *Executor) MoveMemberToRoom(ctx context.Context, guild domain.GuildID, memberName, roomName string) error {
	room, err := e.directory.ResolveRoom(ctx, guild, roomName)
	if err != nil {
		return fmt.Errorf("resolve room %q: %w", roomName, err)
	}

	member, err := e.directory.ResolveMember(ctx, guild, memberName)
	if err != nil {
		return fmt.Errorf("resolve member %q: %w", memberName, err)
	}

	return e.move(ctx, guild, member, room)
}

// MoveToRoom moves an already known member, such as the sender of a chat
// command, to the named room.
func (e *Executor) MoveToRoom(ctx context.Context, guild domain.GuildID, member domain.MemberRef, roomName string) error {
	room, err := e.directory.ResolveRoom(ctx, guild, roomName)
	if err != nil {
		return fmt.Errorf("resolve room %q: %w", roomName, err)
	}

	return e.move(ctx, guild, member, room)
}

// SetRoomMute sets the server mute state of every member currently in the
// room. Failures for individual members are logged and skipped.
func (e *Executor) SetRoomMute(ctx context.Context, guild domain.GuildID, roomName string, muted bool) error {
	room, err := e.directory.ResolveRoom(ctx, guild, roomName)
	if err != nil {
		return fmt.Errorf("resolve room %q: %w", roomName, err)
	}

	members, err := e.directory.MembersInRoom(ctx, guild, room)
	if err != nil {
		return fmt.Errorf("list members in room %s: %w", room, err)
	}

	failed := 0
	for _, member := range members {
		if err := e.actions.SetMemberMute(ctx, guild, member, muted); err != nil {
			failed++
			e.logger.Warn("set member mute failed",
				zap.String("guild", string(guild)),
				zap.Stringer("room", room),
				zap.Stringer("member", member),
				zap.Bool("muted", muted),
				zap.Error(fmt.Errorf("%w: %w", domain.ErrRemoteMutation, err)),
			)
		}
	}

	e.logger.Debug("room mute applied",
		zap.String("guild", string(guild)),
		zap.Stringer("room", room),
		zap.Bool("muted", muted),
		zap.Int("members", len(members)),
		zap.Int("failed", failed),
	)

	return nil
}

func (e *Executor) move(ctx context.Context, guild domain.GuildID, member domain.MemberRef, room domain.RoomRef) error {
	if err := e.actions.MoveMember(ctx, guild, member, room); err != nil {
		return fmt.Errorf("%w: move %s to %s: %w", domain.ErrRemoteMutation, member, room, err)
	}

	e.logger.Debug("member moved",
		zap.String("guild", string(guild)),
		zap.Stringer("member", member),
		zap.Stringer("room", room),
	)
	return nil
}
