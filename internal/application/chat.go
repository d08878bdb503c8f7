package application

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/bnema/oabot/internal/domain"
	"go.uber.org/zap"
)

const DefaultChatPrefix = "~"

type ChatHandlerFunc func(ctx context.Context, invocation domain.ChatInvocation) error

type ChatMessage struct {
	Guild       domain.GuildID
	Author      domain.MemberRef
	AuthorIsBot bool
	Content     string
}

// ChatRouter strips the command prefix from a chat message and dispatches the
// remainder to the handler registered under its first word.
type ChatRouter struct {
	prefix   string
	handlers map[string]ChatHandlerFunc
}

func NewChatRouter(prefix string) *ChatRouter {
	if prefix == "" {
		prefix = DefaultChatPrefix
	}

	return &ChatRouter{prefix: prefix, handlers: map[string]ChatHandlerFunc{}}
}

func (r *ChatRouter) Register(name string, handler ChatHandlerFunc) {
	r.handlers[name] = handler
}

// Route reports whether the message addressed a known command and returns that
// command's error, if any.
func (r *ChatRouter) Route(ctx context.Context, message ChatMessage) (bool, error) {
	if message.AuthorIsBot || message.Guild == "" {
		return false, nil
	}

	invocation, ok := r.parse(message.Content)
	if !ok {
		return false, nil
	}

	handler, ok := r.handlers[invocation.Name]
	if !ok {
		return false, nil
	}

	invocation.Guild = message.Guild
	invocation.Sender = message.Author
	return true, handler(ctx, invocation)
}

func (r *ChatRouter) parse(content string) (domain.ChatInvocation, bool) {
	body, ok := strings.CutPrefix(strings.TrimLeftFunc(content, unicode.IsSpace), r.prefix)
	if !ok {
		return domain.ChatInvocation{}, false
	}

	name, rest := body, ""
	if idx := strings.IndexFunc(body, unicode.IsSpace); idx >= 0 {
		name, rest = body[:idx], body[idx:]
	}
	if name == "" {
		return domain.ChatInvocation{}, false
	}

	rest = strings.TrimSpace(rest)
	return domain.ChatInvocation{
		Name: name,
		Args: strings.Fields(rest),
		Rest: rest,
	}, true
}

type ChatCommands struct {
	executor *Executor
	logger   *zap.Logger
}

func NewChatCommands(executor *Executor, logger *zap.Logger) *ChatCommands {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ChatCommands{executor: executor, logger: logger}
}

func (c *ChatCommands) Register(router *ChatRouter) {
	router.Register("mva", c.MoveToRoom)
	router.Register("mc", c.MuteRoom)
	router.Register("umc", c.UnmuteRoom)
}

// MoveToRoom handles `mva <room> [member]`.
func (c *ChatCommands) MoveToRoom(ctx context.Context, invocation domain.ChatInvocation) error {
	request, ok := ParseMoveArgs(invocation.Args)
	if !ok {
		return nil
	}

	var err error
	if request.MemberName == "" {
		err = c.executor.MoveToRoom(ctx, invocation.Guild, invocation.Sender, request.RoomName)
	} else {
		err = c.executor.MoveMemberToRoom(ctx, invocation.Guild, request.MemberName, request.RoomName)
	}
	return c.contain(invocation, err)
}

// MuteRoom handles `mc <room...>`.
func (c *ChatCommands) MuteRoom(ctx context.Context, invocation domain.ChatInvocation) error {
	return c.setRoomMute(ctx, invocation, true)
}

// UnmuteRoom handles `umc <room...>`.
func (c *ChatCommands) UnmuteRoom(ctx context.Context, invocation domain.ChatInvocation) error {
	return c.setRoomMute(ctx, invocation, false)
}

func (c *ChatCommands) setRoomMute(ctx context.Context, invocation domain.ChatInvocation, muted bool) error {
	room, ok := ParseRoomArgs(invocation.Rest)
	if !ok {
		return nil
	}

	return c.contain(invocation, c.executor.SetRoomMute(ctx, invocation.Guild, room, muted))
}

// contain keeps remote mutation failures out of the chat channel; only
// resolution failures reach the caller.
func (c *ChatCommands) contain(invocation domain.ChatInvocation, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrRemoteMutation) {
		c.logger.Warn("chat command mutation failed",
			zap.String("command", invocation.Name),
			zap.String("guild", string(invocation.Guild)),
			zap.Stringer("sender", invocation.Sender),
			zap.Error(err),
		)
		return nil
	}
	return err
}
