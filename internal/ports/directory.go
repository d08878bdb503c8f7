package ports

import (
	"context"

	"github.com/bnema/oabot/internal/domain"
)

// Directory is a read-only view over the platform's cached guild state. The
// snapshot may be stale; callers re-resolve names on every command.
//
// ResolveRoom and ResolveMember return domain.ErrRoomNotFound or
// domain.ErrMemberNotFound when the name is unknown, and
// domain.ErrGuildUnavailable when the guild itself is not in the cache.
type Directory interface {
	ResolveRoom(ctx context.Context, guild domain.GuildID, name string) (domain.RoomRef, error)
	ResolveMember(ctx context.Context, guild domain.GuildID, name string) (domain.MemberRef, error)
	MembersInRoom(ctx context.Context, guild domain.GuildID, room domain.RoomRef) ([]domain.MemberRef, error)
}
