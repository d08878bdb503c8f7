package ports

import (
	"context"

	"github.com/bnema/oabot/internal/domain"
)

type Actions interface {
	MoveMember(ctx context.Context, guild domain.GuildID, member domain.MemberRef, room domain.RoomRef) error
	SetMemberMute(ctx context.Context, guild domain.GuildID, member domain.MemberRef, muted bool) error
}
