package discord

import (
	"context"

	"github.com/bnema/oabot/internal/domain"
	"github.com/bnema/oabot/internal/ports"
	"github.com/bwmarrin/discordgo"
)

// memberMutator is the part of *discordgo.Session the actions need.
type memberMutator interface {
	GuildMemberMove(guildID string, userID string, channelID *string, options ...discordgo.RequestOption) error
	GuildMemberMute(guildID string, userID string, mute bool, options ...discordgo.RequestOption) error
}

type Actions struct {
	session memberMutator
}

var _ ports.Actions = (*Actions)(nil)

func NewActions(session memberMutator) *Actions {
	return &Actions{session: session}
}

func (a *Actions) MoveMember(ctx context.Context, guild domain.GuildID, member domain.MemberRef, room domain.RoomRef) error {
	channelID := string(room.ID)
	return a.session.GuildMemberMove(string(guild), string(member.ID), &channelID, discordgo.WithContext(ctx))
}

func (a *Actions) SetMemberMute(ctx context.Context, guild domain.GuildID, member domain.MemberRef, muted bool) error {
	return a.session.GuildMemberMute(string(guild), string(member.ID), muted, discordgo.WithContext(ctx))
}
