package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/oabot/internal/domain"
	"github.com/bnema/oabot/internal/ports"
	"github.com/bwmarrin/discordgo"
)

// Directory answers name lookups from the session's state cache. Every call
// reads the live cache; nothing is memoised here.
type Directory struct {
	state *discordgo.State
}

var _ ports.Directory = (*Directory)(nil)

func NewDirectory(state *discordgo.State) *Directory {
	return &Directory{state: state}
}

func (d *Directory) ResolveRoom(ctx context.Context, guildID domain.GuildID, name string) (domain.RoomRef, error) {
	if err := ctx.Err(); err != nil {
		return domain.RoomRef{}, err
	}

	guild, err := d.guild(guildID)
	if err != nil {
		return domain.RoomRef{}, err
	}

	d.state.RLock()
	defer d.state.RUnlock()

	var fallback *discordgo.Channel
	for _, channel := range guild.Channels {
		if channel == nil || channel.Name != name {
			continue
		}
		if isVoice(channel) {
			return roomRef(channel), nil
		}
		if fallback == nil {
			fallback = channel
		}
	}
	if fallback != nil {
		return roomRef(fallback), nil
	}

	return domain.RoomRef{}, domain.ErrRoomNotFound
}

// ResolveMember accepts a mention or raw user ID, `name#discriminator`, a
// username, a global display name or a guild nickname. Exact matches win over
// case-insensitive ones.
func (d *Directory) ResolveMember(ctx context.Context, guildID domain.GuildID, name string) (domain.MemberRef, error) {
	if err := ctx.Err(); err != nil {
		return domain.MemberRef{}, err
	}

	guild, err := d.guild(guildID)
	if err != nil {
		return domain.MemberRef{}, err
	}

	d.state.RLock()
	defer d.state.RUnlock()

	if member := matchMember(guild.Members, strings.TrimSpace(name)); member != nil {
		return memberRef(member), nil
	}

	return domain.MemberRef{}, domain.ErrMemberNotFound
}

func (d *Directory) MembersInRoom(ctx context.Context, guildID domain.GuildID, room domain.RoomRef) ([]domain.MemberRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	guild, err := d.guild(guildID)
	if err != nil {
		return nil, err
	}

	d.state.RLock()
	defer d.state.RUnlock()

	byID := make(map[string]*discordgo.Member, len(guild.Members))
	for _, member := range guild.Members {
		if member != nil && member.User != nil {
			byID[member.User.ID] = member
		}
	}

	members := make([]domain.MemberRef, 0)
	for _, voiceState := range guild.VoiceStates {
		if voiceState == nil || voiceState.ChannelID != string(room.ID) {
			continue
		}
		if member, ok := byID[voiceState.UserID]; ok {
			members = append(members, memberRef(member))
			continue
		}
		members = append(members, domain.MemberRef{ID: domain.MemberID(voiceState.UserID)})
	}

	return members, nil
}

func (d *Directory) guild(guildID domain.GuildID) (*discordgo.Guild, error) {
	if d.state == nil || guildID == "" {
		return nil, domain.ErrGuildUnavailable
	}

	guild, err := d.state.Guild(string(guildID))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrGuildUnavailable, guildID, err)
	}
	if guild.Unavailable {
		return nil, fmt.Errorf("%w: %s", domain.ErrGuildUnavailable, guildID)
	}

	return guild, nil
}

func matchMember(members []*discordgo.Member, name string) *discordgo.Member {
	if name == "" {
		return nil
	}

	if id, ok := mentionID(name); ok {
		for _, member := range members {
			if member != nil && member.User != nil && member.User.ID == id {
				return member
			}
		}
	}

	if username, discriminator, ok := strings.Cut(name, "#"); ok {
		for _, member := range members {
			if member != nil && member.User != nil && member.User.Username == username && member.User.Discriminator == discriminator {
				return member
			}
		}
	}

	for _, equal := range []func(string, string) bool{
		func(a, b string) bool { return a == b },
		strings.EqualFold,
	} {
		for _, member := range members {
			if member == nil || member.User == nil {
				continue
			}
			for _, candidate := range []string{member.User.Username, member.User.GlobalName, member.Nick} {
				if candidate != "" && equal(candidate, name) {
					return member
				}
			}
		}
	}

	return nil
}

func mentionID(name string) (string, bool) {
	id := name
	if strings.HasPrefix(id, "<@") && strings.HasSuffix(id, ">") {
		id = strings.TrimPrefix(strings.TrimSuffix(id[2:], ">"), "!")
	}
	if id == "" {
		return "", false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return id, true
}

func isVoice(channel *discordgo.Channel) bool {
	return channel.Type == discordgo.ChannelTypeGuildVoice || channel.Type == discordgo.ChannelTypeGuildStageVoice
}

func roomRef(channel *discordgo.Channel) domain.RoomRef {
	return domain.RoomRef{ID: domain.RoomID(channel.ID), Name: channel.Name}
}

func memberRef(member *discordgo.Member) domain.MemberRef {
	return domain.MemberRef{ID: domain.MemberID(member.User.ID), Name: displayName(member)}
}

func displayName(member *discordgo.Member) string {
	switch {
	case member.Nick != "":
		return member.Nick
	case member.User.GlobalName != "":
		return member.User.GlobalName
	default:
		return member.User.Username
	}
}
