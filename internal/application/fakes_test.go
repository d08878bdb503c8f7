package application

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/bnema/oabot/internal/domain"
)

const testGuild domain.GuildID = "guild-1"

type fakeDirectory struct {
	guild     domain.GuildID
	rooms     map[string]domain.RoomRef
	members   map[string]domain.MemberRef
	occupants map[domain.RoomID][]domain.MemberRef
}

func newFakeDirectory() *fakeDirectory {
	afk := domain.RoomRef{ID: "100", Name: "AFK"}
	core := domain.RoomRef{ID: "200", Name: "Core"}
	lobby := domain.RoomRef{ID: "300", Name: "Team Lobby"}

	alice := domain.MemberRef{ID: "1", Name: "alice"}
	bob := domain.MemberRef{ID: "2", Name: "bob"}
	carol := domain.MemberRef{ID: "3", Name: "carol"}
	oabot := domain.MemberRef{ID: "9", Name: "oabot"}

	return &fakeDirectory{
		guild: testGuild,
		rooms: map[string]domain.RoomRef{
			afk.Name:   afk,
			core.Name:  core,
			lobby.Name: lobby,
		},
		members: map[string]domain.MemberRef{
			alice.Name: alice,
			bob.Name:   bob,
			carol.Name: carol,
			oabot.Name: oabot,
		},
		occupants: map[domain.RoomID][]domain.MemberRef{
			core.ID:  {alice, bob, carol},
			lobby.ID: {bob},
		},
	}
}

func (d *fakeDirectory) ResolveRoom(_ context.Context, guild domain.GuildID, name string) (domain.RoomRef, error) {
	if guild != d.guild {
		return domain.RoomRef{}, domain.ErrGuildUnavailable
	}
	room, ok := d.rooms[name]
	if !ok {
		return domain.RoomRef{}, domain.ErrRoomNotFound
	}
	return room, nil
}

func (d *fakeDirectory) ResolveMember(_ context.Context, guild domain.GuildID, name string) (domain.MemberRef, error) {
	if guild != d.guild {
		return domain.MemberRef{}, domain.ErrGuildUnavailable
	}
	member, ok := d.members[name]
	if !ok {
		return domain.MemberRef{}, domain.ErrMemberNotFound
	}
	return member, nil
}

func (d *fakeDirectory) MembersInRoom(_ context.Context, guild domain.GuildID, room domain.RoomRef) ([]domain.MemberRef, error) {
	if guild != d.guild {
		return nil, domain.ErrGuildUnavailable
	}
	return append([]domain.MemberRef(nil), d.occupants[room.ID]...), nil
}

type moveCall struct {
	Member domain.MemberRef
	Room   domain.RoomRef
}

type muteCall struct {
	Member domain.MemberRef
	Muted  bool
}

type fakeActions struct {
	mu          sync.Mutex
	moves       []moveCall
	mutes       []muteCall
	muted       map[domain.MemberID]bool
	moveErr     error
	failMembers map[domain.MemberID]error
}

func (a *fakeActions) MoveMember(_ context.Context, _ domain.GuildID, member domain.MemberRef, room domain.RoomRef) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.moves = append(a.moves, moveCall{Member: member, Room: room})
	return a.moveErr
}

func (a *fakeActions) SetMemberMute(_ context.Context, _ domain.GuildID, member domain.MemberRef, muted bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.mutes = append(a.mutes, muteCall{Member: member, Muted: muted})
	if err := a.failMembers[member.ID]; err != nil {
		return err
	}
	if a.muted == nil {
		a.muted = map[domain.MemberID]bool{}
	}
	a.muted[member.ID] = muted
	return nil
}

func (a *fakeActions) moveCalls() []moveCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]moveCall(nil), a.moves...)
}

func (a *fakeActions) muteCalls() []muteCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]muteCall(nil), a.mutes...)
}

// fakeChannel hands out queued readers; with an empty queue Open blocks until
// ctx is cancelled, like a pipe nobody writes to.
type fakeChannel struct {
	mu        sync.Mutex
	ensures   int
	opens     int
	ensureErr error
	openErr   error
	readers   chan io.ReadCloser
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{readers: make(chan io.ReadCloser, 8)}
}

func (c *fakeChannel) Path() string {
	return "/tmp/oabot-test"
}

func (c *fakeChannel) Ensure() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensures++
	return c.ensureErr
}

func (c *fakeChannel) Open(ctx context.Context) (io.ReadCloser, error) {
	c.mu.Lock()
	c.opens++
	err := c.openErr
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}

	select {
	case reader := <-c.readers:
		return reader, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeChannel) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensures, c.opens
}

var errPermissionDenied = errors.New("missing permissions")
