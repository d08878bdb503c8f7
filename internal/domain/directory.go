package domain

import "strings"

type GuildID string
type RoomID string
type MemberID string

// RoomRef identifies a voice room. It is resolved from a name on every use and
// never cached, so renames and deletions are picked up immediately.
type RoomRef struct {
	ID   RoomID
	Name string
}

type MemberRef struct {
	ID   MemberID
	Name string
}

func (r RoomRef) String() string {
	return labelFor(string(r.ID), r.Name)
}

func (m MemberRef) String() string {
	return labelFor(string(m.ID), m.Name)
}

func labelFor(id, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return id
	}
	return name + " (" + id + ")"
}
