package domain

// ChatInvocation is a single prefix-stripped chat command. Args are the
// whitespace-delimited tokens after the command name; Rest is the same text
// unsplit, so multi-word room names survive intact.
type ChatInvocation struct {
	Guild  GuildID
	Sender MemberRef
	Name   string
	Args   []string
	Rest   string
}
