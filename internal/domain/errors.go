package domain

import "errors"

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrMemberNotFound   = errors.New("member not found")
	ErrGuildUnavailable = errors.New("guild unavailable")
	ErrChannelIO        = errors.New("control channel i/o")
	ErrRemoteMutation   = errors.New("remote mutation failed")
)
