package room

import "errors"

// Errors returned by room operations. Callers match them with errors.Is;
// the wrapped message carries the detail shown to users.
var (
	ErrNotFound         = errors.New("not found")
	ErrRoomFull         = errors.New("room full")
	ErrNotAuthorized    = errors.New("not authorized")
	ErrInvalidState     = errors.New("invalid state")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrConfig           = errors.New("invalid room config")
)
