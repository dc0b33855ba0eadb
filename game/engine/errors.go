package engine

import "errors"

var (
	ErrInvalidComposition = errors.New("invalid fleet composition")
	ErrBadRequest         = errors.New("bad request")
	ErrSessionFull        = errors.New("session is full")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrAlreadyInSession   = errors.New("player already in a session")
)
