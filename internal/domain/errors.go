package domain

import "errors"

var (
	ErrNotConnected      = errors.New("not connected")
	ErrInvalidTransition = errors.New("invalid state transition")
)
