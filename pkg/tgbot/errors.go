package tgbot

import "errors"

var (
	ErrNilHandler = errors.New("tgbot: handler is nil")
	ErrNilSignal  = errors.New("tgbot: signal is nil")
	ErrNoStates   = errors.New("tgbot: handler must be bound to at least one state")
)
