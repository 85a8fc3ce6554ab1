package scenario

import (
	"errors"
	"fmt"
)

var (
	ErrInitialState           = errors.New("initial state error")
	ErrAddingTransition       = errors.New("cannot add transition")
	ErrDuplicate              = errors.New("duplicate registration")
	ErrStateNotFound          = errors.New("state not found")
	ErrTransition             = errors.New("transition failed")
	ErrTransitionLocked       = errors.New("transition is locked for actor")
	ErrMagazineNotInitialized = errors.New("magazine is not initialized")
	ErrMagazineNotLoaded      = errors.New("magazine is not loaded")
	ErrStaleMagazine          = errors.New("magazine changed by a concurrent transition")
	ErrNothingToCommit        = errors.New("magazine has no staged states to commit")
	ErrNotEnoughHistory       = errors.New("not enough states in the magazine to go back")
	ErrExport                 = errors.New("cannot export transitions")
	ErrInvalidState           = errors.New("invalid state: state cannot be nil or unnamed")
	ErrInvalidSignal          = errors.New("invalid signal: signal cannot be nil or unnamed")

	// ErrLogNotFound is returned by Store implementations when no magazine log
	// exists for an actor yet.
	ErrLogNotFound = errors.New("magazine log not found")
)

// LockingError is returned when a transition is attempted for an actor that
// already has a transition in flight.
type LockingError struct {
	Source      string
	Destination string
	Actor       Actor
}

func (e *LockingError) Error() string {
	return fmt.Sprintf("transition from '%s' to '%s' for (%s) is not possible because there is an active lock",
		e.Source, e.Destination, e.Actor)
}

// Is makes LockingError match both ErrTransitionLocked and ErrTransition.
func (e *LockingError) Is(target error) bool {
	return target == ErrTransitionLocked || target == ErrTransition
}

func NewLockingError(source, destination string, actor Actor) *LockingError {
	return &LockingError{
		Source:      source,
		Destination: destination,
		Actor:       actor,
	}
}

func IsLockingError(err error) bool {
	var e *LockingError
	return errors.As(err, &e)
}

// IsMagazineNotInitialized reports whether err means the actor has never been
// seeded with the initial state.
func IsMagazineNotInitialized(err error) bool {
	return errors.Is(err, ErrMagazineNotInitialized)
}

func IsStateNotFound(err error) bool {
	return errors.Is(err, ErrStateNotFound)
}
