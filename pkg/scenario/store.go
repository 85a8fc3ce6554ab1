package scenario

import "context"

// Store persists magazine logs and the current session state of actors.
type Store interface {
	// GetLog returns the ordered state names of the actor's magazine, or
	// ErrLogNotFound if none was created yet.
	GetLog(ctx context.Context, actor Actor) ([]string, error)

	// Append adds state names to the end of the actor's magazine log.
	Append(ctx context.Context, actor Actor, names ...string) error

	// InitLog creates the actor's log holding only initial unless one
	// already exists, and returns the log as stored. Concurrent callers must
	// observe a single creation.
	InitLog(ctx context.Context, actor Actor, initial string) ([]string, error)

	// ReplaceLog overwrites the actor's magazine log.
	ReplaceLog(ctx context.Context, actor Actor, names []string) error

	// SetCurrentState records the raw value of the actor's current state.
	SetCurrentState(ctx context.Context, actor Actor, raw string) error

	// GetCurrentState returns the raw value of the actor's current state,
	// or an empty string if none was set.
	GetCurrentState(ctx context.Context, actor Actor) (string, error)
}
