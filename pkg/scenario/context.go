package scenario

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/tgscenario/pkg/logger"
)

type actorContextKey struct{}
type pointerContextKey struct{}

// WithActor stores actor in ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorContextKey{}).(Actor)
	return a, ok
}

// WithPointer stores p in ctx.
func WithPointer(ctx context.Context, p *Pointer) context.Context {
	return context.WithValue(ctx, pointerContextKey{}, p)
}

// PointerFromContext returns the pointer stored by WithPointer.
func PointerFromContext(ctx context.Context) (*Pointer, bool) {
	p, ok := ctx.Value(pointerContextKey{}).(*Pointer)
	return p, ok && p != nil
}

// LogActor is a logger.ContextExtractor adding the context actor to records.
func LogActor(ctx context.Context) (slog.Attr, bool) {
	a, ok := ActorFromContext(ctx)
	if !ok {
		return slog.Attr{}, false
	}
	return logger.Group("actor", logger.UserID(a.UserID), logger.ChatID(a.ChatID)), true
}
