package tgbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dmitrymomot/tgscenario/pkg/logger"
	"github.com/dmitrymomot/tgscenario/pkg/scenario"
)

// HandlerFunc handles an update routed to the actor's current state. The
// pointer is bound to the signal the handler was registered with.
type HandlerFunc func(ctx context.Context, b *bot.Bot, update *models.Update, p *scenario.Pointer) error

// ErrorHandler receives errors returned by handlers.
type ErrorHandler func(ctx context.Context, b *bot.Bot, update *models.Update, err error)

type route struct {
	signal  scenario.Signal
	match   MatchFunc
	handler HandlerFunc
}

// Router dispatches updates to handlers by the actor's current state.
type Router struct {
	fsm      *scenario.FSM
	log      *slog.Logger
	onError  ErrorHandler
	fallback bot.HandlerFunc

	mu     sync.RWMutex
	routes map[string][]route
}

// RouterOption configures a Router.
type RouterOption func(*Router)

func WithLogger(l *slog.Logger) RouterOption {
	return func(r *Router) {
		if l != nil {
			r.log = l
		}
	}
}

// WithErrorHandler replaces the default handler, which only logs.
func WithErrorHandler(h ErrorHandler) RouterOption {
	return func(r *Router) {
		if h != nil {
			r.onError = h
		}
	}
}

// WithFallback sets the handler for updates no route matches.
func WithFallback(h bot.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.fallback = h
	}
}

func NewRouter(fsm *scenario.FSM, opts ...RouterOption) *Router {
	r := &Router{
		fsm:    fsm,
		log:    slog.Default(),
		routes: make(map[string][]route),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(logger.Component("tgbot"))
	if r.onError == nil {
		r.onError = r.logError
	}
	return r
}

// Handle registers handler for updates accepted by match while the actor is
// in one of states. A nil match accepts every update. Routes are tried in
// registration order and the first match wins.
func (r *Router) Handle(signal scenario.Signal, match MatchFunc, handler HandlerFunc, states ...scenario.State) error {
	switch {
	case signal == nil:
		return ErrNilSignal
	case handler == nil:
		return ErrNilHandler
	case len(states) == 0:
		return ErrNoStates
	}
	if match == nil {
		match = MatchAny()
	}

	names := make([]string, 0, len(states))
	for _, s := range states {
		if s == nil {
			return errors.Join(scenario.ErrInvalidState, errors.New("state is nil"))
		}
		if _, err := r.fsm.Table().State(s.Name()); err != nil {
			return fmt.Errorf("registering handler for signal '%s': %w", signal.Name(), err)
		}
		names = append(names, s.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		r.routes[name] = append(r.routes[name], route{signal: signal, match: match, handler: handler})
	}

	r.log.Debug("handler registered", logger.Signal(signal.Name()), slog.Any("states", names))
	return nil
}

// MustHandle is like Handle but panics on error.
func (r *Router) MustHandle(signal scenario.Signal, match MatchFunc, handler HandlerFunc, states ...scenario.State) {
	if err := r.Handle(signal, match, handler, states...); err != nil {
		panic(err)
	}
}

// HandleUpdate implements bot.HandlerFunc.
func (r *Router) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	actor, ok := ActorFromUpdate(update)
	if !ok {
		r.runFallback(ctx, b, update)
		return
	}
	ctx = scenario.WithActor(ctx, actor)

	current, err := r.fsm.CurrentState(ctx, actor)
	if err != nil {
		r.onError(ctx, b, update, err)
		return
	}

	rt, ok := r.lookup(current.Name(), update)
	if !ok {
		r.log.DebugContext(ctx, "no handler matched", logger.State(current.Name()))
		r.runFallback(ctx, b, update)
		return
	}

	p := scenario.NewPointer(r.fsm, rt.signal, update, scenario.Data{"bot": b, "update": update}, actor)
	ctx = scenario.WithPointer(ctx, p)

	if err := rt.handler(ctx, b, update, p); err != nil {
		r.onError(ctx, b, update, err)
	}
}

func (r *Router) lookup(state string, update *models.Update) (route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rt := range r.routes[state] {
		if rt.match(update) {
			return rt, true
		}
	}
	return route{}, false
}

func (r *Router) runFallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if r.fallback != nil {
		r.fallback(ctx, b, update)
	}
}

func (r *Router) logError(ctx context.Context, _ *bot.Bot, _ *models.Update, err error) {
	if scenario.IsLockingError(err) {
		r.log.WarnContext(ctx, "transition already in progress", logger.Error(err))
		return
	}
	r.log.ErrorContext(ctx, "update handling failed", logger.Error(err))
}
