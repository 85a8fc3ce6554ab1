package tgbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dmitrymomot/tgscenario/pkg/logger"
	"github.com/dmitrymomot/tgscenario/pkg/scenario"
)

// ErrInvalidThrottleConfig is returned by NewThrottle for non-positive limits.
var ErrInvalidThrottleConfig = errors.New("tgbot: invalid throttle configuration")

const (
	sweepInterval = 10 * time.Minute
	staleAfter    = time.Hour
)

// ThrottleConfig defines a per-actor token bucket.
type ThrottleConfig struct {
	Capacity       int           `env:"THROTTLE_CAPACITY" envDefault:"5"`          // Capacity is the burst of updates an actor may send.
	RefillRate     int           `env:"THROTTLE_REFILL_RATE" envDefault:"1"`       // RefillRate is the number of tokens added per interval.
	RefillInterval time.Duration `env:"THROTTLE_REFILL_INTERVAL" envDefault:"1s"` // RefillInterval is how often tokens are added.
}

func (c ThrottleConfig) validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidThrottleConfig, c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidThrottleConfig, c.RefillRate)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be positive, got %v", ErrInvalidThrottleConfig, c.RefillInterval)
	}
	return nil
}

type bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
}

// Throttle drops updates from actors that exceed their token bucket. It keeps
// repeated taps on inline buttons from piling up as lock conflicts.
type Throttle struct {
	cfg         ThrottleConfig
	now         func() time.Time
	log         *slog.Logger
	onThrottled bot.HandlerFunc

	mu        sync.Mutex
	buckets   map[scenario.Actor]*bucket
	lastSweep time.Time
}

// ThrottleOption configures a Throttle.
type ThrottleOption func(*Throttle)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) ThrottleOption {
	return func(t *Throttle) {
		if now != nil {
			t.now = now
		}
	}
}

// WithThrottleLogger sets the logger used to report dropped updates.
func WithThrottleLogger(l *slog.Logger) ThrottleOption {
	return func(t *Throttle) {
		if l != nil {
			t.log = l
		}
	}
}

// WithOnThrottled sets a handler called instead of the next one for dropped
// updates, e.g. to answer a callback query.
func WithOnThrottled(h bot.HandlerFunc) ThrottleOption {
	return func(t *Throttle) { t.onThrottled = h }
}

func NewThrottle(cfg ThrottleConfig, opts ...ThrottleOption) (*Throttle, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	t := &Throttle{
		cfg:     cfg,
		now:     time.Now,
		log:     logger.Nop(),
		buckets: make(map[scenario.Actor]*bucket),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.lastSweep = t.now()
	return t, nil
}

// Allow consumes one token for actor and reports whether one was available.
func (t *Throttle) Allow(actor scenario.Actor) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.sweep(now)

	b, ok := t.buckets[actor]
	if !ok {
		b = &bucket{tokens: t.cfg.Capacity, lastRefill: now}
		t.buckets[actor] = b
	}

	// cap intervals so a long idle period cannot overflow the token count
	maxIntervals := int64(t.cfg.Capacity/t.cfg.RefillRate + 1)
	intervals := int(min(int64(now.Sub(b.lastRefill)/t.cfg.RefillInterval), maxIntervals))
	if intervals > 0 {
		b.tokens = min(b.tokens+intervals*t.cfg.RefillRate, t.cfg.Capacity)
		b.lastRefill = now
	}
	b.lastAccess = now

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops idle buckets. Must be called with t.mu held.
func (t *Throttle) sweep(now time.Time) {
	if now.Sub(t.lastSweep) < sweepInterval {
		return
	}
	for actor, b := range t.buckets {
		if now.Sub(b.lastAccess) > staleAfter {
			delete(t.buckets, actor)
		}
	}
	t.lastSweep = now
}

// Middleware is a bot.Middleware applying the throttle. Updates without an
// actor pass through.
func (t *Throttle) Middleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		actor, ok := ActorFromUpdate(update)
		if !ok || t.Allow(actor) {
			next(ctx, b, update)
			return
		}

		t.log.DebugContext(ctx, "update throttled",
			logger.UserID(actor.UserID), logger.ChatID(actor.ChatID))
		if t.onThrottled != nil {
			t.onThrottled(ctx, b, update)
		}
	}
}
