package redisstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tgscenario/pkg/logger"
	"github.com/dmitrymomot/tgscenario/pkg/scenario"
)

const defaultLockTTL = 30 * time.Second

// releaseScript deletes the lock only if it is still owned by the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript renews the lock TTL only while the caller still owns it.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker is a scenario.Locker shared by every bot instance connected to the
// same Redis. Locks expire after the TTL so a crashed instance cannot block an
// actor forever. While a transition runs, the owner renews the TTL every
// refresh interval, so hooks may outlive the TTL as long as the owner is alive.
type Locker struct {
	db      redis.UniversalClient
	prefix  string
	ttl     time.Duration
	refresh time.Duration
	log     *slog.Logger
}

// LockerOption configures a Locker.
type LockerOption func(*Locker)

func WithLockTTL(ttl time.Duration) LockerOption {
	return func(l *Locker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithLockRefresh sets how often a held lock is renewed. It defaults to a
// third of the TTL and is capped at half of it.
func WithLockRefresh(interval time.Duration) LockerOption {
	return func(l *Locker) {
		if interval > 0 {
			l.refresh = interval
		}
	}
}

func WithLockPrefix(prefix string) LockerOption {
	return func(l *Locker) {
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

func WithLogger(log *slog.Logger) LockerOption {
	return func(l *Locker) {
		if log != nil {
			l.log = log
		}
	}
}

func NewLocker(client redis.UniversalClient, opts ...LockerOption) *Locker {
	l := &Locker{
		db:     client,
		prefix: defaultPrefix,
		ttl:    defaultLockTTL,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.refresh <= 0 || l.refresh > l.ttl/2 {
		l.refresh = l.ttl / 3
	}
	return l
}

func (l *Locker) Acquire(ctx context.Context, source, destination scenario.State, actor scenario.Actor) (func(), error) {
	key := l.lockKey(actor)
	token := uuid.NewString()

	ok, err := l.db.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, scenario.NewLockingError(source.Name(), destination.Name(), actor)
	}

	// Release and renewal must run even when ctx was cancelled mid-transition.
	bgCtx := context.WithoutCancel(ctx)
	keepCtx, stop := context.WithCancel(bgCtx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.keepAlive(keepCtx, key, token, actor)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			<-done
			if err := releaseScript.Run(bgCtx, l.db, []string{key}, token).Err(); err != nil {
				l.log.ErrorContext(bgCtx, "failed to release transition lock",
					logger.Error(err), logger.UserID(actor.UserID), logger.ChatID(actor.ChatID))
			}
		})
	}, nil
}

// keepAlive renews the lock until ctx is cancelled or ownership is lost.
func (l *Locker) keepAlive(ctx context.Context, key, token string, actor scenario.Actor) {
	ticker := time.NewTicker(l.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			owned, err := extendScript.Run(ctx, l.db, []string{key}, token, l.ttl.Milliseconds()).Int()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.log.WarnContext(ctx, "failed to extend transition lock",
					logger.Error(err), logger.UserID(actor.UserID), logger.ChatID(actor.ChatID))
				continue
			}
			if owned == 0 {
				l.log.WarnContext(ctx, "transition lock lost before release",
					logger.UserID(actor.UserID), logger.ChatID(actor.ChatID))
				return
			}
		}
	}
}

func (l *Locker) lockKey(actor scenario.Actor) string {
	return l.prefix + ":lock:" + actor.Key()
}
