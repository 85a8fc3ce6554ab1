package redisstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tgscenario/pkg/scenario"
)

const defaultPrefix = "scenario"

// initLogScript seeds the list only when it is empty and returns its content.
var initLogScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	redis.call("RPUSH", KEYS[1], ARGV[1])
end
return redis.call("LRANGE", KEYS[1], 0, -1)
`)

// Store keeps each actor's magazine in a Redis list and its current state in
// a plain string key.
type Store struct {
	db     redis.UniversalClient
	prefix string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithKeyPrefix namespaces every key written by the store.
func WithKeyPrefix(prefix string) StoreOption {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func NewStore(client redis.UniversalClient, opts ...StoreOption) *Store {
	s := &Store{db: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) GetLog(ctx context.Context, actor scenario.Actor) ([]string, error) {
	log, err := s.db.LRange(ctx, s.magazineKey(actor), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(log) == 0 {
		return nil, scenario.ErrLogNotFound
	}
	return log, nil
}

func (s *Store) Append(ctx context.Context, actor scenario.Actor, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	return s.db.RPush(ctx, s.magazineKey(actor), toArgs(names)...).Err()
}

func (s *Store) InitLog(ctx context.Context, actor scenario.Actor, initial string) ([]string, error) {
	return initLogScript.Run(ctx, s.db, []string{s.magazineKey(actor)}, initial).StringSlice()
}

// ReplaceLog swaps the whole list in one MULTI/EXEC block.
func (s *Store) ReplaceLog(ctx context.Context, actor scenario.Actor, names []string) error {
	key := s.magazineKey(actor)
	_, err := s.db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(names) > 0 {
			pipe.RPush(ctx, key, toArgs(names)...)
		}
		return nil
	})
	return err
}

func (s *Store) SetCurrentState(ctx context.Context, actor scenario.Actor, raw string) error {
	return s.db.Set(ctx, s.stateKey(actor), raw, 0).Err()
}

func (s *Store) GetCurrentState(ctx context.Context, actor scenario.Actor) (string, error) {
	raw, err := s.db.Get(ctx, s.stateKey(actor)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return raw, err
}

func (s *Store) magazineKey(actor scenario.Actor) string {
	return s.prefix + ":magazine:" + actor.Key()
}

func (s *Store) stateKey(actor scenario.Actor) string {
	return s.prefix + ":state:" + actor.Key()
}

func toArgs(names []string) []any {
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}
	return args
}
