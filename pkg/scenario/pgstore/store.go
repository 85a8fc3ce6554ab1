package pgstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/tgscenario/pkg/scenario"
)

// DB is the subset of *pgxpool.Pool used by Store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const (
	selectLogSQL = `SELECT state FROM scenario_magazine WHERE actor_key = $1 ORDER BY id`

	appendSQL = `INSERT INTO scenario_magazine (actor_key, user_id, chat_id, state)
SELECT $1, $2, $3, t.state FROM unnest($4::text[]) WITH ORDINALITY AS t(state, ord) ORDER BY t.ord`

	// Serializes concurrent seeding of one actor until the transaction ends.
	lockActorSQL = `SELECT pg_advisory_xact_lock(hashtext($1))`

	initLogSQL = `INSERT INTO scenario_magazine (actor_key, user_id, chat_id, state)
SELECT $1, $2, $3, $4 WHERE NOT EXISTS (SELECT 1 FROM scenario_magazine WHERE actor_key = $1)`

	deleteLogSQL = `DELETE FROM scenario_magazine WHERE actor_key = $1`

	upsertStateSQL = `INSERT INTO scenario_states (actor_key, user_id, chat_id, state, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (actor_key) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`

	selectStateSQL = `SELECT state FROM scenario_states WHERE actor_key = $1`
)

// Store keeps magazines as ordered rows of scenario_magazine and current
// states in scenario_states. Run Migrate before use.
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetLog(ctx context.Context, actor scenario.Actor) ([]string, error) {
	rows, err := s.db.Query(ctx, selectLogSQL, actor.Key())
	if err != nil {
		return nil, err
	}
	log, err := pgx.CollectRows(rows, pgx.RowTo[string])
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
	_, err := s.db.Exec(ctx, appendSQL, actor.Key(), actor.UserID, actor.ChatID, names)
	return err
}

func (s *Store) InitLog(ctx context.Context, actor scenario.Actor, initial string) ([]string, error) {
	var log []string
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, lockActorSQL, actor.Key()); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, initLogSQL, actor.Key(), actor.UserID, actor.ChatID, initial); err != nil {
			return err
		}
		rows, err := tx.Query(ctx, selectLogSQL, actor.Key())
		if err != nil {
			return err
		}
		log, err = pgx.CollectRows(rows, pgx.RowTo[string])
		return err
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

func (s *Store) ReplaceLog(ctx context.Context, actor scenario.Actor, names []string) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteLogSQL, actor.Key()); err != nil {
			return err
		}
		if len(names) == 0 {
			return nil
		}
		_, err := tx.Exec(ctx, appendSQL, actor.Key(), actor.UserID, actor.ChatID, names)
		return err
	})
}

func (s *Store) SetCurrentState(ctx context.Context, actor scenario.Actor, raw string) error {
	_, err := s.db.Exec(ctx, upsertStateSQL, actor.Key(), actor.UserID, actor.ChatID, raw)
	return err
}

func (s *Store) GetCurrentState(ctx context.Context, actor scenario.Actor) (string, error) {
	var raw string
	err := s.db.QueryRow(ctx, selectStateSQL, actor.Key()).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return raw, err
}
