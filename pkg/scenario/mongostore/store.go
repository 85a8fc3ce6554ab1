package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/tgscenario/pkg/scenario"
)

type actorDocument struct {
	ID        string    `bson:"_id"`
	UserID    int64     `bson:"user_id"`
	ChatID    int64     `bson:"chat_id"`
	Log       []string  `bson:"log,omitempty"`
	State     string    `bson:"state,omitempty"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Store keeps one document per actor holding both the magazine log and the
// current state.
type Store struct {
	coll *mongo.Collection
}

func NewStore(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// NewStoreFromClient opens the configured database and collection.
func NewStoreFromClient(client *mongo.Client, cfg Config) *Store {
	return NewStore(client.Database(cfg.Database).Collection(cfg.Collection))
}

func (s *Store) GetLog(ctx context.Context, actor scenario.Actor) ([]string, error) {
	var doc actorDocument
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: actor.Key()}},
		options.FindOne().SetProjection(bson.D{{Key: "log", Value: 1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, scenario.ErrLogNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(doc.Log) == 0 {
		return nil, scenario.ErrLogNotFound
	}
	return doc.Log, nil
}

func (s *Store) Append(ctx context.Context, actor scenario.Actor, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	return s.upsert(ctx, actor, bson.D{
		{Key: "$push", Value: bson.D{{Key: "log", Value: bson.D{{Key: "$each", Value: names}}}}},
	})
}

// InitLog sets the log only on a document without entries. A concurrent
// upsert losing the race on _id reports a duplicate key, which means the log
// already exists.
func (s *Store) InitLog(ctx context.Context, actor scenario.Actor, initial string) ([]string, error) {
	filter := bson.D{
		{Key: "_id", Value: actor.Key()},
		{Key: "log.0", Value: bson.D{{Key: "$exists", Value: false}}},
	}
	update := bson.D{
		{Key: "$set", Value: bson.D{{Key: "log", Value: []string{initial}}}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "user_id", Value: actor.UserID},
			{Key: "chat_id", Value: actor.ChatID},
		}},
		{Key: "$currentDate", Value: bson.D{{Key: "updated_at", Value: true}}},
	}
	_, err := s.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, err
	}
	return s.GetLog(ctx, actor)
}

func (s *Store) ReplaceLog(ctx context.Context, actor scenario.Actor, names []string) error {
	return s.upsert(ctx, actor, bson.D{
		{Key: "$set", Value: bson.D{{Key: "log", Value: names}}},
	})
}

func (s *Store) SetCurrentState(ctx context.Context, actor scenario.Actor, raw string) error {
	return s.upsert(ctx, actor, bson.D{
		{Key: "$set", Value: bson.D{{Key: "state", Value: raw}}},
	})
}

func (s *Store) GetCurrentState(ctx context.Context, actor scenario.Actor) (string, error) {
	var doc actorDocument
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: actor.Key()}},
		options.FindOne().SetProjection(bson.D{{Key: "state", Value: 1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	return doc.State, err
}

// upsert applies update to the actor document, creating it when missing, and
// stamps identity fields and the modification time.
func (s *Store) upsert(ctx context.Context, actor scenario.Actor, update bson.D) error {
	update = append(update,
		bson.E{Key: "$setOnInsert", Value: bson.D{
			{Key: "user_id", Value: actor.UserID},
			{Key: "chat_id", Value: actor.ChatID},
		}},
		bson.E{Key: "$currentDate", Value: bson.D{{Key: "updated_at", Value: true}}},
	)
	_, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: actor.Key()}}, update,
		options.UpdateOne().SetUpsert(true))
	return err
}
