package store

import (
	"context"
	"errors"

	"github.com/mlindegarde/blog--bg-stats/pkg/logger"
	"github.com/mlindegarde/blog--bg-stats/pkg/metrics"
	"github.com/mlindegarde/blog--bg-stats/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	trackedGamesCollection = "board-games"
	syncStatusCollection   = "board-game-status"
	playsCollection        = "plays"
)

// MongoStore implements Store on a mongo database.
type MongoStore struct {
	db     *mongo.Database
	logger *logger.Logger
}

// NewMongoStore creates a new MongoStore instance.
func NewMongoStore(db *mongo.Database, l *logger.Logger) *MongoStore {
	return &MongoStore{db: db, logger: l}
}

// Ping verifies the database is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// ListTrackedGames returns every game in the board-games collection.
func (s *MongoStore) ListTrackedGames(ctx context.Context) ([]model.TrackedGame, error) {
	cursor, err := s.db.Collection(trackedGamesCollection).Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}

	var games []model.TrackedGame
	if err := cursor.All(ctx, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// GetSyncStatus returns the status for a game, or nil if none exists.
func (s *MongoStore) GetSyncStatus(ctx context.Context, gameID int) (*model.SyncStatus, error) {
	var status model.SyncStatus
	err := s.db.Collection(syncStatusCollection).
		FindOne(ctx, bson.D{{Key: "objectid", Value: gameID}}).
		Decode(&status)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &status, nil
}

// ReplaceSyncStatus upserts the status keyed by its game id.
func (s *MongoStore) ReplaceSyncStatus(ctx context.Context, status model.SyncStatus) error {
	s.logger.Debug("upserting status", zap.Int("objectid", status.ObjectID))

	_, err := s.db.Collection(syncStatusCollection).ReplaceOne(
		ctx,
		bson.D{{Key: "objectid", Value: status.ObjectID}},
		status,
		options.Replace().SetUpsert(true),
	)
	return err
}

// DeletePlaysForGame removes all stored plays for a game.
func (s *MongoStore) DeletePlaysForGame(ctx context.Context, gameID int) error {
	s.logger.Debug("removing all plays", zap.Int("objectid", gameID))

	_, err := s.db.Collection(playsCollection).DeleteMany(ctx, bson.D{{Key: "objectid", Value: gameID}})
	return err
}

// InsertPlays upserts each play individually, logging and skipping records
// that fail.
func (s *MongoStore) InsertPlays(ctx context.Context, plays []model.Play) error {
	if len(plays) == 0 {
		s.logger.Warn("attempted to log an empty play list")
		return nil
	}

	s.logger.Debug("inserting plays",
		zap.Int("count", len(plays)),
		zap.Int("objectid", plays[0].ObjectID))

	coll := s.db.Collection(playsCollection)
	for _, play := range plays {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := coll.ReplaceOne(
			ctx,
			bson.D{{Key: "_id", Value: play.ID}},
			play,
			options.Replace().SetUpsert(true),
		)
		if err != nil {
			s.logger.Error("failed to insert play", err,
				zap.Int("play_id", play.ID),
				zap.Int("objectid", play.ObjectID))
			continue
		}
		metrics.PlaysWrittenTotal.Inc()
	}
	return nil
}

// MergePlays upserts each play individually and tallies the outcome.
func (s *MongoStore) MergePlays(ctx context.Context, plays []model.Play) (model.MergeOutcome, error) {
	var outcome model.MergeOutcome

	if len(plays) == 0 {
		s.logger.Warn("attempted to log an empty play list")
		return outcome, nil
	}

	s.logger.Debug("upserting plays",
		zap.Int("count", len(plays)),
		zap.Int("objectid", plays[0].ObjectID))

	coll := s.db.Collection(playsCollection)
	for _, play := range plays {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		result, err := coll.ReplaceOne(
			ctx,
			bson.D{{Key: "_id", Value: play.ID}},
			play,
			options.Replace().SetUpsert(true),
		)
		if err != nil {
			s.logger.Error("failed to upsert play", err,
				zap.Int("play_id", play.ID),
				zap.Int("objectid", play.ObjectID))
			continue
		}
		accumulate(&outcome, result)
		metrics.PlaysWrittenTotal.Inc()
	}

	return outcome, nil
}

// CountPlaysForGame returns the number of stored plays for a game.
func (s *MongoStore) CountPlaysForGame(ctx context.Context, gameID int) (int64, error) {
	return s.db.Collection(playsCollection).CountDocuments(ctx, bson.D{{Key: "objectid", Value: gameID}})
}

// accumulate folds one upsert result into the running tally. A replace that
// matched nothing and produced an upserted id counts as an insert.
func accumulate(outcome *model.MergeOutcome, result *mongo.UpdateResult) {
	if result.MatchedCount == 0 && result.ModifiedCount == 0 && result.UpsertedID != nil {
		outcome.InsertedCount++
	}
	outcome.MatchedCount += result.MatchedCount
	outcome.ModifiedCount += result.ModifiedCount
	outcome.WasSuccessful = true
}
