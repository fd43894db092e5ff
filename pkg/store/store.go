package store

import (
	"context"

	"github.com/mlindegarde/blog--bg-stats/pkg/model"
)

// Store is the persistence contract the sync engine drives. All play writes
// are per-record upserts keyed by the play's BGG id, so every method is safe
// to repeat.
type Store interface {
	// ListTrackedGames returns the games whose plays are mirrored.
	ListTrackedGames(ctx context.Context) ([]model.TrackedGame, error)

	// GetSyncStatus returns the status for a game, or nil if none exists.
	GetSyncStatus(ctx context.Context, gameID int) (*model.SyncStatus, error)

	// ReplaceSyncStatus upserts the status keyed by its game id.
	ReplaceSyncStatus(ctx context.Context, status model.SyncStatus) error

	// DeletePlaysForGame removes all stored plays for a game. Deleting a
	// game with no plays is a no-op.
	DeletePlaysForGame(ctx context.Context, gameID int) error

	// InsertPlays upserts each play individually. Per-record failures are
	// logged and skipped.
	InsertPlays(ctx context.Context, plays []model.Play) error

	// MergePlays upserts each play individually and tallies the outcome.
	// Records that fail are logged and excluded from the tally.
	MergePlays(ctx context.Context, plays []model.Play) (model.MergeOutcome, error)

	// CountPlaysForGame returns the number of stored plays for a game.
	CountPlaysForGame(ctx context.Context, gameID int) (int64, error)
}
