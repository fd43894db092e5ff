package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrackedGame is a board game whose plays are mirrored locally. The list is
// seeded externally (see cmd/seeder) and is read-only to the sync engine.
type TrackedGame struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	ObjectID int                `bson:"objectid"`
	Name     string             `bson:"name"`
}

// SyncStatus tracks sync progress for a single game. ImportSuccessful is only
// ever set to true after a full import ran to completion.
type SyncStatus struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	ObjectID         int                `bson:"objectid"`
	BoardGameName    string             `bson:"board_game_name"`
	ImportSuccessful bool               `bson:"import_successful"`
	LastUpdated      time.Time          `bson:"last_updated"`
}

// Play is one logged play fetched from BGG. The BGG play id doubles as the
// mongo _id so upserts are keyed structurally.
type Play struct {
	ID       int       `bson:"_id"`
	ObjectID int       `bson:"objectid"`
	Date     time.Time `bson:"date"`
	Quantity int       `bson:"quantity"`
	Location string    `bson:"location"`
	Players  []Player  `bson:"players"`
}

// Player is a participant of a single Play. It has no identity of its own.
type Player struct {
	Username string `bson:"username"`
	UserID   int    `bson:"userid"`
	Name     string `bson:"name"`
	Score    int    `bson:"score"`
	Rating   int    `bson:"rating"`
	DidWin   bool   `bson:"did_win"`
}

// MergeOutcome tallies the result of merging one page of plays into the
// store. WasSuccessful means at least one record landed.
type MergeOutcome struct {
	MatchedCount  int64
	ModifiedCount int64
	InsertedCount int64
	WasSuccessful bool
}
