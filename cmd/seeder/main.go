// Command seeder loads the tracked-game list into the board-games
// collection from a JSON file, e.g.
//
//	[{"objectid": 174430, "name": "Gloomhaven"}]
//
// The sync service treats the list as read-only; this tool is how games are
// added or renamed.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type seedGame struct {
	ObjectID int    `json:"objectid" bson:"objectid"`
	Name     string `json:"name" bson:"name"`
}

func main() {
	uri := flag.String("uri", "mongodb://localhost:27017", "MongoDB URI")
	dbName := flag.String("db", "board-game-stats", "Database name")
	collName := flag.String("coll", "board-games", "Collection name")
	file := flag.String("file", "games.json", "Path to the JSON game list")
	flag.Parse()

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("failed to read %s: %v", *file, err)
	}

	var games []seedGame
	if err := json.Unmarshal(data, &games); err != nil {
		log.Fatalf("failed to parse %s: %v", *file, err)
	}
	if len(games) == 0 {
		log.Fatalf("no games found in %s", *file)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*uri))
	if err != nil {
		log.Fatalf("failed to connect to mongodb: %v", err)
	}
	defer client.Disconnect(context.Background())

	coll := client.Database(*dbName).Collection(*collName)

	for _, game := range games {
		if game.ObjectID <= 0 || game.Name == "" {
			log.Printf("skipping invalid entry: %+v", game)
			continue
		}

		_, err := coll.ReplaceOne(
			ctx,
			bson.D{{Key: "objectid", Value: game.ObjectID}},
			game,
			options.Replace().SetUpsert(true),
		)
		if err != nil {
			log.Fatalf("failed to upsert %s (%d): %v", game.Name, game.ObjectID, err)
		}
		log.Printf("seeded %s (%d)", game.Name, game.ObjectID)
	}

	log.Printf("seeded %d games into %s.%s", len(games), *dbName, *collName)
}
