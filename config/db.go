package config

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection      = "users"
	StrategiesCollection = "strategies"
	OptionsCollection    = "options"
)

// ConnectDB connects to MongoDB, pings it and returns the client together
// with the configured database.
func ConnectDB(ctx context.Context, cfg MongoConfig) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo.Connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo.Ping: %w", err)
	}

	return client, client.Database(cfg.DB), nil
}

// EnsureIndexes creates the indexes the repositories rely on. The unique
// email index is what finally guarantees one account per address.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "resetPasswordToken", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		StrategiesCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "strategyName", Value: 1}}},
		},
		OptionsCollection: {
			{Keys: bson.D{{Key: "strikePrice", Value: 1}}},
			{Keys: bson.D{{Key: "tradingSymbol", Value: 1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
