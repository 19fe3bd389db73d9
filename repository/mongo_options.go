package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Tirth-chokshi/strategy-backend/config"
	"github.com/Tirth-chokshi/strategy-backend/models"
)

// MongoOptions is the read-mostly option catalog.
type MongoOptions struct {
	col *mongo.Collection
}

func NewMongoOptions(db *mongo.Database) *MongoOptions {
	return &MongoOptions{col: db.Collection(config.OptionsCollection)}
}

func (r *MongoOptions) FindByStrikePrice(ctx context.Context, strikePrice float64) ([]models.OptionLeg, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 0, "tradingSymbol": 1, "instrumentToken": 1, "option": 1}).
		SetSort(bson.D{{Key: "option", Value: 1}})

	cursor, err := r.col.Find(ctx, bson.M{"strikePrice": strikePrice}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	legs := []models.OptionLeg{}
	if err := cursor.All(ctx, &legs); err != nil {
		return nil, err
	}
	return legs, nil
}

func (r *MongoOptions) DistinctStrikePrices(ctx context.Context, from, to float64, limit int) ([]float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"strikePrice": bson.M{"$gte": from, "$lt": to}}}},
		{{Key: "$group", Value: bson.M{"_id": "$strikePrice"}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Value float64 `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Value)
	}
	return out, nil
}

func (r *MongoOptions) TradingSymbolsForStrike(ctx context.Context, strikePrice float64, limit int) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 0, "tradingSymbol": 1}).
		SetSort(bson.D{{Key: "tradingSymbol", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.col.Find(ctx, bson.M{"strikePrice": strikePrice}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		TradingSymbol string `bson:"tradingSymbol"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.TradingSymbol)
	}
	return out, nil
}

func (r *MongoOptions) SearchField(ctx context.Context, field, query string, limit int) ([]string, error) {
	re := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{field: re}}},
		{{Key: "$group", Value: bson.M{"_id": "$" + field}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Value string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Value)
	}
	return out, nil
}

// ReplaceAll swaps the catalog for opts. The new rows are inserted under a
// fresh import batch before any old row is removed, so a failed insert
// leaves the previous catalog in place and readers never see it empty.
// Between the two steps a lookup may see both batches.
func (r *MongoOptions) ReplaceAll(ctx context.Context, opts []models.Option) (int, error) {
	batch := primitive.NewObjectID().Hex()
	now := time.Now().UTC()

	if len(opts) > 0 {
		docs := make([]interface{}, 0, len(opts))
		for i := range opts {
			o := opts[i]
			o.ID = primitive.NewObjectID()
			o.ImportBatch = batch
			if o.CreatedAt.IsZero() {
				o.CreatedAt, o.UpdatedAt = now, now
			}
			docs = append(docs, o)
		}
		if _, err := r.col.InsertMany(ctx, docs); err != nil {
			// drop whatever part of the batch made it in
			if _, cerr := r.col.DeleteMany(ctx, bson.M{"importBatch": batch}); cerr != nil {
				err = fmt.Errorf("%w (cleanup: %v)", err, cerr)
			}
			return 0, fmt.Errorf("insert options: %w", err)
		}
	}

	if _, err := r.col.DeleteMany(ctx, bson.M{"importBatch": bson.M{"$ne": batch}}); err != nil {
		return 0, fmt.Errorf("clear previous options: %w", err)
	}
	return len(opts), nil
}
