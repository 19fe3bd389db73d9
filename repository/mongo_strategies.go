package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Tirth-chokshi/strategy-backend/config"
	"github.com/Tirth-chokshi/strategy-backend/models"
)

// MongoStrategies is the strategies collection. Details are embedded, so
// every detail mutation is a single-document update.
type MongoStrategies struct {
	col *mongo.Collection
}

func NewMongoStrategies(db *mongo.Database) *MongoStrategies {
	return &MongoStrategies{col: db.Collection(config.StrategiesCollection)}
}

func owned(id, userID primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "userId": userID}
}

var after = options.FindOneAndUpdate().SetReturnDocument(options.After)

func (r *MongoStrategies) Create(ctx context.Context, s *models.Strategy) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	if s.StrategyDetails == nil {
		s.StrategyDetails = []models.StrategyDetail{}
	}
	_, err := r.col.InsertOne(ctx, s)
	return err
}

func (r *MongoStrategies) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Strategy, error) {
	cursor, err := r.col.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	strategies := []models.Strategy{}
	if err := cursor.All(ctx, &strategies); err != nil {
		return nil, err
	}
	return strategies, nil
}

func (r *MongoStrategies) FindOwned(ctx context.Context, id, userID primitive.ObjectID) (*models.Strategy, error) {
	var s models.Strategy
	if err := r.col.FindOne(ctx, owned(id, userID)).Decode(&s); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *MongoStrategies) UpdateOwned(ctx context.Context, id, userID primitive.ObjectID, ch StrategyChanges) (*models.Strategy, error) {
	set := bson.M{"updatedAt": ch.UpdatedAt}
	if ch.StrategyName != nil {
		set["strategyName"] = *ch.StrategyName
	}
	if ch.Status != nil {
		set["status"] = *ch.Status
	}
	if ch.StrategyDetails != nil {
		set["strategyDetails"] = *ch.StrategyDetails
	}
	return r.findAndUpdate(ctx, owned(id, userID), bson.M{"$set": set})
}

func (r *MongoStrategies) DeleteOwned(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, owned(id, userID))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoStrategies) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *MongoStrategies) AppendDetails(ctx context.Context, id, userID primitive.ObjectID, details []models.StrategyDetail, now time.Time) (*models.Strategy, error) {
	update := bson.M{
		"$push": bson.M{"strategyDetails": bson.M{"$each": details}},
		"$set":  bson.M{"updatedAt": now},
	}
	return r.findAndUpdate(ctx, owned(id, userID), update)
}

func (r *MongoStrategies) UpdateDetail(ctx context.Context, id, userID, detailID primitive.ObjectID, ch DetailChanges) (*models.Strategy, error) {
	filter := owned(id, userID)
	filter["strategyDetails._id"] = detailID

	set := bson.M{
		"updatedAt":                   ch.UpdatedAt,
		"strategyDetails.$.updatedAt": ch.UpdatedAt,
	}
	if ch.StrikePrice != nil {
		set["strategyDetails.$.strikePrice"] = *ch.StrikePrice
	}
	if ch.TradingSymbol != nil {
		set["strategyDetails.$.tradingSymbol"] = *ch.TradingSymbol
	}
	if ch.InstrumentToken != nil {
		set["strategyDetails.$.instrumentToken"] = *ch.InstrumentToken
	}
	if ch.Type != nil {
		set["strategyDetails.$.type"] = *ch.Type
	}
	return r.findAndUpdate(ctx, filter, bson.M{"$set": set})
}

func (r *MongoStrategies) RemoveDetail(ctx context.Context, id, userID, detailID primitive.ObjectID, now time.Time) (*models.Strategy, error) {
	filter := owned(id, userID)
	filter["strategyDetails._id"] = detailID

	update := bson.M{
		"$pull": bson.M{"strategyDetails": bson.M{"_id": detailID}},
		"$set":  bson.M{"updatedAt": now},
	}
	return r.findAndUpdate(ctx, filter, update)
}

// ToggleStatus flips status server-side with a pipeline update so two
// concurrent toggles never read the same value.
func (r *MongoStrategies) ToggleStatus(ctx context.Context, id, userID primitive.ObjectID, now time.Time) (*models.Strategy, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "status", Value: bson.D{{Key: "$not", Value: bson.A{"$status"}}}},
			{Key: "updatedAt", Value: now},
		}}},
	}
	return r.findAndUpdate(ctx, owned(id, userID), pipeline)
}

func (r *MongoStrategies) findAndUpdate(ctx context.Context, filter bson.M, update interface{}) (*models.Strategy, error) {
	var s models.Strategy
	if err := r.col.FindOneAndUpdate(ctx, filter, update, after).Decode(&s); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}
