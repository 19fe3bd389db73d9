package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Option is a catalog instrument. The catalog is loaded by the importer and
// is read-only through the API. ImportBatch tags the rows of one import.
type Option struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	StrikePrice     float64            `bson:"strikePrice" json:"strikePrice"`
	TradingSymbol   string             `bson:"tradingSymbol" json:"tradingSymbol"`
	InstrumentToken int64              `bson:"instrumentToken" json:"instrumentToken"`
	Option          string             `bson:"option" json:"option"`
	ImportBatch     string             `bson:"importBatch,omitempty" json:"-"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// OptionLeg is the projection returned by strike price lookups.
type OptionLeg struct {
	TradingSymbol   string `bson:"tradingSymbol" json:"tradingSymbol"`
	InstrumentToken int64  `bson:"instrumentToken" json:"instrumentToken"`
	Option          string `bson:"option" json:"option"`
}
