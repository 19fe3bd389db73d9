package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DetailType is the leg kind of a strategy detail.
type DetailType string

const (
	DetailCall    DetailType = "CE"
	DetailPut     DetailType = "PE"
	DetailFutures DetailType = "FUTURES"
)

// Valid reports whether t is one of the known leg kinds.
func (t DetailType) Valid() bool {
	switch t {
	case DetailCall, DetailPut, DetailFutures:
		return true
	}
	return false
}

// StrategyDetail is one leg of a strategy. It lives only inside its parent.
type StrategyDetail struct {
	ID              primitive.ObjectID `bson:"_id" json:"_id"`
	StrikePrice     float64            `bson:"strikePrice" json:"strikePrice"`
	TradingSymbol   string             `bson:"tradingSymbol" json:"tradingSymbol"`
	InstrumentToken string             `bson:"instrumentToken" json:"instrumentToken"`
	Type            DetailType         `bson:"type" json:"type"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type Strategy struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	StrategyName    string             `bson:"strategyName" json:"strategyName"`
	Status          bool               `bson:"status" json:"status"`
	StrategyDetails []StrategyDetail   `bson:"strategyDetails" json:"strategyDetails"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// StrategyDetailInput is a detail as sent by clients; every field is optional
// so the same shape serves creation and partial replacement.
type StrategyDetailInput struct {
	StrikePrice     *float64    `json:"strikePrice,omitempty"`
	TradingSymbol   *string     `json:"tradingSymbol,omitempty"`
	InstrumentToken *string     `json:"instrumentToken,omitempty"`
	Type            *DetailType `json:"type,omitempty"`
}

// StrategyUpdate allows partial updates of a strategy.
type StrategyUpdate struct {
	StrategyName    *string                `json:"strategyName,omitempty"`
	Status          *bool                  `json:"status,omitempty"`
	StrategyDetails *[]StrategyDetailInput `json:"strategyDetails,omitempty"`
}
