// Package repository holds the document store access for users, strategies
// and the option catalog.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Tirth-chokshi/strategy-backend/models"
)

var (
	ErrNotFound       = errors.New("document not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserChanges lists the user fields to overwrite; nil means unchanged.
type UserChanges struct {
	Email        *string
	PasswordHash *string
	Name         *string
	UpdatedAt    time.Time
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// EmailTakenByOther reports whether email belongs to a user other than id.
	EmailTakenByOther(ctx context.Context, email string, id primitive.ObjectID) (bool, error)
	Update(ctx context.Context, id primitive.ObjectID, ch UserChanges) (*models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expires time.Time) error
	// RedeemResetToken atomically matches an unexpired token, stores the new
	// hash and clears the token. ErrNotFound when nothing matched.
	RedeemResetToken(ctx context.Context, token string, now time.Time, passwordHash string) error
}

// StrategyChanges lists the strategy fields to overwrite; nil means unchanged.
type StrategyChanges struct {
	StrategyName    *string
	Status          *bool
	StrategyDetails *[]models.StrategyDetail
	UpdatedAt       time.Time
}

// DetailChanges lists the detail fields to overwrite; nil means unchanged.
type DetailChanges struct {
	StrikePrice     *float64
	TradingSymbol   *string
	InstrumentToken *string
	Type            *models.DetailType
	UpdatedAt       time.Time
}

// StrategyRepository scopes every lookup by owner. A strategy owned by
// someone else is reported as ErrNotFound.
type StrategyRepository interface {
	Create(ctx context.Context, s *models.Strategy) error
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Strategy, error)
	FindOwned(ctx context.Context, id, userID primitive.ObjectID) (*models.Strategy, error)
	UpdateOwned(ctx context.Context, id, userID primitive.ObjectID, ch StrategyChanges) (*models.Strategy, error)
	DeleteOwned(ctx context.Context, id, userID primitive.ObjectID) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
	AppendDetails(ctx context.Context, id, userID primitive.ObjectID, details []models.StrategyDetail, now time.Time) (*models.Strategy, error)
	UpdateDetail(ctx context.Context, id, userID, detailID primitive.ObjectID, ch DetailChanges) (*models.Strategy, error)
	RemoveDetail(ctx context.Context, id, userID, detailID primitive.ObjectID, now time.Time) (*models.Strategy, error)
	ToggleStatus(ctx context.Context, id, userID primitive.ObjectID, now time.Time) (*models.Strategy, error)
}

type OptionRepository interface {
	FindByStrikePrice(ctx context.Context, strikePrice float64) ([]models.OptionLeg, error)
	// DistinctStrikePrices returns distinct strike prices in [from, to), ascending.
	DistinctStrikePrices(ctx context.Context, from, to float64, limit int) ([]float64, error)
	TradingSymbolsForStrike(ctx context.Context, strikePrice float64, limit int) ([]string, error)
	// SearchField does a case-insensitive substring match of query against a
	// string field and returns distinct values, ascending.
	SearchField(ctx context.Context, field, query string, limit int) ([]string, error)
	ReplaceAll(ctx context.Context, opts []models.Option) (int, error)
}
