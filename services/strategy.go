package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Tirth-chokshi/strategy-backend/models"
	"github.com/Tirth-chokshi/strategy-backend/repository"
)

const (
	msgStrategyNotFound = "Strategy not found"
	msgDetailNotFound   = "Strategy or detail not found"
)

// StrategyService manages strategies on behalf of an authenticated owner.
// Every operation is filtered by owner; a strategy of another user is
// reported exactly like a missing one.
type StrategyService struct {
	Repo repository.StrategyRepository
	Now  func() time.Time
}

type CreateStrategyInput struct {
	StrategyName string
	Status       *bool
	// StrategyDetails must be non-nil; an empty list is allowed.
	StrategyDetails []models.StrategyDetailInput
}

func (s *StrategyService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *StrategyService) Create(ctx context.Context, owner primitive.ObjectID, in CreateStrategyInput) (*models.Strategy, error) {
	name := strings.TrimSpace(in.StrategyName)
	if name == "" || in.StrategyDetails == nil {
		return nil, validation("Strategy name and details are required")
	}

	now := s.now()
	details, err := buildDetails(in.StrategyDetails, now)
	if err != nil {
		return nil, err
	}

	st := &models.Strategy{
		UserID:          owner,
		StrategyName:    name,
		Status:          in.Status != nil && *in.Status,
		StrategyDetails: details,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Repo.Create(ctx, st); err != nil {
		return nil, internal("Error creating strategy", err)
	}
	return st, nil
}

func (s *StrategyService) ListMine(ctx context.Context, owner primitive.ObjectID) ([]models.Strategy, error) {
	items, err := s.Repo.ListByUser(ctx, owner)
	if err != nil {
		return nil, internal("Error fetching strategies", err)
	}
	return items, nil
}

func (s *StrategyService) GetByID(ctx context.Context, owner primitive.ObjectID, id string) (*models.Strategy, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, notFound(msgStrategyNotFound)
	}
	st, err := s.Repo.FindOwned(ctx, oid, owner)
	return st, mapNotFound(err, msgStrategyNotFound, "Error fetching strategy")
}

// Update merges the provided fields into the strategy. A provided detail list
// replaces the existing one.
func (s *StrategyService) Update(ctx context.Context, owner primitive.ObjectID, id string, upd models.StrategyUpdate) (*models.Strategy, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, notFound(msgStrategyNotFound)
	}

	now := s.now()
	ch := repository.StrategyChanges{Status: upd.Status, UpdatedAt: now}
	if upd.StrategyName != nil {
		name := strings.TrimSpace(*upd.StrategyName)
		if name == "" {
			return nil, validation("Strategy name cannot be empty")
		}
		ch.StrategyName = &name
	}
	if upd.StrategyDetails != nil {
		details, err := buildDetails(*upd.StrategyDetails, now)
		if err != nil {
			return nil, err
		}
		ch.StrategyDetails = &details
	}

	st, err := s.Repo.UpdateOwned(ctx, oid, owner, ch)
	return st, mapNotFound(err, msgStrategyNotFound, "Error updating strategy")
}

func (s *StrategyService) Delete(ctx context.Context, owner primitive.ObjectID, id string) error {
	oid, ok := parseID(id)
	if !ok {
		return notFound(msgStrategyNotFound)
	}
	return mapNotFound(s.Repo.DeleteOwned(ctx, oid, owner), msgStrategyNotFound, "Error deleting strategy")
}

// AddDetails appends details after the existing ones, keeping their order.
func (s *StrategyService) AddDetails(ctx context.Context, owner primitive.ObjectID, id string, in []models.StrategyDetailInput) (*models.Strategy, error) {
	if in == nil {
		return nil, validation("Strategy details must be an array")
	}
	oid, ok := parseID(id)
	if !ok {
		return nil, notFound(msgStrategyNotFound)
	}

	now := s.now()
	details, err := buildDetails(in, now)
	if err != nil {
		return nil, err
	}
	st, err := s.Repo.AppendDetails(ctx, oid, owner, details, now)
	return st, mapNotFound(err, msgStrategyNotFound, "Error adding strategy details")
}

// UpdateDetail overwrites the provided fields of one detail in place.
func (s *StrategyService) UpdateDetail(ctx context.Context, owner primitive.ObjectID, id, detailID string, in models.StrategyDetailInput) (*models.Strategy, error) {
	oid, ok := parseID(id)
	did, ok2 := parseID(detailID)
	if !ok || !ok2 {
		return nil, notFound(msgDetailNotFound)
	}
	if in.Type != nil && !in.Type.Valid() {
		return nil, validation("Detail type must be one of CE, PE, FUTURES")
	}

	ch := repository.DetailChanges{
		StrikePrice:     in.StrikePrice,
		TradingSymbol:   in.TradingSymbol,
		InstrumentToken: in.InstrumentToken,
		Type:            in.Type,
		UpdatedAt:       s.now(),
	}
	st, err := s.Repo.UpdateDetail(ctx, oid, owner, did, ch)
	return st, mapNotFound(err, msgDetailNotFound, "Error updating strategy detail")
}

func (s *StrategyService) RemoveDetail(ctx context.Context, owner primitive.ObjectID, id, detailID string) (*models.Strategy, error) {
	oid, ok := parseID(id)
	did, ok2 := parseID(detailID)
	if !ok || !ok2 {
		return nil, notFound(msgDetailNotFound)
	}
	st, err := s.Repo.RemoveDetail(ctx, oid, owner, did, s.now())
	return st, mapNotFound(err, msgDetailNotFound, "Error removing strategy detail")
}

func (s *StrategyService) ToggleStatus(ctx context.Context, owner primitive.ObjectID, id string) (*models.Strategy, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, notFound(msgStrategyNotFound)
	}
	st, err := s.Repo.ToggleStatus(ctx, oid, owner, s.now())
	return st, mapNotFound(err, msgStrategyNotFound, "Error toggling strategy status")
}

func buildDetails(in []models.StrategyDetailInput, now time.Time) ([]models.StrategyDetail, error) {
	out := make([]models.StrategyDetail, 0, len(in))
	for _, d := range in {
		if d.StrikePrice == nil || d.TradingSymbol == nil || d.InstrumentToken == nil || d.Type == nil {
			return nil, validation("Each strategy detail needs strikePrice, tradingSymbol, instrumentToken and type")
		}
		if !d.Type.Valid() {
			return nil, validation("Detail type must be one of CE, PE, FUTURES")
		}
		out = append(out, models.StrategyDetail{
			ID:              primitive.NewObjectID(),
			StrikePrice:     *d.StrikePrice,
			TradingSymbol:   *d.TradingSymbol,
			InstrumentToken: *d.InstrumentToken,
			Type:            *d.Type,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return out, nil
}

// parseID treats a malformed id as an id that matches nothing.
func parseID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

func mapNotFound(err error, notFoundMsg, internalMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound(notFoundMsg)
	default:
		return internal(internalMsg, err)
	}
}
