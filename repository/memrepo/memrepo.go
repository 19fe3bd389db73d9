// Package memrepo is an in-memory implementation of the repository
// interfaces. It backs the service and HTTP tests and mirrors the Mongo
// semantics that matter to callers: owner scoping, unique emails, ordered
// detail lists and single-use reset tokens.
package memrepo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Tirth-chokshi/strategy-backend/models"
	"github.com/Tirth-chokshi/strategy-backend/repository"
)

type Users struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.User
}

func NewUsers() *Users {
	return &Users{byID: map[primitive.ObjectID]models.User{}}
}

func (r *Users) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	r.byID[u.ID] = *u
	return nil
}

func (r *Users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Users) EmailTakenByOther(_ context.Context, email string, id primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email && u.ID != id {
			return true, nil
		}
	}
	return false, nil
}

func (r *Users) Update(_ context.Context, id primitive.ObjectID, ch repository.UserChanges) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if ch.Email != nil {
		for _, other := range r.byID {
			if other.Email == *ch.Email && other.ID != id {
				return nil, repository.ErrDuplicateEmail
			}
		}
		u.Email = *ch.Email
	}
	if ch.PasswordHash != nil {
		u.Password = *ch.PasswordHash
	}
	if ch.Name != nil {
		u.Name = *ch.Name
	}
	u.UpdatedAt = ch.UpdatedAt
	r.byID[id] = u
	return &u, nil
}

func (r *Users) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Users) SetResetToken(_ context.Context, id primitive.ObjectID, token string, expires time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.ResetPasswordToken = token
	u.ResetPasswordExpires = &expires
	r.byID[id] = u
	return nil
}

func (r *Users) RedeemResetToken(_ context.Context, token string, now time.Time, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.byID {
		if u.ResetPasswordToken == "" || u.ResetPasswordToken != token {
			continue
		}
		if u.ResetPasswordExpires == nil || !u.ResetPasswordExpires.After(now) {
			continue
		}
		u.Password = passwordHash
		u.ResetPasswordToken = ""
		u.ResetPasswordExpires = nil
		u.UpdatedAt = now
		r.byID[id] = u
		return nil
	}
	return repository.ErrNotFound
}

type Strategies struct {
	mu    sync.Mutex
	byID  map[primitive.ObjectID]models.Strategy
	order []primitive.ObjectID
}

func NewStrategies() *Strategies {
	return &Strategies{byID: map[primitive.ObjectID]models.Strategy{}}
}

func cloneStrategy(s models.Strategy) models.Strategy {
	details := make([]models.StrategyDetail, len(s.StrategyDetails))
	copy(details, s.StrategyDetails)
	s.StrategyDetails = details
	return s
}

func (r *Strategies) Create(_ context.Context, s *models.Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	if s.StrategyDetails == nil {
		s.StrategyDetails = []models.StrategyDetail{}
	}
	r.byID[s.ID] = cloneStrategy(*s)
	r.order = append(r.order, s.ID)
	return nil
}

func (r *Strategies) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Strategy{}
	for _, id := range r.order {
		s, ok := r.byID[id]
		if ok && s.UserID == userID {
			out = append(out, cloneStrategy(s))
		}
	}
	return out, nil
}

func (r *Strategies) FindOwned(_ context.Context, id, userID primitive.ObjectID) (*models.Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.owned(id, userID)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Strategies) UpdateOwned(_ context.Context, id, userID primitive.ObjectID, ch repository.StrategyChanges) (*models.Strategy, error) {
	return r.mutate(id, userID, func(s *models.Strategy) bool {
		if ch.StrategyName != nil {
			s.StrategyName = *ch.StrategyName
		}
		if ch.Status != nil {
			s.Status = *ch.Status
		}
		if ch.StrategyDetails != nil {
			s.StrategyDetails = append([]models.StrategyDetail{}, (*ch.StrategyDetails)...)
		}
		s.UpdatedAt = ch.UpdatedAt
		return true
	})
}

func (r *Strategies) DeleteOwned(_ context.Context, id, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.owned(id, userID); err != nil {
		return err
	}
	delete(r.byID, id)
	return nil
}

func (r *Strategies) DeleteByUser(_ context.Context, userID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.byID {
		if s.UserID == userID {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func (r *Strategies) AppendDetails(_ context.Context, id, userID primitive.ObjectID, details []models.StrategyDetail, now time.Time) (*models.Strategy, error) {
	return r.mutate(id, userID, func(s *models.Strategy) bool {
		s.StrategyDetails = append(s.StrategyDetails, details...)
		s.UpdatedAt = now
		return true
	})
}

func (r *Strategies) UpdateDetail(_ context.Context, id, userID, detailID primitive.ObjectID, ch repository.DetailChanges) (*models.Strategy, error) {
	return r.mutate(id, userID, func(s *models.Strategy) bool {
		for i := range s.StrategyDetails {
			d := &s.StrategyDetails[i]
			if d.ID != detailID {
				continue
			}
			if ch.StrikePrice != nil {
				d.StrikePrice = *ch.StrikePrice
			}
			if ch.TradingSymbol != nil {
				d.TradingSymbol = *ch.TradingSymbol
			}
			if ch.InstrumentToken != nil {
				d.InstrumentToken = *ch.InstrumentToken
			}
			if ch.Type != nil {
				d.Type = *ch.Type
			}
			d.UpdatedAt = ch.UpdatedAt
			s.UpdatedAt = ch.UpdatedAt
			return true
		}
		return false
	})
}

func (r *Strategies) RemoveDetail(_ context.Context, id, userID, detailID primitive.ObjectID, now time.Time) (*models.Strategy, error) {
	return r.mutate(id, userID, func(s *models.Strategy) bool {
		for i := range s.StrategyDetails {
			if s.StrategyDetails[i].ID == detailID {
				s.StrategyDetails = append(s.StrategyDetails[:i], s.StrategyDetails[i+1:]...)
				s.UpdatedAt = now
				return true
			}
		}
		return false
	})
}

func (r *Strategies) ToggleStatus(_ context.Context, id, userID primitive.ObjectID, now time.Time) (*models.Strategy, error) {
	return r.mutate(id, userID, func(s *models.Strategy) bool {
		s.Status = !s.Status
		s.UpdatedAt = now
		return true
	})
}

func (r *Strategies) owned(id, userID primitive.ObjectID) (models.Strategy, error) {
	s, ok := r.byID[id]
	if !ok || s.UserID != userID {
		return models.Strategy{}, repository.ErrNotFound
	}
	return cloneStrategy(s), nil
}

// mutate applies fn under the lock; fn returning false means the filter did
// not match and nothing is written.
func (r *Strategies) mutate(id, userID primitive.ObjectID, fn func(*models.Strategy) bool) (*models.Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.owned(id, userID)
	if err != nil {
		return nil, err
	}
	if !fn(&s) {
		return nil, repository.ErrNotFound
	}
	r.byID[id] = cloneStrategy(s)
	return &s, nil
}

type Options struct {
	mu    sync.Mutex
	items []models.Option
}

func NewOptions(items ...models.Option) *Options {
	return &Options{items: append([]models.Option{}, items...)}
}

func (r *Options) FindByStrikePrice(_ context.Context, strikePrice float64) ([]models.OptionLeg, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	legs := []models.OptionLeg{}
	for _, o := range r.items {
		if o.StrikePrice == strikePrice {
			legs = append(legs, models.OptionLeg{
				TradingSymbol:   o.TradingSymbol,
				InstrumentToken: o.InstrumentToken,
				Option:          o.Option,
			})
		}
	}
	sort.SliceStable(legs, func(i, j int) bool { return legs[i].Option < legs[j].Option })
	return legs, nil
}

func (r *Options) DistinctStrikePrices(_ context.Context, from, to float64, limit int) ([]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[float64]bool{}
	out := []float64{}
	for _, o := range r.items {
		if o.StrikePrice >= from && o.StrikePrice < to && !seen[o.StrikePrice] {
			seen[o.StrikePrice] = true
			out = append(out, o.StrikePrice)
		}
	}
	sort.Float64s(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Options) TradingSymbolsForStrike(_ context.Context, strikePrice float64, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []string{}
	for _, o := range r.items {
		if o.StrikePrice == strikePrice {
			out = append(out, o.TradingSymbol)
		}
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Options) SearchField(_ context.Context, field, query string, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(query)
	seen := map[string]bool{}
	out := []string{}
	for _, o := range r.items {
		var v string
		switch field {
		case "tradingSymbol":
			v = o.TradingSymbol
		case "option":
			v = o.Option
		default:
			continue
		}
		if strings.Contains(strings.ToLower(v), q) && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Options) ReplaceAll(_ context.Context, opts []models.Option) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append([]models.Option{}, opts...)
	return len(opts), nil
}
