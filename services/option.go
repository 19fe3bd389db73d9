package services

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Tirth-chokshi/strategy-backend/cache"
	"github.com/Tirth-chokshi/strategy-backend/models"
	"github.com/Tirth-chokshi/strategy-backend/repository"
)

const (
	strikeWindow       = 500
	maxSuggestions     = 10
	maxSymbolsPerLeg   = 2
	FieldStrikePrice   = "strikePrice"
	FieldTradingSymbol = "tradingSymbol"
	FieldOption        = "option"
	fieldInstrument    = "instrumentToken"
)

// OptionService answers read-only queries against the option catalog.
// Cache may be nil, in which case every call goes to the repository.
type OptionService struct {
	Repo     repository.OptionRepository
	Cache    cache.Store
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// SuggestQuery is the typeahead request. Field selects the query shape;
// StrikePrice narrows a tradingSymbol lookup to one exact strike.
type SuggestQuery struct {
	Query       any    `json:"query"`
	Field       string `json:"type"`
	StrikePrice any    `json:"strikePrice"`
}

func (s *OptionService) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// GetByStrikePrice returns every leg listed at exactly raw, which may be a
// JSON number or a numeric string.
func (s *OptionService) GetByStrikePrice(ctx context.Context, raw any) ([]models.OptionLeg, error) {
	sp, ok := ParseNumber(raw)
	if !ok {
		return nil, validation("Invalid Strike Price. Must be a number.")
	}

	key := "options:strike:" + formatFloat(sp)
	var legs []models.OptionLeg
	if s.cached(ctx, key, &legs) {
		return legs, nil
	}

	legs, err := s.Repo.FindByStrikePrice(ctx, sp)
	if err != nil {
		return nil, internal("Error fetching option details", err)
	}
	if len(legs) == 0 {
		return nil, notFound("Option details not found.")
	}
	s.store(ctx, key, legs)
	return legs, nil
}

// Suggest routes a typeahead request to the matching typed query.
func (s *OptionService) Suggest(ctx context.Context, q SuggestQuery) (any, error) {
	field := strings.TrimSpace(q.Field)
	switch field {
	case "", FieldStrikePrice:
		from, ok := ParseNumber(q.Query)
		if !ok {
			return nil, validation("Query must be a number")
		}
		return s.SuggestStrikePrices(ctx, from)
	case FieldTradingSymbol:
		if q.StrikePrice != nil {
			sp, ok := ParseNumber(q.StrikePrice)
			if !ok {
				return nil, validation("Invalid Strike Price. Must be a number.")
			}
			return s.SuggestTradingSymbols(ctx, sp)
		}
		return s.SuggestText(ctx, field, queryText(q.Query))
	case FieldOption:
		return s.SuggestText(ctx, field, queryText(q.Query))
	case fieldInstrument:
		return nil, validation("instrumentToken cannot be searched by text")
	default:
		return nil, validation("Unsupported suggestion type")
	}
}

// SuggestStrikePrices lists distinct strike prices in [from, from+500),
// ascending.
func (s *OptionService) SuggestStrikePrices(ctx context.Context, from float64) ([]float64, error) {
	key := "options:suggest:strike:" + formatFloat(from)
	var out []float64
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	out, err := s.Repo.DistinctStrikePrices(ctx, from, from+strikeWindow, maxSuggestions)
	if err != nil {
		return nil, internal("Error fetching suggestions", err)
	}
	if out == nil {
		out = []float64{}
	}
	s.store(ctx, key, out)
	return out, nil
}

func (s *OptionService) SuggestTradingSymbols(ctx context.Context, strikePrice float64) ([]string, error) {
	key := "options:suggest:symbols:" + formatFloat(strikePrice)
	var out []string
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	out, err := s.Repo.TradingSymbolsForStrike(ctx, strikePrice, maxSymbolsPerLeg)
	if err != nil {
		return nil, internal("Error fetching suggestions", err)
	}
	if out == nil {
		out = []string{}
	}
	s.store(ctx, key, out)
	return out, nil
}

// SuggestText matches query as a literal, case-insensitive substring of
// field. Only tradingSymbol and option are searchable.
func (s *OptionService) SuggestText(ctx context.Context, field, query string) ([]string, error) {
	if field != FieldTradingSymbol && field != FieldOption {
		return nil, validation("Unsupported suggestion type")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validation("Query is required")
	}

	key := "options:suggest:" + field + ":" + strings.ToLower(query)
	var out []string
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	out, err := s.Repo.SearchField(ctx, field, query, maxSuggestions)
	if err != nil {
		return nil, internal("Error fetching suggestions", err)
	}
	if out == nil {
		out = []string{}
	}
	s.store(ctx, key, out)
	return out, nil
}

// cached reports a hit; a broken cache is logged and treated as a miss.
func (s *OptionService) cached(ctx context.Context, key string, dst any) bool {
	hit, err := cache.GetJSON(ctx, s.Cache, key, dst)
	if err != nil {
		s.log().Warn("option cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *OptionService) store(ctx context.Context, key string, v any) {
	if err := cache.SetJSON(ctx, s.Cache, key, v, s.CacheTTL); err != nil {
		s.log().Warn("option cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// ParseNumber accepts a JSON number or a numeric string.
func ParseNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return 0, false
		}
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(n), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func queryText(v any) string {
	switch q := v.(type) {
	case string:
		return q
	case float64:
		return formatFloat(q)
	case json.Number:
		return q.String()
	}
	return ""
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
