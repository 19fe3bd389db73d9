// Package importer loads the option catalog from a CSV export and replaces
// the stored catalog with it.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Tirth-chokshi/strategy-backend/models"
	"github.com/Tirth-chokshi/strategy-backend/repository"
)

// Column names expected in the header row.
const (
	ColStrikePrice     = "STRIKE_PRICE"
	ColTradingSymbol   = "TRADING_SYMBOL"
	ColInstrumentToken = "INSTRUMENT_TOKEN"
	ColOption          = "OPTION"
)

var ErrNoPath = errors.New("option csv path not configured")

// Recorder receives the outcome of each import run.
type Recorder interface {
	RecordImportSuccess(count int)
	RecordImportFailure()
}

// Parse reads a catalog CSV. Columns are matched by header name, so their
// order does not matter and extra columns are ignored. Any malformed row
// fails the whole parse.
func Parse(r io.Reader, now time.Time) ([]models.Option, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty csv")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range []string{ColStrikePrice, ColTradingSymbol, ColInstrumentToken, ColOption} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %s", col)
		}
	}

	field := func(rec []string, col string) string {
		i := idx[col]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []models.Option
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		sp, err := strconv.ParseFloat(field(rec, ColStrikePrice), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad %s: %w", line, ColStrikePrice, err)
		}
		token, err := strconv.ParseInt(field(rec, ColInstrumentToken), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad %s: %w", line, ColInstrumentToken, err)
		}
		symbol := field(rec, ColTradingSymbol)
		if symbol == "" {
			return nil, fmt.Errorf("line %d: empty %s", line, ColTradingSymbol)
		}

		out = append(out, models.Option{
			StrikePrice:     sp,
			TradingSymbol:   symbol,
			InstrumentToken: token,
			Option:          field(rec, ColOption),
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return out, nil
}

// Importer replaces the option catalog with the contents of Path.
type Importer struct {
	Repo    repository.OptionRepository
	Path    string
	Logger  *zap.Logger
	Metrics Recorder
	Now     func() time.Time
}

func (im *Importer) log() *zap.Logger {
	if im.Logger == nil {
		return zap.NewNop()
	}
	return im.Logger
}

// Run parses the file and swaps the catalog. The stored catalog is left
// untouched when the file cannot be read or parsed, or when the new rows
// cannot be stored.
func (im *Importer) Run(ctx context.Context) (int, error) {
	n, err := im.run(ctx)
	if err != nil {
		im.log().Error("option import failed", zap.String("path", im.Path), zap.Error(err))
		if im.Metrics != nil {
			im.Metrics.RecordImportFailure()
		}
		return 0, err
	}
	im.log().Info("option import done", zap.String("path", im.Path), zap.Int("count", n))
	if im.Metrics != nil {
		im.Metrics.RecordImportSuccess(n)
	}
	return n, nil
}

func (im *Importer) run(ctx context.Context) (int, error) {
	if im.Path == "" {
		return 0, ErrNoPath
	}
	f, err := os.Open(im.Path)
	if err != nil {
		return 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	now := time.Now().UTC()
	if im.Now != nil {
		now = im.Now().UTC()
	}
	opts, err := Parse(f, now)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", im.Path, err)
	}
	n, err := im.Repo.ReplaceAll(ctx, opts)
	if err != nil {
		return 0, fmt.Errorf("replace catalog: %w", err)
	}
	return n, nil
}
