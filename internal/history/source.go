package history

import (
	"context"
	"fmt"

	"github.com/nighthawk909/ChartSense-sub000/internal/model"
)

// Query identifies one historical bars request.
type Query struct {
	Symbol   string
	Period   model.Period
	Interval model.Interval
}

// Validate checks the query against the allowed enumerations.
func (q Query) Validate() error {
	if q.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if _, err := model.ParsePeriod(string(q.Period)); err != nil {
		return err
	}
	if _, err := model.ParseInterval(string(q.Interval)); err != nil {
		return err
	}
	return nil
}

// Source defines the interface for fetching raw historical bars.
type Source interface {
	// Bars returns the raw, unfiltered history for the query. full selects
	// the upstream's complete history instead of the compact window.
	Bars(ctx context.Context, q Query, full bool) ([]model.Bar, error)

	// Invalidate asks the upstream to drop its cached data for the symbol.
	// Best-effort; callers treat failure as non-fatal.
	Invalidate(ctx context.Context, symbol string) error

	Name() string
}
