package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync/atomic"
	"time"

	"github.com/nighthawk909/ChartSense-sub000/internal/model"
)

// ErrNoData signals a well-formed but empty result after all fallback
// rules were exhausted. Callers surface it via a manual retry control,
// never by retrying automatically.
var ErrNoData = errors.New("no chart data available")

// Result is the outcome of one fetch.
type Result struct {
	Bars []model.Bar

	// Superseded means a newer request was issued while this one was in
	// flight; the result carries no data and must not touch any state.
	Superseded bool

	// Fallback means the period filter came up empty (or carried a stale
	// session) and the series was re-derived from the most recent calendar
	// day of the raw history.
	Fallback bool
}

// Controller issues historical bar fetches and guarantees that an older,
// slower response can never overwrite the result of a newer request.
// Each request is tagged with a monotonically increasing sequence id; any
// response whose id is no longer the latest issued is dropped.
type Controller struct {
	source Source
	seq    atomic.Uint64
	now    func() time.Time
}

// NewController creates a Controller over the given source.
func NewController(source Source) *Controller {
	return &Controller{source: source, now: time.Now}
}

// Fetch requests, filters, and orders the bar series for q.
//
// When forced, the upstream cache is invalidated first; an invalidation
// failure is logged and otherwise ignored.
func (c *Controller) Fetch(ctx context.Context, q Query, forced bool) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid query: %w", err)
	}

	seq := c.seq.Add(1)

	if forced {
		if err := c.source.Invalidate(ctx, q.Symbol); err != nil {
			log.Printf("[WARN] cache invalidate for %s: %v", q.Symbol, err)
		}
	}

	raw, err := c.source.Bars(ctx, q, q.Period.FullHistory())
	if seq != c.seq.Load() {
		// A newer request was issued while this one was in flight.
		return Result{Superseded: true}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("fetch %s %s/%s: %w", q.Symbol, q.Period, q.Interval, err)
	}

	bars, fallback := prepare(raw, q, c.now())
	if len(bars) == 0 {
		return Result{}, ErrNoData
	}
	return Result{Bars: bars, Fallback: fallback}, nil
}

// prepare sorts, deduplicates, and period-filters the raw history, applying
// the most-recent-session fallback rules.
func prepare(raw []model.Bar, q Query, now time.Time) ([]model.Bar, bool) {
	raw = sortDedup(raw)
	if len(raw) == 0 {
		return nil, false
	}

	bars := filterByCutoff(raw, q.Period.Cutoff(now))
	fallback := false

	// Empty filtered result but non-empty raw history: show the most
	// recent calendar day present in the raw history instead.
	if len(bars) == 0 {
		bars = lastSession(raw)
		fallback = true
	}

	if q.Interval.Intraday() {
		if fresh, replaced := freshen(bars, raw, now); replaced {
			bars = fresh
			fallback = true
		}
	}

	return bars, fallback
}

// freshen guards an intraday series against a stale session surviving the
// period filter: a kept slice whose newest bar is more than a day old while
// the raw history holds something newer is replaced by the raw history's
// most recent session. With plain cutoff filtering the kept slice is a
// suffix of raw and the guard stays quiet; it exists for filter shapes that
// can keep a bounded window.
func freshen(bars, raw []model.Bar, now time.Time) ([]model.Bar, bool) {
	if len(bars) == 0 || len(raw) == 0 {
		return bars, false
	}
	newest := bars[len(bars)-1].Time
	if now.Sub(newest) <= 24*time.Hour || !raw[len(raw)-1].Time.After(newest) {
		return bars, false
	}
	return lastSession(raw), true
}

// sortDedup returns the bars sorted ascending by timestamp with duplicate
// timestamps collapsed; the later occurrence wins (an amend supersedes the
// bar it amends).
func sortDedup(bars []model.Bar) []model.Bar {
	if len(bars) == 0 {
		return bars
	}
	sorted := make([]model.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	out := sorted[:0]
	for _, b := range sorted {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// filterByCutoff keeps bars at or after the cutoff. A zero cutoff keeps
// everything.
func filterByCutoff(bars []model.Bar, cutoff time.Time) []model.Bar {
	if cutoff.IsZero() {
		return bars
	}
	i := sort.Search(len(bars), func(i int) bool { return !bars[i].Time.Before(cutoff) })
	return bars[i:]
}

// lastSession returns all bars dated on the most recent calendar day
// present in the (sorted) history.
func lastSession(bars []model.Bar) []model.Bar {
	if len(bars) == 0 {
		return nil
	}
	y, m, d := bars[len(bars)-1].Time.Date()
	i := len(bars)
	for i > 0 {
		by, bm, bd := bars[i-1].Time.Date()
		if by != y || bm != m || bd != d {
			break
		}
		i--
	}
	return bars[i:]
}
