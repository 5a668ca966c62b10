package chart

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/nighthawk909/ChartSense-sub000/internal/calculator"
	"github.com/nighthawk909/ChartSense-sub000/internal/feed"
	"github.com/nighthawk909/ChartSense-sub000/internal/history"
	"github.com/nighthawk909/ChartSense-sub000/internal/journal"
	"github.com/nighthawk909/ChartSense-sub000/internal/model"
	"github.com/nighthawk909/ChartSense-sub000/internal/stream"
	"github.com/nighthawk909/ChartSense-sub000/internal/watchdog"
)

// Options wires a View's collaborators.
type Options struct {
	Controller *history.Controller
	Channel    *stream.Channel // nil degrades to polling-only
	Journal    journal.Journal
	Factory    SurfaceFactory

	// Overlays lists moving-average periods drawn as line overlays on
	// top of the candles.
	Overlays []int

	// Thresholds overrides the staleness policy per granularity.
	// Defaults to watchdog.ThresholdFor.
	Thresholds func(model.Interval) time.Duration
}

// View keeps one on-screen chart correct and fresh under its three
// competing data sources: the initial batch fetch, the periodic re-fetch,
// and the push feed. When the watchdog detects staleness it performs a
// hard reset: it tears down the surface, clears cached data, forces the
// channel to re-push and re-fetches, as one recovery transaction.
type View struct {
	controller *history.Controller
	feed       *feed.Feed
	dog        *watchdog.Watchdog
	journal    journal.Journal
	factory    SurfaceFactory
	periods    []int // moving-average overlay periods
	thresholds func(model.Interval) time.Duration
	ctx        context.Context

	mu       sync.Mutex
	query    history.Query
	surface  Surface
	candles  Series
	volume   Series
	overlays []Series // one per Options.Overlays period
	bars     []model.Bar
	lastErr  error
}

// NewView creates a view for the initial query and subscribes its feed.
// ctx bounds the view's self-initiated work (hard resets).
func NewView(ctx context.Context, opts Options, q history.Query) (*View, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if opts.Journal == nil {
		opts.Journal = journal.NewNoop()
	}
	if opts.Thresholds == nil {
		opts.Thresholds = watchdog.ThresholdFor
	}
	if opts.Factory == nil {
		opts.Factory = func() Surface { return NewMemorySurface() }
	}

	v := &View{
		controller: opts.Controller,
		journal:    opts.Journal,
		factory:    opts.Factory,
		periods:    opts.Overlays,
		thresholds: opts.Thresholds,
		ctx:        ctx,
		query:      q,
	}
	v.dog = watchdog.New(opts.Thresholds(q.Interval), v.hardReset)
	v.feed = feed.New(opts.Channel, feed.Handlers{
		OnBar:   v.onPushBar,
		OnQuote: v.onPushQuote,
	})
	v.feed.SetSymbol(q.Symbol)
	return v, nil
}

// Query returns the view's current query.
func (v *View) Query() history.Query {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// Err returns the last fetch error, if the view is in a failed state.
// Recovery is the user's manual Retry, never an automatic loop.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

// Bars returns a copy of the currently displayed series.
func (v *View) Bars() []model.Bar {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]model.Bar(nil), v.bars...)
}

// Status reports the push channel status as seen by this view's feed.
func (v *View) Status() model.ConnectionStatus { return v.feed.Status() }

// Load performs the initial fetch.
func (v *View) Load(ctx context.Context) error {
	return v.fetchAndApply(ctx, false)
}

// Refresh is the periodic re-fetch, driven by the scheduler.
func (v *View) Refresh(ctx context.Context) error {
	return v.fetchAndApply(ctx, false)
}

// Retry is the user-triggered recovery from a failed fetch. It bypasses
// caches on the way up.
func (v *View) Retry(ctx context.Context) error {
	return v.fetchAndApply(ctx, true)
}

// SetQuery switches symbol, period, or interval. The feed's subscriptions
// follow the symbol and the watchdog threshold follows the interval.
func (v *View) SetQuery(ctx context.Context, q history.Query) error {
	if err := q.Validate(); err != nil {
		return err
	}
	v.mu.Lock()
	v.query = q
	v.bars = nil
	v.mu.Unlock()

	v.dog.SetThreshold(v.thresholds(q.Interval))
	v.feed.SetSymbol(q.Symbol)
	return v.fetchAndApply(ctx, false)
}

// EvaluateStaleness runs one watchdog evaluation. The scheduler calls it
// on a fixed cadence; new data points re-evaluate synchronously on their
// own.
func (v *View) EvaluateStaleness() bool { return v.dog.Evaluate() }

// Close releases the feed's subscriptions and tears down the surface.
func (v *View) Close() {
	v.feed.Close()
	v.mu.Lock()
	surface := v.surface
	v.surface, v.candles, v.volume, v.overlays = nil, nil, nil, nil
	v.bars = nil
	v.mu.Unlock()
	if surface != nil {
		surface.Destroy()
	}
}

func (v *View) fetchAndApply(ctx context.Context, forced bool) error {
	v.mu.Lock()
	q := v.query
	v.mu.Unlock()

	res, err := v.controller.Fetch(ctx, q, forced)

	evt := &journal.FetchEvent{
		Symbol:     q.Symbol,
		Period:     string(q.Period),
		Interval:   string(q.Interval),
		Forced:     forced,
		Superseded: res.Superseded,
		Fallback:   res.Fallback,
		Bars:       len(res.Bars),
	}
	if err != nil {
		evt.Err = err.Error()
	}
	if jerr := v.journal.RecordFetch(evt); jerr != nil {
		log.Printf("[WARN] journal fetch event: %v", jerr)
	}

	if err != nil {
		v.mu.Lock()
		v.lastErr = err
		v.mu.Unlock()
		return err
	}
	if res.Superseded {
		// a newer request owns the screen; this result is inert
		return nil
	}
	if res.Fallback {
		log.Printf("[INFO] %s %s/%s: showing last available session instead of requested period",
			q.Symbol, q.Period, q.Interval)
	}

	v.apply(res.Bars)
	return nil
}

// apply replaces the displayed series, building the surface if the view
// is still cold.
func (v *View) apply(bars []model.Bar) {
	v.mu.Lock()
	v.lastErr = nil
	v.bars = bars
	if v.surface == nil {
		v.surface = v.factory()
		v.candles = v.surface.AddCandleSeries()
		v.volume = v.surface.AddVolumeSeries()
		v.overlays = make([]Series, len(v.periods))
		for i := range v.periods {
			v.overlays[i] = v.surface.AddLineSeries()
		}
	}
	candles, volume := v.candles, v.volume
	overlays := append([]Series(nil), v.overlays...)
	v.mu.Unlock()

	candles.SetData(bars)
	volume.SetData(bars)
	for i, s := range overlays {
		s.SetData(calculator.Rolling(bars, v.periods[i]))
	}
	v.dog.Observe(bars[len(bars)-1].Time)
}

// onPushBar applies an incremental update from the live feed. Before the
// first successful fetch the view is cold and the update is only cached by
// the feed; out-of-order pushes older than the newest displayed bar are
// dropped.
func (v *View) onPushBar(bar model.Bar) {
	v.mu.Lock()
	if v.surface == nil {
		v.mu.Unlock()
		return
	}
	if n := len(v.bars); n > 0 {
		last := v.bars[n-1].Time
		switch {
		case bar.Time.Before(last):
			v.mu.Unlock()
			return
		case bar.Time.Equal(last):
			v.bars[n-1] = bar
		default:
			v.bars = append(v.bars, bar)
		}
	} else {
		v.bars = append(v.bars, bar)
	}
	candles, volume := v.candles, v.volume
	overlays := append([]Series(nil), v.overlays...)
	points := make([]model.Bar, len(overlays))
	drawn := make([]bool, len(overlays))
	for i := range overlays {
		points[i], drawn[i] = calculator.Last(v.bars, v.periods[i])
	}
	v.mu.Unlock()

	candles.Update(bar)
	volume.Update(bar)
	for i, s := range overlays {
		if drawn[i] {
			s.Update(points[i])
		}
	}
	v.dog.Observe(bar.Time)
}

func (v *View) onPushQuote(model.Quote) {
	// quotes don't advance the displayed bar series; the feed caches the
	// latest for consumers that render it
}

// hardReset is the recovery transaction for detected staleness. The
// watchdog's reentrancy guard is held for its whole duration and released
// only after the forced fetch settles, success or failure.
func (v *View) hardReset() {
	defer v.dog.Release()

	v.mu.Lock()
	q := v.query
	surface := v.surface
	v.surface, v.candles, v.volume, v.overlays = nil, nil, nil, nil
	v.bars = nil // visible loading state until the fetch lands
	v.mu.Unlock()

	age := time.Duration(0)
	if last := v.dog.LastData(); !last.IsZero() {
		age = time.Since(last)
	}
	log.Printf("[WARN] stale data for %s %s (age %s), hard reset", q.Symbol, q.Interval, age)

	if surface != nil {
		surface.Destroy()
	}

	v.feed.ForceRefresh()

	outcome := "recovered"
	if err := v.fetchAndApply(v.ctx, true); err != nil {
		outcome = "fetch_failed"
		log.Printf("[ERROR] hard reset fetch for %s: %v", q.Symbol, err)
	}

	if err := v.journal.RecordReset(&journal.ResetEvent{
		Symbol:   q.Symbol,
		Interval: string(q.Interval),
		DataAge:  age,
		Outcome:  outcome,
	}); err != nil {
		log.Printf("[WARN] journal reset event: %v", err)
	}
}
