package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nighthawk909/ChartSense-sub000/internal/model"
)

func testQuery() Query {
	return Query{Symbol: "AAPL", Period: model.Period1D, Interval: model.Interval1Min}
}

func TestFetch_SupersededResultDiscarded(t *testing.T) {
	now := time.Now()
	oldData := GenerateBars(100, model.Interval1Min, 10, now.Add(-time.Hour))
	newData := GenerateBars(200, model.Interval1Min, 10, now)

	var mu sync.Mutex
	calls := 0
	started := make(chan struct{})
	release := make(chan struct{})

	src := &MockSource{}
	src.BarsFunc = func(_ Query, _ bool) ([]model.Bar, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(started)
			<-release // hold the first request in flight
			return oldData, nil
		}
		return newData, nil
	}

	c := NewController(src)
	q := testQuery()

	type outcome struct {
		res Result
		err error
	}
	firstDone := make(chan outcome, 1)
	go func() {
		res, err := c.Fetch(context.Background(), q, false)
		firstDone <- outcome{res, err}
	}()
	<-started

	// Second request is issued while the first is still in flight and
	// resolves first.
	second, err := c.Fetch(context.Background(), q, false)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if second.Superseded {
		t.Fatal("newest request must not be superseded")
	}
	if got, want := second.Bars[len(second.Bars)-1].Close, newData[len(newData)-1].Close; got != want {
		t.Fatalf("second fetch close = %v, want %v", got, want)
	}

	// Now let the first (stale sequence id) resolve late.
	close(release)
	first := <-firstDone
	if first.err != nil {
		t.Fatalf("late fetch: %v", first.err)
	}
	if !first.res.Superseded {
		t.Fatal("late result from the older request must be superseded")
	}
	if first.res.Bars != nil {
		t.Fatal("superseded result must carry no data")
	}
}

func TestFetch_EmptyPeriodFallsBackToLastSession(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC) // a Sunday
	// 5 daily bars, the newest dated 3 days before now: the 1D period
	// filter comes up empty.
	raw := GenerateBars(100, model.Interval1Day, 5, now.AddDate(0, 0, -3))

	src := &MockSource{Data: raw}
	c := NewController(src)
	c.now = func() time.Time { return now }

	res, err := c.Fetch(context.Background(), Query{
		Symbol: "AAPL", Period: model.Period1D, Interval: model.Interval1Day,
	}, false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !res.Fallback {
		t.Error("expected fallback to be reported")
	}
	if len(res.Bars) == 0 {
		t.Fatal("fallback series must be non-empty")
	}
	wantY, wantM, wantD := raw[len(raw)-1].Time.Date()
	for _, b := range res.Bars {
		y, m, d := b.Time.Date()
		if y != wantY || m != wantM || d != wantD {
			t.Fatalf("bar %v outside the most recent calendar day %d-%d-%d", b.Time, wantY, wantM, wantD)
		}
	}
}

func TestFetch_SortAndDedup(t *testing.T) {
	now := time.Now()
	t1 := now.Add(-3 * time.Minute)
	t2 := now.Add(-2 * time.Minute)
	t3 := now.Add(-1 * time.Minute)
	raw := []model.Bar{
		{Time: t2, Close: 2},
		{Time: t1, Close: 1},
		{Time: t3, Close: 3},
		{Time: t2, Close: 22}, // amend: later occurrence wins
	}

	c := NewController(&MockSource{Data: raw})
	res, err := c.Fetch(context.Background(), testQuery(), false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(res.Bars) != 3 {
		t.Fatalf("expected 3 unique bars, got %d", len(res.Bars))
	}
	for i := 1; i < len(res.Bars); i++ {
		if !res.Bars[i-1].Time.Before(res.Bars[i].Time) {
			t.Fatalf("series not strictly ascending at %d", i)
		}
	}
	if res.Bars[1].Close != 22 {
		t.Errorf("duplicate timestamp: got close %v, want the amended 22", res.Bars[1].Close)
	}
}

func TestFetch_EmptyHistoryIsNoData(t *testing.T) {
	c := NewController(&MockSource{Data: []model.Bar{}})
	_, err := c.Fetch(context.Background(), testQuery(), false)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestFetch_SourceErrorWrapped(t *testing.T) {
	boom := errors.New("boom")
	c := NewController(&MockSource{Err: boom})
	_, err := c.Fetch(context.Background(), testQuery(), false)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
}

func TestFetch_ForcedInvalidatesUpstreamCache(t *testing.T) {
	src := &MockSource{Data: GenerateBars(100, model.Interval1Min, 10, time.Now())}
	c := NewController(src)

	if _, err := c.Fetch(context.Background(), testQuery(), true); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(src.Invalidated) != 1 || src.Invalidated[0] != "AAPL" {
		t.Fatalf("expected one cache invalidation for AAPL, got %v", src.Invalidated)
	}
}

func TestFetch_InvalidateFailureIsNonFatal(t *testing.T) {
	src := &MockSource{
		Data:          GenerateBars(100, model.Interval1Min, 10, time.Now()),
		InvalidateErr: errors.New("upstream busy"),
	}
	c := NewController(src)

	res, err := c.Fetch(context.Background(), testQuery(), true)
	if err != nil {
		t.Fatalf("forced fetch must survive a failed invalidation: %v", err)
	}
	if len(res.Bars) == 0 {
		t.Fatal("expected bars despite failed invalidation")
	}
}

func TestFetch_OutputSizePolicy(t *testing.T) {
	tests := []struct {
		period model.Period
		full   bool
	}{
		{model.Period1D, false},
		{model.Period3M, false},
		{model.Period1Y, true},
		{model.PeriodAll, true},
	}
	for _, tc := range tests {
		var gotFull bool
		src := &MockSource{}
		src.BarsFunc = func(_ Query, full bool) ([]model.Bar, error) {
			gotFull = full
			return GenerateBars(100, model.Interval1Day, 10, time.Now()), nil
		}
		c := NewController(src)
		q := Query{Symbol: "AAPL", Period: tc.period, Interval: model.Interval1Day}
		if _, err := c.Fetch(context.Background(), q, false); err != nil {
			t.Fatalf("%s: fetch: %v", tc.period, err)
		}
		if gotFull != tc.full {
			t.Errorf("%s: outputsize full = %v, want %v", tc.period, gotFull, tc.full)
		}
	}
}

func TestFetch_InvalidQuery(t *testing.T) {
	c := NewController(&MockSource{})
	cases := []Query{
		{Symbol: "", Period: model.Period1D, Interval: model.Interval1Min},
		{Symbol: "AAPL", Period: "2D", Interval: model.Interval1Min},
		{Symbol: "AAPL", Period: model.Period1D, Interval: "7min"},
	}
	for _, q := range cases {
		if _, err := c.Fetch(context.Background(), q, false); err == nil {
			t.Errorf("expected error for query %+v", q)
		}
	}
}

func TestFreshenReplacesStaleIntradaySession(t *testing.T) {
	now := time.Date(2026, 8, 21, 15, 0, 0, 0, time.UTC)
	staleDay := GenerateBars(100, model.Interval1Min, 5, now.Add(-72*time.Hour))
	freshDay := GenerateBars(100, model.Interval1Min, 5, now.Add(-time.Hour))
	raw := append(append([]model.Bar{}, staleDay...), freshDay...)

	got, replaced := freshen(staleDay, raw, now)
	if !replaced {
		t.Fatal("a stale kept slice with fresher raw history must be replaced")
	}
	if len(got) != len(freshDay) {
		t.Fatalf("re-derived session has %d bars, want %d", len(got), len(freshDay))
	}
	if !got[len(got)-1].Time.Equal(freshDay[len(freshDay)-1].Time) {
		t.Error("re-derived session must end at the raw newest bar")
	}

	// A slice whose newest bar is recent stays as it is.
	if _, replaced := freshen(freshDay, raw, now); replaced {
		t.Error("fresh slice must not be replaced")
	}

	// Old data with nothing newer upstream is the empty-filter fallback's
	// business, not this guard's.
	if _, replaced := freshen(staleDay, staleDay, now); replaced {
		t.Error("slice already ending at the raw newest must stay")
	}
}
