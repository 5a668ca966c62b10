// Package watchdog detects when displayed chart data has gone stale and
// triggers recovery. Staleness is edge-triggered: it is computed from the
// age of the last known data point, never stored as a flag that could
// survive a successful recovery.
package watchdog

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nighthawk909/ChartSense-sub000/internal/model"
)

// ThresholdFor returns the default staleness threshold for a granularity.
// Minute bars are expected to tick every bar close, so the window is tight.
// Coarser granularities naturally lag market close and get far more slack.
func ThresholdFor(iv model.Interval) time.Duration {
	switch iv {
	case model.Interval1Min:
		return 65 * time.Second
	case model.Interval5Min, model.Interval15Min, model.Interval30Min:
		return 30 * time.Minute
	case model.Interval1H:
		return 2 * time.Hour
	default:
		return 26 * time.Hour
	}
}

// Watchdog tracks the last known data timestamp, fed by whichever source
// (batch fetch or push) last advanced it, and fires onStale when its age
// crosses the threshold. A single in-flight-reset guard ensures a recovery
// in progress can never be triggered twice concurrently.
type Watchdog struct {
	mu        sync.Mutex
	threshold time.Duration
	lastData  time.Time
	onStale   func()
	resetting atomic.Bool
	now       func() time.Time
}

// New creates a Watchdog. onStale runs synchronously in the goroutine that
// detected staleness.
func New(threshold time.Duration, onStale func()) *Watchdog {
	return &Watchdog{threshold: threshold, onStale: onStale, now: time.Now}
}

// SetThreshold updates the staleness threshold (e.g. on interval change).
func (w *Watchdog) SetThreshold(d time.Duration) {
	w.mu.Lock()
	w.threshold = d
	w.mu.Unlock()
}

// Observe records a data point timestamp and immediately re-evaluates, so
// staleness is detected (or cleared) without waiting for the next poll
// tick. Older timestamps never move the clock backwards.
func (w *Watchdog) Observe(ts time.Time) {
	w.mu.Lock()
	if ts.After(w.lastData) {
		w.lastData = ts
	}
	w.mu.Unlock()
	w.Evaluate()
}

// Evaluate fires onStale when the last data point's age is at or above the
// threshold and no reset is in flight. Returns whether it fired. Called on
// the polling cadence and synchronously from Observe.
func (w *Watchdog) Evaluate() bool {
	w.mu.Lock()
	last, threshold := w.lastData, w.threshold
	w.mu.Unlock()

	if last.IsZero() {
		// nothing displayed yet, nothing to recover
		return false
	}
	if w.now().Sub(last) < threshold {
		return false
	}
	if !w.resetting.CompareAndSwap(false, true) {
		// a hard reset is already in flight; suppress until it settles
		return false
	}
	if w.onStale != nil {
		w.onStale()
	}
	return true
}

// Release re-arms the guard. The reset coordinator calls it after the
// forced fetch settles, success or failure, so a failed recovery can never
// leave the chart permanently stuck.
func (w *Watchdog) Release() {
	w.resetting.Store(false)
}

// LastData returns the most recent known data timestamp.
func (w *Watchdog) LastData() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastData
}
