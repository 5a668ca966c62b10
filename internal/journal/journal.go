package journal

import "time"

// FetchEvent records the outcome of one batch fetch.
type FetchEvent struct {
	Symbol     string
	Period     string
	Interval   string
	Forced     bool
	Superseded bool
	Fallback   bool
	Bars       int
	Err        string
}

// ResetEvent records one hard reset of a chart view.
type ResetEvent struct {
	Symbol   string
	Interval string
	DataAge  time.Duration
	Outcome  string // "recovered" or "fetch_failed"
}

// StatusEvent records a push channel status transition.
type StatusEvent struct {
	Status string
}

// Journal persists operational events of the sync pipeline for later
// inspection. Chart data itself is never persisted.
type Journal interface {
	RecordFetch(evt *FetchEvent) error
	RecordReset(evt *ResetEvent) error
	RecordStatus(evt *StatusEvent) error
	Close() error
}
