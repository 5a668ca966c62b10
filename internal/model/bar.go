package model

import "time"

// Bar represents a single OHLCV candlestick at a fixed granularity.
// Bars are immutable once fetched; a push update either appends a new
// bar or amends the one sharing its timestamp bucket.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Quote is a lower-frequency top-of-book sample, supplementary to bars.
type Quote struct {
	Time time.Time
	Bid  float64
	Ask  float64
	Last float64
}
