package model

import (
	"fmt"
	"time"
)

// Period selects how much history a chart displays.
type Period string

const (
	Period1D  Period = "1D"
	Period1W  Period = "1W"
	Period1M  Period = "1M"
	Period3M  Period = "3M"
	Period1Y  Period = "1Y"
	PeriodAll Period = "ALL"
)

// Periods lists all valid periods.
var Periods = []Period{Period1D, Period1W, Period1M, Period3M, Period1Y, PeriodAll}

// ParsePeriod validates a period string.
func ParsePeriod(s string) (Period, error) {
	for _, p := range Periods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Cutoff returns the earliest timestamp a bar may have to fall inside the
// period, relative to now. ALL returns the zero time (no cutoff).
func (p Period) Cutoff(now time.Time) time.Time {
	switch p {
	case Period1D:
		return now.AddDate(0, 0, -1)
	case Period1W:
		return now.AddDate(0, 0, -7)
	case Period1M:
		return now.AddDate(0, -1, 0)
	case Period3M:
		return now.AddDate(0, -3, 0)
	case Period1Y:
		return now.AddDate(-1, 0, 0)
	default:
		return time.Time{}
	}
}

// FullHistory reports whether the period needs the upstream's full history
// rather than the bounded compact window.
func (p Period) FullHistory() bool {
	return p == Period1Y || p == PeriodAll
}

// Interval is the bar granularity.
type Interval string

const (
	Interval1Min  Interval = "1min"
	Interval5Min  Interval = "5min"
	Interval15Min Interval = "15min"
	Interval30Min Interval = "30min"
	Interval1H    Interval = "1h"
	Interval1Day  Interval = "1day"
	Interval1Week Interval = "1week"
)

// Intervals lists all valid granularities.
var Intervals = []Interval{
	Interval1Min, Interval5Min, Interval15Min, Interval30Min,
	Interval1H, Interval1Day, Interval1Week,
}

// ParseInterval validates an interval string.
func ParseInterval(s string) (Interval, error) {
	for _, iv := range Intervals {
		if string(iv) == s {
			return iv, nil
		}
	}
	return "", fmt.Errorf("unknown interval %q", s)
}

// Intraday reports whether the granularity is finer than one day.
func (iv Interval) Intraday() bool {
	switch iv {
	case Interval1Min, Interval5Min, Interval15Min, Interval30Min, Interval1H:
		return true
	}
	return false
}

// Duration returns the nominal width of one bar.
func (iv Interval) Duration() time.Duration {
	switch iv {
	case Interval1Min:
		return time.Minute
	case Interval5Min:
		return 5 * time.Minute
	case Interval15Min:
		return 15 * time.Minute
	case Interval30Min:
		return 30 * time.Minute
	case Interval1H:
		return time.Hour
	case Interval1Week:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
