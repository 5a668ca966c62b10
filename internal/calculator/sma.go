package calculator

import (
	"errors"

	"github.com/nighthawk909/ChartSense-sub000/internal/model"
)

// SMA computes the simple moving average of the last period prices.
func SMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// Rolling computes a moving-average line over bar closes, one point per
// bar from the first bar with enough history. Points carry the source
// bar's timestamp; only Close is meaningful.
func Rolling(bars []model.Bar, period int) []model.Bar {
	if period <= 0 || len(bars) < period {
		return nil
	}
	out := make([]model.Bar, 0, len(bars)-period+1)
	sum := 0.0
	for i, b := range bars {
		sum += b.Close
		if i >= period {
			sum -= bars[i-period].Close
		}
		if i >= period-1 {
			out = append(out, model.Bar{Time: b.Time, Close: sum / float64(period)})
		}
	}
	return out
}

// Last computes the moving-average point for the newest bar, for
// incremental updates of a rolling line.
func Last(bars []model.Bar, period int) (model.Bar, bool) {
	if period <= 0 || len(bars) < period {
		return model.Bar{}, false
	}
	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		sum += bars[i].Close
	}
	last := bars[len(bars)-1]
	return model.Bar{Time: last.Time, Close: sum / float64(period)}, true
}
