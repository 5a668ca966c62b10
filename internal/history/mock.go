package history

import (
	"context"
	"sync"
	"time"

	"github.com/nighthawk909/ChartSense-sub000/internal/model"
)

// MockSource returns controllable fixed data for development and testing.
type MockSource struct {
	mu            sync.Mutex
	Data          []model.Bar
	Err           error
	InvalidateErr error

	// BarsFunc, when set, overrides Data/Err with per-call behavior.
	BarsFunc func(q Query, full bool) ([]model.Bar, error)

	BarsCalls   int
	Invalidated []string
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) Bars(_ context.Context, q Query, full bool) ([]model.Bar, error) {
	m.mu.Lock()
	m.BarsCalls++
	fn := m.BarsFunc
	data, err := m.Data, m.Err
	m.mu.Unlock()

	if fn != nil {
		return fn(q, full)
	}
	if err != nil {
		return nil, err
	}
	if data != nil {
		return data, nil
	}
	return GenerateBars(100, q.Interval, 120, time.Now()), nil
}

func (m *MockSource) Invalidate(_ context.Context, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Invalidated = append(m.Invalidated, symbol)
	return m.InvalidateErr
}

// GenerateBars builds count synthetic bars ending at end, one interval apart.
func GenerateBars(basePrice float64, interval model.Interval, count int, end time.Time) []model.Bar {
	step := interval.Duration()
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Time:   end.Add(-time.Duration(count-1-i) * step),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
