package chart

import (
	"sync"

	"github.com/nighthawk909/ChartSense-sub000/internal/model"
)

// MemorySurface is an in-process Surface implementation that records what
// it is told to draw. chartd uses it as its headless rendering target and
// tests assert against it.
type MemorySurface struct {
	mu        sync.Mutex
	series    []*MemorySeries
	width     int
	height    int
	destroyed bool
}

func NewMemorySurface() *MemorySurface { return &MemorySurface{} }

func (s *MemorySurface) addSeries(kind string) Series {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms := &MemorySeries{kind: kind}
	s.series = append(s.series, ms)
	return ms
}

func (s *MemorySurface) AddCandleSeries() Series { return s.addSeries("candle") }
func (s *MemorySurface) AddLineSeries() Series   { return s.addSeries("line") }
func (s *MemorySurface) AddVolumeSeries() Series { return s.addSeries("volume") }

func (s *MemorySurface) Resize(width, height int) {
	s.mu.Lock()
	s.width, s.height = width, height
	s.mu.Unlock()
}

func (s *MemorySurface) Destroy() {
	s.mu.Lock()
	s.destroyed = true
	s.series = nil
	s.mu.Unlock()
}

// Destroyed reports whether the surface was torn down.
func (s *MemorySurface) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// SeriesCount returns the number of attached series.
func (s *MemorySurface) SeriesCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.series)
}

// MemorySeries records the data applied to one series.
type MemorySeries struct {
	mu      sync.Mutex
	kind    string
	bars    []model.Bar
	updates int
}

func (m *MemorySeries) SetData(bars []model.Bar) {
	m.mu.Lock()
	m.bars = append([]model.Bar(nil), bars...)
	m.mu.Unlock()
}

func (m *MemorySeries) Update(bar model.Bar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if n := len(m.bars); n > 0 && m.bars[n-1].Time.Equal(bar.Time) {
		m.bars[n-1] = bar
		return
	}
	m.bars = append(m.bars, bar)
}

// Bars returns a copy of the series data.
func (m *MemorySeries) Bars() []model.Bar {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Bar(nil), m.bars...)
}

// Updates returns how many incremental updates were applied.
func (m *MemorySeries) Updates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}
