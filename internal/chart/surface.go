package chart

import "github.com/nighthawk909/ChartSense-sub000/internal/model"

// Series is one plotted series on a rendering surface. SetData replaces
// the series wholesale with a sorted, timestamp-unique sequence; Update
// appends a new point or amends the most recent one.
type Series interface {
	SetData(bars []model.Bar)
	Update(bar model.Bar)
}

// Surface abstracts the external charting widget. A hard reset destroys
// the surface entirely rather than clearing its data, because incremental
// series objects can accumulate inconsistent internal state after
// desynchronization.
type Surface interface {
	AddCandleSeries() Series
	AddLineSeries() Series
	AddVolumeSeries() Series
	Resize(width, height int)
	Destroy()
}

// SurfaceFactory builds a fresh surface. The view calls it on first
// successful fetch and again after every hard reset.
type SurfaceFactory func() Surface
