// Package scheduler drives the time-based sides of chart synchronization:
// the periodic re-fetch and the staleness evaluation cadence. Push updates
// arrive independently through the stream channel; both timer sources feed
// the same watchdog state machine inside each view.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/nighthawk909/ChartSense-sub000/internal/chart"
)

// Scheduler manages the cron tasks for a set of chart views.
type Scheduler struct {
	Cron  *cron.Cron
	Views []*chart.View
	Ctx   context.Context
}

// NewScheduler creates a Scheduler for the given views.
func NewScheduler(ctx context.Context, views ...*chart.View) *Scheduler {
	return &Scheduler{
		Cron:  cron.New(cron.WithSeconds()),
		Views: views,
		Ctx:   ctx,
	}
}

// RegisterAll registers the periodic re-fetch and watchdog tick.
// Specs are cron expressions; "@every 1m" / "@every 10s" style works too.
func (s *Scheduler) RegisterAll(refreshEvery, watchdogEvery string) error {
	if _, err := s.Cron.AddFunc(refreshEvery, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	if _, err := s.Cron.AddFunc(watchdogEvery, s.watchdogTick); err != nil {
		return fmt.Errorf("register watchdog tick: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

func (s *Scheduler) refreshTask() {
	for _, v := range s.Views {
		q := v.Query()
		if err := v.Refresh(s.Ctx); err != nil {
			log.Printf("[ERROR] refresh %s %s/%s: %v", q.Symbol, q.Period, q.Interval, err)
		}
	}
}

func (s *Scheduler) watchdogTick() {
	for _, v := range s.Views {
		v.EvaluateStaleness()
	}
}
