package notifier

import (
	"context"
	"log"

	"github.com/nighthawk909/ChartSense-sub000/internal/journal"
	"github.com/nighthawk909/ChartSense-sub000/internal/model"
)

// AlertJournal forwards noteworthy pipeline events to Telegram. It is a
// journal.Journal so it can be fanned together with the persistent one;
// routine events (successful fetches, ordinary status transitions) pass
// through silently.
type AlertJournal struct {
	notifier *TelegramNotifier
	ctx      context.Context
}

// NewAlertJournal wraps a Telegram notifier as an event sink. ctx bounds
// delivery retries across the process lifetime.
func NewAlertJournal(ctx context.Context, n *TelegramNotifier) *AlertJournal {
	return &AlertJournal{notifier: n, ctx: ctx}
}

// RecordFetch alerts only on failed forced fetches. Those are recovery
// paths, so their failures are actionable; routine refresh errors are
// retried on cadence and stay out of the chat.
func (a *AlertJournal) RecordFetch(evt *journal.FetchEvent) error {
	if evt.Err == "" || !evt.Forced {
		return nil
	}
	return a.send(FormatFetchFailure(evt))
}

// RecordReset alerts on every hard reset.
func (a *AlertJournal) RecordReset(evt *journal.ResetEvent) error {
	return a.send(FormatReset(evt))
}

// RecordStatus alerts when the push channel fails terminally.
func (a *AlertJournal) RecordStatus(evt *journal.StatusEvent) error {
	if evt.Status != model.StatusError.String() {
		return nil
	}
	return a.send(FormatStreamError(evt))
}

func (a *AlertJournal) Close() error { return nil }

func (a *AlertJournal) send(text string) error {
	// A lost alert must never fail the pipeline event that caused it.
	if err := a.notifier.SendWithRetry(a.ctx, text, 2); err != nil {
		log.Printf("[WARN] send alert: %v", err)
	}
	return nil
}
