package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nighthawk909/ChartSense-sub000/internal/journal"
)

func newTestAlerter(t *testing.T) (*AlertJournal, *[]string) {
	t.Helper()
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		texts = append(texts, payload["text"])
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	tg := NewTelegramNotifier("token", "chat", "")
	tg.apiBase = srv.URL
	return NewAlertJournal(context.Background(), tg), &texts
}

func TestAlertOnHardReset(t *testing.T) {
	a, texts := newTestAlerter(t)

	err := a.RecordReset(&journal.ResetEvent{
		Symbol:   "AAPL",
		Interval: "1min",
		DataAge:  90 * time.Second,
		Outcome:  "recovered",
	})
	if err != nil {
		t.Fatalf("record reset: %v", err)
	}
	if len(*texts) != 1 {
		t.Fatalf("sent %d messages, want 1", len(*texts))
	}
	msg := (*texts)[0]
	for _, want := range []string{"AAPL", "1min", "1m30s", "recovered"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestRoutineEventsStaySilent(t *testing.T) {
	a, texts := newTestAlerter(t)

	if err := a.RecordFetch(&journal.FetchEvent{Symbol: "AAPL", Bars: 100}); err != nil {
		t.Fatalf("record fetch: %v", err)
	}
	// Unforced failures are retried on cadence, no alert.
	if err := a.RecordFetch(&journal.FetchEvent{Symbol: "AAPL", Err: "timeout"}); err != nil {
		t.Fatalf("record fetch: %v", err)
	}
	if err := a.RecordStatus(&journal.StatusEvent{Status: "reconnecting"}); err != nil {
		t.Fatalf("record status: %v", err)
	}
	if len(*texts) != 0 {
		t.Fatalf("routine events must not alert, got %v", *texts)
	}

	if err := a.RecordFetch(&journal.FetchEvent{Symbol: "AAPL", Forced: true, Err: "timeout"}); err != nil {
		t.Fatalf("record fetch: %v", err)
	}
	if err := a.RecordStatus(&journal.StatusEvent{Status: "error"}); err != nil {
		t.Fatalf("record status: %v", err)
	}
	if len(*texts) != 2 {
		t.Fatalf("sent %d messages, want 2", len(*texts))
	}
}

func TestAlertRetriesTransientFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegramNotifier("token", "chat", "")
	tg.apiBase = srv.URL
	a := NewAlertJournal(context.Background(), tg)

	if err := a.RecordReset(&journal.ResetEvent{Symbol: "AAPL", Outcome: "recovered"}); err != nil {
		t.Fatalf("record reset: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want the failed delivery retried once", attempts)
	}
}

func TestSendFailureNeverFailsTheEvent(t *testing.T) {
	tg := NewTelegramNotifier("token", "chat", "")
	tg.apiBase = "http://127.0.0.1:1" // nothing listens here

	// A cancelled context stops the retry loop after the first attempt.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := NewAlertJournal(ctx, tg)

	if err := a.RecordReset(&journal.ResetEvent{Symbol: "AAPL", Outcome: "recovered"}); err != nil {
		t.Fatalf("alert delivery failure must not surface: %v", err)
	}
}
