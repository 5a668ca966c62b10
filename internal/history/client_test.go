package history

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nighthawk909/ChartSense-sub000/internal/model"
)

func TestClient_BarsHistoryEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("outputsize"); got != "compact" {
			t.Errorf("outputsize = %q, want compact", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sekret" {
			t.Errorf("auth header = %q", got)
		}
		w.Write([]byte(`{"history":[{"timestamp":1700000000,"open":1,"high":2,"low":0.5,"close":1.5,"volume":100}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sekret", "")
	bars, err := c.Bars(context.Background(), testQuery(), false)
	if err != nil {
		t.Fatalf("bars: %v", err)
	}
	if len(bars) != 1 || bars[0].Close != 1.5 {
		t.Fatalf("unexpected bars: %+v", bars)
	}
}

func TestClient_BarsAlternateEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("outputsize"); got != "full" {
			t.Errorf("outputsize = %q, want full", got)
		}
		w.Write([]byte(`{"bars":[{"timestamp":1700000000,"close":2.5}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	q := Query{Symbol: "AAPL", Period: model.PeriodAll, Interval: model.Interval1Day}
	bars, err := c.Bars(context.Background(), q, true)
	if err != nil {
		t.Fatalf("bars: %v", err)
	}
	if len(bars) != 1 || bars[0].Close != 2.5 {
		t.Fatalf("unexpected bars: %+v", bars)
	}
}

func TestClient_EmptyResponseIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	bars, err := c.Bars(context.Background(), testQuery(), false)
	if err != nil {
		t.Fatalf("empty body must be a fetchable-but-empty result: %v", err)
	}
	if len(bars) != 0 {
		t.Fatalf("expected no bars, got %d", len(bars))
	}
}

func TestClient_ServerErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	if _, err := c.Bars(context.Background(), testQuery(), false); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestClient_Invalidate(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	if err := c.Invalidate(context.Background(), "BTC/USD"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if gotMethod != "POST" {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotPath != "/force-refresh/BTC%2FUSD" && gotPath != "/force-refresh/BTC/USD" {
		t.Errorf("unexpected path %q", gotPath)
	}
}
