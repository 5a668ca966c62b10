package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nighthawk909/ChartSense-sub000/internal/chart"
	"github.com/nighthawk909/ChartSense-sub000/internal/config"
	"github.com/nighthawk909/ChartSense-sub000/internal/history"
	"github.com/nighthawk909/ChartSense-sub000/internal/journal"
	"github.com/nighthawk909/ChartSense-sub000/internal/model"
	"github.com/nighthawk909/ChartSense-sub000/internal/notifier"
	"github.com/nighthawk909/ChartSense-sub000/internal/scheduler"
	"github.com/nighthawk909/ChartSense-sub000/internal/stream"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] chartd starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init bar source
	var source history.Source
	if cfg.DataSource.BaseURL != "" {
		source = history.NewClient(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	} else {
		source = &history.MockSource{}
	}
	log.Printf("[INFO] bar source: %s", source.Name())

	controller := history.NewController(source)

	// Init journal
	var jnl journal.Journal
	if cfg.Database.SQLitePath != "" {
		sj, err := journal.NewSQLite(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite journal failed, using noop: %v", err)
			jnl = journal.NewNoop()
		} else {
			jnl = sj
			defer sj.Close()
		}
	} else {
		jnl = journal.NewNoop()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telegram alerts ride the same event stream as the journal.
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		tg := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		jnl = journal.NewMulti(jnl, notifier.NewAlertJournal(ctx, tg))
		log.Println("[INFO] Telegram alerts enabled")
	}

	// Shared push channel; nil means polling-only mode.
	channel := stream.Shared(ctx, stream.Config{URL: cfg.Stream.URL, APIKey: cfg.Stream.APIKey})
	if channel != nil {
		channel.SetStatusFunc(func(s model.ConnectionStatus) {
			if err := jnl.RecordStatus(&journal.StatusEvent{Status: s.String()}); err != nil {
				log.Printf("[WARN] journal status event: %v", err)
			}
		})
	}

	// Build the chart view
	q := history.Query{
		Symbol:   cfg.Chart.Symbol,
		Period:   model.Period(cfg.Chart.Period),
		Interval: model.Interval(cfg.Chart.Interval),
	}
	view, err := chart.NewView(ctx, chart.Options{
		Controller: controller,
		Channel:    channel,
		Journal:    jnl,
		Overlays:   cfg.Chart.Overlays,
		Thresholds: cfg.Thresholds(),
	}, q)
	if err != nil {
		log.Fatalf("[FATAL] create chart view: %v", err)
	}
	defer view.Close()

	if err := view.Load(ctx); err != nil {
		// Not fatal: the periodic refresh keeps trying on its cadence and
		// staleness recovery kicks in once data has ever been shown.
		log.Printf("[ERROR] initial load: %v", err)
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, view)
	if err := sched.RegisterAll(cfg.Schedule.RefreshEvery, cfg.Schedule.WatchdogEvery); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	log.Printf("[INFO] chartd is running (%s %s/%s). Press Ctrl+C to stop.",
		q.Symbol, q.Period, q.Interval)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] chartd stopped")
}
