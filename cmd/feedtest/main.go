// feedtest connects to the market summary stream and prints extracted rates.
// Usage: go run ./cmd/feedtest --config configs/rated.local.yaml
//
// With -baseline the aggregator is queried first, so observations are also
// validated and merged, and every accepted merge is printed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/altrates/internal/api"
	"github.com/rickgao/altrates/internal/baseline"
	"github.com/rickgao/altrates/internal/cache"
	"github.com/rickgao/altrates/internal/config"
	"github.com/rickgao/altrates/internal/connection"
	"github.com/rickgao/altrates/internal/engine"
	"github.com/rickgao/altrates/internal/feed"
	"github.com/rickgao/altrates/internal/maintenance"
	"github.com/rickgao/altrates/internal/model"
	"github.com/rickgao/altrates/internal/rates"
)

func main() {
	configPath := flag.String("config", "configs/rated.example.yaml", "path to config file")
	withBaseline := flag.Bool("baseline", false, "fetch the baseline so observations are merged")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	cs := cfg.Currencies()
	eng := engine.New(cs, engine.DefaultConfig(), logger,
		engine.WithMergeListener(engine.MergeListenerFunc(func(ev engine.MergeEvent) {
			printJSON("merge", map[string]any{
				"id":     ev.ID,
				"source": ev.Source,
				"rates":  fiatRates(ev.Rates, cs),
			})
		})),
	)

	if *withBaseline {
		client := api.NewClient(cfg.Feeds.TickerURL,
			api.WithLogger(logger),
			api.WithTimeout(cfg.Feeds.RequestTimeout),
		)
		fetcher := baseline.New(cs, client, cache.New(cfg.Cache.TTL), eng, nil, logger)
		scheduler := maintenance.New(maintenance.DefaultConfig(), fetcher, eng, nil, logger)
		if err := scheduler.RunOnce(ctx); err != nil {
			logger.Error("baseline fetch failed", "error", err)
			os.Exit(1)
		}
		tickers, _ := eng.Tickers()
		printJSON("baseline", fiatRates(tickers, cs))
	}

	watcher := feed.NewWatcher(feed.Config{
		URL:               cfg.Feeds.StreamURL,
		ReconnectDelay:    cfg.Feeds.StreamReconnectDelay,
		ReconnectOnReject: cfg.Feeds.ReconnectOnReject,
	}, eng, logger)

	var count int
	watcher.OnObserved(func(observed rates.Table) {
		count++
		printJSON("observed", observed)
	})

	session := watcher.Session(connection.NewWSDialer(connection.DefaultClientConfig(), logger), nil)

	logger.Info("streaming summary deltas",
		"url", cfg.Feeds.StreamURL,
		"altcoins", model.JoinCodes(cs.Altcoins()),
	)
	start := time.Now()
	session.Run(ctx)

	logger.Info("stream closed", "observations", count, "duration", time.Since(start).Round(time.Second))
}

// fiatRates returns the altcoin to fiat slice of t.
func fiatRates(t rates.Table, cs model.Currencies) map[model.Code]map[model.Code]float64 {
	out := make(map[model.Code]map[model.Code]float64)
	for _, alt := range cs.Altcoins() {
		row := make(map[model.Code]float64)
		for _, fiat := range cs.Fiats() {
			if v, ok := t.Get(alt, fiat); ok {
				row[fiat] = v
			}
		}
		out[alt] = row
	}
	return out
}

func printJSON(kind string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal %s: %v\n", kind, err)
		return
	}
	fmt.Printf("[%s] %s %s\n", time.Now().Format("15:04:05.000"), kind, b)
}
