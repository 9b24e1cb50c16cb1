package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"crypto-call-lab/internal/ingestion"
	"crypto-call-lab/internal/observability"
	"crypto-call-lab/internal/storage"
	chstore "crypto-call-lab/internal/storage/clickhouse"
	"crypto-call-lab/internal/storage/memory"
	"crypto-call-lab/internal/storage/migrations"
)

func main() {
	// Parse flags
	wsEndpoint := flag.String("ws-endpoint", "wss://stream.binance.com:9443", "Exchange WebSocket endpoint")
	streams := flag.String("streams", "", "Comma-separated symbol:mint pairs, e.g. SOLUSDT:So111...112 (required)")
	interval := flag.String("interval", "1m", "Kline interval")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	runMigrations := flag.Bool("migrate", false, "Run ClickHouse migrations before ingesting")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of ClickHouse")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Resolve subscriptions
	subscriptions, err := parseStreams(*streams)
	if err != nil {
		logger.Fatalf("parse --streams: %v", err)
	}
	if len(subscriptions) == 0 {
		logger.Fatal("No streams specified. Use --streams SYMBOL:MINT[,SYMBOL:MINT...]")
	}
	logger.Printf("Ingesting %d kline streams at interval %s", len(subscriptions), *interval)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	if err := run(ctx, logger, *wsEndpoint, *clickhouseDSN, subscriptions, *interval, *runMigrations, *useMemory); err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	close(done)
	logger.Println("Shutdown complete")
}

// parseStreams parses comma-separated symbol:mint pairs and validates each
// mint address. Invalid mints abort startup rather than silently dropping a
// stream.
func parseStreams(spec string) (map[string]string, error) {
	subscriptions := make(map[string]string)
	if spec == "" {
		return subscriptions, nil
	}

	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid stream %q, want SYMBOL:MINT", pair)
		}

		symbol := strings.ToUpper(strings.TrimSpace(parts[0]))
		mint := strings.TrimSpace(parts[1])

		if err := ingestion.ValidateMint(mint); err != nil {
			return nil, fmt.Errorf("stream %s: %w", symbol, err)
		}

		subscriptions[symbol] = mint
	}

	return subscriptions, nil
}

// run connects storage and the kline feed, then blocks until ctx cancels.
func run(ctx context.Context, logger *log.Logger, wsEndpoint, clickhouseDSN string, subscriptions map[string]string, interval string, runMigrations, useMemory bool) error {
	var candleStore storage.CandleStore = memory.NewCandleStore()

	if !useMemory {
		if clickhouseDSN == "" {
			return fmt.Errorf("--clickhouse-dsn is required (use --use-memory for in-memory storage)")
		}

		var conn *chstore.Conn
		var err error
		if runMigrations {
			conn, err = migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
			if err != nil {
				return fmt.Errorf("run clickhouse migrations: %w", err)
			}
		} else {
			conn, err = chstore.NewConn(ctx, clickhouseDSN)
			if err != nil {
				return fmt.Errorf("connect to clickhouse: %w", err)
			}
		}
		defer conn.Close()

		candleStore = chstore.NewCandleStore(conn)
	}

	feed, err := ingestion.NewKlineFeed(ctx, wsEndpoint, subscriptions, interval, candleStore, nil)
	if err != nil {
		return fmt.Errorf("create kline feed: %w", err)
	}
	defer feed.Close()

	logger.Println("Starting live candle ingestion...")

	<-ctx.Done()
	return ctx.Err()
}
