package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"crypto-call-lab/internal/domain"
	"crypto-call-lab/internal/idhash"
	"crypto-call-lab/internal/ingestion"
	"crypto-call-lab/internal/simulation"
	"crypto-call-lab/internal/storage"
	chstore "crypto-call-lab/internal/storage/clickhouse"
	"crypto-call-lab/internal/storage/memory"
	"crypto-call-lab/internal/storage/migrations"
	pgstore "crypto-call-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	callID := flag.String("call-id", "", "Token call ID to simulate")
	notional := flag.Float64("notional-usd", 1000, "Position notional in USD")

	// Manual call registration (alternative to --call-id)
	callMint := flag.String("call-mint", "", "Register a MANUAL call for this mint and simulate it")
	callSymbol := flag.String("call-symbol", "", "Display symbol for the registered call")
	callPrice := flag.Float64("call-price", 0, "Price at call time for the registered call")
	callTime := flag.String("call-time", "", "Call timestamp (RFC3339) for the registered call")

	// Ladder: comma-separated multiplier:fraction pairs
	ladderSpec := flag.String("ladder", "1.5:0.5,2.0:0.5", "Take-profit ladder as multiplier:fraction pairs")
	intrabar := flag.String("intrabar", "STOP_FIRST", "Intrabar policy: STOP_FIRST, TP_FIRST, HIGH_THEN_LOW, LOW_THEN_HIGH")

	// Trailing / hard stop
	trailBps := flag.Float64("trail-bps", 0, "Trailing stop distance in bps (0 disables)")
	trailActivation := flag.Float64("trail-activation", 1.0, "High-water multiplier that arms the trail")
	hardStopPct := flag.Float64("hard-stop-pct", 0, "Hard stop below entry as fraction (0 disables)")

	// Indicator exit
	emaExit := flag.Bool("ema-exit", false, "Exit on bearish EMA cross")
	rsiExitBelow := flag.Float64("rsi-exit-below", 0, "Exit when RSI crosses below this level (0 disables)")
	combinator := flag.String("combinator", "ANY", "Indicator rule combinator: ANY, ALL")

	// Time exit and re-entry
	maxHoldBars := flag.Int("max-hold-bars", 0, "Close after this many bars (0 disables)")
	reentryRetracePct := flag.Float64("reentry-retrace-pct", 0, "Re-enter on retrace below exit by this fraction (0 disables)")
	reentryMax := flag.Int("reentry-max", 1, "Maximum number of re-entries")
	reentrySize := flag.Float64("reentry-size", 0.5, "Re-entry size as fraction of the original position")

	// Frictions
	takerFeeBps := flag.Float64("taker-fee-bps", 30, "Taker fee in bps per fill")
	slippageBps := flag.Float64("slippage-bps", 20, "Slippage in bps per fill")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (token calls)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (candles, simulation records)")
	runMigrations := flag.Bool("migrate", false, "Run database migrations before simulating")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")
	persistResult := flag.Bool("persist", false, "Persist simulation record to storage")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	// Validate required flags
	if *callID == "" && *callMint == "" {
		logger.Fatal("--call-id or --call-mint is required")
	}
	if *callID != "" && *callMint != "" {
		logger.Fatal("--call-id and --call-mint are mutually exclusive")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Create stores
	var callStore storage.CallStore = memory.NewCallStore()
	var candleStore storage.CandleStore = memory.NewCandleStore()
	var simulationStore storage.SimulationStore = memory.NewSimulationStore()

	if !*useMemory {
		// Require DSNs when not using memory
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required when not using --use-memory (token calls)")
		}
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required when not using --use-memory (candles, simulation records)")
		}

		// PostgreSQL for token calls
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()

		if *runMigrations {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				logger.Fatalf("run postgres migrations: %v", err)
			}
		}

		callStore = pgstore.NewCallStore(pool)

		// ClickHouse for candles and simulation records
		var conn *chstore.Conn
		if *runMigrations {
			conn, err = migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
			if err != nil {
				logger.Fatalf("run clickhouse migrations: %v", err)
			}
		} else {
			conn, err = chstore.NewConn(ctx, *clickhouseDSN)
			if err != nil {
				logger.Fatalf("connect to clickhouse: %v", err)
			}
		}
		defer conn.Close()

		candleStore = chstore.NewCandleStore(conn)
		simulationStore = chstore.NewSimulationStore(conn)
	}

	// Build exit plan from flags
	plan, err := buildPlan(
		*ladderSpec, *intrabar,
		*trailBps, *trailActivation, *hardStopPct,
		*emaExit, *rsiExitBelow, *combinator,
		*maxHoldBars,
		*reentryRetracePct, *reentryMax, *reentrySize,
		*takerFeeBps, *slippageBps,
	)
	if err != nil {
		logger.Fatalf("build plan: %v", err)
	}

	// Register a manual call when asked
	if *callMint != "" {
		id, err := registerManualCall(ctx, callStore, *callMint, *callSymbol, *callPrice, *callTime)
		if err != nil {
			logger.Fatalf("register call: %v", err)
		}
		logger.Printf("Registered manual call %s", id)
		*callID = id
	}

	// Create simulation runner
	var recordStore storage.SimulationStore
	if *persistResult {
		recordStore = simulationStore
	}

	runner := simulation.NewRunner(simulation.RunnerOptions{
		CallStore:       callStore,
		CandleStore:     candleStore,
		SimulationStore: recordStore,
	})

	// Run simulation
	logger.Printf("Running simulation: call=%s plan=%s", *callID, plan.ID())

	record, err := runner.Run(ctx, *callID, plan, *notional)
	if err != nil {
		logger.Fatalf("simulation failed: %v", err)
	}

	// Output result
	if *outputJSON {
		output, _ := json.MarshalIndent(record, "", "  ")
		fmt.Println(string(output))
	} else {
		printRecord(record)
	}
}

// registerManualCall validates the mint, builds a MANUAL-source call with a
// deterministic ID and inserts it. An already-registered identical call is
// not an error.
func registerManualCall(ctx context.Context, callStore storage.CallStore, mint, symbol string, price float64, timeStr string) (string, error) {
	if err := ingestion.ValidateMint(mint); err != nil {
		return "", err
	}
	if price <= 0 {
		return "", fmt.Errorf("--call-price must be positive")
	}

	calledAt := time.Now().UnixMilli()
	if timeStr != "" {
		t, err := time.Parse(time.RFC3339, timeStr)
		if err != nil {
			return "", fmt.Errorf("parse --call-time: %w", err)
		}
		calledAt = t.UnixMilli()
	}

	call := &domain.TokenCall{
		CallID:     idhash.ComputeCallID(mint, domain.CallSourceManual, calledAt),
		Mint:       mint,
		Symbol:     symbol,
		Source:     domain.CallSourceManual,
		CalledAtMs: calledAt,
		CallPrice:  price,
	}

	err := callStore.Insert(ctx, call)
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return "", err
	}

	return call.CallID, nil
}

// buildPlan creates an ExitPlan from CLI flags and validates it.
func buildPlan(
	ladderSpec, intrabar string,
	trailBps, trailActivation, hardStopPct float64,
	emaExit bool, rsiExitBelow float64, combinator string,
	maxHoldBars int,
	reentryRetracePct float64, reentryMax int, reentrySize float64,
	takerFeeBps, slippageBps float64,
) (*domain.ExitPlan, error) {
	ladder, err := parseLadder(ladderSpec)
	if err != nil {
		return nil, err
	}

	plan := &domain.ExitPlan{
		Ladder:   ladder,
		Intrabar: domain.IntrabarPolicy(strings.ToUpper(intrabar)),
		Frictions: domain.Frictions{
			TakerFeeBps: takerFeeBps,
			SlippageBps: slippageBps,
		},
	}

	if trailBps > 0 || hardStopPct > 0 {
		plan.TrailingStop = &domain.TrailingStopConfig{
			TrailDistanceBps:     trailBps,
			ActivationMultiplier: trailActivation,
			HardStopEnabled:      hardStopPct > 0,
			HardStopPct:          hardStopPct,
		}
	}

	var rules []domain.IndicatorRule
	if emaExit {
		rules = append(rules, domain.IndicatorRule{
			Kind:      domain.RuleEMACross,
			Direction: domain.DirectionBearish,
		})
	}
	if rsiExitBelow > 0 {
		rules = append(rules, domain.IndicatorRule{
			Kind:      domain.RuleRSICross,
			Direction: domain.DirectionBelow,
			Threshold: rsiExitBelow,
		})
	}
	if len(rules) > 0 {
		plan.IndicatorExit = &domain.IndicatorExitConfig{
			Rules:      rules,
			Combinator: domain.Combinator(strings.ToUpper(combinator)),
		}
	}

	if maxHoldBars > 0 {
		plan.TimeExit = &domain.TimeExitConfig{MaxHoldBars: maxHoldBars}
	}

	if reentryRetracePct > 0 {
		plan.ReEntry = &domain.ReEntryConfig{
			RetracePct:   reentryRetracePct,
			MaxReEntries: reentryMax,
			SizePercent:  reentrySize,
		}
	}

	plan.Normalize()
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	return plan, nil
}

// parseLadder parses "1.5:0.5,2.0:0.5" into ladder levels.
func parseLadder(spec string) ([]domain.LadderLevel, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	var ladder []domain.LadderLevel
	for _, pair := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(pair), ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid ladder level %q, want multiplier:fraction", pair)
		}

		multiplier, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ladder multiplier %q: %w", parts[0], err)
		}
		fraction, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ladder fraction %q: %w", parts[1], err)
		}

		ladder = append(ladder, domain.LadderLevel{
			PriceMultiplier: multiplier,
			Fraction:        fraction,
		})
	}

	return ladder, nil
}

// printRecord outputs a human-readable simulation record.
func printRecord(r *domain.SimulationRecord) {
	fmt.Println()
	fmt.Println("=== Simulation Result ===")
	fmt.Printf("Run ID:             %s\n", r.RunID)
	fmt.Printf("Call ID:            %s\n", r.CallID)
	fmt.Printf("Plan ID:            %s\n", r.PlanID)
	fmt.Println()

	fmt.Println("Entry:")
	fmt.Printf("  Time:             %s\n", time.UnixMilli(r.EntryTimestampMs).Format(time.RFC3339Nano))
	fmt.Printf("  Price:            %.8f\n", r.EntryPrice)
	fmt.Printf("  Notional:         %.2f USD\n", r.PositionNotionalUSD)
	fmt.Println()

	fmt.Println("Exit:")
	if r.NoExit {
		fmt.Println("  No exit: candle history ended with the position open")
	} else {
		fmt.Printf("  Time:             %s\n", time.UnixMilli(r.ExitTimestampMs).Format(time.RFC3339Nano))
		fmt.Printf("  Reason:           %s\n", r.ExitReason)
		fmt.Printf("  VWAP:             %.8f\n", r.ExitPriceVWAP)
	}
	fmt.Printf("  Fills:            %d\n", r.FillCount)
	fmt.Printf("  Re-entries:       %d\n", r.ReEntryCount)
	fmt.Println()

	fmt.Println("Result:")
	fmt.Printf("  Gross Return:     %.2f%%\n", r.GrossReturnPct)
	fmt.Printf("  Net Return:       %.2f%%\n", r.NetReturnPct)
	fmt.Printf("  Fees:             %.4f USD\n", r.FeesUSD)
	fmt.Printf("  Outcome Class:    %s\n", r.OutcomeClass)
}
