// Package main provides a one-shot Monte Carlo backtest CLI: load a CSV
// price series, run a strategy over many synthetic paths, print the summary
// as text or JSON, optionally persisting results to PostgreSQL/ClickHouse.
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
	"syscall"

	"montecarlo-lab/internal/orchestrator"
	"montecarlo-lab/internal/reporting"
	"montecarlo-lab/internal/storage"
	chstore "montecarlo-lab/internal/storage/clickhouse"
	"montecarlo-lab/internal/storage/migrations"
	pgstore "montecarlo-lab/internal/storage/postgres"
)

func main() {
	// Input and strategy
	csvPath := flag.String("csv", "", "Path to CSV price file with a close or adjusted close column (required)")
	strategyName := flag.String("strategy", "sma_crossover", "Strategy: sma_crossover|sma or rsi_reversion|rsi")
	smaShort := flag.Int("sma-short", 0, "SMA short window (0 = strategy default)")
	smaLong := flag.Int("sma-long", 0, "SMA long window (0 = strategy default)")
	rsiPeriod := flag.Int("rsi-period", 0, "RSI period (0 = strategy default)")
	overbought := flag.Float64("overbought", 0, "RSI overbought threshold (0 = strategy default)")
	oversold := flag.Float64("oversold", 0, "RSI oversold threshold (0 = strategy default)")

	// Perturbation and orchestration
	method := flag.String("method", "bootstrap", "Perturbation method: bootstrap or gaussian")
	sampleFraction := flag.Float64("sample-fraction", 0, "Bootstrap sample fraction (0 = default 1.0)")
	gaussianScale := flag.Float64("gaussian-scale", 0, "Gaussian noise scale (0 = default 1.0)")
	runs := flag.Int("runs", 1000, "Number of Monte Carlo trials")
	maxRuns := flag.Int("max-runs", orchestrator.DefaultMaxRuns, "Safety ceiling on trials")
	seed := flag.Int64("seed", 42, "Master random seed")
	workers := flag.Int("workers", 1, "Parallel workers (1 = sequential)")
	envelope := flag.Bool("envelope", false, "Compute the equity envelope")

	// Storage
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL DSN for summary persistence (optional)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse DSN for trial row persistence (optional)")

	// Output
	outputJSON := flag.Bool("json", false, "Output the summary as JSON")
	verbose := flag.Bool("verbose", false, "Verbose orchestration logging")

	flag.Parse()

	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	if *csvPath == "" {
		logger.Fatal("--csv is required")
	}

	raw, err := os.ReadFile(*csvPath)
	if err != nil {
		logger.Fatalf("Failed to read CSV: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := orchestrator.Options{MaxRuns: *maxRuns, Verbose: *verbose}

	var summaryStore storage.SummaryStore
	if *postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("Failed to apply PostgreSQL migrations: %v", err)
		}
		summaryStore = pgstore.NewSummaryStore(pool)
	}
	if *clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("Failed to set up ClickHouse: %v", err)
		}
		defer conn.Close()
		opts.TrialMetricStore = chstore.NewTrialMetricStore(conn)
		opts.EnvelopePointStore = chstore.NewEnvelopePointStore(conn)
	}

	orch := orchestrator.New(opts)

	lastPct := -1
	summary, err := orch.RunBytes(ctx, raw, orchestrator.RunInput{
		Filename:              *csvPath,
		StrategyName:          *strategyName,
		StrategyParams:        strategyParams(*strategyName, *smaShort, *smaLong, *rsiPeriod, *overbought, *oversold),
		Method:                *method,
		MethodParams:          methodParams(*sampleFraction, *gaussianScale),
		Runs:                  *runs,
		Seed:                  *seed,
		ParallelWorkers:       *workers,
		IncludeEquityEnvelope: *envelope,
		Progress: func(completed, total int) {
			pct := completed * 100 / total
			if pct != lastPct {
				lastPct = pct
				fmt.Fprintf(os.Stderr, "\rProgress: %d/%d (%d%%)", completed, total, pct)
				if completed == total {
					fmt.Fprintln(os.Stderr)
				}
			}
		},
	})
	if err != nil {
		logger.Fatalf("Backtest failed: %v", err)
	}

	if summaryStore != nil {
		if err := summaryStore.Insert(ctx, summary); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			logger.Fatalf("Failed to persist summary: %v", err)
		}
	}

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			logger.Fatalf("Failed to encode summary: %v", err)
		}
		return
	}

	report := &reporting.BatchReport{Summary: summary}
	fmt.Printf("Batch %s: %s / %s, seed %d\n", summary.BatchID, summary.StrategyID, summary.Method, summary.Seed)
	fmt.Printf("Successful runs: %d/%d\n\n", summary.SuccessfulRuns, summary.RequestedRuns)
	fmt.Printf("%-10s %12s %12s %12s %12s %12s %12s %12s\n",
		"metric", "mean", "stddev", "p5", "p25", "median", "p75", "p95")
	for _, row := range report.MetricRows() {
		d := row.Distribution
		fmt.Printf("%-10s %12.6f %12.6f %12.6f %12.6f %12.6f %12.6f %12.6f\n",
			row.Name, d.Mean, d.Stddev, d.P5, d.P25, d.Median, d.P75, d.P95)
	}
	if env := summary.EquityEnvelope; env != nil && len(env.Timestamps) > 0 {
		last := len(env.Timestamps) - 1
		fmt.Printf("\nEquity envelope: %d timesteps, final median %.6f (p5 %.6f, p95 %.6f)\n",
			len(env.Timestamps), env.Median[last], env.P5[last], env.P95[last])
	}
}

// strategyParams builds the parameter map from the flags that apply to the
// chosen strategy, leaving zero-valued flags to the factory defaults.
func strategyParams(name string, smaShort, smaLong, rsiPeriod int, overbought, oversold float64) map[string]float64 {
	params := make(map[string]float64)
	switch name {
	case "sma", "sma_crossover":
		if smaShort > 0 {
			params["short_window"] = float64(smaShort)
		}
		if smaLong > 0 {
			params["long_window"] = float64(smaLong)
		}
	case "rsi", "rsi_reversion":
		if rsiPeriod > 0 {
			params["period"] = float64(rsiPeriod)
		}
		if overbought > 0 {
			params["overbought"] = overbought
		}
		if oversold > 0 {
			params["oversold"] = oversold
		}
	}
	return params
}

// methodParams builds the perturbation parameter map, leaving zero-valued
// flags to the generator defaults.
func methodParams(sampleFraction, gaussianScale float64) map[string]float64 {
	params := make(map[string]float64)
	if sampleFraction > 0 {
		params["sample_fraction"] = sampleFraction
	}
	if gaussianScale > 0 {
		params["gaussian_scale"] = gaussianScale
	}
	return params
}
