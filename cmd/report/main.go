// Package main regenerates the Markdown/CSV artifacts for stored Monte
// Carlo batches from PostgreSQL (summaries) and ClickHouse (trial rows).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"montecarlo-lab/internal/reporting"
	"montecarlo-lab/internal/storage"
	chstore "montecarlo-lab/internal/storage/clickhouse"
	"montecarlo-lab/internal/storage/migrations"
	pgstore "montecarlo-lab/internal/storage/postgres"
)

func main() {
	batchID := flag.String("batch-id", "", "Batch to report on (empty = all stored batches)")
	outputDir := flag.String("output-dir", "output", "Output directory for report artifacts")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (required)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, adds trial/envelope exports)")
	listOnly := flag.Bool("list", false, "List stored batches and exit")

	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Failed to apply PostgreSQL migrations: %v", err)
	}

	var trialStore storage.TrialMetricStore
	var envelopeStore storage.EnvelopePointStore
	if *clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("Failed to set up ClickHouse: %v", err)
		}
		defer conn.Close()
		trialStore = chstore.NewTrialMetricStore(conn)
		envelopeStore = chstore.NewEnvelopePointStore(conn)
	}

	gen := reporting.NewGenerator(pgstore.NewSummaryStore(pool), trialStore, envelopeStore)

	if *listOnly {
		summaries, err := gen.ListBatches(ctx)
		if err != nil {
			logger.Fatalf("Failed to list batches: %v", err)
		}
		for _, s := range summaries {
			fmt.Printf("%s  %s  %s  runs=%d/%d\n",
				s.BatchID, s.StrategyID, s.Method, s.SuccessfulRuns, s.RequestedRuns)
		}
		return
	}

	var batchIDs []string
	if *batchID != "" {
		batchIDs = []string{*batchID}
	} else {
		summaries, err := gen.ListBatches(ctx)
		if err != nil {
			logger.Fatalf("Failed to list batches: %v", err)
		}
		for _, s := range summaries {
			batchIDs = append(batchIDs, s.BatchID)
		}
	}
	if len(batchIDs) == 0 {
		logger.Fatal("No stored batches to report on")
	}

	for _, id := range batchIDs {
		report, err := gen.Generate(ctx, id)
		if err != nil {
			logger.Fatalf("Failed to generate report for %s: %v", id, err)
		}
		written, err := gen.WriteArtifacts(report, *outputDir)
		if err != nil {
			logger.Fatalf("Failed to write artifacts for %s: %v", id, err)
		}
		for _, path := range written {
			logger.Printf("Wrote %s", path)
		}
	}
}
