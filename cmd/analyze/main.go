// Package main provides a one-shot risk analysis CLI: it fetches the
// current on-chain state for one mint, runs the full analysis and prints
// the report as Markdown or JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/dominance"
	"solana-risk-engine/internal/engine"
	"solana-risk-engine/internal/ingestion"
	"solana-risk-engine/internal/reporting"
	"solana-risk-engine/internal/solana"
	"solana-risk-engine/internal/storage"
	chstore "solana-risk-engine/internal/storage/clickhouse"
	"solana-risk-engine/internal/storage/memory"
	"solana-risk-engine/internal/storage/migrations"
	pgstore "solana-risk-engine/internal/storage/postgres"
)

func main() {
	mint := flag.String("mint", "", "Token mint address to analyze (required)")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (optional, enables persistence)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, enables stored price series)")
	format := flag.String("format", "md", "Output format: md or json")
	output := flag.String("output", "-", "Output file, - for stdout")
	priceWindow := flag.Duration("price-window", time.Hour, "Price series window ending at analysis time")

	flag.Parse()

	logger := log.New(os.Stderr, "[analyze] ", log.LstdFlags)

	if *mint == "" {
		logger.Fatal("--mint is required")
	}
	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if err := ingestion.ValidateAddress(*mint); err != nil {
		logger.Fatalf("Invalid mint address: %v", err)
	}
	if *format != "md" && *format != "json" {
		logger.Fatalf("Unknown format %q, want md or json", *format)
	}

	cfg := config.Default()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	report, err := run(ctx, cfg, *mint, *rpcEndpoint, *postgresDSN, *clickhouseDSN, *priceWindow, logger)
	if err != nil {
		logger.Fatalf("Analysis failed: %v", err)
	}

	var rendered []byte
	if *format == "json" {
		rendered, err = reporting.RenderJSON(report)
		if err != nil {
			logger.Fatalf("Render report: %v", err)
		}
		rendered = append(rendered, '\n')
	} else {
		rendered = []byte(reporting.RenderMarkdown(report))
	}

	if *output == "-" {
		os.Stdout.Write(rendered)
		return
	}
	if err := os.WriteFile(*output, rendered, 0644); err != nil {
		logger.Fatalf("Write report: %v", err)
	}
	logger.Printf("Report written to %s", *output)
}

// run performs one full analysis pass for the mint.
func run(ctx context.Context, cfg config.Engine, mint, rpcEndpoint, postgresDSN, clickhouseDSN string, priceWindow time.Duration, logger *log.Logger) (*domain.RiskReport, error) {
	rpc := solana.NewHTTPClient(rpcEndpoint)
	adapter := ingestion.NewAdapter(logger)

	// Stores: persistent when DSNs are given, ephemeral otherwise.
	var reportStore storage.RiskReportStore = memory.NewRiskReportStore()
	var dominanceStore storage.DominanceStore = memory.NewDominanceStore()
	if postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return nil, fmt.Errorf("run postgres migrations: %w", err)
		}
		reportStore = pgstore.NewRiskReportStore(pool)
		dominanceStore = pgstore.NewDominanceStore(pool)
	}

	var priceStore storage.PriceTimeseriesStore
	if clickhouseDSN != "" {
		chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			return nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		defer chConn.Close()
		priceStore = chstore.NewPriceTimeseriesStore(chConn)
	}

	tracker := dominance.NewTracker(dominanceStore, cfg.DominanceHistory)
	eng, err := engine.New(cfg,
		engine.WithDominanceTracker(tracker),
		engine.WithReportStore(reportStore),
		engine.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	holders := ingestion.NewRPCHolderSource(rpc, adapter)
	snapshot, err := holders.Fetch(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("fetch holder snapshot: %w", err)
	}

	wallets := make([]string, 0, cfg.TopN)
	for _, h := range snapshot.TopN(cfg.TopN) {
		wallets = append(wallets, h.Address)
	}

	fetcher := ingestion.NewHistoryFetcher(ingestion.NewRPCTransferSource(rpc, adapter), cfg.FetchConcurrency, logger)
	histories, err := fetcher.FetchAll(ctx, mint, wallets)
	if err != nil {
		logger.Printf("history fetch incomplete: %v", err)
	}

	// Stored price series, when available. Without it the causality signal
	// degrades to indeterminate.
	var prices []domain.PriceSample
	if priceStore != nil {
		from := snapshot.CapturedAtMs - priceWindow.Milliseconds()
		stored, err := priceStore.GetByTimeRange(ctx, mint, from, snapshot.CapturedAtMs)
		if err != nil {
			logger.Printf("stored price lookup failed: %v", err)
		}
		for _, p := range stored {
			prices = append(prices, *p)
		}
	}

	flows := ingestion.BuildWhaleFlows(snapshot, histories, cfg.TopN, ingestion.DefaultFlowBucketMs)

	metadata, err := ingestion.NewRPCMetadataSource(rpc).Fetch(ctx, mint)
	if err != nil {
		logger.Printf("metadata fetch failed: %v", err)
		metadata = nil
	}

	return eng.Analyze(ctx, &engine.Input{
		Snapshot:  snapshot,
		Histories: histories,
		Prices:    prices,
		Flows:     flows,
		Metadata:  metadata,
	})
}
