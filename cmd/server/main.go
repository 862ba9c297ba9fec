// Package main provides the risk analysis HTTP server:
// - GET /analyze/{mint} runs a full analysis and returns the risk report
// - GET /reports/{id} and /reports/mint/{mint} serve persisted reports
// - /health, /status and /metrics for operations
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/dominance"
	"solana-risk-engine/internal/engine"
	"solana-risk-engine/internal/ingestion"
	"solana-risk-engine/internal/observability"
	"solana-risk-engine/internal/reporting"
	"solana-risk-engine/internal/solana"
	"solana-risk-engine/internal/storage"
	chstore "solana-risk-engine/internal/storage/clickhouse"
	"solana-risk-engine/internal/storage/memory"
	"solana-risk-engine/internal/storage/migrations"
	pgstore "solana-risk-engine/internal/storage/postgres"
)

// Server holds all components of the analysis service.
type Server struct {
	cfg    config.Engine
	engine *engine.Engine

	holders  ingestion.HolderSource
	metadata ingestion.MetadataSource
	prices   ingestion.PriceSource // nil when no price feed is configured
	fetcher  *ingestion.HistoryFetcher

	priceWindow time.Duration
	stores      *allStores
	logger      *log.Logger

	mu       sync.Mutex
	started  time.Time
	analyses int
}

// allStores holds all storage implementations.
type allStores struct {
	metadataStore  storage.TokenMetadataStore
	reportStore    storage.RiskReportStore
	dominanceStore storage.DominanceStore
	priceStore     storage.PriceTimeseriesStore
	whaleFlowStore storage.WhaleFlowStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("PRICE_WS_ENDPOINT"), "Price tick WebSocket endpoint (optional)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	listenAddr := flag.String("listen-addr", ":8080", "HTTP listen address")
	priceWindow := flag.Duration("price-window", time.Hour, "Price series window ending at analysis time")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	cfg := config.Default()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	server, err := newServer(ctx, cfg, stores, *rpcEndpoint, *wsEndpoint, *priceWindow, logger)
	if err != nil {
		logger.Fatalf("Failed to create server: %v", err)
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	if err := server.Run(ctx, *listenAddr); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// newServer wires ingestion sources and the analysis engine.
func newServer(ctx context.Context, cfg config.Engine, stores *allStores, rpcEndpoint, wsEndpoint string, priceWindow time.Duration, logger *log.Logger) (*Server, error) {
	rpc := solana.NewHTTPClient(rpcEndpoint)
	adapter := ingestion.NewAdapter(log.New(os.Stdout, "[ingestion] ", log.LstdFlags))

	var prices ingestion.PriceSource
	if wsEndpoint != "" {
		wsSource, err := ingestion.NewWSPriceSource(ctx, wsEndpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("connect price feed: %w", err)
		}
		prices = ingestion.NewCachedPriceSource(wsSource, cfg.CacheTTL)
	}

	tracker := dominance.NewTracker(stores.dominanceStore, cfg.DominanceHistory)

	eng, err := engine.New(cfg,
		engine.WithDominanceTracker(tracker),
		engine.WithReportStore(stores.reportStore),
		engine.WithLogger(log.New(os.Stdout, "[engine] ", log.LstdFlags)),
	)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:         cfg,
		engine:      eng,
		holders:     ingestion.NewRPCHolderSource(rpc, adapter),
		metadata:    ingestion.NewCachedMetadataSource(ingestion.NewRPCMetadataSource(rpc), cfg.CacheTTL),
		prices:      prices,
		fetcher:     ingestion.NewHistoryFetcher(ingestion.NewRPCTransferSource(rpc, adapter), cfg.FetchConcurrency, nil),
		priceWindow: priceWindow,
		stores:      stores,
		logger:      logger,
		started:     time.Now(),
	}, nil
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			metadataStore:  memory.NewTokenMetadataStore(),
			reportStore:    memory.NewRiskReportStore(),
			dominanceStore: memory.NewDominanceStore(),
			priceStore:     memory.NewPriceTimeseriesStore(),
			whaleFlowStore: memory.NewWhaleFlowStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	// ClickHouse (migrations return a connection to the target database)
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	stores := &allStores{
		metadataStore:  pgstore.NewTokenMetadataStore(pool),
		reportStore:    pgstore.NewRiskReportStore(pool),
		dominanceStore: pgstore.NewDominanceStore(pool),
		priceStore:     chstore.NewPriceTimeseriesStore(chConn),
		whaleFlowStore: chstore.NewWhaleFlowStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/analyze/", s.handleAnalyze)
	mux.HandleFunc("/reports/", s.handleReports)

	httpServer := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// handleAnalyze runs a full analysis for the mint in the path.
// GET /analyze/{mint}?format=json|md
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	mint := strings.TrimPrefix(r.URL.Path, "/analyze/")
	if err := ingestion.ValidateAddress(mint); err != nil {
		http.Error(w, fmt.Sprintf("invalid mint address: %v", err), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	report, err := s.analyze(ctx, mint)
	if err != nil {
		s.logger.Printf("analysis of %s failed: %v", mint, err)
		http.Error(w, fmt.Sprintf("analysis failed: %v", err), http.StatusBadGateway)
		return
	}

	s.mu.Lock()
	s.analyses++
	s.mu.Unlock()

	if r.URL.Query().Get("format") == "md" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(reporting.RenderMarkdown(report)))
		return
	}
	writeJSON(w, report)
}

// analyze gathers all observations for a mint and runs the engine over them.
// Missing upstream data degrades signals instead of failing the run; only a
// missing holder snapshot is fatal.
func (s *Server) analyze(ctx context.Context, mint string) (*domain.RiskReport, error) {
	snapshot, err := s.holders.Fetch(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("fetch holder snapshot: %w", err)
	}

	wallets := make([]string, 0, s.cfg.TopN)
	for _, h := range snapshot.TopN(s.cfg.TopN) {
		wallets = append(wallets, h.Address)
	}

	histories, err := s.fetcher.FetchAll(ctx, mint, wallets)
	if err != nil {
		s.logger.Printf("history fetch for %s incomplete: %v", mint, err)
	}

	var prices []domain.PriceSample
	if s.prices != nil {
		from := snapshot.CapturedAtMs - s.priceWindow.Milliseconds()
		prices, err = s.prices.Fetch(ctx, mint, from, snapshot.CapturedAtMs)
		if err != nil {
			s.logger.Printf("price fetch for %s failed: %v", mint, err)
		}
	}

	flows := ingestion.BuildWhaleFlows(snapshot, histories, s.cfg.TopN, ingestion.DefaultFlowBucketMs)

	meta, err := s.metadata.Fetch(ctx, mint)
	if err != nil {
		s.logger.Printf("metadata fetch for %s failed: %v", mint, err)
		meta = nil
	}

	s.persistObservations(ctx, mint, meta, prices, flows)

	return s.engine.Analyze(ctx, &engine.Input{
		Snapshot:  snapshot,
		Histories: histories,
		Prices:    prices,
		Flows:     flows,
		Metadata:  meta,
	})
}

// persistObservations writes fetched observations to storage, best effort.
// Duplicate time series batches are expected when a mint is re-analyzed
// inside one sampling interval.
func (s *Server) persistObservations(ctx context.Context, mint string, meta *domain.TokenMetadata, prices []domain.PriceSample, flows []domain.WhaleFlowPoint) {
	if meta != nil {
		if err := s.stores.metadataStore.Upsert(ctx, meta); err != nil {
			s.logger.Printf("persisting metadata for %s failed: %v", mint, err)
		}
	}

	if len(prices) > 0 {
		samples := make([]*domain.PriceSample, len(prices))
		for i := range prices {
			samples[i] = &prices[i]
		}
		if err := s.stores.priceStore.InsertBulk(ctx, samples); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			s.logger.Printf("persisting prices for %s failed: %v", mint, err)
		}
	}

	if len(flows) > 0 {
		points := make([]*domain.WhaleFlowPoint, len(flows))
		for i := range flows {
			points[i] = &flows[i]
		}
		if err := s.stores.whaleFlowStore.InsertBulk(ctx, points); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			s.logger.Printf("persisting whale flows for %s failed: %v", mint, err)
		}
	}
}

// handleReports serves persisted reports.
// GET /reports/{id}
// GET /reports/mint/{mint}        - all reports for a mint
// GET /reports/mint/{mint}/latest - most recent report
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/reports/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		report, err := s.stores.reportStore.GetByID(r.Context(), parts[0])
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, report)

	case len(parts) == 2 && parts[0] == "mint":
		reports, err := s.stores.reportStore.GetByMint(r.Context(), parts[1])
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, reports)

	case len(parts) == 3 && parts[0] == "mint" && parts[2] == "latest":
		report, err := s.stores.reportStore.GetLatestByMint(r.Context(), parts[1])
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, report)

	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Analyses int    `json:"analyses"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:   "running",
		Uptime:   time.Since(s.started).String(),
		Analyses: s.analyses,
	}
	s.mu.Unlock()

	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
