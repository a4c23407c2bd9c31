// Package main provides the Monte Carlo job server:
// - POST /api/jobs submits a batch (base64 CSV + parameters)
// - GET /api/jobs and /api/jobs/{id} poll job status
// - POST /api/jobs/{id}/cancel stops a running batch
// - GET /api/jobs/{id}/ws streams live progress over WebSocket
// - /metrics and /healthz for operations
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"montecarlo-lab/internal/config"
	"montecarlo-lab/internal/dataset"
	"montecarlo-lab/internal/domain"
	"montecarlo-lab/internal/job"
	"montecarlo-lab/internal/observability"
	"montecarlo-lab/internal/orchestrator"
	"montecarlo-lab/internal/perturb"
	"montecarlo-lab/internal/storage"
	chstore "montecarlo-lab/internal/storage/clickhouse"
	"montecarlo-lab/internal/storage/memory"
	"montecarlo-lab/internal/storage/migrations"
	pgstore "montecarlo-lab/internal/storage/postgres"
	"montecarlo-lab/internal/strategy"
)

// Server holds the HTTP surface around the job runner.
type Server struct {
	cfg    *config.Config
	runner *job.Runner
	logger *log.Logger

	upgrader websocket.Upgrader
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	listenAddr := flag.String("listen-addr", "", "Listen address (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Force in-memory storage")
	verbose := flag.Bool("verbose", false, "Verbose orchestration logging")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}
	if *useMemory {
		cfg.Storage.UseMemory = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobStore, summaryStore, orchOpts, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	orchOpts.MaxRuns = cfg.Simulation.MaxRuns
	orchOpts.Verbose = *verbose

	runner := job.NewRunner(job.Options{
		Orchestrator:   orchestrator.New(orchOpts),
		JobStore:       jobStore,
		SummaryStore:   summaryStore,
		DefaultWorkers: cfg.Simulation.DefaultWorkers,
		Logger:         log.New(os.Stdout, "[job] ", log.LstdFlags),
	})

	server := &Server{
		cfg:    cfg,
		runner: runner,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: server.routes(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}

		runner.Shutdown()
		cancel()
	}()

	logger.Printf("Listening on %s", cfg.Server.ListenAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores wires the configured storage backends: in-memory everything,
// or PostgreSQL for jobs/summaries plus ClickHouse for trial rows.
func createStores(ctx context.Context, cfg *config.Config) (storage.JobStore, storage.SummaryStore, orchestrator.Options, func(), error) {
	var opts orchestrator.Options

	if cfg.Storage.UseMemory {
		return memory.NewJobStore(), memory.NewSummaryStore(), opts, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, opts, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, opts, nil, err
	}

	cleanup := func() { pool.Close() }

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, opts, nil, err
		}
		opts.TrialMetricStore = chstore.NewTrialMetricStore(conn)
		opts.EnvelopePointStore = chstore.NewEnvelopePointStore(conn)
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
	}

	return pgstore.NewJobStore(pool), pgstore.NewSummaryStore(pool), opts, cleanup, nil
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("POST /api/jobs", s.handleSubmit)
	mux.HandleFunc("GET /api/jobs", s.handleList)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleStatus)
	mux.HandleFunc("POST /api/jobs/{id}/cancel", s.handleCancel)
	mux.HandleFunc("GET /api/jobs/{id}/ws", s.handleProgressWS)

	return mux
}

// SubmitRequest is the JSON body of POST /api/jobs.
type SubmitRequest struct {
	Filename       string             `json:"filename"`
	CSVBase64      string             `json:"csv_base64"`
	Strategy       string             `json:"strategy"`
	StrategyParams map[string]float64 `json:"strategy_params"`
	Method         string             `json:"method"`
	MethodParams   map[string]float64 `json:"method_params"`
	Runs           int                `json:"runs"`
	Seed           int64              `json:"seed"`
	Workers        int                `json:"parallel_workers"`
	Envelope       bool               `json:"include_equity_envelope"`
}

// handleSubmit validates and starts a new job.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	raw, err := base64.StdEncoding.DecodeString(req.CSVBase64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "csv_base64 is not valid base64: "+err.Error())
		return
	}

	runs := req.Runs
	if runs == 0 {
		runs = s.cfg.Simulation.DefaultRuns
	}

	record, err := s.runner.Submit(r.Context(), job.SubmitInput{
		Raw:                   raw,
		Filename:              req.Filename,
		StrategyName:          req.Strategy,
		StrategyParams:        req.StrategyParams,
		Method:                req.Method,
		MethodParams:          req.MethodParams,
		Runs:                  runs,
		Seed:                  req.Seed,
		ParallelWorkers:       req.Workers,
		IncludeEquityEnvelope: req.Envelope,
	})
	if err != nil {
		writeError(w, submitErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, record)
}

// submitErrorStatus maps fatal pre-execution errors to HTTP status codes.
func submitErrorStatus(err error) int {
	switch {
	case errors.Is(err, dataset.ErrDataFormat),
		errors.Is(err, strategy.ErrUnknownStrategy),
		errors.Is(err, strategy.ErrInvalidParameter),
		errors.Is(err, perturb.ErrUnsupportedMethod),
		errors.Is(err, perturb.ErrInvalidParameter),
		errors.Is(err, orchestrator.ErrInvalidRunCount):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrLimitExceeded):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// handleList returns all jobs.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.runner.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// handleStatus returns one job record.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	record, err := s.runner.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleCancel signals a running job to stop.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	err := s.runner.Cancel(r.Context(), r.PathValue("id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, job.ErrJobFinished):
		writeError(w, http.StatusConflict, "job already finished")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// ProgressMessage is one WebSocket frame of the progress stream.
type ProgressMessage struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// handleProgressWS streams job progress until the job reaches a terminal
// status or the client disconnects. Progress is read from the job store, so
// the stream also works for jobs submitted through another replica sharing
// the database.
func (s *Server) handleProgressWS(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if _, err := s.runner.Status(r.Context(), jobID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var last ProgressMessage
	for {
		record, err := s.runner.Status(r.Context(), jobID)
		if err != nil {
			return
		}

		msg := ProgressMessage{
			JobID:     jobID,
			Status:    record.Status,
			Completed: record.CompletedRuns,
			Total:     record.RequestedRuns,
		}
		if msg != last {
			last = msg
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}

		if terminal(record.Status) {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, record.Status))
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func terminal(status string) bool {
	switch status {
	case domain.JobStatusCompleted, domain.JobStatusFailed, domain.JobStatusCancelled:
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
