package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/velesk/prosegen/pkg/prosegen"
)

const shutdownTimeout = 10 * time.Second

// GenerateAPI holds the dependencies for the /api/generate endpoints.
type GenerateAPI struct {
	config *Config
	store  *prosegen.SQLStore
	logger *slog.Logger
}

// GenerateResponse is the JSON body returned by the generate endpoint.
type GenerateResponse struct {
	Text string `json:"text"`
}

func NewGenerateAPI(config *Config, store *prosegen.SQLStore, logger *slog.Logger) *GenerateAPI {
	return &GenerateAPI{
		config: config,
		store:  store,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all API endpoints.
func (a *GenerateAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/generate", a.handleGenerate)
	mux.HandleFunc("/api/stats", a.handleStats)
	mux.HandleFunc("/api/ingest", a.handleIngest)
}

// handleGenerate produces filler text. Query parameters paragraphs,
// sentences, words and seed override the configured defaults.
func (a *GenerateAPI) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	gc := a.config.Generation
	gc.WordsPerSentence = queryInt(r, "words", gc.WordsPerSentence)
	gc.SentencesPerParagraph = queryInt(r, "sentences", gc.SentencesPerParagraph)
	paragraphs := queryInt(r, "paragraphs", 1)

	opts, err := gc.generatorOptions()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s := r.URL.Query().Get("seed"); s != "" {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid seed parameter")
			return
		}
		opts = append(opts, prosegen.WithSeed(seed))
	}
	opts = append(opts, prosegen.WithLogger(a.logger))

	gen := prosegen.New(a.store, opts...)
	text, err := gen.Text(r.Context(), paragraphs)
	if err != nil {
		if errors.Is(err, prosegen.ErrNoStarters) {
			respondWithError(w, http.StatusConflict, "Corpus is empty, ingest some text first")
			return
		}
		a.logger.Error("Text generation failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Generation failed: %v", err))
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(text))
		return
	}
	respondWithJSON(w, http.StatusOK, GenerateResponse{Text: text})
}

// handleStats returns corpus statistics.
func (a *GenerateAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	stats, err := a.store.Stats(r.Context())
	if err != nil {
		a.logger.Error("Failed to read corpus stats", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read stats: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// handleIngest trains the corpus from the request body.
func (a *GenerateAPI) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err := a.store.Ingest(r.Context(), r.Body); err != nil {
		a.logger.Error("Ingestion failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Ingestion failed: %v", err))
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, name string, fallback int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		err := json.NewEncoder(w).Encode(payload)
		if err != nil {
			fmt.Printf("ERROR: Failed to encode JSON response: %v\n", err)
		}
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "run the HTTP API server",
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	mux := http.NewServeMux()
	api := NewGenerateAPI(env.config, env.store, env.logger)
	api.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    env.config.ServeAddr,
		Handler: mux,
	}

	errChan := make(chan error, 1)
	go func() {
		env.logger.Info("API server starting", "addr", env.config.ServeAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	osSignalChan := make(chan os.Signal, 1)
	signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-osSignalChan:
		env.logger.Info("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
