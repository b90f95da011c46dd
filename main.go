package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"
	"golang.org/x/time/rate"

	"github.com/hrdesk/docsum/archive"
	"github.com/hrdesk/docsum/config"
	"github.com/hrdesk/docsum/extractor"
	"github.com/hrdesk/docsum/jobstore"
	"github.com/hrdesk/docsum/llm_service"
	"github.com/hrdesk/docsum/logging"
	"github.com/hrdesk/docsum/merge"
	"github.com/hrdesk/docsum/pipeline"
	"github.com/hrdesk/docsum/server"
	"github.com/hrdesk/docsum/summarizer"
)

func main() {
	cfg := config.Load()

	handler, err := logging.NewDailyFileHandler(cfg.LogDir, &slog.HandlerOptions{Level: slog.LevelInfo})
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	logger := slog.New(handler)

	// Job store with the background retention sweep.
	store := jobstore.New(logger)
	store.StartCleanup(cfg.JobRetention, cfg.SweepInterval)
	defer store.StopCleanup()

	// Outbound completion service: retries inside, process-wide token
	// bucket outside.
	openai := llm_service.NewOpenAIService(logger, cfg.OpenAIAPIURL, cfg.OpenAIAPIKey, cfg.OpenAIModel,
		cfg.RetryAttempts, cfg.RetryBaseDelay, cfg.CallTimeout)
	limiter := rate.NewLimiter(rate.Limit(cfg.ProviderRPS), cfg.ConcurrencyLimit)
	llm := llm_service.NewRateLimitedService(limiter, openai)

	// Optional Postgres archive for completed summaries.
	var arc *archive.Store
	if cfg.DatabaseURL != "" {
		arc, err = archive.Connect(context.Background(), cfg.DatabaseURL, logger)
		if err != nil {
			log.Fatalf("Failed to connect summary archive: %v", err)
		}
		defer arc.Close()
	}

	orch := pipeline.New(
		extractor.New(logger),
		summarizer.New(llm, logger, cfg.OpenAIModel, cfg.MaxOutputTokens),
		merge.New(),
		store,
		logger,
		pipeline.Config{
			ContextBudgetWords: cfg.ContextBudgetWords,
			OverlapWords:       cfg.OverlapWords,
			ConcurrencyLimit:   cfg.ConcurrencyLimit,
			JobTimeout:         cfg.JobTimeout,
		},
	).WithArchive(arc)

	r := server.SetupRoutes(orch, store, arc, logger, cfg.MaxDocumentBytes)
	n := setupNegroni(r)

	if cfg.Environment == "production" {
		server.ServeProduction(n, server.Config{
			Domains:      cfg.Domains,
			CertCacheDir: cfg.CertCacheDir,
			HTTPPort:     cfg.HTTPPort,
			HTTPSPort:    cfg.HTTPSPort,
		})
	} else {
		srv := &http.Server{
			Addr:         ":" + cfg.HTTPPort,
			Handler:      n,
			IdleTimeout:  time.Minute,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		}
		server.ServeDevelopment(srv)
	}
}

func setupNegroni(r *mux.Router) *negroni.Negroni {
	n := negroni.New()

	n.Use(negroni.NewRecovery())
	n.Use(negroni.NewLogger())

	n.UseHandler(r)
	return n
}
