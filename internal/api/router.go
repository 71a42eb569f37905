package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Harshitk-cp/prospector/internal/api/handlers"
	mw "github.com/Harshitk-cp/prospector/internal/api/middleware"
	"github.com/Harshitk-cp/prospector/internal/config"
	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/Harshitk-cp/prospector/internal/evidence"
	"github.com/Harshitk-cp/prospector/internal/judge"
	"github.com/Harshitk-cp/prospector/internal/report"
	"github.com/Harshitk-cp/prospector/internal/service"
	"github.com/Harshitk-cp/prospector/internal/store"
	"github.com/Harshitk-cp/prospector/internal/template"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router *chi.Mux
	Cache  *service.HypothesisCache

	startTime time.Time
}

// NewApp wires stores, services and handlers. db may be nil, in which case
// hypothesis state lives in memory; ledgerStore is injected separately so
// the belief ledger backend (postgres or badger) is chosen by the caller.
func NewApp(db *pgxpool.Pool, ledgerStore domain.LedgerStore, cfg domain.TuningConfig, logger *zap.Logger) (*App, error) {
	// Stores
	var (
		hypothesisStore domain.HypothesisStore
		statsStore      domain.CategoryStatsStore
		clusterStore    domain.ClusterStore
	)
	if db != nil {
		hypothesisStore = store.NewHypothesisStore(db)
		statsStore = store.NewCategoryStatsStore(db)
		clusterStore = store.NewClusterStore(db)
	} else {
		logger.Warn("no database configured, hypothesis state is in-memory")
		hypothesisStore = store.NewInMemoryHypothesisStore()
		statsStore = store.NewInMemoryCategoryStatsStore()
		clusterStore = store.NewInMemoryClusterStore()
	}

	templates, err := template.NewLoader(config.TemplateDir())
	if err != nil {
		return nil, err
	}

	// External clients via provider factory
	judgeClient, err := judge.NewClient(config.JudgeProvider(), config.JudgeEndpoint(), config.JudgeAPIKey())
	if err != nil {
		return nil, err
	}
	logger.Info("judge client initialized", zap.String("provider", config.JudgeProvider()))

	collector, err := evidence.NewCollector(config.EvidenceProvider(), config.EvidenceEndpoint(), config.EvidenceAPIKey())
	if err != nil {
		return nil, err
	}
	logger.Info("evidence collector initialized", zap.String("provider", config.EvidenceProvider()))

	sink := report.NewSink(config.ReportWebhookURL(), logger)

	// Services
	ledgerSvc := service.NewBeliefLedger(ledgerStore, logger)
	cache := service.NewHypothesisCache(cfg, logger)
	manager := service.NewHypothesisManager(hypothesisStore, statsStore, templates, ledgerSvc, cache, cfg, logger)
	eig := service.NewEIGCalculator(cfg)
	dampening := service.NewDampeningTracker(clusterStore, cfg, logger)
	coordinator := service.NewCoordinator(manager, eig, dampening, collector, judgeClient, sink, cfg, logger)

	// Handlers
	entityHandler := handlers.NewEntityHandler(manager, coordinator, dampening)
	hypothesisHandler := handlers.NewHypothesisHandler(manager)
	ledgerHandler := handlers.NewLedgerHandler(ledgerSvc)
	clusterHandler := handlers.NewClusterHandler(dampening)
	cacheHandler := handlers.NewCacheHandler(cache)
	tuningHandler := handlers.NewTuningHandler(cfg, logger)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Cache:     cache,
		startTime: time.Now(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Metrics)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db, app))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/entities/{entityID}", func(r chi.Router) {
			r.Post("/hypotheses", entityHandler.InitHypotheses)
			r.Get("/hypotheses", entityHandler.ListHypotheses)
			r.Get("/band", entityHandler.Band)
			r.Post("/discover", entityHandler.Discover)
			r.Post("/promote", entityHandler.Promote)
		})

		r.Route("/hypotheses/{id}", func(r chi.Router) {
			r.Get("/", hypothesisHandler.GetByID)
			r.Post("/verdict", hypothesisHandler.ApplyVerdict)
		})

		r.Route("/ledger/{entityID}", func(r chi.Router) {
			r.Get("/", ledgerHandler.GetChain)
			r.Get("/verify", ledgerHandler.Verify)
		})

		r.Route("/clusters/{clusterID}", func(r chi.Router) {
			r.Get("/", clusterHandler.Snapshot)
			r.Get("/exhausted", clusterHandler.Exhausted)
			r.Post("/reset", clusterHandler.Reset)
		})

		r.Route("/cache", func(r chi.Router) {
			r.Get("/stats", cacheHandler.Stats)
			r.Post("/clear", cacheHandler.Clear)
		})

		r.Route("/tuning", func(r chi.Router) {
			r.Post("/grid", tuningHandler.GridSearch)
			r.Post("/bayesian", tuningHandler.BayesianOptimization)
		})
	})

	return app, nil
}

func healthHandler(db *pgxpool.Pool, app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":         "ok",
			"uptime_seconds": time.Since(app.startTime).Seconds(),
		})
	}
}
