package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/Harshitk-cp/signalrealm/internal/api/handlers"
	mw "github.com/Harshitk-cp/signalrealm/internal/api/middleware"
	"github.com/Harshitk-cp/signalrealm/internal/buildconfig"
	"github.com/Harshitk-cp/signalrealm/internal/config"
	"github.com/Harshitk-cp/signalrealm/internal/domain"
	"github.com/Harshitk-cp/signalrealm/internal/llm"
	"github.com/Harshitk-cp/signalrealm/internal/prompts"
	"github.com/Harshitk-cp/signalrealm/internal/service"
	"github.com/Harshitk-cp/signalrealm/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Pinger reports database reachability for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the dependencies the HTTP surface dispatches to.
type Services struct {
	Signals     handlers.SignalReader
	Analysis    handlers.Analyzer
	Reflections handlers.Reflector
}

// App holds the router and request counters.
type App struct {
	Router    *chi.Mux
	metrics   *mw.MetricsCollector
	startTime time.Time
}

// NewApp wires stores, templates, the model router and services over db.
// Template validation failures are returned so the binary can refuse to start.
func NewApp(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) (*App, error) {
	// Stores
	signalStore := store.NewSignalStore(db)
	realmStore := store.NewRealmStore(db)
	reflectionStore := store.NewReflectionStore(db)

	templates := prompts.NewStoreFromDir(config.PromptsDir())
	if err := templates.Validate(); err != nil {
		return nil, fmt.Errorf("validate prompt templates: %w", err)
	}
	compositor := prompts.NewCompositor(templates)

	router := NewModelRouter(logger)
	logger.Info("model router initialized", zap.Strings("providers", router.Providers()))

	// Services
	svcs := Services{
		Signals:     service.NewSignalService(signalStore),
		Analysis:    service.NewAnalysisService(signalStore, realmStore, router, compositor, logger),
		Reflections: service.NewReflectionService(reflectionStore, realmStore, router, compositor, logger),
	}

	return NewAppWithServices(ctx, db, svcs, logger), nil
}

// NewModelRouter builds the provider router from configuration.
func NewModelRouter(logger *zap.Logger) *llm.Router {
	return llm.NewDefaultRouter(logger, llm.Endpoints{
		Anthropic: config.AnthropicBaseURL(),
		OpenAI:    config.OpenAIBaseURL(),
		Gemini:    config.GeminiBaseURL(),
		Cerebras:  config.CerebrasBaseURL(),
	},
		llm.WithTimeout(config.LLMTimeout()),
		llm.WithAccountRateLimit(config.LLMRateLimitRPS(), config.LLMRateLimitBurst()),
		llm.WithMockProvider(config.LLMMockEnabled()),
	)
}

// NewAppWithServices mounts the routes. ctx bounds the rate limiter's cleanup loop.
func NewAppWithServices(ctx context.Context, db Pinger, svcs Services, logger *zap.Logger) *App {
	signalHandler := handlers.NewSignalHandler(svcs.Signals, svcs.Analysis, svcs.Reflections)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		metrics:   mw.NewMetricsCollector(),
		startTime: time.Now(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.metrics.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(ctx, config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1/signals/{id}", func(r chi.Router) {
		r.Get("/", signalHandler.GetByID)
		r.Post("/analyze", signalHandler.Analyze)
		r.Post("/reflect", signalHandler.Reflect)
		r.Get("/reflections", signalHandler.ListReflections)
	})

	return app
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)
		counts := app.metrics.Snapshot()

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  counts.Requests,
			"client_errors":  counts.ClientErrors,
			"server_errors":  counts.ServerErrors,
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"build":      buildconfig.Current(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores, services and providers satisfy interfaces at compile time.
var (
	_ domain.SignalStore     = (*store.SignalStore)(nil)
	_ domain.RealmStore      = (*store.RealmStore)(nil)
	_ domain.ReflectionStore = (*store.ReflectionStore)(nil)
	_ domain.ModelRouter     = (*llm.Router)(nil)
	_ service.PromptComposer = (*prompts.Compositor)(nil)
	_ handlers.SignalReader  = (*service.SignalService)(nil)
	_ handlers.Analyzer      = (*service.AnalysisService)(nil)
	_ handlers.Reflector     = (*service.ReflectionService)(nil)
	_ llm.Provider           = (*llm.AnthropicProvider)(nil)
	_ llm.Provider           = (*llm.ChatCompletionsProvider)(nil)
	_ llm.Provider           = (*llm.GeminiProvider)(nil)
	_ llm.Provider           = (*llm.MockProvider)(nil)
	_ Pinger                 = (*pgxpool.Pool)(nil)
)
