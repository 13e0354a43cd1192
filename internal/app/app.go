// Package app assembles the server: configuration, logging, the provider
// registry and the HTTP surface.
package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mediaforge/server/internal/domain/generation"
	"github.com/mediaforge/server/internal/infra/httpclient"
	"github.com/mediaforge/server/internal/module/orchestrator"
	"github.com/mediaforge/server/internal/module/orchestrator/health"
	"github.com/mediaforge/server/internal/module/orchestrator/provider/gemini"
	"github.com/mediaforge/server/internal/module/orchestrator/provider/kling"
	"github.com/mediaforge/server/internal/module/orchestrator/provider/meshy"
	"github.com/mediaforge/server/internal/module/orchestrator/provider/openai"
	ports "github.com/mediaforge/server/internal/ports/http"
	"github.com/mediaforge/server/internal/shared/config"
	"github.com/mediaforge/server/internal/shared/logger"
	"github.com/mediaforge/server/internal/utils/metrics"
	"github.com/mediaforge/server/internal/utils/middleware"
)

// App holds the assembled application.
type App struct {
	config  *config.Config
	logger  *logger.Logger
	metrics *metrics.Metrics
	service *orchestrator.Service
	monitor *health.Monitor
	router  *gin.Engine
}

// New builds the application from loaded configuration.
func New(cfg *config.Config) (*App, error) {
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	m := metrics.New("")
	client := httpclient.New(cfg.HTTPClient)

	registry := orchestrator.BuildRegistry([]orchestrator.Adapter{
		openai.New(client, ""),
		gemini.New(client, ""),
		kling.New(client, ""),
		meshy.New(client, ""),
	}, log)

	resolver := orchestrator.NewResolver(registry, orchestrator.OptionsFromConfig(cfg.Generation))
	engine := orchestrator.NewEngine(orchestrator.RealClock(), log, m)

	dirs := map[generation.Modality]string{
		generation.ModalityImage:   cfg.Generation.Image.OutputDir,
		generation.ModalityVideo:   cfg.Generation.Video.OutputDir,
		generation.ModalityModel3D: cfg.Generation.Model3D.OutputDir,
	}
	materializer := orchestrator.NewMaterializer(client, dirs, log, m)

	service := orchestrator.NewService(&orchestrator.ServiceConfig{
		Registry:     registry,
		Resolver:     resolver,
		Engine:       engine,
		Materializer: materializer,
		Logger:       log,
		Metrics:      m,
		WaitPolicy: orchestrator.WaitPolicy{
			Interval: cfg.Generation.PollInterval,
			MaxWait:  cfg.Generation.MaxWait,
		},
	})

	monitor := health.NewMonitor(registry, probeCredentials(cfg), log, m, &health.Config{
		CheckInterval:    cfg.Health.CheckInterval,
		ProbeTimeout:     10 * time.Second,
		FailureThreshold: cfg.Health.FailureThreshold,
	})

	app := &App{
		config:  cfg,
		logger:  log,
		metrics: m,
		service: service,
		monitor: monitor,
	}
	app.router = app.setupRouter(dirs)
	return app, nil
}

// probeCredentials supplies the configured key for each provider so the
// health monitor can run authenticated probes. Providers without a key
// are skipped.
func probeCredentials(cfg *config.Config) health.CredentialSource {
	keyFor := func(modality config.ModalityConfig, providerID string) string {
		if modality.APIKey != "" && modality.Provider == providerID {
			return modality.APIKey
		}
		return config.LegacyProviderKey(providerID)
	}
	return func(providerID string) (generation.Credentials, bool) {
		var key string
		switch providerID {
		case "openai", "gemini":
			key = keyFor(cfg.Generation.Image, providerID)
		case "kling":
			key = keyFor(cfg.Generation.Video, providerID)
		case "meshy":
			key = keyFor(cfg.Generation.Model3D, providerID)
		}
		if key == "" {
			return nil, false
		}
		return generation.Credentials{"api_key": key}, true
	}
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter(dirs map[generation.Modality]string) *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ports.NewSystemHandler(a.service.Registry(), a.monitor).RegisterRoutes(r)
	ports.NewFilesHandler(dirs).RegisterRoutes(r)

	api := r.Group("/api/v1")
	ports.NewGenerationHandler(a.service).RegisterRoutes(api)

	return r
}

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Logger returns the application logger.
func (a *App) Logger() *logger.Logger { return a.logger }

// Start launches background components.
func (a *App) Start() {
	a.monitor.Start()
}

// Stop halts background components.
func (a *App) Stop() {
	a.monitor.Stop()
}
