package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"media-catalog/internal/database"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/handlers"
	"media-catalog/internal/importer"
	"media-catalog/internal/layout"
	"media-catalog/internal/logging"
	"media-catalog/internal/memory"
	"media-catalog/internal/metrics"
	"media-catalog/internal/middleware"
	"media-catalog/internal/startup"
)

func main() {
	startTime := time.Now()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("Error loading .env file: %v", err)
	}

	memResult := memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	startup.LogMemoryConfig(memResult)

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"media":    config.MediaDir,
		"database": config.DatabaseDir,
	}))
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	metrics.InitializeMetrics()

	lock, err := startup.AcquireLock(config.LockPath)
	if err != nil {
		startup.LogFatal("Catalog lock: %v", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logging.Warn("Failed to release catalog lock: %v", err)
		}
	}()

	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath, nil)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	layoutCfg, fromFile, err := layout.LoadConfig(config.LayoutConfig)
	if err != nil {
		startup.LogFatal("Layout configuration error: %v", err)
	}
	builder := layout.NewBuilder(layoutCfg)
	source := "built-in defaults"
	if fromFile {
		source = config.LayoutConfig
	}
	startup.LogLayoutInit(source, builder.Rules())

	memMonitor := memory.NewMonitor(memory.DefaultConfig())
	memMonitor.Start()

	imp := importer.New(db, config.MediaDir, builder, importer.Options{
		GC:                  memMonitor,
		PlaylistGCThreshold: config.PlaylistGCThreshold,
		Workers:             config.ImportWorkers,
		Memory:              memMonitor,
	})

	startup.LogIndexerInit(config.IndexInterval, config.PollInterval)
	idx := importer.NewIndexer(db, imp, config.IndexInterval)
	idx.SetPollInterval(config.PollInterval)
	if err := idx.Start(); err != nil {
		startup.LogFatal("Failed to start indexer: %v", err)
	}
	startup.LogIndexerStarted()

	h := handlers.New(db, idx, imp, builder)
	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	handler := middleware.Logger(loggingConfig)(router)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	var collector *metrics.Collector
	if config.MetricsEnabled {
		collector = metrics.NewCollector(db, time.Minute)
		collector.Start()

		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", h.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		handleShutdown(srv, metricsSrv, idx, collector, memMonitor)
		close(done)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)
	api.HandleFunc("/containers/{id:[0-9]+}", h.GetContainer).Methods(http.MethodGet)
	api.HandleFunc("/objects/{id:[0-9]+}", h.GetObject).Methods(http.MethodGet)
	api.HandleFunc("/import", h.ImportPath).Methods(http.MethodPost)
	api.HandleFunc("/reindex", h.Reindex).Methods(http.MethodPost)
	api.HandleFunc("/classify", h.Classify).Methods(http.MethodPost)

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, idx *importer.Indexer, collector *metrics.Collector, mem *memory.Monitor) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	// Cancelling the indexer closes any open playlist session.
	startup.LogShutdownStep("Stopping indexer")
	idx.Stop()
	startup.LogShutdownStepComplete("Indexer stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Stopping metrics server")
		collector.Stop()
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	mem.Stop()
	startup.LogShutdownComplete()
}
