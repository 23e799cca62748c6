package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/cityfood/vendorflow/internal/api"
	"github.com/cityfood/vendorflow/internal/browser"
	"github.com/cityfood/vendorflow/internal/config"
	"github.com/cityfood/vendorflow/internal/eniture"
	"github.com/cityfood/vendorflow/internal/jobs"
	"github.com/cityfood/vendorflow/internal/scraper"
	"github.com/cityfood/vendorflow/internal/shopify"
	"github.com/cityfood/vendorflow/internal/tags"
	"github.com/cityfood/vendorflow/internal/weights"
)

func main() {
	configPath := os.Getenv("VENDORFLOW_CONFIG")
	if configPath == "" {
		configPath = "vendorflow_config.json"
	}

	store := config.NewStore(configPath)
	cfg, err := store.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	state := jobs.NewState(logger)

	browserOpts := browser.DefaultOptions()
	browserOpts.Headless = cfg.Scraping.Headless
	browserOpts.Timeout = time.Duration(cfg.Scraping.TimeoutSecs) * time.Second

	qualifier := scraper.NewImageQualifier(10 * time.Second)
	extractor := scraper.NewExtractor(browserOpts, qualifier, logger)
	scrapeService := scraper.NewService(extractor, logger)

	shopifyClient := shopify.NewClient(cfg.Shopify.StoreURL, cfg.Shopify.APIToken, logger)
	enitureClient := eniture.NewClient(cfg.Eniture.APIURL, cfg.Eniture.APIKey, cfg.Shopify.StoreURL, logger)
	enitureSync := eniture.NewSyncJob(shopifyClient, enitureClient, state, logger)
	tagsProc := tags.NewProcessor(shopifyClient, state, logger)
	weightsProc := weights.NewProcessor(state, logger)

	handlers := api.NewHandlers(store, state, scrapeService, tagsProc, weightsProc, enitureSync,
		cfg.Paths.UploadFolder, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	handlers.Routes(r)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		state.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "port", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}
