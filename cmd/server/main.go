package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spyglass/collector/internal/config"
	"spyglass/collector/internal/db"
	"spyglass/collector/internal/entrylog"
	"spyglass/collector/internal/entrylog/handler"
	"spyglass/collector/internal/entrylog/repository"
	"spyglass/collector/internal/export"
	"spyglass/collector/internal/export/kafka"
	"spyglass/collector/internal/export/loki"
	otelexport "spyglass/collector/internal/export/otel"
	"spyglass/collector/internal/server"
	"spyglass/collector/internal/server/middleware"
	"spyglass/collector/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := watcher.InternalLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	var store repository.Store
	var closeStore func() error
	switch cfg.Store {
	case config.StoreBadger:
		badgerStore, err := repository.OpenBadgerStore(repository.BadgerConfig{
			Path:   cfg.BadgerPath,
			Logger: logger,
		})
		if err != nil {
			log.Fatalf("badger: %v", err)
		}
		store = badgerStore
		closeStore = badgerStore.Close
	case config.StorePostgres:
		sqlDB, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		store = repository.NewPostgresStore(sqlDB)
		closeStore = sqlDB.Close
	default:
		store = repository.NewMemoryStore(cfg.RetentionMaxEntries)
		closeStore = func() error { return nil }
	}

	providers, err := otelexport.NewProviders(context.Background(), cfg.OTLPEndpoint, "spyglass-collector", false)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	var exporters []export.Exporter
	if cfg.OTLPEndpoint != "" {
		exporters = append(exporters, otelexport.NewExporter(providers.LoggerProvider))
	}
	producer := kafka.NewProducer(cfg.KafkaBrokersList(), cfg.KafkaTopic)
	if producer != nil {
		exporters = append(exporters, producer)
	}
	if lokiClient := loki.NewClient(cfg.LokiURL); lokiClient != nil {
		exporters = append(exporters, lokiClient)
	}

	entryLog := entrylog.NewLog(store, logger, exporters...)
	registry := watcher.Setup(entryLog, cfg.WatcherConfig(), watcher.Targets{}, logger)

	var publicKey any
	if pem := cfg.PublicKeyPEM(); pem != nil {
		publicKey, err = middleware.ParsePublicKey(pem)
		if err != nil {
			log.Fatalf("jwt: %v", err)
		}
	}

	h := handler.NewHandler(entryLog, !cfg.IsProduction())
	router := server.New(h, server.Options{
		Production:     cfg.IsProduction(),
		PublicKey:      publicKey,
		RequestWatcher: registry.Request,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// Let in-flight async exports drain before closing their backends.
	time.Sleep(export.ShutdownDrainDuration)
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close: %v", err)
		}
	}
	// The server shutdown context is mostly spent by now; give the
	// exporters their own budget.
	exportCtx, cancelExport := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelExport()
	if err := providers.Shutdown(exportCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	if err := closeStore(); err != nil {
		log.Printf("store close: %v", err)
	}
	log.Println("HTTP server stopped")
}
