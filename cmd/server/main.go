package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/docgrid/docgrid/internal/config"
	"github.com/docgrid/docgrid/internal/migrations"
	"github.com/docgrid/docgrid/internal/schema"
	"github.com/docgrid/docgrid/internal/store"
	"github.com/docgrid/docgrid/internal/web"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry, err := schema.LoadFile(cfg.SchemaPath)
	if err != nil {
		slog.Error("Failed to load collection schemas", "path", cfg.SchemaPath, "error", err)
		os.Exit(1)
	}
	slog.Info("Collection schemas loaded", "path", cfg.SchemaPath, "collections", registry.Collections())

	st, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open document store", "backend", cfg.StoreOptions.Backend, "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := st.Close(closeCtx); err != nil {
			slog.Error("Error closing document store", "error", err)
		}
	}()

	server, err := web.NewServer(registry, st, web.Options{
		PageLength:   cfg.GridOptions.DefaultPageLength,
		StateTTLSecs: cfg.GridOptions.StateTTLSecs,
	})
	if err != nil {
		slog.Error("Failed to build HTTP server", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Routes(),
	}

	go func() {
		slog.Info("HTTP server listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			cancel()
		}
	}()

	waitForShutdownSignal(ctx)
	slog.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	slog.Info("Server stopped gracefully")
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreOptions.Backend {
	case "mongo":
		uri := cfg.StoreOptions.MongoURL
		return store.ConnectMongo(ctx, uri, databaseFromURI(uri))
	case "postgres":
		if err := migrations.Run(cfg.StoreOptions.PostgresURL); err != nil {
			return nil, err
		}
		return store.ConnectPostgres(ctx, cfg.StoreOptions.PostgresURL)
	default:
		return store.OpenSQLite(cfg.StoreOptions.SQLitePath)
	}
}

// databaseFromURI extracts the database name from a Mongo connection
// string (the path segment after the host list).
func databaseFromURI(uri string) string {
	trimmed := uri
	if i := strings.Index(trimmed, "://"); i >= 0 {
		trimmed = trimmed[i+3:]
	}
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		db := trimmed[i+1:]
		if j := strings.IndexByte(db, '?'); j >= 0 {
			db = db[:j]
		}
		if db != "" {
			return db
		}
	}
	return "docgrid"
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func waitForShutdownSignal(ctx context.Context) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
}
