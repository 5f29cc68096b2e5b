package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"vortextau-chat/internal/api"
	"vortextau-chat/internal/config"
	"vortextau-chat/internal/crypto"
	"vortextau-chat/internal/handlers"
	"vortextau-chat/internal/llm"
	"vortextau-chat/internal/services"
	"vortextau-chat/internal/store"
	"vortextau-chat/internal/store/filestore"
	"vortextau-chat/internal/store/postgres"
	"vortextau-chat/internal/store/sqlite"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer closeLog()
	slog.SetDefault(logger)
	logger.Info("starting vortextau chat server", "provider", cfg.LLMProvider, "store", cfg.StoreDriver)

	// 2. Open the record/share store
	st, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// 3. Inference backend
	backend, err := llm.New(cfg)
	if err != nil {
		logger.Error("failed to create inference backend", "error", err)
		os.Exit(1)
	}

	var sealer *crypto.Sealer
	if cfg.EncryptionKey != nil {
		sealer, err = crypto.NewSealer(cfg.EncryptionKey)
		if err != nil {
			logger.Error("failed to create AES-GCM sealer", "error", err)
			os.Exit(1)
		}
	}

	// --- Initialize Services ---
	generation := services.NewGenerationService(backend, st)
	modelService := services.NewModelService(backend, cfg.ModelNamespace)
	searchService := services.NewSearchService(cfg.SerpAPIKey, cfg.SerpAPIURL, nil)
	shareService := services.NewShareService(st, sealer)

	// 4. Setup Router & Inject Dependencies
	router := api.NewRouter(api.RouterDependencies{
		ChatHandler:   handlers.NewChatHandlers(generation),
		ModelHandler:  handlers.NewModelHandlers(modelService),
		SearchHandler: handlers.NewSearchHandlers(searchService),
		ShareHandler:  handlers.NewShareHandlers(shareService),
		Config:        cfg,
		Logger:        logger,
	})

	// 5. Configure and Start HTTP Server
	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // event streams stay open for the whole generation
		IdleTimeout:       120 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("could not listen", "port", cfg.HTTPPort, "error", err)
			os.Exit(1)
		}
	}()

	<-stopChan
	logger.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server graceful shutdown failed", "error", err)
	}
	// Let in-flight record writes land before the store closes.
	generation.Wait()

	logger.Info("server shutdown complete")
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		dbpool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := dbpool.Ping(ctx); err != nil {
			dbpool.Close()
			return nil, err
		}
		pg := postgres.NewPostgresStore(dbpool)
		if err := pg.EnsureSchema(ctx); err != nil {
			dbpool.Close()
			return nil, err
		}
		return pg, nil
	case config.StoreSQLite:
		lite, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return lite, nil
	default:
		fs, err := filestore.New(filepath.Clean(cfg.DataDir))
		if err != nil {
			return nil, err
		}
		return fs, nil
	}
}
