package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"org-directory/api"
	"org-directory/db"
	"org-directory/pkg/config"
	"org-directory/pkg/logging"
	"org-directory/pkg/shared"
	embeddednats "org-directory/pkg/services/embedded-nats"
	"org-directory/pkg/services/workers"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func initDB(cfg *config.Config, logger *logrus.Logger) (*db.Service, error) {
	dbConfig := db.DefaultConfig()
	dbConfig.DBPath = cfg.Database.Path
	dbConfig.MaxOpenConns = cfg.Database.MaxOpenConns
	dbConfig.MaxIdleConns = cfg.Database.MaxIdleConns
	dbConfig.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	dbConfig.BusyTimeout = cfg.Database.BusyTimeout
	dbConfig.Logger = logger

	dbService, err := db.New(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database service: %w", err)
	}

	if err := dbService.VerifySchema(); err != nil {
		dbService.Close()
		return nil, fmt.Errorf("schema verification failed: %w", err)
	}
	return dbService, nil
}

func initNATS(cfg *config.Config, logger *logrus.Logger) (*embeddednats.EmbeddedNATS, error) {
	natsConfig := embeddednats.DefaultConfig()
	natsConfig.Port = cfg.NATS.Port
	natsConfig.DataDir = cfg.NATS.DataDir
	natsConfig.Logger = logger

	nats, err := embeddednats.New(natsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedded NATS: %w", err)
	}

	if err := nats.Start(); err != nil {
		return nil, fmt.Errorf("failed to start embedded NATS: %w", err)
	}

	if err := nats.CreateDirectoryStreams(); err != nil {
		_ = nats.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create directory streams: %w", err)
	}
	return nats, nil
}

func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{
		AppName: shared.ServiceName,
		Level:   cfg.Log.EffectiveLevel(),
		Format:  cfg.Log.Format,
		Files: logging.FileOptions{
			Dir:         cfg.Log.Dir,
			MaxFileSize: cfg.Log.MaxFileSize,
			BackupCount: cfg.Log.BackupCount,
		},
	})
	if envErr != nil {
		logger.Debug("No .env file found, using environment variables")
	} else {
		logger.Info("Loaded configuration from .env file")
	}

	dbService, err := initDB(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer dbService.Close()

	opts := api.Options{DB: dbService, Logger: logger}

	var (
		nats          *embeddednats.EmbeddedNATS
		workerManager *workers.Manager
	)
	if cfg.NATS.Enabled {
		nats, err = initNATS(cfg, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize NATS")
		}

		workerManager, err = workers.NewManager(nats, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create worker manager")
		}
		if err := workerManager.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start workers")
		}

		opts.Publisher = nats
		opts.NATS = nats
	} else {
		logger.Info("NATS disabled, directory events will not be published")
	}

	handlers := api.NewHandlers(opts)

	router := handlers.NewRouter(api.RouterConfig{
		APIKey:         cfg.APIKey,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"port":    cfg.Server.Port,
			"version": shared.ServiceVersion,
		}).Info("Starting organization directory")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig.String()).Info("Shutting down server")
	case err := <-serverErr:
		logger.WithError(err).Error("Server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Failed to shutdown server gracefully")
	}

	if workerManager != nil {
		if err := workerManager.Stop(); err != nil {
			logger.WithError(err).Warn("Failed to stop workers")
		}
	}

	if nats != nil {
		if err := nats.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Failed to shutdown NATS")
		}
	}

	logger.Info("Server shutdown complete")
}
