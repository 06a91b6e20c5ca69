package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/andymarkow/hostmart/internal/config"
	"github.com/andymarkow/hostmart/internal/logger"
	"github.com/andymarkow/hostmart/internal/server"
	"github.com/andymarkow/hostmart/internal/storage"
	"github.com/andymarkow/hostmart/internal/storage/inmemory"
	"github.com/andymarkow/hostmart/internal/storage/pgstorage"
)

type Application struct {
	log     *slog.Logger
	server  *server.Server
	storage storage.Storage
}

func New() (*Application, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("config.NewConfig: %w", err)
	}

	logLevel, err := logger.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger.ParseLogLevel: %w", err)
	}

	logFormat, err := logger.ParseLogFormat(cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger.ParseLogFormat: %w", err)
	}

	logg := logger.NewLogger(
		logger.WithLevel(logLevel),
		logger.WithFormat(logFormat),
		logger.WithAddSource(false),
	)

	var store storage.Storage

	if cfg.DatabaseURI != "" {
		pgstore, err := pgstorage.NewStorage(cfg.DatabaseURI)
		if err != nil {
			return nil, fmt.Errorf("pgstorage.NewStorage: %w", err)
		}

		if err := pgstore.Bootstrap(context.Background()); err != nil {
			return nil, fmt.Errorf("pgstorage.Bootstrap: %w", err)
		}

		store = storage.NewStorage(pgstore)
	} else {
		store = storage.NewStorage(inmemory.NewStorage())
	}

	srv, err := server.NewServer(
		store,
		server.WithLogger(logg),
		server.WithServerAddr(cfg.ServerAddr),
		server.WithJWTSecretKey([]byte(cfg.JWTSecretKey)),
		server.WithCatalogURI(cfg.CatalogURI),
		server.WithNotifyWebhookURI(cfg.NotifyWebhookURI),
		server.WithMinDepositAmount(cfg.MinDepositAmount),
	)
	if err != nil {
		return nil, fmt.Errorf("server.NewServer: %w", err)
	}

	return &Application{
		log:     logg,
		server:  srv,
		storage: store,
	}, nil
}

func (a *Application) Run() error {
	defer func() {
		if err := a.storage.Close(); err != nil {
			a.log.Error("storage.Close", slog.Any("error", err))
		}
	}()

	errChan := make(chan error, 1)

	go func() {
		if err := a.server.Start(); err != nil {
			errChan <- fmt.Errorf("server.Start: %w", err)
		}
	}()

	// Graceful shutdown handler
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case err := <-errChan:
			return err

		case <-quit:
			a.log.Info("Gracefully shutting down application...")

			return nil
		}
	}
}
