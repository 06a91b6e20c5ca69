package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andymarkow/hostmart/internal/approval"
	"github.com/andymarkow/hostmart/internal/catalog/catclient"
	"github.com/andymarkow/hostmart/internal/deposit"
	"github.com/andymarkow/hostmart/internal/httpclient"
	"github.com/andymarkow/hostmart/internal/notifier"
	"github.com/andymarkow/hostmart/internal/order"
	"github.com/andymarkow/hostmart/internal/server/router"
	"github.com/andymarkow/hostmart/internal/storage"
)

type Server struct {
	srv *http.Server
	log *slog.Logger
}

type config struct {
	log              *slog.Logger
	serverAddr       string
	jwtSecretKey     []byte
	catalogURI       string
	notifyWebhookURI string
	minDepositAmount int64
}

func NewServer(store storage.Storage, opts ...Option) (*Server, error) {
	cfg := &config{
		log:              slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		serverAddr:       "0.0.0.0:8080",
		jwtSecretKey:     []byte(""),
		minDepositAmount: deposit.DefaultMinAmount,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	notify := notifier.New(
		notifier.WithLogger(cfg.log),
		notifier.WithWebhookURI(cfg.notifyWebhookURI),
	)

	catClient := catclient.New(
		catclient.WithLogger(cfg.log),
		catclient.WithClient(httpclient.New(httpclient.WithBaseURL(cfg.catalogURI))),
	)

	depositSvc := deposit.New(store,
		deposit.WithLogger(cfg.log),
		deposit.WithNotifier(notify),
		deposit.WithMinAmount(cfg.minDepositAmount),
	)

	orderSvc := order.New(store, catClient,
		order.WithLogger(cfg.log),
		order.WithNotifier(notify),
	)

	gateway := approval.New(store,
		approval.WithLogger(cfg.log),
		approval.WithNotifier(notify),
	)

	r := router.NewRouter(store,
		router.WithLogger(cfg.log),
		router.WithSecret(cfg.jwtSecretKey),
		router.WithDepositService(depositSvc),
		router.WithOrderService(orderSvc),
		router.WithGateway(gateway),
	)

	srv := &http.Server{
		Addr:              cfg.serverAddr,
		Handler:           r,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return &Server{
		srv: srv,
		log: cfg.log,
	}, nil
}

type Option func(c *config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.log = logger
	}
}

func WithServerAddr(addr string) Option {
	return func(c *config) {
		c.serverAddr = addr
	}
}

func WithJWTSecretKey(secret []byte) Option {
	return func(c *config) {
		c.jwtSecretKey = secret
	}
}

func WithCatalogURI(uri string) Option {
	return func(c *config) {
		c.catalogURI = uri
	}
}

func WithNotifyWebhookURI(uri string) Option {
	return func(c *config) {
		c.notifyWebhookURI = uri
	}
}

func WithMinDepositAmount(amount int64) Option {
	return func(c *config) {
		c.minDepositAmount = amount
	}
}

func (s *Server) Close() {}

func (s *Server) Start() error {
	defer s.Close()

	errChan := make(chan error, 1)

	go func() {
		s.log.Info(fmt.Sprintf("Starting server on %s", s.srv.Addr))

		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server.ListenAndServe: %w", err)
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
			s.log.Info("Gracefully shutting down server...")

			return nil
		}
	}
}
