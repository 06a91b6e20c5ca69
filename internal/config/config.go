package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env"
)

type Config struct {
	ServerAddr       string `env:"RUN_ADDRESS"`
	LogLevel         string `env:"LOG_LEVEL"`
	LogFormat        string `env:"LOG_FORMAT"`
	DatabaseURI      string `env:"DATABASE_URI"`
	JWTSecretKey     string `env:"JWT_SECRET_KEY"`
	CatalogURI       string `env:"CATALOG_URI"`
	NotifyWebhookURI string `env:"NOTIFY_WEBHOOK_URI"`
	MinDepositAmount int64  `env:"MIN_DEPOSIT_AMOUNT"`
}

func NewConfig() (Config, error) {
	cfg := Config{}

	flag.StringVar(&cfg.ServerAddr, "a", "0.0.0.0:8080", "server listening address [env:RUN_ADDRESS]")
	flag.StringVar(&cfg.LogLevel, "l", "info", "log output level [env:LOG_LEVEL]")
	flag.StringVar(&cfg.LogFormat, "f", "json", "log output format, json or text [env:LOG_FORMAT]")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database connection string [env:DATABASE_URI]")
	flag.StringVar(&cfg.JWTSecretKey, "s", "secretkey", "JWT secret to sign tokens [env:JWT_SECRET_KEY]")
	flag.StringVar(&cfg.CatalogURI, "c", "http://localhost:8081", "store catalog URI [env:CATALOG_URI]")
	flag.StringVar(&cfg.NotifyWebhookURI, "n", "", "notification webhook URI [env:NOTIFY_WEBHOOK_URI]")
	flag.Int64Var(&cfg.MinDepositAmount, "m", 10000, "minimal deposit amount in minor units [env:MIN_DEPOSIT_AMOUNT]")
	flag.Parse()

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("env.Parse: %w", err)
	}

	return cfg, nil
}
