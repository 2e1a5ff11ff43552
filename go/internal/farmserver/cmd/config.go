package main

import (
	"os"

	"github.com/Du7chy/Seedlings/go/internal/farmserver"
)

type Config struct {
	Port        string
	NatsURL     string // empty disables the notice relay
	CatalogPath string // empty uses the built-in catalog
	LogLevel    string
}

func loadConfig() Config {
	return Config{
		Port:        getEnv("FARMSERVER_PORT", getEnv("PORT", "8080")),
		NatsURL:     getEnv("NATS_URL", ""),
		CatalogPath: getEnv("CATALOG_PATH", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

func (c Config) catalog() (*farmserver.Catalog, error) {
	if c.CatalogPath == "" {
		return farmserver.DefaultCatalog()
	}
	return farmserver.LoadCatalog(c.CatalogPath)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
