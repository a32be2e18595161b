// Package config carries the environment-driven settings and the compiled-in
// contract address tables of the querier.
package config

import (
	"fmt"
	"os"
)

// Config is the process configuration, read from the environment.
type Config struct {
	// DatabaseURI selects the relational store. postgres:// URIs use the
	// pq driver, anything else is treated as a sqlite path.
	DatabaseURI string

	// OgmiosURL is the chain-sync websocket endpoint.
	OgmiosURL string

	// BlockfrostURL and BlockfrostProjectID configure the UTxO fallback.
	BlockfrostURL       string
	BlockfrostProjectID string

	// OracleURL is the price oracle base URL.
	OracleURL string

	// ListenAddr serves the read API and /metrics.
	ListenAddr string

	// CacheDir holds the Blockfrost response cache.
	CacheDir string

	// LogLevel is a zap level string (debug, info, warn, error).
	LogLevel string
}

// FromEnv builds a Config from environment variables, applying the same
// defaults the original deployment used.
func FromEnv() (Config, error) {
	cfg := Config{
		DatabaseURI:         getenv("DATABASE_URI", "db.sqlite"),
		OgmiosURL:           ogmiosURL(),
		BlockfrostURL:       getenv("BLOCKFROST_URL", "https://cardano-mainnet.blockfrost.io/api/v0"),
		BlockfrostProjectID: os.Getenv("BLOCKFROST_PROJECT_ID"),
		OracleURL:           getenv("ORACLE_URL", "https://analytics.muesliswap.com"),
		ListenAddr:          getenv("LISTEN_ADDR", ":8080"),
		CacheDir:            getenv("CACHE_DIR", "./data/blockfrost_cache"),
		LogLevel:            getenv("LOG_LEVEL", "info"),
	}
	if cfg.DatabaseURI == "" {
		return Config{}, fmt.Errorf("DATABASE_URI must not be empty")
	}
	return cfg, nil
}

func ogmiosURL() string {
	if url := os.Getenv("OGMIOS_URL"); url != "" {
		return url
	}
	if host := os.Getenv("OGMIOS_HOSTNAME"); host != "" {
		return "ws://" + host + ":1337"
	}
	return "ws://localhost:1337"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
