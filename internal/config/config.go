package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config carries the environment-driven settings for the settlement service.
type Config struct {
	Port        string
	DatabaseURL string // postgres DSN; empty selects the sqlite fallback
	SqlitePath  string

	// RPCURLs is an ordered fallback list; the first entry is the primary.
	RPCURLs         []string
	ExplorerURL     string
	ExplorerAPIKey  string
	USDTokenAddress string

	JWTSecret            string
	PlatformAdminKey     string // hex private key of the platform admin signer
	PlatformAdminAddress string
}

// Load reads configuration from the environment. A .env file is loaded first
// when present (development convenience; missing file is not an error).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		SqlitePath:           getEnv("SQLITE_PATH", "fundmatch.db"),
		ExplorerURL:          os.Getenv("BLOCK_EXPLORER_URL"),
		ExplorerAPIKey:       os.Getenv("BLOCK_EXPLORER_API_KEY"),
		USDTokenAddress:      os.Getenv("USD_TOKEN_ADDRESS"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		PlatformAdminKey:     os.Getenv("PLATFORM_ADMIN_PRIVATE_KEY"),
		PlatformAdminAddress: os.Getenv("PLATFORM_ADMIN_ADDRESS"),
	}

	for _, u := range strings.Split(os.Getenv("RPC_URLS"), ",") {
		if u = strings.TrimSpace(u); u != "" {
			cfg.RPCURLs = append(cfg.RPCURLs, u)
		}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

// PrimaryRPCURL returns the first configured RPC endpoint, if any.
func (c *Config) PrimaryRPCURL() string {
	if len(c.RPCURLs) == 0 {
		return ""
	}
	return c.RPCURLs[0]
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
