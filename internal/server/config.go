package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ki1r0y/nouns/pkg/codec"
	"github.com/ki1r0y/nouns/pkg/constants"
	"github.com/ki1r0y/nouns/pkg/store/surrealstore"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRemote   = "remote"
	BackendSurreal  = "surrealdb"
)

// Config is the daemon configuration.
type Config struct {
	Addr string
	// Backend is one of BackendMemory, BackendPostgres, BackendSurreal or
	// BackendRemote.
	Backend     string
	PostgresDSN string
	Surreal     surrealstore.Config
	// RemoteURL is the websocket endpoint of another daemon, e.g.
	// "ws://nouns:8080/rpc", used by BackendRemote.
	RemoteURL string
	Codec     string
	LogLevel  string

	ShutdownTimeout time.Duration
}

// NewConfig returns a Config with defaults taken from the environment.
func NewConfig() *Config {
	return &Config{
		Addr:        getEnv("NOUNS_ADDR", constants.DefaultAddr),
		Backend:     getEnv("NOUNS_BACKEND", BackendMemory),
		PostgresDSN: os.Getenv("NOUNS_POSTGRES_DSN"),
		Surreal: surrealstore.Config{
			URL:       os.Getenv("NOUNS_SURREALDB_URL"),
			Namespace: getEnv("NOUNS_SURREALDB_NS", "nouns"),
			Database:  getEnv("NOUNS_SURREALDB_DB", "nouns"),
			Username:  os.Getenv("NOUNS_SURREALDB_USER"),
			Password:  os.Getenv("NOUNS_SURREALDB_PASS"),
		},
		RemoteURL:       os.Getenv("NOUNS_REMOTE_URL"),
		Codec:           getEnv("NOUNS_CODEC", codec.JSONName),
		LogLevel:        getEnv("NOUNS_LOG_LEVEL", "info"),
		ShutdownTimeout: 5 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	switch c.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("backend %s needs a DSN", c.Backend)
		}
	case BackendSurreal:
		if c.Surreal.URL == "" {
			return fmt.Errorf("backend %s needs a websocket URL", c.Backend)
		}
		if c.Surreal.Namespace == "" || c.Surreal.Database == "" {
			return fmt.Errorf("backend %s needs a namespace and database", c.Backend)
		}
	case BackendRemote:
		if c.RemoteURL == "" {
			return fmt.Errorf("backend %s needs a websocket URL", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if _, ok := codec.ByName(c.Codec); !ok {
		return fmt.Errorf("unknown codec %q", c.Codec)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
