package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ki1r0y/nouns"
	"github.com/ki1r0y/nouns/internal/server"
	"github.com/ki1r0y/nouns/pkg/codec"
	"github.com/ki1r0y/nouns/pkg/logger"
)

func main() {
	config := server.NewConfig()

	flag.StringVar(&config.Addr, "addr", config.Addr, "Listen address")
	flag.StringVar(&config.Backend, "backend", config.Backend, "Backend: memory, postgres, surrealdb or remote")
	flag.StringVar(&config.PostgresDSN, "dsn", config.PostgresDSN, "PostgreSQL DSN for the postgres backend")
	flag.StringVar(&config.Surreal.URL, "surrealdb", config.Surreal.URL, "SurrealDB websocket URL for the surrealdb backend")
	flag.StringVar(&config.Surreal.Namespace, "surrealdb-ns", config.Surreal.Namespace, "SurrealDB namespace")
	flag.StringVar(&config.Surreal.Database, "surrealdb-db", config.Surreal.Database, "SurrealDB database")
	flag.StringVar(&config.RemoteURL, "remote", config.RemoteURL, "Websocket URL of another nounsd for the remote backend")
	flag.StringVar(&config.Codec, "codec", config.Codec, "Identity spec encoding: json or cbor")
	flag.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log level")
	flag.DurationVar(&config.ShutdownTimeout, "shutdown-timeout", config.ShutdownTimeout, "Grace period for open requests on shutdown")
	logPath := flag.String("log-file", "", "Append logs to this file instead of stdout")
	console := flag.Bool("console", false, "Human readable logs")
	flag.Parse()

	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	if err := run(config, *logPath, *console); err != nil {
		fmt.Fprintf(os.Stderr, "nounsd: %v\n", err)
		os.Exit(1)
	}
}

func run(config *server.Config, logPath string, console bool) error {
	logData, err := logger.New().
		FromPath(logPath).
		Level(config.LogLevel).
		Console(console).
		With("service", "nounsd").
		Make()
	if err != nil {
		return err
	}
	defer logData.Close()
	log := logData.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := server.OpenBackend(ctx, config, log)
	if err != nil {
		return fmt.Errorf("opening %s backend: %w", config.Backend, err)
	}
	defer func() {
		if err := closeBackend(); err != nil {
			log.Warn().Err(err).Msg("closing backend")
		}
	}()

	c, _ := codec.ByName(config.Codec)
	reg, err := nouns.NewRegistry(backend, nouns.WithCodec(c), nouns.WithLogger(log))
	if err != nil {
		return err
	}

	log.Info().Str("backend", config.Backend).Str("codec", c.Name()).Msg("starting")
	return server.New(reg, log).Run(ctx, config.Addr, config.ShutdownTimeout)
}
