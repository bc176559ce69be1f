package server

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ki1r0y/nouns/pkg/store"
	"github.com/ki1r0y/nouns/pkg/store/memstore"
	"github.com/ki1r0y/nouns/pkg/store/sqlstore"
	"github.com/ki1r0y/nouns/pkg/store/surrealstore"
	"github.com/ki1r0y/nouns/pkg/store/wsstore"
)

// OpenBackend builds the backend cfg names. The returned close function
// releases it and is never nil.
func OpenBackend(ctx context.Context, cfg *Config, logger zerolog.Logger) (store.Backend, func() error, error) {
	log := logger.With().Str("backend", cfg.Backend).Logger()
	noop := func() error { return nil }

	switch cfg.Backend {
	case BackendMemory:
		s, err := memstore.New(memstore.WithLogger(log))
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil

	case BackendPostgres:
		s, err := sqlstore.Open(cfg.PostgresDSN, sqlstore.WithLogger(log))
		if err != nil {
			return nil, noop, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, noop, fmt.Errorf("migrating: %w", err)
		}
		return s, s.Close, nil

	case BackendSurreal:
		s, err := surrealstore.Open(ctx, cfg.Surreal, surrealstore.WithLogger(log))
		if err != nil {
			return nil, noop, err
		}
		return s, func() error { return s.Close(context.Background()) }, nil

	case BackendRemote:
		c := wsstore.New(cfg.RemoteURL, wsstore.WithLogger(log))
		if err := c.Connect(ctx); err != nil {
			return nil, noop, err
		}
		return c, func() error { return c.Close(context.Background()) }, nil
	}
	return nil, noop, fmt.Errorf("unknown backend %q", cfg.Backend)
}
