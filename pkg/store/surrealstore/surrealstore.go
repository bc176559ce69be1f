// Package surrealstore is a Backend on SurrealDB.
//
// Each collection is a table and each identifier a record id within it, so a
// stored spec lives at thing:<content id>, place:<guid> and so on. Records
// hold the serialized spec as bytes under "content".
//
// SurrealDB creates tables on first write, so there is no migration step. A
// table with no records is indistinguishable from one never written, and both
// miss with [constants.ErrNoCollection].
//
// Usage:
//
//	s, err := surrealstore.Open(ctx, surrealstore.Config{
//		URL:       "ws://localhost:8000/rpc",
//		Namespace: "nouns",
//		Database:  "nouns",
//		Username:  "root",
//		Password:  "root",
//	})
//	if err != nil {
//		return err
//	}
//	defer s.Close(ctx)
package surrealstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/ki1r0y/nouns/pkg/future"
	"github.com/ki1r0y/nouns/pkg/store"
)

// Config names the server and the namespace and database records are kept in.
// Credentials are optional; without them the connection stays anonymous.
type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
}

// Record is one stored identity spec.
type Record struct {
	ID      *models.RecordID `json:"id,omitempty"`
	Content []byte           `json:"content"`
}

type countRow struct {
	Total int `json:"total"`
}

const countQuery = "SELECT count() AS total FROM type::table($tb) GROUP ALL"

type Store struct {
	db     *surrealdb.DB
	logger zerolog.Logger
}

var _ store.Backend = (*Store)(nil)

type Option func(s *Store)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Open connects, signs in when cfg carries credentials, and selects the
// namespace and database.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	db, err := surrealdb.FromEndpointURLString(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if cfg.Username != "" && cfg.Password != "" {
		if _, err := db.SignIn(ctx, surrealdb.Auth{
			Username: cfg.Username,
			Password: cfg.Password,
		}); err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	s := &Store{db: db, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger.Debug().Str("url", cfg.URL).Str("ns", cfg.Namespace).Str("db", cfg.Database).Msg("connected")
	return s, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Close(ctx)
}

func (s *Store) Save(ctx context.Context, collection, id string, content []byte) *future.Future[string] {
	return future.Go(func() (string, error) {
		resolved := store.ResolveID(id, content)
		if _, err := surrealdb.Upsert[Record](ctx, s.db, recordID(collection, resolved), Record{Content: content}); err != nil {
			return "", store.Fault("save", err)
		}
		s.logger.Debug().Str("collection", collection).Str("id", resolved).Int("bytes", len(content)).Msg("saved")
		return resolved, nil
	})
}

func (s *Store) Retrieve(ctx context.Context, collection, id string) *future.Future[[]byte] {
	return future.Go(func() ([]byte, error) {
		rec, err := surrealdb.Select[Record](ctx, s.db, recordID(collection, id))
		if found(rec, err) {
			return rec.Content, nil
		}
		if err != nil && !isNotFound(err) {
			return nil, store.Fault("retrieve", err)
		}

		res, err := surrealdb.Query[[]countRow](ctx, s.db, countQuery, map[string]any{"tb": collection})
		if err != nil {
			return nil, store.Fault("retrieve", err)
		}
		return nil, classifyMiss(collection, id, res)
	})
}

func recordID(collection, id string) models.RecordID {
	return models.NewRecordID(collection, id)
}

// found reports whether a select yielded a stored record. Depending on the
// CBOR implementation a missing record comes back as nil or as a zero Record.
func found(rec *Record, err error) bool {
	return err == nil && rec != nil && rec.ID != nil
}

// isNotFound matches the errors a select of a missing record raises instead of
// returning nothing.
func isNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Expected a single or multiple results but got 0") ||
		strings.Contains(msg, "cannot unmarshal array into Go value")
}

// classifyMiss turns the count of records in collection into the miss error
// for id.
func classifyMiss(collection, id string, res *[]surrealdb.QueryResult[[]countRow]) error {
	if res == nil || len(*res) == 0 {
		return store.Fault("retrieve", fmt.Errorf("count of %s returned no result", collection))
	}
	first := (*res)[0]
	if first.Status != "OK" {
		return store.Fault("retrieve", fmt.Errorf("count of %s: status %s", collection, first.Status))
	}
	if len(first.Result) == 0 || first.Result[0].Total == 0 {
		return store.NoCollection(collection)
	}
	return store.NoIdentifier(collection, id)
}
