// Package store defines the persistence contract nouns are saved through.
//
// A [Backend] keeps serialized identity specs in named collections. Content is
// write-once per identifier: saving under an explicit id stores exactly that id,
// saving without one stores under [ContentID] of the content so identical content
// always lands on the same identifier and repeat saves are idempotent.
//
// Implementations:
//
//   - [github.com/ki1r0y/nouns/pkg/store/memstore]: in process, on hashicorp/go-memdb
//   - [github.com/ki1r0y/nouns/pkg/store/sqlstore]: PostgreSQL through gorm
//   - [github.com/ki1r0y/nouns/pkg/store/surrealstore]: SurrealDB, one table per collection
//   - [github.com/ki1r0y/nouns/pkg/store/wsstore]: any Backend served over a websocket
//
// Faults are reported through the returned future, never by panicking. Lookups
// that miss distinguish [constants.ErrNoCollection] from [constants.ErrNoIdentifier]
// so callers can tell them apart with errors.Is.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ki1r0y/nouns/pkg/constants"
	"github.com/ki1r0y/nouns/pkg/future"
)

type Backend interface {
	// Save stores content in collection under id, or under ContentID(content)
	// when id is empty, and yields the identifier used.
	Save(ctx context.Context, collection, id string, content []byte) *future.Future[string]

	// Retrieve yields the content stored in collection under id.
	Retrieve(ctx context.Context, collection, id string) *future.Future[[]byte]
}

// ContentID is the SHA-224 hex digest of content, 56 characters long.
func ContentID(content []byte) string {
	sum := sha256.Sum224(content)
	return hex.EncodeToString(sum[:])
}

// ResolveID returns id, or the content id when id is empty.
func ResolveID(id string, content []byte) string {
	if id != "" {
		return id
	}
	return ContentID(content)
}

// NoCollection builds the error for a collection the backend has never seen.
func NoCollection(collection string) error {
	return fmt.Errorf("%w: %s", constants.ErrNoCollection, collection)
}

// NoIdentifier builds the error for an id absent from a known collection.
func NoIdentifier(collection, id string) error {
	return fmt.Errorf("%w: %s in %s", constants.ErrNoIdentifier, id, collection)
}

// Fault wraps a storage fault so it matches constants.ErrBackend while keeping
// the original error reachable with errors.Is and errors.As.
func Fault(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", constants.ErrBackend, op, err)
}
