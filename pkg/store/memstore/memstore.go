// Package memstore is an in-process Backend on hashicorp/go-memdb.
//
// Records live in a single table indexed by (collection, id) and by collection,
// so a lookup miss can tell an unknown collection from an unknown id.
package memstore

import (
	"context"

	hcmemdb "github.com/hashicorp/go-memdb"
	"github.com/rs/zerolog"

	"github.com/ki1r0y/nouns/pkg/future"
	"github.com/ki1r0y/nouns/pkg/store"
)

const (
	table           = "record"
	indexID         = "id"
	indexCollection = "collection"
)

type record struct {
	Collection string
	ID         string
	Content    []byte
}

func schema() *hcmemdb.DBSchema {
	return &hcmemdb.DBSchema{
		Tables: map[string]*hcmemdb.TableSchema{
			table: {
				Name: table,
				Indexes: map[string]*hcmemdb.IndexSchema{
					indexID: {
						Name:   indexID,
						Unique: true,
						Indexer: &hcmemdb.CompoundIndex{
							Indexes: []hcmemdb.Indexer{
								&hcmemdb.StringFieldIndex{Field: "Collection"},
								&hcmemdb.StringFieldIndex{Field: "ID"},
							},
						},
					},
					indexCollection: {
						Name:    indexCollection,
						Indexer: &hcmemdb.StringFieldIndex{Field: "Collection"},
					},
				},
			},
		},
	}
}

type Option func(s *Store)

// WithAsync makes every operation settle on a separate goroutine instead of
// returning an already settled future.
func WithAsync() Option {
	return func(s *Store) {
		s.async = true
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

type Store struct {
	db     *hcmemdb.MemDB
	async  bool
	logger zerolog.Logger
}

var _ store.Backend = (*Store)(nil)

func New(opts ...Option) (*Store, error) {
	db, err := hcmemdb.NewMemDB(schema())
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Save(ctx context.Context, collection, id string, content []byte) *future.Future[string] {
	return settle(s, func() (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		id := store.ResolveID(id, content)
		txn := s.db.Txn(true)
		defer txn.Abort()
		rec := &record{Collection: collection, ID: id, Content: append([]byte(nil), content...)}
		if err := txn.Insert(table, rec); err != nil {
			return "", store.Fault("save", err)
		}
		txn.Commit()
		s.logger.Debug().Str("collection", collection).Str("id", id).Int("bytes", len(content)).Msg("saved")
		return id, nil
	})
}

func (s *Store) Retrieve(ctx context.Context, collection, id string) *future.Future[[]byte] {
	return settle(s, func() ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		txn := s.db.Txn(false)
		defer txn.Abort()

		raw, err := txn.First(table, indexID, collection, id)
		if err != nil {
			return nil, store.Fault("retrieve", err)
		}
		if raw != nil {
			return append([]byte(nil), raw.(*record).Content...), nil
		}

		first, err := txn.First(table, indexCollection, collection)
		if err != nil {
			return nil, store.Fault("retrieve", err)
		}
		if first == nil {
			return nil, store.NoCollection(collection)
		}
		return nil, store.NoIdentifier(collection, id)
	})
}

// Collections lists the collection names holding at least one record.
func (s *Store) Collections() ([]string, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(table, indexCollection+"_prefix", "")
	if err != nil {
		return nil, err
	}
	var names []string
	for obj := it.Next(); obj != nil; obj = it.Next() {
		name := obj.(*record).Collection
		if len(names) == 0 || names[len(names)-1] != name {
			names = append(names, name)
		}
	}
	return names, nil
}

// Len returns the number of records in collection.
func (s *Store) Len(collection string) (int, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(table, indexCollection, collection)
	if err != nil {
		return 0, err
	}
	n := 0
	for obj := it.Next(); obj != nil; obj = it.Next() {
		n++
	}
	return n, nil
}

func settle[T any](s *Store, fn func() (T, error)) *future.Future[T] {
	if s.async {
		return future.Go(fn)
	}
	f, p := future.New[T]()
	p.Settle(fn())
	return f
}
