// Package sqlstore is a Backend on PostgreSQL through gorm.
//
// All collections share one table keyed by (collection, id). Call
// [Store.Migrate] once before use to create it.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ki1r0y/nouns/pkg/future"
	"github.com/ki1r0y/nouns/pkg/store"
)

// Record is one stored identity spec.
type Record struct {
	Collection string `gorm:"primaryKey;size:64"`
	ID         string `gorm:"primaryKey;size:128"`
	Content    []byte `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Record) TableName() string {
	return "noun_records"
}

type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

var _ store.Backend = (*Store)(nil)

type Option func(s *Store)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Open connects to the database at dsn.
func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return New(db, opts...), nil
}

// New wraps an open gorm handle.
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates or extends the record table.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&Record{})
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Save(ctx context.Context, collection, id string, content []byte) *future.Future[string] {
	return future.Go(func() (string, error) {
		rec := &Record{
			Collection: collection,
			ID:         store.ResolveID(id, content),
			Content:    content,
		}
		if err := saveStatement(s.db.WithContext(ctx), rec).Error; err != nil {
			return "", store.Fault("save", err)
		}
		s.logger.Debug().Str("collection", collection).Str("id", rec.ID).Int("bytes", len(content)).Msg("saved")
		return rec.ID, nil
	})
}

// saveStatement inserts rec, replacing the content already stored under its key.
func saveStatement(db *gorm.DB, rec *Record) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(rec)
}

func (s *Store) Retrieve(ctx context.Context, collection, id string) *future.Future[[]byte] {
	return future.Go(func() ([]byte, error) {
		db := s.db.WithContext(ctx)
		var rec Record
		err := db.First(&rec, "collection = ? AND id = ?", collection, id).Error
		if err == nil {
			return rec.Content, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.Fault("retrieve", err)
		}

		var n int64
		if err := db.Model(&Record{}).Where("collection = ?", collection).Limit(1).Count(&n).Error; err != nil {
			return nil, store.Fault("retrieve", err)
		}
		if n == 0 {
			return nil, store.NoCollection(collection)
		}
		return nil, store.NoIdentifier(collection, id)
	})
}
