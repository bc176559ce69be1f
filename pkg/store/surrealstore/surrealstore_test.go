package surrealstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go"

	"github.com/ki1r0y/nouns/pkg/constants"
	"github.com/ki1r0y/nouns/pkg/store"
)

func TestRecordID(t *testing.T) {
	id := store.ContentID([]byte("x"))
	rid := recordID(constants.CollectionThing, id)
	assert.Equal(t, constants.CollectionThing, rid.Table)
	assert.Equal(t, id, rid.ID)
}

func TestFound(t *testing.T) {
	rid := recordID("thing", "abc")
	assert.True(t, found(&Record{ID: &rid, Content: []byte("{}")}, nil))
	assert.False(t, found(nil, nil), "missing record decoded as nil")
	assert.False(t, found(&Record{}, nil), "missing record decoded as zero value")
	assert.False(t, found(&Record{ID: &rid}, errors.New("boom")))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(errors.New("Expected a single or multiple results but got 0")))
	assert.True(t, isNotFound(fmt.Errorf("select: %w", errors.New("cbor: cannot unmarshal array into Go value of type surrealstore.Record"))))
	assert.False(t, isNotFound(errors.New("connection refused")))
}

func counted(status string, rows ...countRow) *[]surrealdb.QueryResult[[]countRow] {
	return &[]surrealdb.QueryResult[[]countRow]{{Status: status, Result: rows}}
}

func TestClassifyMiss(t *testing.T) {
	err := classifyMiss("place", "x", counted("OK"))
	assert.ErrorIs(t, err, constants.ErrNoCollection)

	err = classifyMiss("place", "x", counted("OK", countRow{Total: 0}))
	assert.ErrorIs(t, err, constants.ErrNoCollection)

	err = classifyMiss("thing", "x", counted("OK", countRow{Total: 3}))
	assert.ErrorIs(t, err, constants.ErrNoIdentifier)
	assert.NotErrorIs(t, err, constants.ErrNoCollection)

	err = classifyMiss("thing", "x", counted("ERR"))
	assert.ErrorIs(t, err, constants.ErrBackend)

	err = classifyMiss("thing", "x", nil)
	assert.ErrorIs(t, err, constants.ErrBackend)

	err = classifyMiss("thing", "x", &[]surrealdb.QueryResult[[]countRow]{})
	assert.ErrorIs(t, err, constants.ErrBackend)
}

// TestSurrealDB runs against a real server named by NOUNS_SURREALDB_URL, in a
// fresh database of the namespace "nouns_test".
func TestSurrealDB(t *testing.T) {
	url := os.Getenv("NOUNS_SURREALDB_URL")
	if url == "" {
		t.Skip("NOUNS_SURREALDB_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := Open(ctx, Config{
		URL:       url,
		Namespace: "nouns_test",
		Database:  fmt.Sprintf("run_%d", time.Now().UnixNano()),
		Username:  os.Getenv("NOUNS_SURREALDB_USER"),
		Password:  os.Getenv("NOUNS_SURREALDB_PASS"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	content := []byte(`{"title":"surreal","type":"Thing"}`)
	id, err := s.Save(ctx, constants.CollectionThing, "", content).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.ContentID(content), id)

	again, err := s.Save(ctx, constants.CollectionThing, "", content).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	got, err := s.Retrieve(ctx, constants.CollectionThing, id).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	explicit, err := s.Save(ctx, constants.CollectionOwner, "Uabc", content).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Uabc", explicit)

	_, err = s.Retrieve(ctx, constants.CollectionThing, "missing").Await(ctx)
	assert.ErrorIs(t, err, constants.ErrNoIdentifier)

	_, err = s.Retrieve(ctx, constants.CollectionPlace, "missing").Await(ctx)
	assert.ErrorIs(t, err, constants.ErrNoCollection)
}
