package memstore_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ki1r0y/nouns/pkg/constants"
	"github.com/ki1r0y/nouns/pkg/store"
	"github.com/ki1r0y/nouns/pkg/store/memstore"
)

func newStore(t *testing.T, opts ...memstore.Option) *memstore.Store {
	t.Helper()
	s, err := memstore.New(opts...)
	require.NoError(t, err)
	return s
}

func TestSaveWithoutIDIsContentAddressed(t *testing.T) {
	for name, opts := range map[string][]memstore.Option{
		"immediate": nil,
		"async":     {memstore.WithAsync()},
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t, opts...)
			content := []byte(`{"title":"a title"}`)

			id1, err := s.Save(ctx, "thing", "", content).Await(ctx)
			require.NoError(t, err)
			id2, err := s.Save(ctx, "thing", "", content).Await(ctx)
			require.NoError(t, err)

			assert.Equal(t, store.ContentID(content), id1)
			assert.Equal(t, id1, id2)

			n, err := s.Len("thing")
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			got, err := s.Retrieve(ctx, "thing", id1).Await(ctx)
			require.NoError(t, err)
			assert.Equal(t, content, got)
		})
	}
}

func TestSaveWithExplicitID(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	id, err := s.Save(ctx, "owner", "U-token", []byte("x")).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "U-token", id)

	got, err := s.Retrieve(ctx, "owner", "U-token").Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}

func TestSaveImmediateIsSettled(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	f := s.Save(ctx, "thing", "", []byte("x"))
	assert.True(t, f.IsDone())
}

func TestRetrieveDistinguishesMisses(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	_, err := s.Save(ctx, "thing", "", []byte("x")).Await(ctx)
	require.NoError(t, err)

	_, err = s.Retrieve(ctx, "place", "0123").Await(ctx)
	assert.ErrorIs(t, err, constants.ErrNoCollection)
	assert.NotErrorIs(t, err, constants.ErrNoIdentifier)

	_, err = s.Retrieve(ctx, "thing", "0123").Await(ctx)
	assert.ErrorIs(t, err, constants.ErrNoIdentifier)
	assert.NotErrorIs(t, err, constants.ErrNoCollection)
}

func TestRetrieveReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	id, err := s.Save(ctx, "thing", "", []byte("abc")).Await(ctx)
	require.NoError(t, err)

	got, err := s.Retrieve(ctx, "thing", id).Await(ctx)
	require.NoError(t, err)
	got[0] = 'z'

	again, err := s.Retrieve(ctx, "thing", id).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newStore(t)

	_, err := s.Save(ctx, "thing", "", []byte("x")).Await(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentSavesConverge(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memstore.WithAsync())
	content := []byte(`{"type":"Thing"}`)

	var wg sync.WaitGroup
	ids := make([]string, 32)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := s.Save(ctx, "thing", "", content).Await(ctx)
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	n, err := s.Len("thing")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCollections(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for _, c := range []string{"thing", "owner", "thing", "place"} {
		_, err := s.Save(ctx, c, "", []byte(c+"-content")).Await(ctx)
		require.NoError(t, err)
	}

	names, err := s.Collections()
	require.NoError(t, err)
	assert.Equal(t, []string{"owner", "place", "thing"}, names)
}
