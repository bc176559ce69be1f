package store_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ki1r0y/nouns/pkg/constants"
	"github.com/ki1r0y/nouns/pkg/store"
)

func TestContentID(t *testing.T) {
	id := store.ContentID([]byte(`{"title":"a title"}`))
	assert.Len(t, id, constants.ContentIDLength)
	assert.Equal(t, id, store.ContentID([]byte(`{"title":"a title"}`)))
	assert.NotEqual(t, id, store.ContentID([]byte(`{"title":"b title"}`)))

	// Well known SHA-224 of the empty string.
	assert.Equal(t, "d14a028c2a3a2bc9476102bb288234c415a2b01f828ea62ac5b3e42f", store.ContentID(nil))
}

func TestResolveID(t *testing.T) {
	assert.Equal(t, "given", store.ResolveID("given", []byte("x")))
	assert.Equal(t, store.ContentID([]byte("x")), store.ResolveID("", []byte("x")))
}

func TestErrors(t *testing.T) {
	assert.ErrorIs(t, store.NoCollection("place"), constants.ErrNoCollection)
	assert.NotErrorIs(t, store.NoCollection("place"), constants.ErrNoIdentifier)
	assert.ErrorIs(t, store.NoIdentifier("thing", "abc"), constants.ErrNoIdentifier)

	fault := store.Fault("save", io.ErrUnexpectedEOF)
	assert.ErrorIs(t, fault, constants.ErrBackend)
	assert.True(t, errors.Is(fault, io.ErrUnexpectedEOF))
}
