package nouns_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ki1r0y/nouns"
	"github.com/ki1r0y/nouns/pkg/future"
	"github.com/ki1r0y/nouns/pkg/store"
	"github.com/ki1r0y/nouns/pkg/store/memstore"
)

func newTestRegistry(t *testing.T, opts ...nouns.Option) (*nouns.Registry, *countingBackend) {
	t.Helper()
	mem, err := memstore.New()
	require.NoError(t, err)
	backend := &countingBackend{Backend: mem}
	reg, err := nouns.NewRegistry(backend, opts...)
	require.NoError(t, err)
	return reg, backend
}

func build(t *testing.T, reg *nouns.Registry, kind string, props nouns.Props) *nouns.Noun {
	t.Helper()
	n, err := reg.Build(context.Background(), kind, props)
	require.NoError(t, err)
	return n
}

func idtag(t *testing.T, n *nouns.Noun) string {
	t.Helper()
	id, err := n.Idtag(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, id)
	return id
}

// countingBackend counts calls and can hold saves and retrieves until released.
type countingBackend struct {
	store.Backend

	saves     int32
	retrieves int32

	mu   sync.Mutex
	gate chan struct{}
}

func (b *countingBackend) Save(ctx context.Context, collection, id string, content []byte) *future.Future[string] {
	atomic.AddInt32(&b.saves, 1)
	held := b.held()
	if held == nil {
		return b.Backend.Save(ctx, collection, id, content)
	}
	return future.Then(held, func(struct{}) *future.Future[string] {
		return b.Backend.Save(ctx, collection, id, content)
	})
}

func (b *countingBackend) Retrieve(ctx context.Context, collection, id string) *future.Future[[]byte] {
	atomic.AddInt32(&b.retrieves, 1)
	held := b.held()
	if held == nil {
		return b.Backend.Retrieve(ctx, collection, id)
	}
	return future.Then(held, func(struct{}) *future.Future[[]byte] {
		return b.Backend.Retrieve(ctx, collection, id)
	})
}

// held settles once the current gate opens, or is nil when nothing is held.
func (b *countingBackend) held() *future.Future[struct{}] {
	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()
	if gate == nil {
		return nil
	}
	return future.Go(func() (struct{}, error) {
		<-gate
		return struct{}{}, nil
	})
}

func (b *countingBackend) hold() func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gate = make(chan struct{})
	gate := b.gate
	return func() { close(gate) }
}

func (b *countingBackend) saveCount() int {
	return int(atomic.LoadInt32(&b.saves))
}

// failingBackend fails every operation with err.
type failingBackend struct {
	err error
}

func (b failingBackend) Save(context.Context, string, string, []byte) *future.Future[string] {
	return future.Failed[string](b.err)
}

func (b failingBackend) Retrieve(context.Context, string, string) *future.Future[[]byte] {
	return future.Failed[[]byte](b.err)
}

func (b *countingBackend) retrieveCount() int {
	return int(atomic.LoadInt32(&b.retrieves))
}
