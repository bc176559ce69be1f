// Package lazy memoizes named, possibly asynchronous computations per owner.
//
// A Memo holds one cell per name. The first Get for a name installs a pending
// future before the computation starts, so concurrent and re-entrant readers
// observe that same future and the computation runs at most once.
package lazy

import (
	"sync"

	"github.com/ki1r0y/nouns/pkg/future"
)

type Memo[V any] struct {
	mu    sync.Mutex
	cells map[string]*future.Future[V]
}

func NewMemo[V any]() *Memo[V] {
	return &Memo[V]{cells: make(map[string]*future.Future[V])}
}

// Get returns the cell for name, calling compute to fill it if this is the first
// request. compute is called without the memo lock held, so it may Get other names.
// A computation that Gets its own name waits on itself forever.
func (m *Memo[V]) Get(name string, compute func() *future.Future[V]) *future.Future[V] {
	m.mu.Lock()
	if f, ok := m.cells[name]; ok {
		m.mu.Unlock()
		return f
	}
	f, p := future.New[V]()
	m.cells[name] = f
	m.mu.Unlock()

	p.Follow(compute())
	return f
}

// Cached reports whether name has a cell, pending or settled.
func (m *Memo[V]) Cached(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.cells[name]
	return ok
}

// Len returns the number of cells.
func (m *Memo[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cells)
}
