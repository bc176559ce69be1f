// Package future provides a small settable future type.
//
// A [Future] is resolved exactly once, either with a value or with an error.
// Any number of goroutines may wait on it; all of them observe the same outcome.
// Futures that were resolved at creation ([Resolved], [Failed]) let synchronous
// results travel through the same API as results that arrive later.
package future

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Future is the read side of an asynchronous result.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

// Promise is the write side of a Future.
type Promise[T any] struct {
	f *Future[T]
}

// New returns an unresolved future together with the promise that settles it.
func New[T any]() (*Future[T], Promise[T]) {
	f := &Future[T]{done: make(chan struct{})}
	return f, Promise[T]{f: f}
}

// Resolved returns a future that already holds v.
func Resolved[T any](v T) *Future[T] {
	f, p := New[T]()
	p.Resolve(v)
	return f
}

// Failed returns a future that already holds err.
func Failed[T any](err error) *Future[T] {
	f, p := New[T]()
	p.Reject(err)
	return f
}

// Go runs fn in a new goroutine and returns a future of its result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f, p := New[T]()
	go func() {
		p.Settle(fn())
	}()
	return f
}

// Resolve settles the future with v. Later calls are ignored.
func (p Promise[T]) Resolve(v T) {
	p.Settle(v, nil)
}

// Reject settles the future with err. Later calls are ignored.
func (p Promise[T]) Reject(err error) {
	var zero T
	p.Settle(zero, err)
}

// Settle settles the future with the given pair. Later calls are ignored.
func (p Promise[T]) Settle(v T, err error) {
	p.f.once.Do(func() {
		p.f.val = v
		p.f.err = err
		close(p.f.done)
	})
}

// Follow settles the promise with the outcome of src once src completes.
func (p Promise[T]) Follow(src *Future[T]) {
	if src.IsDone() {
		p.Settle(src.val, src.err)
		return
	}
	go func() {
		<-src.done
		p.Settle(src.val, src.err)
	}()
}

// Done is closed once the future is settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the future is settled, without blocking.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the future settles or ctx is done.
// Cancelling ctx abandons the wait only; the underlying computation keeps going.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	default:
	}

	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Peek returns the settled outcome with ok set, or zero values with ok unset
// while the future is still pending. It never blocks.
func (f *Future[T]) Peek() (v T, ok bool, err error) {
	if !f.IsDone() {
		return v, false, nil
	}
	return f.val, true, f.err
}

// Map derives a future by applying fn to the value of f. Errors of f pass through
// and fn is not called. When f is already settled fn runs on the caller's goroutine.
func Map[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	return Then(f, func(v T) *Future[U] {
		u, err := fn(v)
		if err != nil {
			return Failed[U](err)
		}
		return Resolved(u)
	})
}

// Then chains an asynchronous step onto f.
func Then[T, U any](f *Future[T], fn func(T) *Future[U]) *Future[U] {
	if f.IsDone() {
		if f.err != nil {
			return Failed[U](f.err)
		}
		return fn(f.val)
	}

	out, p := New[U]()
	go func() {
		<-f.done
		if f.err != nil {
			p.Reject(f.err)
			return
		}
		p.Follow(fn(f.val))
	}()
	return out
}

// All waits for every future in fs and yields their values in order.
// The first error wins; the remaining futures are not cancelled.
func All[T any](ctx context.Context, fs []*Future[T]) *Future[[]T] {
	pending := false
	for _, f := range fs {
		if !f.IsDone() {
			pending = true
			break
		}
	}

	collect := func() ([]T, error) {
		out := make([]T, len(fs))
		g, gctx := errgroup.WithContext(ctx)
		for i, f := range fs {
			i, f := i, f
			g.Go(func() error {
				v, err := f.Await(gctx)
				if err != nil {
					return err
				}
				out[i] = v
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	}

	if !pending {
		out := make([]T, len(fs))
		for i, f := range fs {
			if f.err != nil {
				return Failed[[]T](f.err)
			}
			out[i] = f.val
		}
		return Resolved(out)
	}
	return Go(collect)
}
