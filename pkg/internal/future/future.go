// Package future provides a value that is completed once, later.
package future

import (
	"context"
	"sync"
)

// Future is completed once with a value of type T.
// Callbacks registered before completion run on the completing goroutine.
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T

	mu        sync.Mutex // Protects callbacks
	callbacks []func(T)
}

// New returns a new incomplete Future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// ThenAccept calls fn with the value once the Future completed.
// fn is called immediately if it already is.
func (f *Future[T]) ThenAccept(fn func(T)) {
	f.mu.Lock()
	select {
	case <-f.done:
		f.mu.Unlock()
		fn(f.value)
	default:
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
	}
}

// Complete sets the value. Only the first call has an effect.
func (f *Future[T]) Complete(value T) *Future[T] {
	f.once.Do(func() {
		f.mu.Lock()
		f.value = value
		close(f.done)
		callbacks := f.callbacks
		f.callbacks = nil
		f.mu.Unlock()
		for _, fn := range callbacks {
			fn(value)
		}
	})
	return f
}

// Done is closed when the Future completed.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Get blocks until the Future completed or ctx is canceled.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
