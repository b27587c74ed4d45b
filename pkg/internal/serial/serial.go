// Package serial provides an executor running tasks one at a time in
// submission order. Each client connection owns one executor that is
// shared by its backend links, so packet handlers and async completions
// of one player never run concurrently.
package serial

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gammazero/deque"
	"github.com/go-logr/logr"
)

// ErrClosed is returned when submitting to a closed executor.
var ErrClosed = errors.New("executor closed")

// Executor runs submitted tasks sequentially on its own goroutine.
type Executor struct {
	log logr.Logger

	mu     sync.Mutex
	tasks  deque.Deque[func()]
	wake   chan struct{}
	closed bool
	done   chan struct{}
}

// New starts an executor.
func New(log logr.Logger) *Executor {
	e := &Executor{
		log:  log,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go e.loop()
	return e
}

// Post queues fn without waiting for it.
// Returns ErrClosed if the executor is closed.
func (e *Executor) Post(fn func()) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.tasks.PushBack(fn)
	e.mu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run queues fn and waits until it returned.
// A panic in fn is recovered and returned as error.
// Run must not be called from a task of the same executor.
func (e *Executor) Run(fn func()) (err error) {
	done := make(chan struct{})
	if err = e.Post(func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Value: r}
			}
		}()
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return err
	case <-e.done:
		// The executor drained the queue and stopped;
		// done is closed by then if the task ran.
		select {
		case <-done:
			return err
		default:
			return ErrClosed
		}
	}
}

// Close stops accepting tasks. Already queued tasks still run.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Done is closed after Close once all queued tasks ran.
func (e *Executor) Done() <-chan struct{} { return e.done }

func (e *Executor) loop() {
	defer close(e.done)
	for {
		e.mu.Lock()
		if e.tasks.Len() == 0 {
			if e.closed {
				e.mu.Unlock()
				return
			}
			e.mu.Unlock()
			<-e.wake
			continue
		}
		fn := e.tasks.PopFront()
		e.mu.Unlock()
		e.run(fn)
	}
}

func (e *Executor) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error(&PanicError{Value: r}, "recovered panic in task")
		}
	}()
	fn()
}

// PanicError is a recovered panic of a task.
type PanicError struct {
	Value any
}

func (p *PanicError) Error() string { return fmt.Sprintf("panic: %v", p.Value) }
