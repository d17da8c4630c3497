package service

import (
	"context"
	"sync"
	"time"
)

// Scope is the lifetime of one screen instance. It owns a cancellation
// context and admits at most one outstanding operation at a time.
//
// Callbacks scheduled through the scope run while holding its read lock, so
// Close blocks until a running callback returns and no callback starts after
// Close has returned. A callback must therefore never call Close itself.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	callbacks sync.RWMutex

	mu     sync.Mutex
	op     *Operation
	closed bool
}

// NewScope creates a scope bound to parent
func NewScope(parent context.Context) *Scope {
	ctx, cancel := context.WithCancel(parent)
	return &Scope{ctx: ctx, cancel: cancel}
}

// Context is cancelled when the scope is closed
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Begin opens a new operation. It fails while another operation is open or
// once the scope is closed.
func (s *Scope) Begin() (*Operation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.op != nil || s.ctx.Err() != nil {
		return nil, false
	}

	s.op = &Operation{scope: s, done: make(chan struct{})}
	return s.op, true
}

// Busy reports whether an operation is open
func (s *Scope) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.op != nil
}

// Closed reports whether Close has been called
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed || s.ctx.Err() != nil
}

// Close cancels outstanding work and waits for a running callback to return.
func (s *Scope) Close() {
	s.cancel()

	s.callbacks.Lock()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.callbacks.Unlock()
}

// After runs fn once d has elapsed and the operation open at that moment has
// finished. Nothing runs if the scope closes first.
func (s *Scope) After(d time.Duration, fn func()) {
	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
		}

		if op := s.current(); op != nil {
			select {
			case <-s.ctx.Done():
				return
			case <-op.Done():
			}
		}

		s.dispatch(fn)
	}()
}

// dispatch runs fn unless the scope is closed. It reports whether fn ran.
func (s *Scope) dispatch(fn func()) bool {
	s.callbacks.RLock()
	defer s.callbacks.RUnlock()

	if s.ctx.Err() != nil {
		return false
	}
	fn()
	return true
}

func (s *Scope) current() *Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.op
}

// Operation is the handle of the single outstanding operation of a scope.
type Operation struct {
	scope *Scope
	done  chan struct{}
	once  sync.Once
}

// Context is the scope context
func (o *Operation) Context() context.Context {
	return o.scope.ctx
}

// Done is closed once the operation has been closed
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Close releases the scope for the next operation. It is safe to call more
// than once.
func (o *Operation) Close() {
	o.once.Do(func() {
		o.scope.mu.Lock()
		if o.scope.op == o {
			o.scope.op = nil
		}
		o.scope.mu.Unlock()
		close(o.done)
	})
}
