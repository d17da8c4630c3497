package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/portal/core"
	"github.com/layer-3/portal/ports"
)

// DefaultChallengeTimeout bounds a single challenge acquisition
const DefaultChallengeTimeout = 5 * time.Second

var (
	// ErrInFlight is returned when a scope already has an open operation
	ErrInFlight = errors.New("operation already in flight")
	// ErrScopeClosed is returned when the screen was torn down
	ErrScopeClosed = errors.New("screen closed")
)

// Gate obtains a challenge token right before every sensitive call.
type Gate struct {
	provider ports.ChallengeProvider
	timeout  time.Duration
}

// NewGate creates a gate. A non-positive timeout selects DefaultChallengeTimeout.
func NewGate(provider ports.ChallengeProvider, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = DefaultChallengeTimeout
	}
	return &Gate{provider: provider, timeout: timeout}
}

// Execute acquires a token for action in the background, then calls
// onSuccess with it or onError with the acquisition failure. The operation
// stays open while onSuccess runs, so the sensitive call made from onSuccess
// is covered by the same guard.
//
// If scope already has an open operation Execute does nothing and returns
// false. Neither callback fires once the scope is closed.
func (g *Gate) Execute(scope *Scope, action core.ChallengeAction, onSuccess func(ctx context.Context, token string), onError func(err error)) bool {
	op, ok := scope.Begin()
	if !ok {
		return false
	}

	go func() {
		defer op.Close()

		token, err := g.acquire(op.Context(), action)
		if err != nil {
			scope.dispatch(func() { onError(err) })
			return
		}
		scope.dispatch(func() { onSuccess(op.Context(), token) })
	}()

	return true
}

// Run is the synchronous form of Execute: it acquires a token and passes it to
// call, returning the first error. It returns ErrInFlight when another
// operation is open on scope and ErrScopeClosed when scope closes before call
// has returned.
func (g *Gate) Run(scope *Scope, action core.ChallengeAction, call func(ctx context.Context, token string) error) error {
	op, ok := scope.Begin()
	if !ok {
		if scope.Closed() {
			return ErrScopeClosed
		}
		return ErrInFlight
	}
	defer op.Close()

	token, err := g.acquire(op.Context(), action)
	if err != nil {
		if scope.Closed() {
			return ErrScopeClosed
		}
		return err
	}

	var callErr error
	if !scope.dispatch(func() { callErr = call(op.Context(), token) }) {
		return ErrScopeClosed
	}
	// A scope closed during the call owns the outcome
	if scope.Closed() {
		if callErr != nil {
			return fmt.Errorf("%w: %v", ErrScopeClosed, callErr)
		}
		return ErrScopeClosed
	}
	return callErr
}

type acquireResult struct {
	token string
	err   error
}

// acquire enforces the timeout even if the provider ignores its context.
func (g *Gate) acquire(ctx context.Context, action core.ChallengeAction) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res := make(chan acquireResult, 1)
	go func() {
		token, err := g.provider.Execute(tctx, action)
		res <- acquireResult{token: token, err: err}
	}()

	select {
	case r := <-res:
		if r.err == nil {
			return r.token, nil
		}
		if ctx.Err() == nil && errors.Is(r.err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%s: %w", action, core.ErrChallengeTimeout)
		}
		return "", r.err
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%s: %w", action, core.ErrChallengeTimeout)
	}
}
