package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/layer-3/portal/core"
	"github.com/layer-3/portal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateExecute(t *testing.T) {
	t.Run("passes the token to onSuccess while the operation is open", func(t *testing.T) {
		provider := &fakeProvider{}
		gate := service.NewGate(provider, time.Second)
		scope := service.NewScope(context.Background())
		defer scope.Close()

		got := make(chan string, 1)
		busy := make(chan bool, 1)
		ok := gate.Execute(scope, core.ChallengeSignIn,
			func(ctx context.Context, token string) {
				busy <- scope.Busy()
				got <- token
			},
			func(err error) { t.Errorf("unexpected error: %v", err) },
		)
		require.True(t, ok)

		select {
		case token := <-got:
			require.Equal(t, "tok-signin", token)
		case <-time.After(time.Second):
			t.Fatal("onSuccess not called")
		}
		require.True(t, <-busy)
		require.Eventually(t, func() bool { return !scope.Busy() }, time.Second, 5*time.Millisecond)
	})

	t.Run("second call while in flight is a no-op", func(t *testing.T) {
		provider := &fakeProvider{block: make(chan struct{})}
		gate := service.NewGate(provider, time.Second)
		scope := service.NewScope(context.Background())
		defer scope.Close()

		var first, second atomic.Int32
		require.True(t, gate.Execute(scope, core.ChallengeSignIn,
			func(context.Context, string) { first.Add(1) },
			func(error) { first.Add(1) },
		))
		require.False(t, gate.Execute(scope, core.ChallengeSignIn,
			func(context.Context, string) { second.Add(1) },
			func(error) { second.Add(1) },
		))

		close(provider.block)
		require.Eventually(t, func() bool { return first.Load() == 1 }, time.Second, 5*time.Millisecond)
		assert.Never(t, func() bool { return second.Load() != 0 }, 50*time.Millisecond, 5*time.Millisecond)
		require.Len(t, provider.Calls(), 1)
	})

	t.Run("timeout fires onError once with a timeout error", func(t *testing.T) {
		provider := &fakeProvider{block: make(chan struct{})}
		defer close(provider.block)
		gate := service.NewGate(provider, 30*time.Millisecond)
		scope := service.NewScope(context.Background())
		defer scope.Close()

		var successes, failures atomic.Int32
		errs := make(chan error, 2)
		gate.Execute(scope, core.ChallengeTokenVerify,
			func(context.Context, string) { successes.Add(1) },
			func(err error) {
				failures.Add(1)
				errs <- err
			},
		)

		select {
		case err := <-errs:
			require.ErrorIs(t, err, core.ErrChallengeTimeout)
			require.Equal(t, core.ChallengeNotValidMessage, core.PrimaryMessage(err))
		case <-time.After(time.Second):
			t.Fatal("onError not called")
		}
		assert.Never(t, func() bool { return failures.Load() != 1 || successes.Load() != 0 }, 50*time.Millisecond, 5*time.Millisecond)
	})

	t.Run("no callback after close", func(t *testing.T) {
		provider := &fakeProvider{block: make(chan struct{})}
		gate := service.NewGate(provider, time.Second)
		scope := service.NewScope(context.Background())

		var calls atomic.Int32
		gate.Execute(scope, core.ChallengeSignIn,
			func(context.Context, string) { calls.Add(1) },
			func(error) { calls.Add(1) },
		)

		scope.Close()
		close(provider.block)

		assert.Never(t, func() bool { return calls.Load() != 0 }, 50*time.Millisecond, 5*time.Millisecond)
		require.False(t, gate.Execute(scope, core.ChallengeSignIn,
			func(context.Context, string) {}, func(error) {}))
	})
}

func TestGateRun(t *testing.T) {
	t.Run("returns the call error", func(t *testing.T) {
		gate := service.NewGate(&fakeProvider{}, time.Second)
		scope := service.NewScope(context.Background())
		defer scope.Close()

		boom := errors.New("boom")
		var token string
		err := gate.Run(scope, core.ChallengeSignUp, func(ctx context.Context, tok string) error {
			token = tok
			return boom
		})
		require.ErrorIs(t, err, boom)
		require.Equal(t, "tok-signup", token)
		require.False(t, scope.Busy())
	})

	t.Run("rejects while another operation is open", func(t *testing.T) {
		gate := service.NewGate(&fakeProvider{}, time.Second)
		scope := service.NewScope(context.Background())
		defer scope.Close()

		op, ok := scope.Begin()
		require.True(t, ok)
		defer op.Close()

		called := false
		err := gate.Run(scope, core.ChallengeSignIn, func(context.Context, string) error {
			called = true
			return nil
		})
		require.ErrorIs(t, err, service.ErrInFlight)
		require.False(t, called)
	})

	t.Run("challenge failure skips the call", func(t *testing.T) {
		provider := &fakeProvider{err: &core.ChallengeError{Action: core.ChallengeSignIn, Message: "blocked"}}
		gate := service.NewGate(provider, time.Second)
		scope := service.NewScope(context.Background())
		defer scope.Close()

		called := false
		err := gate.Run(scope, core.ChallengeSignIn, func(context.Context, string) error {
			called = true
			return nil
		})
		require.Error(t, err)
		require.Equal(t, "blocked", core.PrimaryMessage(err))
		require.False(t, called)
	})

	t.Run("closed scope", func(t *testing.T) {
		gate := service.NewGate(&fakeProvider{}, time.Second)
		scope := service.NewScope(context.Background())
		scope.Close()

		err := gate.Run(scope, core.ChallengeSignIn, func(context.Context, string) error { return nil })
		require.ErrorIs(t, err, service.ErrScopeClosed)
	})
}

func TestScopeAfter(t *testing.T) {
	t.Run("waits for the open operation", func(t *testing.T) {
		scope := service.NewScope(context.Background())
		defer scope.Close()

		op, ok := scope.Begin()
		require.True(t, ok)

		var ran atomic.Bool
		scope.After(5*time.Millisecond, func() { ran.Store(true) })

		assert.Never(t, ran.Load, 50*time.Millisecond, 5*time.Millisecond)
		op.Close()
		require.Eventually(t, ran.Load, time.Second, 5*time.Millisecond)
	})

	t.Run("skipped after close", func(t *testing.T) {
		scope := service.NewScope(context.Background())

		var ran atomic.Bool
		scope.After(20*time.Millisecond, func() { ran.Store(true) })
		scope.Close()

		assert.Never(t, ran.Load, 60*time.Millisecond, 5*time.Millisecond)
	})
}

func TestOperationCloseIsIdempotent(t *testing.T) {
	scope := service.NewScope(context.Background())
	defer scope.Close()

	op, ok := scope.Begin()
	require.True(t, ok)
	op.Close()
	op.Close()

	next, ok := scope.Begin()
	require.True(t, ok)
	op.Close()
	require.True(t, scope.Busy(), "closing a stale handle must not release the new operation")
	next.Close()
}
