package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/portal/adapters/store"
	"github.com/layer-3/portal/core"
	"github.com/layer-3/portal/ports"
	"github.com/layer-3/portal/service"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls []core.ChallengeAction
	block chan struct{}
	err   error
}

func (p *fakeProvider) Execute(ctx context.Context, action core.ChallengeAction) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, action)
	block, err := p.block, p.err
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return "tok-" + string(action), nil
}

func (p *fakeProvider) Calls() []core.ChallengeAction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.ChallengeAction(nil), p.calls...)
}

type identityCall struct {
	Method string
	Token  string
	Params any
}

type fakeIdentity struct {
	mu    sync.Mutex
	calls []identityCall
	errs  map[string]error
	block chan struct{}
	cred  *core.SessionCredential
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		errs: make(map[string]error),
		cred: &core.SessionCredential{
			AccessToken:   "access",
			AccessExpiry:  time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
			RefreshToken:  "refresh",
			RefreshExpiry: time.Date(2030, 1, 5, 0, 0, 0, 0, time.UTC),
		},
	}
}

func (f *fakeIdentity) record(ctx context.Context, method, token string, params any) error {
	f.mu.Lock()
	f.calls = append(f.calls, identityCall{Method: method, Token: token, Params: params})
	block, err := f.block, f.errs[method]
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeIdentity) Calls() []identityCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]identityCall(nil), f.calls...)
}

func (f *fakeIdentity) Methods() []string {
	var methods []string
	for _, c := range f.Calls() {
		methods = append(methods, c.Method)
	}
	return methods
}

func (f *fakeIdentity) SignIn(ctx context.Context, params core.SignInParams, challenge string) (*core.SessionCredential, error) {
	if err := f.record(ctx, "SignIn", challenge, params); err != nil {
		return nil, err
	}
	return f.cred, nil
}

func (f *fakeIdentity) SignUp(ctx context.Context, params core.SignUpParams, challenge string) (*core.SessionCredential, error) {
	if err := f.record(ctx, "SignUp", challenge, params); err != nil {
		return nil, err
	}
	return f.cred, nil
}

func (f *fakeIdentity) VerifyToken(ctx context.Context, params core.RequestParams, challenge string) (*core.Result, error) {
	if err := f.record(ctx, "VerifyToken", challenge, params); err != nil {
		return nil, err
	}
	return &core.Result{Status: true}, nil
}

func (f *fakeIdentity) ForgotPassword(ctx context.Context, email, challenge string) (*core.Result, error) {
	if err := f.record(ctx, "ForgotPassword", challenge, email); err != nil {
		return nil, err
	}
	return &core.Result{Status: true}, nil
}

func (f *fakeIdentity) ForgotPasswordConfirm(ctx context.Context, params core.PasswordResetParams, challenge string) (*core.Result, error) {
	if err := f.record(ctx, "ForgotPasswordConfirm", challenge, params); err != nil {
		return nil, err
	}
	return &core.Result{Status: true}, nil
}

func (f *fakeIdentity) EmailVerification(ctx context.Context, params core.RequestParams, challenge string) (*core.Result, error) {
	if err := f.record(ctx, "EmailVerification", challenge, params); err != nil {
		return nil, err
	}
	return &core.Result{Status: true}, nil
}

type storedCookie struct {
	Value   string
	Expires time.Time
	Attrs   core.CookieAttributes
}

type fakeCookies map[string]storedCookie

func (f fakeCookies) Put(key, value string, expires time.Time, attrs core.CookieAttributes) error {
	f[key] = storedCookie{Value: value, Expires: expires, Attrs: attrs}
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []core.Event
}

func (p *fakePublisher) Publish(ctx context.Context, event core.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Events() []core.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.Event(nil), p.events...)
}

// recordingStore keeps every value written, on top of a memory store
type recordingStore struct {
	ports.Store

	mu     sync.Mutex
	writes []string
}

func (s *recordingStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	s.writes = append(s.writes, value)
	s.mu.Unlock()
	return s.Store.Set(ctx, key, value, ttl)
}

func (s *recordingStore) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

type harness struct {
	svc       *service.AuthService
	screens   *service.Registry
	identity  *fakeIdentity
	provider  *fakeProvider
	store     *recordingStore
	publisher *fakePublisher
}

func newHarness(challengeTimeout time.Duration) *harness {
	h := &harness{
		screens:   service.NewRegistry(time.Minute),
		identity:  newFakeIdentity(),
		provider:  &fakeProvider{},
		store:     &recordingStore{Store: store.NewMemoryStore()},
		publisher: &fakePublisher{},
	}
	h.svc = service.NewAuthService(
		h.identity,
		service.NewGate(h.provider, challengeTimeout),
		h.store,
		h.publisher,
		h.screens,
		service.Options{ConfirmDelay: 10 * time.Millisecond},
	)
	return h
}
