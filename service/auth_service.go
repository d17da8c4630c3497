package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/layer-3/portal/core"
	"github.com/layer-3/portal/internal/logx"
	"github.com/layer-3/portal/ports"
)

const (
	DefaultRedirectDelay = time.Second
	DefaultConfirmDelay  = time.Second
)

// CookieConfig names the credential cookies and their scope
type CookieConfig struct {
	AccessName  string
	RefreshName string
	Attributes  core.CookieAttributes
}

// DefaultCookieConfig matches the cookies read by the rest of the platform
var DefaultCookieConfig = CookieConfig{
	AccessName:  "SID-MYPONYASIA",
	RefreshName: "SIDR-MYPONYASIA",
	Attributes:  core.CookieAttributes{Path: "/", Secure: true, HTTPOnly: true},
}

// Options tune an AuthService. Zero values select the defaults.
type Options struct {
	Redirects     core.RedirectPolicy
	Cookies       CookieConfig
	RedirectDelay time.Duration
	ConfirmDelay  time.Duration
}

// Redirect is returned when a screen refuses its query and sends the user elsewhere
type Redirect struct {
	To core.Navigation
}

func (r *Redirect) Error() string {
	return "redirect to " + r.To.Path()
}

// Destination is where the browser goes after a successful sign-in or sign-up.
// Exactly one of Navigation and URL is set.
type Destination struct {
	Navigation *core.Navigation
	URL        string
	Delay      time.Duration
}

// AuthService drives the account screens
type AuthService struct {
	identity ports.IdentityService
	gate     *Gate
	store    ports.Store
	eventPub ports.EventPublisher
	screens  *Registry

	redirects     core.RedirectPolicy
	cookies       CookieConfig
	redirectDelay time.Duration
	confirmDelay  time.Duration
}

// NewAuthService creates a new account screen service
func NewAuthService(
	identity ports.IdentityService,
	gate *Gate,
	store ports.Store,
	eventPub ports.EventPublisher,
	screens *Registry,
	opts Options,
) *AuthService {
	s := &AuthService{
		identity:      identity,
		gate:          gate,
		store:         store,
		eventPub:      eventPub,
		screens:       screens,
		redirects:     opts.Redirects,
		cookies:       opts.Cookies,
		redirectDelay: opts.RedirectDelay,
		confirmDelay:  opts.ConfirmDelay,
	}

	if len(s.redirects.Domains) == 0 {
		s.redirects = core.DefaultRedirectPolicy
	}
	if s.cookies.AccessName == "" || s.cookies.RefreshName == "" {
		s.cookies = DefaultCookieConfig
	}
	if s.redirectDelay <= 0 {
		s.redirectDelay = DefaultRedirectDelay
	}
	if s.confirmDelay <= 0 {
		s.confirmDelay = DefaultConfirmDelay
	}

	return s
}

// AuthScreen is a live sign-in or sign-up screen.
type AuthScreen struct {
	id    string
	route core.Route
	query core.NavigationQuery
	scope *Scope

	mu      sync.Mutex
	primary string
	fields  []core.FieldError
	overlay *ForgotPasswordOverlay
}

// AuthView is the rendered state of an AuthScreen
type AuthView struct {
	ID          string            `json:"id"`
	Screen      core.Route        `json:"screen"`
	Redirect    string            `json:"redirect"`
	Ref         string            `json:"ref,omitempty"`
	Fields      []string          `json:"fields"`
	Disabled    bool              `json:"disabled"`
	Focus       string            `json:"focus,omitempty"`
	FieldErrors []core.FieldError `json:"field_errors,omitempty"`
	Error       string            `json:"error,omitempty"`
	Overlay     string            `json:"overlay,omitempty"`
}

func (a *AuthScreen) ID() string { return a.id }

// Close tears down the screen and its overlay.
func (a *AuthScreen) Close() {
	a.mu.Lock()
	overlay := a.overlay
	a.overlay = nil
	a.mu.Unlock()

	if overlay != nil {
		overlay.Close()
	}
	a.scope.Close()
}

func (a *AuthScreen) form() core.Form {
	if a.route == core.RouteSignUp {
		return core.SignUpForm
	}
	return core.SignInForm
}

func (a *AuthScreen) challengeAction() core.ChallengeAction {
	if a.route == core.RouteSignUp {
		return core.ChallengeSignUp
	}
	return core.ChallengeSignIn
}

func (a *AuthScreen) setResult(primary string, fields []core.FieldError) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.primary = primary
	a.fields = fields
}

// View renders the screen
func (a *AuthScreen) View() *AuthView {
	a.mu.Lock()
	defer a.mu.Unlock()

	v := &AuthView{
		ID:          a.id,
		Screen:      a.route,
		Redirect:    a.query.Redirect,
		Ref:         a.query.Ref,
		Fields:      a.form().Names(),
		Disabled:    a.scope.Busy(),
		FieldErrors: a.fields,
		Error:       a.primary,
	}
	if len(a.fields) > 0 {
		v.Focus = a.fields[0].Field
	}
	if a.overlay != nil {
		v.Overlay = a.overlay.id
	}
	return v
}

// OpenScreen activates a sign-in or sign-up screen after re-validating its query.
func (s *AuthService) OpenScreen(ctx context.Context, route core.Route, q core.NavigationQuery) (*AuthView, error) {
	if route != core.RouteSignIn && route != core.RouteSignUp {
		return nil, &Redirect{To: core.NavigateToError(core.ErrorPageNotFound)}
	}
	if d, ok := CheckScreenQuery(q); !ok {
		return nil, &Redirect{To: core.NavigateToError(d)}
	}

	screen := &AuthScreen{
		id:    s.screens.NewID(),
		route: route,
		query: q.Forward(),
		scope: NewScope(context.WithoutCancel(ctx)),
	}
	s.screens.Add(screen)

	logx.FromContext(ctx).Debug("screen opened", "screen", screen.id, "route", route)
	return screen.View(), nil
}

// Screen returns the current view of a sign-in or sign-up screen
func (s *AuthService) Screen(id string) (*AuthView, error) {
	screen, err := s.authScreen(id)
	if err != nil {
		return nil, err
	}
	return screen.View(), nil
}

// Submit validates the form, then runs the identity call behind the challenge
// gate. On success the credential goes to cookies and the screen is torn down.
func (s *AuthService) Submit(ctx context.Context, id string, values map[string]string, cookies ports.CookieStore) (*Destination, error) {
	screen, err := s.authScreen(id)
	if err != nil {
		return nil, err
	}
	logger := logx.FromContext(ctx).With("screen", id, "route", screen.route)

	if err := screen.form().Validate(values); err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			screen.setResult("", verr.Fields)
		}
		return nil, err
	}

	var cred *core.SessionCredential
	err = s.gate.Run(screen.scope, screen.challengeAction(), func(ctx context.Context, token string) error {
		var err error
		cred, err = s.authenticate(ctx, screen.route, values, token)
		return err
	})
	if errors.Is(err, ErrInFlight) || errors.Is(err, ErrScopeClosed) {
		return nil, err
	}
	if err != nil {
		screen.setResult(core.PrimaryMessage(err), nil)
		logger.Warn("submit failed", "error", err)
		return nil, err
	}

	if err := s.persist(cred, cookies); err != nil {
		screen.setResult(core.GenericErrorMessage, nil)
		logger.Error("failed to persist credential", "error", err)
		return nil, err
	}
	screen.setResult("", nil)

	event := core.Event{Type: core.EventSignInSucceeded, Subject: values[core.FieldUsername], Ref: screen.query.Ref}
	if screen.route == core.RouteSignUp {
		event = core.Event{Type: core.EventSignUpSucceeded, Subject: values[core.FieldEmail], Ref: screen.query.Ref}
	}
	s.publish(ctx, event)

	dest := s.destination(screen.query)
	_ = s.teardown(id)
	logger.Info("submit succeeded", "redirect", screen.query.Redirect)
	return dest, nil
}

func (s *AuthService) authenticate(ctx context.Context, route core.Route, values map[string]string, token string) (*core.SessionCredential, error) {
	if route == core.RouteSignUp {
		return s.identity.SignUp(ctx, core.SignUpParams{
			Username:        values[core.FieldUsername],
			Email:           values[core.FieldEmail],
			Password:        values[core.FieldPassword],
			PasswordConfirm: values[core.FieldPasswordConfirm],
		}, token)
	}
	return s.identity.SignIn(ctx, core.SignInParams{
		Email:    values[core.FieldUsername],
		Password: values[core.FieldPassword],
	}, token)
}

func (s *AuthService) persist(cred *core.SessionCredential, cookies ports.CookieStore) error {
	if err := cookies.Put(s.cookies.AccessName, cred.AccessToken, cred.AccessExpiry, s.cookies.Attributes); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	if err := cookies.Put(s.cookies.RefreshName, cred.RefreshToken, cred.RefreshExpiry, s.cookies.Attributes); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

// destination resolves the redirect of a signed in user. Local routes stay in
// the app, safe external targets get a full-page navigation after a short
// grace period, anything else lands on the error screen.
func (s *AuthService) destination(q core.NavigationQuery) *Destination {
	switch {
	case core.IsLocalRoute(q.Redirect):
		nav := core.NavigateTo(core.Route(q.Redirect), q.Forward())
		return &Destination{Navigation: &nav}
	case s.redirects.IsSafe(q.Redirect):
		return &Destination{URL: q.Redirect, Delay: s.redirectDelay}
	default:
		nav := core.NavigateToError(core.ErrorRedirectNotValid)
		return &Destination{Navigation: &nav}
	}
}

// GoToSignUp leaves a sign-in screen for sign-up, carrying redirect and ref.
func (s *AuthService) GoToSignUp(id string) (core.Navigation, error) {
	return s.crossNavigate(id, core.RouteSignIn, core.RouteSignUp)
}

// GoToSignIn leaves a sign-up screen for sign-in, carrying redirect and ref.
func (s *AuthService) GoToSignIn(id string) (core.Navigation, error) {
	return s.crossNavigate(id, core.RouteSignUp, core.RouteSignIn)
}

func (s *AuthService) crossNavigate(id string, from, to core.Route) (core.Navigation, error) {
	screen, err := s.authScreen(id)
	if err != nil {
		return core.Navigation{}, err
	}
	if screen.route != from {
		return core.Navigation{}, core.ErrScreenNotFound
	}

	_ = s.teardown(id)
	return core.NavigateTo(to, screen.query.Forward()), nil
}

// CloseScreen tears down any screen
func (s *AuthService) CloseScreen(id string) error {
	return s.teardown(id)
}

func (s *AuthService) teardown(id string) error {
	screen, err := s.screens.Get(id)
	if err != nil {
		return err
	}

	if auth, ok := screen.(*AuthScreen); ok {
		auth.mu.Lock()
		overlay := auth.overlay
		auth.mu.Unlock()
		if overlay != nil {
			_ = s.screens.Remove(overlay.id)
		}
	}
	return s.screens.Remove(id)
}

func (s *AuthService) authScreen(id string) (*AuthScreen, error) {
	screen, err := s.screens.Get(id)
	if err != nil {
		return nil, err
	}
	auth, ok := screen.(*AuthScreen)
	if !ok {
		return nil, core.ErrScreenNotFound
	}
	return auth, nil
}

// publish never fails the user flow
func (s *AuthService) publish(ctx context.Context, event core.Event) {
	if s.eventPub == nil {
		return
	}
	if err := s.eventPub.Publish(ctx, event); err != nil {
		logx.FromContext(ctx).Warn("failed to publish event", "type", event.Type, "error", err)
	}
}

func screenLogger(ctx context.Context, id string) *slog.Logger {
	return logx.FromContext(ctx).With("screen", id)
}
