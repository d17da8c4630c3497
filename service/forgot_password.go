package service

import (
	"context"
	"errors"
	"sync"

	"github.com/layer-3/portal/core"
	"github.com/layer-3/portal/internal/logx"
)

// ForgotPasswordOverlay is the modal reset-link request opened from a
// sign-in screen. It has its own scope, so it is guarded independently of
// the screen below it.
type ForgotPasswordOverlay struct {
	id     string
	parent string
	scope  *Scope

	mu      sync.Mutex
	email   string
	primary string
	fields  []core.FieldError
}

// ForgotPasswordView is the rendered state of the overlay
type ForgotPasswordView struct {
	ID          string            `json:"id"`
	Parent      string            `json:"parent"`
	Email       string            `json:"email"`
	Disabled    bool              `json:"disabled"`
	Focus       string            `json:"focus,omitempty"`
	FieldErrors []core.FieldError `json:"field_errors,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// ForgotPasswordResult is returned once the overlay closes on success
type ForgotPasswordResult struct {
	Notice string `json:"notice"`
}

func (f *ForgotPasswordOverlay) ID() string { return f.id }

func (f *ForgotPasswordOverlay) Close() { f.scope.Close() }

// View renders the overlay
func (f *ForgotPasswordOverlay) View() *ForgotPasswordView {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := &ForgotPasswordView{
		ID:          f.id,
		Parent:      f.parent,
		Email:       f.email,
		Disabled:    f.scope.Busy(),
		FieldErrors: f.fields,
		Error:       f.primary,
	}
	if len(f.fields) > 0 {
		v.Focus = f.fields[0].Field
	}
	return v
}

// OpenForgotPassword opens the overlay on top of a sign-in screen, replacing
// one that is already open. email pre-fills the form.
func (s *AuthService) OpenForgotPassword(ctx context.Context, signInID, email string) (*ForgotPasswordView, error) {
	screen, err := s.authScreen(signInID)
	if err != nil {
		return nil, err
	}
	if screen.route != core.RouteSignIn {
		return nil, core.ErrScreenNotFound
	}

	overlay := &ForgotPasswordOverlay{
		id:     s.screens.NewID(),
		parent: signInID,
		scope:  NewScope(screen.scope.Context()),
		email:  email,
	}

	screen.mu.Lock()
	previous := screen.overlay
	screen.overlay = overlay
	screen.mu.Unlock()

	if previous != nil {
		_ = s.screens.Remove(previous.id)
	}
	s.screens.Add(overlay)

	logx.FromContext(ctx).Debug("overlay opened", "screen", overlay.id, "parent", signInID)
	return overlay.View(), nil
}

// ForgotPassword returns the current view of an overlay
func (s *AuthService) ForgotPassword(id string) (*ForgotPasswordView, error) {
	overlay, err := s.overlay(id)
	if err != nil {
		return nil, err
	}
	return overlay.View(), nil
}

// SubmitForgotPassword asks the identity service to mail a reset link. On
// success the overlay closes and the notice is returned; on failure it stays
// open with the primary error.
func (s *AuthService) SubmitForgotPassword(ctx context.Context, id, email string) (*ForgotPasswordResult, error) {
	overlay, err := s.overlay(id)
	if err != nil {
		return nil, err
	}
	logger := screenLogger(ctx, id)

	overlay.mu.Lock()
	overlay.email = email
	overlay.mu.Unlock()

	if err := core.ForgotPasswordForm.Validate(map[string]string{core.FieldEmail: email}); err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			overlay.setResult("", verr.Fields)
		}
		return nil, err
	}

	err = s.gate.Run(overlay.scope, core.ChallengeForgotPassword, func(ctx context.Context, token string) error {
		_, err := s.identity.ForgotPassword(ctx, email, token)
		return err
	})
	if errors.Is(err, ErrInFlight) || errors.Is(err, ErrScopeClosed) {
		return nil, err
	}
	if err != nil {
		overlay.setResult(core.PrimaryMessage(err), nil)
		logger.Warn("forgot password failed", "error", err)
		return nil, err
	}

	s.publish(ctx, core.Event{Type: core.EventPasswordResetRequested, Subject: email})
	s.closeOverlay(overlay)
	return &ForgotPasswordResult{Notice: core.ResetLinkSentNotice}, nil
}

func (f *ForgotPasswordOverlay) setResult(primary string, fields []core.FieldError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.primary = primary
	f.fields = fields
}

func (s *AuthService) closeOverlay(overlay *ForgotPasswordOverlay) {
	if parent, err := s.authScreen(overlay.parent); err == nil {
		parent.mu.Lock()
		if parent.overlay == overlay {
			parent.overlay = nil
		}
		parent.mu.Unlock()
	}
	_ = s.screens.Remove(overlay.id)
}

func (s *AuthService) overlay(id string) (*ForgotPasswordOverlay, error) {
	screen, err := s.screens.Get(id)
	if err != nil {
		return nil, err
	}
	overlay, ok := screen.(*ForgotPasswordOverlay)
	if !ok {
		return nil, core.ErrScreenNotFound
	}
	return overlay, nil
}
