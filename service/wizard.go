package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/layer-3/portal/core"
)

// stepTransitions lists the steps reachable from each step. StepDone has no
// entry and is terminal.
var stepTransitions = map[core.Step][]core.Step{
	core.StepVerifying: {core.StepActive, core.StepDone},
	core.StepActive:    {core.StepDone},
}

// CanTransition reports whether the wizard may move from one step to another
func CanTransition(from, to core.Step) bool {
	for _, next := range stepTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

const (
	titleVerifying      = "Verifying"
	titleVerifyingEmail = "Verifying email"
	titleResetPassword  = "Reset password"
	subtitleNewPassword = "Enter your new password"
	buttonConfirm       = "CONFIRM"
)

// RequestWizard is a live request screen: token verification followed by
// email verification or a password reset.
type RequestWizard struct {
	id     string
	query  core.NavigationQuery
	scope  *Scope
	logger *slog.Logger

	mu     sync.Mutex
	state  core.RequestState
	fields []core.FieldError
}

// RequestView is the rendered state of a wizard
type RequestView struct {
	core.RequestState
	Focus       string            `json:"focus,omitempty"`
	FieldErrors []core.FieldError `json:"field_errors,omitempty"`
}

func (w *RequestWizard) ID() string { return w.id }

func (w *RequestWizard) Close() { w.scope.Close() }

// State returns a copy of the wizard state. IsLoading also covers an open
// operation.
func (w *RequestWizard) State() core.RequestState {
	w.mu.Lock()
	defer w.mu.Unlock()

	state := w.state
	state.IsLoading = state.IsLoading || w.scope.Busy()
	return state
}

// View renders the wizard
func (w *RequestWizard) View() *RequestView {
	state := w.State()

	w.mu.Lock()
	defer w.mu.Unlock()

	v := &RequestView{RequestState: state, FieldErrors: w.fields}
	if len(w.fields) > 0 {
		v.Focus = w.fields[0].Field
	}
	return v
}

func (w *RequestWizard) step() core.Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Step
}

// update applies fn to the state under the lock and returns the new state.
func (w *RequestWizard) update(fn func(state *core.RequestState)) core.RequestState {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.state)
	return w.state
}

// transition moves the wizard to step, applying fn to the new state.
func (w *RequestWizard) transition(to core.Step, fn func(state *core.RequestState)) (core.RequestState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !CanTransition(w.state.Step, to) {
		return w.state, fmt.Errorf("%s to %s: %w", w.state.Step, to, core.ErrInvalidStep)
	}
	w.state.Step = to
	w.state.ErrorMessage = ""
	w.fields = nil
	if fn != nil {
		fn(&w.state)
	}
	return w.state, nil
}

func (w *RequestWizard) fail(err error) core.RequestState {
	return w.update(func(state *core.RequestState) {
		state.IsLoading = false
		state.ErrorMessage = core.PrimaryMessage(err)
	})
}

func (w *RequestWizard) requestParams() core.RequestParams {
	return core.RequestParams{
		Action:    w.query.Action,
		RequestID: w.query.Request,
		TokenKey:  w.query.Token,
	}
}

// OpenRequest activates a request wizard after re-validating its query and
// starts token verification in the background.
func (s *AuthService) OpenRequest(ctx context.Context, q core.NavigationQuery) (*RequestView, error) {
	if d, ok := CheckRequestQuery(q); !ok {
		return nil, &Redirect{To: core.NavigateToError(d)}
	}

	id := s.screens.NewID()
	w := &RequestWizard{
		id:     id,
		query:  q,
		scope:  NewScope(context.WithoutCancel(ctx)),
		logger: screenLogger(ctx, id).With("action", q.Action),
		state: core.RequestState{
			ID:        id,
			Action:    q.Action,
			Step:      core.StepVerifying,
			TokenName: core.ChallengeTokenVerify,
			IsLoading: true,
			Title:     titleVerifying,
		},
	}
	s.screens.Add(w)
	view := w.View()
	s.save(w.scope.Context(), w.logger, view.RequestState)

	s.gate.Execute(w.scope, core.ChallengeTokenVerify,
		func(ctx context.Context, token string) { s.verifyToken(ctx, w, token) },
		func(err error) { s.wizardFailed(w, err) },
	)

	return view, nil
}

func (s *AuthService) verifyToken(ctx context.Context, w *RequestWizard, token string) {
	if w.step() == core.StepDone {
		return
	}

	if _, err := s.identity.VerifyToken(ctx, w.requestParams(), token); err != nil {
		s.wizardFailed(w, err)
		return
	}

	switch w.query.Action {
	case core.ActionEmailVerification:
		state := w.update(func(state *core.RequestState) {
			state.Title = titleVerifyingEmail
			state.TokenName = core.ChallengeEmailVerification
			state.IsLoading = true
			state.ErrorMessage = ""
		})
		s.save(ctx, w.logger, state)
		w.scope.After(s.confirmDelay, func() { s.confirmEmail(w) })

	case core.ActionResetPassword:
		state, err := w.transition(core.StepActive, func(state *core.RequestState) {
			state.Title = titleResetPassword
			state.Subtitle = subtitleNewPassword
			state.ButtonText = buttonConfirm
			state.TokenName = core.ChallengeForgotPasswordConfirm
			state.IsLoading = false
		})
		if err != nil {
			w.logger.Error("unexpected step", "error", err)
			return
		}
		s.save(ctx, w.logger, state)
	}
}

func (s *AuthService) confirmEmail(w *RequestWizard) {
	if w.step() != core.StepVerifying {
		return
	}

	started := s.gate.Execute(w.scope, core.ChallengeEmailVerification,
		func(ctx context.Context, token string) {
			if w.step() != core.StepVerifying {
				return
			}
			params := w.requestParams()
			if _, err := s.identity.EmailVerification(ctx, params, token); err != nil {
				s.wizardFailed(w, err)
				return
			}

			state, err := w.transition(core.StepDone, func(state *core.RequestState) {
				state.IsLoading = false
				state.DoneMessage = core.EmailVerifiedMessage
			})
			if err != nil {
				w.logger.Error("unexpected step", "error", err)
				return
			}
			s.save(ctx, w.logger, state)
			s.publish(ctx, core.Event{Type: core.EventEmailVerified, Request: params.RequestID, Ref: w.query.Ref})
			w.logger.Info("email verified")
		},
		func(err error) { s.wizardFailed(w, err) },
	)
	if !started {
		w.logger.Warn("email confirmation skipped, operation in flight")
	}
}

func (s *AuthService) wizardFailed(w *RequestWizard, err error) {
	if w.scope.Closed() {
		return
	}
	state := w.fail(err)
	w.logger.Warn("request step failed", "step", state.Step, "error", err)
	s.save(w.scope.Context(), w.logger, state)
}

// SubmitRequest sets the new password of an active reset-password wizard.
func (s *AuthService) SubmitRequest(ctx context.Context, id string, values map[string]string) (*RequestView, error) {
	w, err := s.wizard(id)
	if err != nil {
		return nil, err
	}

	switch w.step() {
	case core.StepDone:
		return nil, core.ErrRequestComplete
	case core.StepActive:
	default:
		return nil, fmt.Errorf("submit at %s: %w", w.step(), core.ErrInvalidStep)
	}

	if err := core.ResetPasswordForm.Validate(values); err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			w.mu.Lock()
			w.fields = verr.Fields
			w.mu.Unlock()
		}
		return nil, err
	}

	params := core.PasswordResetParams{
		RequestID:       w.query.Request,
		TokenKey:        w.query.Token,
		Password:        values[core.FieldPassword],
		PasswordConfirm: values[core.FieldPasswordConfirm],
	}
	err = s.gate.Run(w.scope, core.ChallengeForgotPasswordConfirm, func(ctx context.Context, token string) error {
		if w.step() != core.StepActive {
			return core.ErrRequestComplete
		}
		_, err := s.identity.ForgotPasswordConfirm(ctx, params, token)
		return err
	})
	if errors.Is(err, ErrInFlight) || errors.Is(err, ErrScopeClosed) || errors.Is(err, core.ErrRequestComplete) {
		return nil, err
	}
	if err != nil {
		state := w.fail(err)
		w.logger.Warn("password reset failed", "error", err)
		s.save(ctx, w.logger, state)
		return nil, err
	}

	state, err := w.transition(core.StepDone, func(state *core.RequestState) {
		state.IsLoading = false
		state.DoneMessage = core.PasswordChangedMessage
	})
	if err != nil {
		return nil, err
	}
	s.save(ctx, w.logger, state)
	s.publish(ctx, core.Event{Type: core.EventPasswordResetCompleted, Request: params.RequestID, Ref: w.query.Ref})

	return w.View(), nil
}

// Request returns the state of a wizard. Wizards no longer live in this
// process are served from their last snapshot.
func (s *AuthService) Request(ctx context.Context, id string) (*RequestView, error) {
	if w, err := s.wizard(id); err == nil {
		return w.View(), nil
	} else if !errors.Is(err, core.ErrScreenNotFound) {
		return nil, err
	}

	raw, err := s.store.Get(ctx, snapshotKey(id))
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrScreenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}

	var state core.RequestState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	return &RequestView{RequestState: state}, nil
}

func (s *AuthService) wizard(id string) (*RequestWizard, error) {
	screen, err := s.screens.Get(id)
	if err != nil {
		return nil, err
	}
	w, ok := screen.(*RequestWizard)
	if !ok {
		return nil, core.ErrScreenNotFound
	}
	return w, nil
}

func snapshotKey(id string) string {
	return "request:" + id
}

// save stores a snapshot of the wizard. Failures are logged only.
func (s *AuthService) save(ctx context.Context, logger *slog.Logger, state core.RequestState) {
	if s.store == nil {
		return
	}

	payload, err := json.Marshal(state)
	if err != nil {
		logger.Error("failed to encode request snapshot", "error", err)
		return
	}
	if err := s.store.Set(context.WithoutCancel(ctx), snapshotKey(state.ID), string(payload), s.screens.TTL()); err != nil {
		logger.Warn("failed to save request snapshot", "error", err)
	}
}
