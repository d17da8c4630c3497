package ports

import (
	"context"

	"github.com/layer-3/portal/core"
)

// IdentityService is the remote identity provider. Every call carries the
// challenge token obtained right before it.
type IdentityService interface {
	SignIn(ctx context.Context, params core.SignInParams, challenge string) (*core.SessionCredential, error)
	SignUp(ctx context.Context, params core.SignUpParams, challenge string) (*core.SessionCredential, error)
	VerifyToken(ctx context.Context, params core.RequestParams, challenge string) (*core.Result, error)
	ForgotPassword(ctx context.Context, email, challenge string) (*core.Result, error)
	ForgotPasswordConfirm(ctx context.Context, params core.PasswordResetParams, challenge string) (*core.Result, error)
	EmailVerification(ctx context.Context, params core.RequestParams, challenge string) (*core.Result, error)
}

// ChallengeProvider issues single-use bot-challenge tokens bound to an action
type ChallengeProvider interface {
	Execute(ctx context.Context, action core.ChallengeAction) (string, error)
}
