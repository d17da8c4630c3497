package core

import "time"

// ChallengeAction names the action a challenge token is bound to
type ChallengeAction string

const (
	ChallengeSignIn                ChallengeAction = "signin"
	ChallengeSignUp                ChallengeAction = "signup"
	ChallengeTokenVerify           ChallengeAction = "token_verify"
	ChallengeEmailVerification     ChallengeAction = "email_verification"
	ChallengeForgotPassword        ChallengeAction = "forgot_password"
	ChallengeForgotPasswordConfirm ChallengeAction = "forgot_password_confirm"
)

// SessionCredential is the token pair returned by a successful sign-in or sign-up
type SessionCredential struct {
	AccessToken   string    // Opaque access token
	AccessExpiry  time.Time // When the access token cookie expires
	RefreshToken  string    // Opaque refresh token
	RefreshExpiry time.Time // When the refresh token cookie expires
}

// CookieAttributes are the scope flags attached to a persisted credential
type CookieAttributes struct {
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
}

// SignInParams are the inputs of the signin endpoint
type SignInParams struct {
	Email    string
	Password string
}

// SignUpParams are the inputs of the signup endpoint
type SignUpParams struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

// RequestParams identify a pending verification request
type RequestParams struct {
	Action    Action
	RequestID string
	TokenKey  string
}

// PasswordResetParams are the inputs of the forgot-password-confirm endpoint
type PasswordResetParams struct {
	RequestID       string
	TokenKey        string
	Password        string
	PasswordConfirm string
}

// Result is the status/message envelope of a non-credential identity call
type Result struct {
	Status  bool
	Message string
}
