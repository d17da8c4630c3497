package core

import "errors"

const (
	GenericErrorMessage      = "Something went wrong"
	ChallengeNotValidMessage = "Recaptcha not valid"
	ResetLinkSentNotice      = "Reset password link has been sent to your email"
	EmailVerifiedMessage     = "Email verified, you can close this tab window"
	PasswordChangedMessage   = "Password changed, you can close this tab window"
)

// PrimaryMessage converts an asynchronous failure into the single user facing
// message of a screen. A challenge timeout always maps to ChallengeNotValidMessage;
// otherwise the server supplied message wins over the transport message, then
// the generic fallback.
func PrimaryMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrChallengeTimeout) {
		return ChallengeNotValidMessage
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		if serviceErr.Server != "" {
			return serviceErr.Server
		}
		if serviceErr.Transport != "" {
			return serviceErr.Transport
		}
		return GenericErrorMessage
	}

	var challengeErr *ChallengeError
	if errors.As(err, &challengeErr) && challengeErr.Message != "" {
		return challengeErr.Message
	}

	return GenericErrorMessage
}
