package core

// Step is the position of the request wizard.
type Step int

const (
	StepVerifying Step = 1
	StepActive    Step = 3
	StepDone      Step = 99
)

func (s Step) String() string {
	switch s {
	case StepVerifying:
		return "verifying"
	case StepActive:
		return "active"
	case StepDone:
		return "done"
	default:
		return "unknown"
	}
}

// RequestState is a snapshot of a request wizard, rendered by the UI layer.
type RequestState struct {
	ID           string          `json:"id"`
	Action       Action          `json:"action"`
	Step         Step            `json:"step"`
	TokenName    ChallengeAction `json:"token_name"`
	IsLoading    bool            `json:"is_loading"`
	ErrorMessage string          `json:"error,omitempty"`
	Title        string          `json:"title,omitempty"`
	Subtitle     string          `json:"subtitle,omitempty"`
	ButtonText   string          `json:"button_text,omitempty"`
	DoneMessage  string          `json:"done_message,omitempty"`
}

// Event is published after a successful identity call.
type Event struct {
	Type    string `json:"type"`
	Subject string `json:"subject,omitempty"`
	Request string `json:"request,omitempty"`
	Ref     string `json:"ref,omitempty"`
}

// Event types.
const (
	EventSignInSucceeded        = "signin.succeeded"
	EventSignUpSucceeded        = "signup.succeeded"
	EventPasswordResetRequested = "password_reset.requested"
	EventPasswordResetCompleted = "password_reset.completed"
	EventEmailVerified          = "email.verified"
)
