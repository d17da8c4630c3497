package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrChallengeTimeout = errors.New("challenge timeout")
	ErrScreenNotFound   = errors.New("screen not found")
	ErrRequestComplete  = errors.New("request already complete")
	ErrInvalidStep      = errors.New("invalid step transition")
	ErrNotFound         = errors.New("not found")
	ErrInvalidToken     = errors.New("invalid token")
)

// ServiceError is a failed call to the identity service.
type ServiceError struct {
	StatusCode int    // HTTP status returned by the identity service, 0 on transport failure
	Server     string // message field of the response envelope
	Transport  string // transport level description of the failure
	Err        error
}

func (e *ServiceError) Error() string {
	switch {
	case e.Server != "":
		return fmt.Sprintf("identity service: %s", e.Server)
	case e.Transport != "":
		return fmt.Sprintf("identity service: %s", e.Transport)
	case e.Err != nil:
		return fmt.Sprintf("identity service: %v", e.Err)
	default:
		return "identity service: request failed"
	}
}

func (e *ServiceError) Unwrap() error { return e.Err }

// ChallengeError is a failed challenge acquisition other than a timeout.
type ChallengeError struct {
	Action  ChallengeAction
	Message string
	Err     error
}

func (e *ChallengeError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("challenge %s: %s", e.Action, e.Message)
	}
	return fmt.Sprintf("challenge %s: %v", e.Action, e.Err)
}

func (e *ChallengeError) Unwrap() error { return e.Err }

// FieldError describes a single invalid form field.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError is returned when a form is rejected locally, before any network call.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "invalid form: " + strings.Join(msgs, ", ")
}

// Focus returns the first offending field in declared order.
func (e *ValidationError) Focus() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0].Field
}
