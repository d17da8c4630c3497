package core_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/layer-3/portal/core"
	"github.com/stretchr/testify/require"
)

func TestPrimaryMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "nil",
			err:  nil,
			want: "",
		},
		{
			name: "challenge timeout overrides everything",
			err:  fmt.Errorf("signin: %w", core.ErrChallengeTimeout),
			want: "Recaptcha not valid",
		},
		{
			name: "server message first",
			err:  &core.ServiceError{StatusCode: 400, Server: "Email already registered", Transport: "Http failure response for signup: 400 Bad Request"},
			want: "Email already registered",
		},
		{
			name: "transport message second",
			err:  &core.ServiceError{Transport: "Http failure response for signin: 0 Unknown Error"},
			want: "Http failure response for signin: 0 Unknown Error",
		},
		{
			name: "wrapped service error",
			err:  fmt.Errorf("verify: %w", &core.ServiceError{Server: "Token expired"}),
			want: "Token expired",
		},
		{
			name: "empty service error",
			err:  &core.ServiceError{StatusCode: 500},
			want: "Something went wrong",
		},
		{
			name: "challenge error message",
			err:  &core.ChallengeError{Action: core.ChallengeSignIn, Message: "Recaptcha not valid", Err: errors.New("score too low")},
			want: "Recaptcha not valid",
		},
		{
			name: "anything else",
			err:  errors.New("boom"),
			want: "Something went wrong",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, core.PrimaryMessage(tt.err))
		})
	}
}
