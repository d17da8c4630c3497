package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/layer-3/portal/core"
	"github.com/stretchr/testify/require"
)

func TestForgotPasswordOverlay(t *testing.T) {
	t.Run("success closes the overlay with a notice", func(t *testing.T) {
		h := newHarness(time.Second)
		defer h.screens.Close()

		signin := openScreen(t, h, core.RouteSignIn, core.NavigationQuery{Redirect: "signup"})

		overlay, err := h.svc.OpenForgotPassword(context.Background(), signin.ID, "pony@myponyasia.com")
		require.NoError(t, err)
		require.Equal(t, "pony@myponyasia.com", overlay.Email)
		require.Equal(t, signin.ID, overlay.Parent)

		parent, err := h.svc.Screen(signin.ID)
		require.NoError(t, err)
		require.Equal(t, overlay.ID, parent.Overlay)

		result, err := h.svc.SubmitForgotPassword(context.Background(), overlay.ID, "pony@myponyasia.com")
		require.NoError(t, err)
		require.Equal(t, "Reset password link has been sent to your email", result.Notice)

		calls := h.identity.Calls()
		require.Len(t, calls, 1)
		require.Equal(t, "ForgotPassword", calls[0].Method)
		require.Equal(t, "tok-forgot_password", calls[0].Token)
		require.Equal(t, "pony@myponyasia.com", calls[0].Params)

		_, err = h.svc.ForgotPassword(overlay.ID)
		require.ErrorIs(t, err, core.ErrScreenNotFound)

		parent, err = h.svc.Screen(signin.ID)
		require.NoError(t, err)
		require.Empty(t, parent.Overlay)

		require.Equal(t, core.EventPasswordResetRequested, h.publisher.Events()[0].Type)
	})

	t.Run("failure keeps the overlay open", func(t *testing.T) {
		h := newHarness(time.Second)
		defer h.screens.Close()
		h.identity.errs["ForgotPassword"] = &core.ServiceError{StatusCode: 404, Server: "Email not registered"}

		signin := openScreen(t, h, core.RouteSignIn, core.NavigationQuery{Redirect: "signup"})
		overlay, err := h.svc.OpenForgotPassword(context.Background(), signin.ID, "")
		require.NoError(t, err)

		_, err = h.svc.SubmitForgotPassword(context.Background(), overlay.ID, "pony@myponyasia.com")
		require.Error(t, err)

		current, err := h.svc.ForgotPassword(overlay.ID)
		require.NoError(t, err)
		require.Equal(t, "Email not registered", current.Error)
		require.Equal(t, "pony@myponyasia.com", current.Email)
		require.False(t, current.Disabled)
	})

	t.Run("invalid email never reaches the network", func(t *testing.T) {
		h := newHarness(time.Second)
		defer h.screens.Close()

		signin := openScreen(t, h, core.RouteSignIn, core.NavigationQuery{Redirect: "signup"})
		overlay, err := h.svc.OpenForgotPassword(context.Background(), signin.ID, "")
		require.NoError(t, err)

		_, err = h.svc.SubmitForgotPassword(context.Background(), overlay.ID, "pony")
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, core.FieldEmail, verr.Focus())
		require.Empty(t, h.provider.Calls())
	})

	t.Run("only sign-in screens open the overlay", func(t *testing.T) {
		h := newHarness(time.Second)
		defer h.screens.Close()

		signup := openScreen(t, h, core.RouteSignUp, core.NavigationQuery{Redirect: "signin"})
		_, err := h.svc.OpenForgotPassword(context.Background(), signup.ID, "")
		require.ErrorIs(t, err, core.ErrScreenNotFound)
	})

	t.Run("closing the sign-in screen closes the overlay", func(t *testing.T) {
		h := newHarness(time.Second)
		defer h.screens.Close()

		signin := openScreen(t, h, core.RouteSignIn, core.NavigationQuery{Redirect: "signup"})
		overlay, err := h.svc.OpenForgotPassword(context.Background(), signin.ID, "")
		require.NoError(t, err)
		require.Equal(t, 2, h.screens.Len())

		require.NoError(t, h.svc.CloseScreen(signin.ID))
		require.Zero(t, h.screens.Len())

		_, err = h.svc.SubmitForgotPassword(context.Background(), overlay.ID, "pony@myponyasia.com")
		require.ErrorIs(t, err, core.ErrScreenNotFound)
	})
}
