package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/portal/adapters/cookie"
	"github.com/layer-3/portal/core"
	"github.com/layer-3/portal/internal/logx"
	"github.com/layer-3/portal/service"
)

// AuthHandlers contains HTTP handlers for the account screens
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

// formBody accepts both form-encoded and JSON submissions
type formBody struct {
	Username        string `form:"username" json:"username"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	PasswordConfirm string `form:"passwordConfirm" json:"passwordConfirm"`
}

func (f formBody) values() map[string]string {
	return map[string]string{
		core.FieldUsername:        f.Username,
		core.FieldEmail:           f.Email,
		core.FieldPassword:        f.Password,
		core.FieldPasswordConfirm: f.PasswordConfirm,
	}
}

// Dispatch resolves the entry query into the first screen
func (h *AuthHandlers) Dispatch(c *gin.Context) {
	nav := service.Dispatch(core.QueryFromValues(c.Request.URL.Query()))
	c.Redirect(http.StatusFound, nav.Path())
}

// Health reports liveness
func (h *AuthHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Error renders the error screen
func (h *AuthHandlers) Error(c *gin.Context) {
	c.JSON(http.StatusOK, service.ErrorScreen(c.Request.URL.Query()))
}

// NotFound sends unknown paths to the error screen
func (h *AuthHandlers) NotFound(c *gin.Context) {
	c.Redirect(http.StatusFound, core.NavigateToError(core.ErrorPageNotFound).Path())
}

func (h *AuthHandlers) OpenSignIn(c *gin.Context) {
	h.openScreen(c, core.RouteSignIn)
}

func (h *AuthHandlers) OpenSignUp(c *gin.Context) {
	h.openScreen(c, core.RouteSignUp)
}

func (h *AuthHandlers) openScreen(c *gin.Context, route core.Route) {
	view, err := h.authService.OpenScreen(c.Request.Context(), route, core.QueryFromValues(c.Request.URL.Query()))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Screen returns the view of a sign-in or sign-up screen living under route
func (h *AuthHandlers) Screen(route core.Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := h.screenAt(route, c.Param("id"))
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// screenAt refuses ids of screens opened under another route
func (h *AuthHandlers) screenAt(route core.Route, id string) (*service.AuthView, error) {
	view, err := h.authService.Screen(id)
	if err != nil {
		return nil, err
	}
	if view.Screen != route {
		return nil, core.ErrScreenNotFound
	}
	return view, nil
}

// Submit handles the form of a screen living under route
func (h *AuthHandlers) Submit(route core.Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := h.screenAt(route, c.Param("id")); err != nil {
			h.fail(c, err)
			return
		}
		h.submit(c)
	}
}

func (h *AuthHandlers) submit(c *gin.Context) {
	var body formBody
	if err := c.ShouldBind(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	dest, err := h.authService.Submit(c.Request.Context(), c.Param("id"), body.values(), cookie.NewResponseStore(c.Writer))
	if err != nil {
		h.fail(c, err)
		return
	}

	if dest.Navigation != nil {
		c.JSON(http.StatusOK, gin.H{"navigate": dest.Navigation.Path()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"redirect_url": dest.URL,
		"delay_ms":     dest.Delay.Milliseconds(),
	})
}

// GoToSignUp leaves a sign-in screen for sign-up
func (h *AuthHandlers) GoToSignUp(c *gin.Context) {
	h.navigate(c, h.authService.GoToSignUp)
}

// GoToSignIn leaves a sign-up screen for sign-in
func (h *AuthHandlers) GoToSignIn(c *gin.Context) {
	h.navigate(c, h.authService.GoToSignIn)
}

func (h *AuthHandlers) navigate(c *gin.Context, fn func(id string) (core.Navigation, error)) {
	nav, err := fn(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, nav.Path())
}

// OpenForgotPassword opens the overlay on a sign-in screen
func (h *AuthHandlers) OpenForgotPassword(c *gin.Context) {
	var body formBody
	if err := c.ShouldBind(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// The sign-in form names its email field username
	email := body.Email
	if email == "" {
		email = body.Username
	}

	view, err := h.authService.OpenForgotPassword(c.Request.Context(), c.Param("id"), email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// ForgotPassword returns the view of an overlay
func (h *AuthHandlers) ForgotPassword(c *gin.Context) {
	view, err := h.authService.ForgotPassword(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitForgotPassword requests a reset link
func (h *AuthHandlers) SubmitForgotPassword(c *gin.Context) {
	var body formBody
	if err := c.ShouldBind(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.authService.SubmitForgotPassword(c.Request.Context(), c.Param("id"), body.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// OpenRequest opens the request wizard and starts verification
func (h *AuthHandlers) OpenRequest(c *gin.Context) {
	view, err := h.authService.OpenRequest(c.Request.Context(), core.QueryFromValues(c.Request.URL.Query()))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, view)
}

// Request returns the wizard state
func (h *AuthHandlers) Request(c *gin.Context) {
	view, err := h.authService.Request(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitRequest sets the new password of a reset request
func (h *AuthHandlers) SubmitRequest(c *gin.Context) {
	var body formBody
	if err := c.ShouldBind(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	view, err := h.authService.SubmitRequest(c.Request.Context(), c.Param("id"), body.values())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// CloseScreen tears a screen down
func (h *AuthHandlers) CloseScreen(c *gin.Context) {
	if err := h.authService.CloseScreen(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// fail maps service errors to responses
func (h *AuthHandlers) fail(c *gin.Context, err error) {
	var (
		redirect     *service.Redirect
		validation   *core.ValidationError
		challengeErr *core.ChallengeError
		serviceErr   *core.ServiceError
	)

	switch {
	case errors.As(err, &redirect):
		c.Redirect(http.StatusFound, redirect.To.Path())
	case errors.Is(err, service.ErrInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "Request already in progress"})
	case errors.Is(err, core.ErrRequestComplete):
		c.JSON(http.StatusConflict, gin.H{"error": "Request already complete"})
	case errors.Is(err, core.ErrInvalidStep):
		c.JSON(http.StatusConflict, gin.H{"error": "Request is not waiting for input"})
	case errors.Is(err, core.ErrScreenNotFound), errors.Is(err, service.ErrScopeClosed):
		c.JSON(http.StatusNotFound, gin.H{"error": "Screen not found"})
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "Invalid form",
			"focus":  validation.Focus(),
			"fields": validation.Fields,
		})
	case errors.Is(err, core.ErrChallengeTimeout), errors.As(err, &challengeErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": core.PrimaryMessage(err)})
	case errors.As(err, &serviceErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": core.PrimaryMessage(err)})
	default:
		logx.FromContext(c.Request.Context()).Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": core.GenericErrorMessage})
	}
}
