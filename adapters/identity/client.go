package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/layer-3/portal/core"
	"github.com/layer-3/portal/ports"
)

// Endpoint paths relative to the oauth base path.
const (
	pathSignIn                = "signin"
	pathSignUp                = "signup"
	pathTokenVerify           = "token-verify"
	pathForgotPassword        = "forgot-password"
	pathForgotPasswordConfirm = "forgot-password-confirm"
	pathEmailVerification     = "email-verification"
)

// Client calls the identity service over form-encoded POSTs.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokenizer  ports.Tokenizer
}

// NewClient creates a client for the service rooted at baseURL. A zero
// timeout leaves requests bounded only by the transport defaults.
func NewClient(baseURL string, timeout time.Duration, tokenizer ports.Tokenizer) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/") + "/oauth/",
		HTTPClient: &http.Client{Timeout: timeout},
		Tokenizer:  tokenizer,
	}
}

var _ ports.IdentityService = (*Client)(nil)

// SignIn exchanges credentials for a session.
func (c *Client) SignIn(ctx context.Context, params core.SignInParams, challenge string) (*core.SessionCredential, error) {
	data := url.Values{
		"email":    {params.Email},
		"password": {params.Password},
		"token":    {challenge},
	}

	var env envelope[signInData]
	if err := c.post(ctx, pathSignIn, data, &env); err != nil {
		return nil, err
	}
	return c.credential(env.Data)
}

// SignUp registers a new account and returns its session.
func (c *Client) SignUp(ctx context.Context, params core.SignUpParams, challenge string) (*core.SessionCredential, error) {
	data := url.Values{
		"username":        {params.Username},
		"email":           {params.Email},
		"password":        {params.Password},
		"passwordConfirm": {params.PasswordConfirm},
		"token":           {challenge},
	}

	var env envelope[signInData]
	if err := c.post(ctx, pathSignUp, data, &env); err != nil {
		return nil, err
	}
	return c.credential(env.Data)
}

// VerifyToken checks that a request id and token key pair is still valid.
func (c *Client) VerifyToken(ctx context.Context, params core.RequestParams, challenge string) (*core.Result, error) {
	data := url.Values{
		"action":    {params.Action.Code()},
		"requestId": {params.RequestID},
		"tokenKey":  {params.TokenKey},
		"token":     {challenge},
	}
	return c.result(ctx, pathTokenVerify, data)
}

// ForgotPassword asks the service to mail a reset link.
func (c *Client) ForgotPassword(ctx context.Context, email, challenge string) (*core.Result, error) {
	data := url.Values{
		"email": {email},
		"token": {challenge},
	}
	return c.result(ctx, pathForgotPassword, data)
}

// ForgotPasswordConfirm sets the new password of a reset request.
func (c *Client) ForgotPasswordConfirm(ctx context.Context, params core.PasswordResetParams, challenge string) (*core.Result, error) {
	data := url.Values{
		"requestId":       {params.RequestID},
		"password":        {params.Password},
		"passwordConfirm": {params.PasswordConfirm},
		"tokenKey":        {params.TokenKey},
		"token":           {challenge},
	}
	return c.result(ctx, pathForgotPasswordConfirm, data)
}

// EmailVerification confirms the email address of a verification request.
func (c *Client) EmailVerification(ctx context.Context, params core.RequestParams, challenge string) (*core.Result, error) {
	data := url.Values{
		"requestId": {params.RequestID},
		"tokenKey":  {params.TokenKey},
		"token":     {challenge},
	}
	return c.result(ctx, pathEmailVerification, data)
}

func (c *Client) result(ctx context.Context, path string, data url.Values) (*core.Result, error) {
	var env envelope[json.RawMessage]
	if err := c.post(ctx, path, data, &env); err != nil {
		return nil, err
	}
	return &core.Result{Status: env.Status, Message: env.Message}, nil
}

// post sends data and decodes the envelope into target. Non-2xx responses are
// returned as *core.ServiceError.
func (c *Client) post(ctx context.Context, path string, data url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &core.ServiceError{
			Transport: fmt.Sprintf("Http failure response for %s: 0 Unknown Error", path),
			Err:       err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &core.ServiceError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseErrorResponse(path, resp, body)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return &core.ServiceError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to decode response: %w", err),
		}
	}
	return nil
}

func parseErrorResponse(path string, resp *http.Response, body []byte) error {
	serviceErr := &core.ServiceError{
		StatusCode: resp.StatusCode,
		Transport:  fmt.Sprintf("Http failure response for %s: %s", path, resp.Status),
	}

	var env envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err == nil {
		serviceErr.Server = env.Message
	}
	return serviceErr
}

func (c *Client) credential(data signInData) (*core.SessionCredential, error) {
	if data.AccessToken == "" || data.RefreshToken == "" {
		return nil, &core.ServiceError{Err: errors.New("response carries no session tokens")}
	}

	cred := &core.SessionCredential{
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
	}

	var err error
	if cred.AccessExpiry, err = c.expiry(data.AccessTokenExpired, data.AccessToken); err != nil {
		return nil, fmt.Errorf("access token expiry: %w", err)
	}
	if cred.RefreshExpiry, err = c.expiry(data.RefreshTokenExpired, data.RefreshToken); err != nil {
		return nil, fmt.Errorf("refresh token expiry: %w", err)
	}
	return cred, nil
}

// expiry prefers the explicit timestamp of the envelope and falls back to the
// exp claim of the token.
func (c *Client) expiry(raw, token string) (time.Time, error) {
	if t, ok := parseTime(raw); ok {
		return t, nil
	}
	if c.Tokenizer == nil {
		return time.Time{}, core.ErrInvalidToken
	}
	return c.Tokenizer.ExpiresAt(token)
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

func parseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
