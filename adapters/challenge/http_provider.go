package challenge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/layer-3/portal/core"
	"github.com/layer-3/portal/ports"
)

// HTTPProvider requests challenge tokens from a remote execute endpoint.
type HTTPProvider struct {
	URL        string
	SiteKey    string
	HTTPClient *http.Client
}

// NewHTTPProvider creates a provider posting to url with the given site key
func NewHTTPProvider(url, siteKey string) ports.ChallengeProvider {
	return &HTTPProvider{
		URL:        url,
		SiteKey:    siteKey,
		HTTPClient: http.DefaultClient,
	}
}

type executeResponse struct {
	Token string `json:"token"`
	Error string `json:"error"`
}

// Execute obtains a fresh token bound to action. The caller bounds the call
// through ctx.
func (p *HTTPProvider) Execute(ctx context.Context, action core.ChallengeAction) (string, error) {
	form := url.Values{
		"action":  {string(action)},
		"sitekey": {p.SiteKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &core.ChallengeError{Action: action, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		// Leave context errors unwrapped so the gate can classify timeouts
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &core.ChallengeError{Action: action, Err: err}
	}
	defer resp.Body.Close()

	var body executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &core.ChallengeError{Action: action, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK || body.Token == "" {
		return "", &core.ChallengeError{
			Action:  action,
			Message: core.ChallengeNotValidMessage,
			Err:     fmt.Errorf("challenge service returned %d: %s", resp.StatusCode, body.Error),
		}
	}

	return body.Token, nil
}
