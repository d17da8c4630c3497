package cookie

import (
	"net/http"
	"time"

	"github.com/layer-3/portal/core"
	"github.com/layer-3/portal/ports"
)

// ResponseStore writes cookies onto an HTTP response.
type ResponseStore struct {
	w http.ResponseWriter
}

// NewResponseStore creates a cookie store bound to the response being written.
func NewResponseStore(w http.ResponseWriter) ports.CookieStore {
	return &ResponseStore{w: w}
}

// Put sets key=value with an absolute expiry.
func (s *ResponseStore) Put(key, value string, expires time.Time, attrs core.CookieAttributes) error {
	path := attrs.Path
	if path == "" {
		path = "/"
	}

	http.SetCookie(s.w, &http.Cookie{
		Name:     key,
		Value:    value,
		Path:     path,
		Domain:   attrs.Domain,
		Expires:  expires,
		Secure:   attrs.Secure,
		HttpOnly: attrs.HTTPOnly,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
