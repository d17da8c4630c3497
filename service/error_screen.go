package service

import (
	"net/url"

	"github.com/layer-3/portal/core"
)

// ErrorScreen renders the error view from its query, falling back to the
// default title and description.
func ErrorScreen(v url.Values) core.ErrorDisplay {
	return core.ErrorFromValues(v)
}
