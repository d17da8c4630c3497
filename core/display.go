package core

import "net/url"

const (
	DefaultErrorTitle = "Something went wrong"
	DefaultErrorDesc  = "We're sorry. We have a problem while showing page, try again later."
)

// ErrorDisplay is the payload of the error screen.
type ErrorDisplay struct {
	Title string `json:"title"`
	Desc  string `json:"desc"`
}

// ErrorFromValues reads title and desc, falling back to the defaults when absent.
func ErrorFromValues(v url.Values) ErrorDisplay {
	d := ErrorDisplay{Title: v.Get(ParamTitle), Desc: v.Get(ParamDesc)}
	if d.Title == "" {
		d.Title = DefaultErrorTitle
	}
	if d.Desc == "" {
		d.Desc = DefaultErrorDesc
	}
	return d
}

// Values encodes the non-empty fields of d.
func (d ErrorDisplay) Values() url.Values {
	v := url.Values{}
	set(v, ParamTitle, d.Title)
	set(v, ParamDesc, d.Desc)
	return v
}

// Errors raised by navigation validation.
var (
	ErrorActionNotFound   = ErrorDisplay{Title: "Bad Request", Desc: "The request action not found"}
	ErrorActionNotValid   = ErrorDisplay{Title: "Bad Request", Desc: "The request action not valid"}
	ErrorRedirectNotFound = ErrorDisplay{Title: "Bad Request", Desc: "The request redirect not found"}
	ErrorRedirectNotValid = ErrorDisplay{Title: "Bad Request", Desc: "The request redirect not valid"}
	ErrorMissingRequests  = ErrorDisplay{Title: "Bad Request", Desc: "Some requests are missing"}
	ErrorPageNotFound     = ErrorDisplay{Title: "Page Not Found", Desc: DefaultErrorDesc}
)
