package core

import (
	"net/url"
	"strings"
)

// Action is the value of the `action` query parameter.
type Action string

const (
	ActionSignIn            Action = "signin"
	ActionSignUp            Action = "signup"
	ActionResetPassword     Action = "reset-password"
	ActionEmailVerification Action = "email-verification"
)

// Valid reports whether a belongs to the closed set of accepted actions.
func (a Action) Valid() bool {
	switch a {
	case ActionSignIn, ActionSignUp, ActionResetPassword, ActionEmailVerification:
		return true
	}
	return false
}

// IsRequest reports whether a is handled by the request wizard.
func (a Action) IsRequest() bool {
	return a == ActionResetPassword || a == ActionEmailVerification
}

// Code returns the identity service form of the action, e.g. RESET_PASSWORD.
func (a Action) Code() string {
	return strings.ToUpper(strings.Replace(string(a), "-", "_", 1))
}

// Route is a screen of the application.
type Route string

const (
	RouteBase    Route = ""
	RouteSignIn  Route = "signin"
	RouteSignUp  Route = "signup"
	RouteRequest Route = "request"
	RouteError   Route = "error"
)

// Query parameter keys.
const (
	ParamAction   = "action"
	ParamRedirect = "redirect"
	ParamRef      = "ref"
	ParamToken    = "token"
	ParamRequest  = "request"
	ParamTitle    = "title"
	ParamDesc     = "desc"
)

// NavigationQuery is the parameter bag carried between screens. It is a value:
// each navigation builds a new one.
type NavigationQuery struct {
	Action   Action `json:"action,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	Ref      string `json:"ref,omitempty"`
	Token    string `json:"token,omitempty"`
	Request  string `json:"request,omitempty"`
}

// QueryFromValues reads the recognized keys of v. Unknown keys are ignored.
func QueryFromValues(v url.Values) NavigationQuery {
	return NavigationQuery{
		Action:   Action(v.Get(ParamAction)),
		Redirect: v.Get(ParamRedirect),
		Ref:      v.Get(ParamRef),
		Token:    v.Get(ParamToken),
		Request:  v.Get(ParamRequest),
	}
}

// Values encodes the non-empty fields of q.
func (q NavigationQuery) Values() url.Values {
	v := url.Values{}
	set(v, ParamAction, string(q.Action))
	set(v, ParamRedirect, q.Redirect)
	set(v, ParamRef, q.Ref)
	set(v, ParamToken, q.Token)
	set(v, ParamRequest, q.Request)
	return v
}

// Forward keeps only the redirect and ref parameters, as carried between
// the sign-in and sign-up screens.
func (q NavigationQuery) Forward() NavigationQuery {
	return NavigationQuery{Redirect: q.Redirect, Ref: q.Ref}
}

// Navigation is an in-app destination: a route plus its query parameters.
type Navigation struct {
	Route Route
	Query url.Values
}

// NavigateTo builds a navigation to route carrying q.
func NavigateTo(route Route, q NavigationQuery) Navigation {
	return Navigation{Route: route, Query: q.Values()}
}

// NavigateToError builds a navigation to the error screen.
func NavigateToError(d ErrorDisplay) Navigation {
	return Navigation{Route: RouteError, Query: d.Values()}
}

// Path renders the navigation as an absolute path with its query string.
func (n Navigation) Path() string {
	p := "/" + string(n.Route)
	if len(n.Query) == 0 {
		return p
	}
	return p + "?" + n.Query.Encode()
}

func set(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}
