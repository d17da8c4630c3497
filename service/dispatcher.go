package service

import "github.com/layer-3/portal/core"

// dispatchRule is one row of the entry dispatcher table. Rules are evaluated
// in order and the first match decides the destination.
type dispatchRule struct {
	name   string
	match  func(q core.NavigationQuery) bool
	target func(q core.NavigationQuery) core.Navigation
}

func toError(d core.ErrorDisplay) func(core.NavigationQuery) core.Navigation {
	return func(core.NavigationQuery) core.Navigation {
		return core.NavigateToError(d)
	}
}

var dispatchRules = []dispatchRule{
	{
		name:   "action missing",
		match:  func(q core.NavigationQuery) bool { return q.Action == "" },
		target: toError(core.ErrorActionNotFound),
	},
	{
		name:   "action not valid",
		match:  func(q core.NavigationQuery) bool { return !q.Action.Valid() },
		target: toError(core.ErrorActionNotValid),
	},
	{
		name:   "screen without redirect",
		match:  func(q core.NavigationQuery) bool { return !q.Action.IsRequest() && q.Redirect == "" },
		target: toError(core.ErrorRedirectNotFound),
	},
	{
		name:  "screen",
		match: func(q core.NavigationQuery) bool { return !q.Action.IsRequest() },
		target: func(q core.NavigationQuery) core.Navigation {
			return core.NavigateTo(core.Route(q.Action), q.Forward())
		},
	},
	{
		name:   "request incomplete",
		match:  func(q core.NavigationQuery) bool { return q.Token == "" || q.Request == "" },
		target: toError(core.ErrorMissingRequests),
	},
	{
		name:  "request",
		match: func(core.NavigationQuery) bool { return true },
		target: func(q core.NavigationQuery) core.Navigation {
			return core.NavigateTo(core.RouteRequest, q)
		},
	},
}

// Dispatch resolves the entry query into the first screen to show.
func Dispatch(q core.NavigationQuery) core.Navigation {
	for _, rule := range dispatchRules {
		if rule.match(q) {
			return rule.target(q)
		}
	}
	return core.NavigateToError(core.ErrorDisplay{})
}

// CheckScreenQuery re-validates the query of a sign-in or sign-up screen.
// The screens only require a redirect; the action was consumed by Dispatch.
func CheckScreenQuery(q core.NavigationQuery) (core.ErrorDisplay, bool) {
	if q.Redirect == "" {
		return core.ErrorRedirectNotFound, false
	}
	return core.ErrorDisplay{}, true
}

// CheckRequestQuery re-validates the query of the request wizard.
func CheckRequestQuery(q core.NavigationQuery) (core.ErrorDisplay, bool) {
	if q.Action == "" || q.Token == "" || q.Request == "" {
		return core.ErrorMissingRequests, false
	}
	if !q.Action.IsRequest() {
		return core.ErrorActionNotValid, false
	}
	return core.ErrorDisplay{}, true
}
