package rmux

import (
	"net/http"
	"strings"
)

// RedirectIntent describes a redirect before it is applied to a response.
// A zero Status means 302 Found.
type RedirectIntent struct {
	Target      string
	CarryParams bool
	Status      int
}

// applyRedirect sets the Location header and the status code
// according to the given intent.
func (ctx *context) applyRedirect(intent RedirectIntent) error {
	status := intent.Status

	if status == 0 {
		status = http.StatusFound
	}

	target := intent.Target

	if intent.CarryParams {
		if query := ctx.request.RawQuery(); query != "" {
			if strings.Contains(target, "?") {
				target += "&" + query
			} else {
				target += "?" + query
			}
		}
	}

	if err := ctx.response.SetHeader(locationHeader, target); err != nil {
		return err
	}

	ctx.SetStatus(status)
	return nil
}

// Redirect redirects to the given URL using the given status code.
func (ctx *context) Redirect(status int, url string) error {
	return ctx.applyRedirect(RedirectIntent{
		Target: url,
		Status: status,
	})
}

// RedirectWithQuery redirects to the given URL and carries the
// current request's query parameters over to the target.
func (ctx *context) RedirectWithQuery(status int, url string) error {
	return ctx.applyRedirect(RedirectIntent{
		Target:      url,
		CarryParams: true,
		Status:      status,
	})
}

// RedirectToRoute redirects to the named route, resolving its URL
// from the given parameters.
func (ctx *context) RedirectToRoute(status int, name string, params map[string]string) error {
	return ctx.RedirectToRouteDomain(status, name, "", params, false)
}

// RedirectToRouteDomain redirects to the named route on the given domain.
func (ctx *context) RedirectToRouteDomain(status int, name string, domain string, params map[string]string, carryParams bool) error {
	target, err := ctx.app.router.URL(name, params, domain)

	if err != nil {
		return err
	}

	return ctx.applyRedirect(RedirectIntent{
		Target:      target,
		CarryParams: carryParams,
		Status:      status,
	})
}
