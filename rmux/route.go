package rmux

import (
	"errors"
	"fmt"
	"net/http"
)

type matcher interface {
	Match(*http.Request, *RouteMatch) bool
}

// RouteMatch stores information about a matched route.
type RouteMatch struct {
	Route   *Route
	Handler Handler
	Vars    map[string]string

	// MatchErr is set to the appropriate matching error.
	MatchErr error
}

// routeConf holds the configuration shared between Router and Route.
type routeConf struct {
	// If true, "/path/foo%2Fbar/to" will match the path "/path/{var}/to"
	useEncodedPath bool

	// If true, when the path pattern is "/path/", accessing "/path" will
	// match the former.
	strictSlash bool

	// Manager for the variables from host and path.
	regexp routeRegexpGroup

	// List of matchers.
	matchers []matcher

	// The scheme used when building URLs.
	buildScheme string
}

// Route stores information to match a request and build URLs.
type Route struct {
	// Request handler for the route.
	handler Handler
	// The name used to build URLs.
	name string
	// Error resulted from building a route.
	err error

	// "global" reference to all named routes
	namedRoutes map[string]*Route

	// config possibly passed in from `Router`
	routeConf
}

// Name sets the name for the route, used when building URLs.
func (r *Route) Name(name string) *Route {
	if r.name != "" {
		r.err = fmt.Errorf("route already has name %q, can't set %q", r.name, name)
	}

	if r.err == nil {
		r.name = name
		r.namedRoutes[name] = r
	}

	return r
}

// Host adds a matcher for the URL host template.
func (r *Route) Host(tpl string) *Route {
	rr, err := newRouteRegexp(tpl, regexpTypeHost, routeRegexpOptions{})

	if err != nil {
		r.err = err
		return r
	}

	r.regexp.host = rr
	r.matchers = append(r.matchers, rr)
	return r
}

// path adds a matcher for the URL path template.
func (r *Route) path(tpl string) error {
	rr, err := newRouteRegexp(tpl, regexpTypePath, routeRegexpOptions{
		strictSlash:    r.strictSlash,
		useEncodedPath: r.useEncodedPath,
	})

	if err != nil {
		return err
	}

	r.regexp.path = rr
	r.matchers = append(r.matchers, rr)
	return nil
}

// Match matches the route against the request.
func (r *Route) Match(req *http.Request, match *RouteMatch) bool {
	if r.err != nil {
		return false
	}

	for _, m := range r.matchers {
		if matched := m.Match(req, match); !matched {
			return false
		}
	}

	// Yay, we have a match. Let's collect some info about it.
	if match.Route == nil {
		match.Route = r
	}

	if match.Handler == nil {
		match.Handler = r.handler
	}

	if match.Vars == nil {
		match.Vars = make(map[string]string)
	}

	// Set variables.
	r.regexp.setMatch(req, match, r)
	return true
}

// URL builds the path for the route using the given parameters.
func (r *Route) URL(params map[string]string) (string, error) {
	if r.err != nil {
		return "", r.err
	}

	if r.regexp.path == nil {
		return "", errors.New("route has no path template")
	}

	return r.regexp.path.url(params)
}
