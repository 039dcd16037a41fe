package rmux

import (
	"fmt"
	"net/http"
	"path"
)

// Router stores the registered routes of an application,
// bucketed by HTTP method, and resolves named routes to URLs.
type Router struct {
	// Routes to be matched, in order, per HTTP method.
	routes map[string][]*Route

	// Routes by name for URL building.
	namedRoutes map[string]*Route

	// configuration shared with `Route`
	routeConf
}

// Add registers a new handler for the given method and path.
func (router *Router) Add(method string, path string, handler Handler) *Route {
	if router.routes == nil {
		router.routes = make(map[string][]*Route)
	}

	if router.namedRoutes == nil {
		router.namedRoutes = make(map[string]*Route)
	}

	route := &Route{
		handler:     handler,
		namedRoutes: router.namedRoutes,
		routeConf:   router.routeConf,
	}

	if err := route.path(path); err != nil {
		route.err = err
	}

	router.routes[method] = append(router.routes[method], route)
	return route
}

// Lookup finds the handler and parameters for the given request
// and assigns them to the given context.
func (router *Router) Lookup(req *http.Request, ctx *context) {
	var match RouteMatch

	for _, route := range router.routes[req.Method] {
		if route.Match(req, &match) {
			ctx.handler = match.Handler

			for name, value := range match.Vars {
				ctx.addParameter(name, value)
			}

			return
		}
	}
}

// allowsOtherMethod reports whether a route of a different method
// matches the request path, distinguishing 405 from 404 responses.
func (router *Router) allowsOtherMethod(req *http.Request) bool {
	for method, routes := range router.routes {
		if method == req.Method {
			continue
		}

		var match RouteMatch

		for _, route := range routes {
			if route.Match(req, &match) {
				return true
			}
		}
	}

	return false
}

// URL resolves the URL of a named route from the given parameters.
// A non-empty domain prefixes the path with scheme and host.
func (router *Router) URL(name string, params map[string]string, domain string) (string, error) {
	route, exists := router.namedRoutes[name]

	if !exists {
		return "", fmt.Errorf("%w: %s", ErrRouteNotFound, name)
	}

	target, err := route.URL(params)

	if err != nil {
		return "", err
	}

	if domain == "" {
		return target, nil
	}

	scheme := route.buildScheme

	if scheme == "" {
		scheme = "https"
	}

	return scheme + "://" + domain + target, nil
}

// cleanPath returns the canonical path for p, eliminating . and .. elements.
// Borrowed from the net/http package.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}

	if p[0] != '/' {
		p = "/" + p
	}

	np := path.Clean(p)

	// path.Clean removes trailing slash except for root;
	// put the trailing slash back if necessary.
	if p[len(p)-1] == '/' && np != "/" {
		np += "/"
	}

	return np
}
