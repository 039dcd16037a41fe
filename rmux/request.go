package rmux

import (
	stdContext "context"
	"net/http"
)

// Request is an interface for HTTP requests.
type Request interface {
	Context() stdContext.Context
	Header(string) string
	Host() string
	Internal() *http.Request
	Method() string
	Path() string
	Query(param string) string
	RawQuery() string
}

// request represents the HTTP request used in the given context.
type request struct {
	inner *http.Request
}

// Context returns the request context.
func (req *request) Context() stdContext.Context {
	return req.inner.Context()
}

// Header returns the header value for the given key.
func (req *request) Header(key string) string {
	return req.inner.Header.Get(key)
}

// Host returns the requested host.
func (req *request) Host() string {
	return req.inner.Host
}

// Internal returns the underlying http.Request.
func (req *request) Internal() *http.Request {
	return req.inner
}

// Method returns the request method.
func (req *request) Method() string {
	return req.inner.Method
}

// Path returns the requested path.
func (req *request) Path() string {
	return req.inner.URL.Path
}

// Query returns the value of the given query parameter.
func (req *request) Query(param string) string {
	return req.inner.URL.Query().Get(param)
}

// RawQuery returns the unparsed query string, without the leading question mark.
func (req *request) RawQuery() string {
	return req.inner.URL.RawQuery
}
