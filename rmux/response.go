package rmux

import (
	"net/http"
	"net/textproto"
	"sync/atomic"

	"golang.org/x/net/http/httpguts"
)

const (
	acceptEncodingHeader     = "Accept-Encoding"
	contentDispositionHeader = "Content-Disposition"
	contentEncodingHeader    = "Content-Encoding"
	contentTypeHeader        = "Content-Type"
	cspHeader                = "Content-Security-Policy"
	etagHeader               = "ETag"
	ifNoneMatchHeader        = "If-None-Match"
	locationHeader           = "Location"
	requestIDHeader          = "X-Request-Id"
	setCookieHeader          = "Set-Cookie"

	contentTypeCSS         = "text/css; charset=utf-8"
	contentTypeHTML        = "text/html; charset=utf-8"
	contentTypeJSON        = "application/json"
	contentTypeJavaScript  = "application/javascript; charset=utf-8"
	contentTypeOctetStream = "application/octet-stream"
	contentTypePlainText   = "text/plain; charset=utf-8"

	gzipEncoding = "gzip"
)

// Response is the interface for an HTTP response.
type Response interface {
	Header(string) string
	Internal() http.ResponseWriter
	RemoveHeader(string)
	SetContentType(string) error
	SetHeader(string, string) error
	SetHeaderIfAbsent(string, string) error
}

// response represents the HTTP response used in the given context.
// Status, headers, cookies and body are buffered until the response
// is transmitted to the client in a single write.
type response struct {
	inner        http.ResponseWriter
	transport    Transport
	stdTransport httpTransport
	header       http.Header
	cookies      []Cookie
	body         []byte
	sealer       *cookieSealer
	implicitEnd  bool
	state        atomic.Int32
	released     atomic.Bool
}

// Internal returns the underlying http.ResponseWriter.
// This method should be avoided unless absolutely necessary
// because it bypasses the buffered response and its
// single-transmission guarantee.
func (res *response) Internal() http.ResponseWriter {
	return res.inner
}

// Header returns the buffered header value for the given name.
// Header names are compared case-insensitively.
func (res *response) Header(name string) string {
	return res.header.Get(name)
}

// SetHeader overwrites the header with the given name.
// Invalid header characters leave the response untouched
// and are signalled by ErrInvalidHeader.
func (res *response) SetHeader(name string, value string) error {
	if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
		return ErrInvalidHeader
	}

	res.header.Set(name, value)
	return nil
}

// SetHeaderIfAbsent sets the header only when no value is present yet.
func (res *response) SetHeaderIfAbsent(name string, value string) error {
	if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
		return ErrInvalidHeader
	}

	if _, exists := res.header[textproto.CanonicalMIMEHeaderKey(name)]; exists {
		return nil
	}

	res.header.Set(name, value)
	return nil
}

// RemoveHeader deletes the header with the given name.
// Removing an absent header is a no-op.
func (res *response) RemoveHeader(name string) {
	res.header.Del(name)
}

// SetContentType sets the Content-Type header to the given MIME type.
func (res *response) SetContentType(mimeType string) error {
	return res.SetHeader(contentTypeHeader, mimeType)
}
