package rmux

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
)

// Transmission states of a response.
const (
	statePending int32 = iota
	stateDeferred
	stateSent
)

// Transport writes the head and the body of a response.
// The finalizer calls WriteHead and WriteBody exactly once each
// per response.
type Transport interface {
	WriteHead(status int, header http.Header) error
	WriteBody(body []byte) error
}

// httpTransport adapts an http.ResponseWriter to the Transport interface.
type httpTransport struct {
	inner http.ResponseWriter
}

// WriteHead copies the buffered headers to the connection and
// writes the status line.
func (transport *httpTransport) WriteHead(status int, header http.Header) error {
	destination := transport.inner.Header()

	for name, values := range header {
		destination[name] = values
	}

	transport.inner.WriteHeader(status)
	return nil
}

// WriteBody writes the response body to the connection.
func (transport *httpTransport) WriteBody(body []byte) error {
	if len(body) == 0 {
		return nil
	}

	_, err := transport.inner.Write(body)
	return err
}

// Send transmits the buffered response immediately.
// A second transmission attempt fails with ErrAlreadySent.
func (ctx *context) Send() error {
	return ctx.transmit()
}

// SetImplicitEnd controls whether the response is transmitted
// automatically once the handler returns. Disabling it defers
// transmission to a later Send, Bytes or JSON call, which may
// happen from another goroutine.
func (ctx *context) SetImplicitEnd(implicitEnd bool) {
	ctx.response.implicitEnd = implicitEnd
}

// claim performs the one-shot transition to the sent state.
// It succeeds from both the pending and the deferred state, so a
// completion that fires before the handler returned is treated the
// same as one that fires afterwards.
func (res *response) claim() bool {
	return res.state.CompareAndSwap(statePending, stateSent) ||
		res.state.CompareAndSwap(stateDeferred, stateSent)
}

// release returns the context to the pool. When implicit end is
// disabled, two parties hold the context: the request goroutine and
// the completion that wins the sent transition. Each calls release
// once and only the second call recycles the context, so neither
// side can reach a context that already serves another request.
func (ctx *context) release() {
	if ctx.response.implicitEnd {
		ctx.Close()
		return
	}

	if ctx.response.released.CompareAndSwap(false, true) {
		return
	}

	ctx.Close()
}

// transmit writes status, headers, cookies and body exactly once.
// The compare-and-swap on the response state is the only gate, so
// out-of-order completions from timers or I/O callbacks cannot
// cause a second write.
func (ctx *context) transmit() error {
	res := &ctx.response

	if !res.claim() {
		return ErrAlreadySent
	}

	err := ctx.write()

	if !res.implicitEnd {
		ctx.release()
	}

	return err
}

// write performs the actual transmission. It must only be reached
// through the state transition in transmit.
func (ctx *context) write() error {
	res := &ctx.response
	status := ctx.status

	if status == 0 {
		status = http.StatusOK
	}

	for index := range res.cookies {
		res.header.Add(setCookieHeader, res.cookies[index].render())
	}

	body := res.body

	// ETag handling for successful GET responses.
	if ctx.request.inner != nil && ctx.request.inner.Method == http.MethodGet && status == http.StatusOK && len(body) > 0 {
		etag := ETag(body)
		res.header.Set(etagHeader, etag)

		// 304 responses echo the validator so clients can refresh
		// their cache metadata.
		if ctx.request.Header(ifNoneMatchHeader) == etag {
			if err := res.transport.WriteHead(http.StatusNotModified, res.header); err != nil {
				return err
			}

			return res.transport.WriteBody(nil)
		}
	}

	if ctx.shouldCompress(len(body)) {
		buffer := bytes.Buffer{}
		writer := ctx.app.acquireGZipWriter(&buffer)
		_, err := writer.Write(body)

		if err == nil {
			err = writer.Close()
		}

		ctx.app.gzipWriterPool.Put(writer)

		if err != nil {
			return err
		}

		body = buffer.Bytes()
		res.header.Set(contentEncodingHeader, gzipEncoding)
	}

	if err := res.transport.WriteHead(status, res.header); err != nil {
		return err
	}

	return res.transport.WriteBody(body)
}

// shouldCompress reports whether the body is worth compressing
// and the client accepts gzip.
func (ctx *context) shouldCompress(bodyLength int) bool {
	if bodyLength < gzipThreshold {
		return false
	}

	if ctx.app == nil || ctx.app.Config == nil || !ctx.app.Config.GZip {
		return false
	}

	if ctx.response.header.Get(contentEncodingHeader) != "" {
		return false
	}

	return strings.Contains(ctx.request.Header(acceptEncodingHeader), gzipEncoding)
}

// finalize transmits the response after the handler returned,
// unless implicit end has been disabled, in which case the response
// stays alive until a completion claims the sent transition.
func (ctx *context) finalize() error {
	if !ctx.response.implicitEnd {
		ctx.response.state.CompareAndSwap(statePending, stateDeferred)
		return nil
	}

	err := ctx.transmit()

	if errors.Is(err, ErrAlreadySent) {
		// The handler transmitted explicitly.
		return nil
	}

	return err
}
