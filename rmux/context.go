package rmux

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aerogo/session"
	"github.com/akyoto/stringutils/unsafe"
)

const (
	// gzipThreshold should be close to the MTU size of a TCP packet.
	// Regarding performance it makes no sense to compress smaller files.
	// Bandwidth can be saved however the savings are minimal for small files
	// and the overhead of compressing can lead up to a 75% reduction
	// in server speed under high load. Therefore in this case
	// we're trying to optimize for performance, not bandwidth.
	gzipThreshold = 1450

	// maxParams defines the maximum number of parameters per route.
	maxParams = 16

	// sessionCookieName is the name of the cookie that stores the session ID.
	sessionCookieName = "sid"
)

// Handler is a function that deals with the given request/response context.
type Handler func(Context) error

// Context represents the interface for a request & response context.
type Context interface {
	App() *Application
	Attachment(path string, displayName ...string) error
	Bytes([]byte) error
	ClearCookie(name string)
	Close()
	Cookie(name string) (string, error)
	CSS(string) error
	Download(path string) error
	Error(int, ...interface{}) error
	Get(string) string
	GetInt(string) (int, error)
	HasSession() bool
	HTML(string) error
	IP() string
	JavaScript(string) error
	JSON(interface{}) error
	Macro(name string, args ...interface{}) error
	Path() string
	Query(param string) string
	Reader(io.Reader) error
	Redirect(status int, url string) error
	RedirectWithQuery(status int, url string) error
	RedirectToRoute(status int, name string, params map[string]string) error
	RedirectToRouteDomain(status int, name string, domain string, params map[string]string, carryParams bool) error
	RemoteIP() string
	Request() Request
	Response() Response
	Send() error
	Session() *session.Session
	SetCookie(name string, value string, options ...CookieOption) error
	SetImplicitEnd(bool)
	SetStatus(int)
	Status() int
	String(string) error
	Text(string) error
}

// RewriteContext is the interface for the URL rewrite ability.
type RewriteContext interface {
	Path() string
	SetPath(string)
}

// context represents a request & response context.
type context struct {
	app         *Application
	status      int
	request     request
	response    response
	session     *session.Session
	handler     Handler
	macros      map[string]Macro
	paramNames  [maxParams]string
	paramValues [maxParams]string
	paramCount  int
}

// addParameter adds a new parameter to the context.
func (ctx *context) addParameter(name string, value string) {
	if ctx.paramCount == maxParams {
		return
	}

	ctx.paramNames[ctx.paramCount] = name
	ctx.paramValues[ctx.paramCount] = value
	ctx.paramCount++
}

// App returns the application the context belongs to.
func (ctx *context) App() *Application {
	return ctx.app
}

// Request returns the HTTP request.
func (ctx *context) Request() Request {
	return &ctx.request
}

// Response returns the HTTP response.
func (ctx *context) Response() Response {
	return &ctx.response
}

// Get returns the value of the parameter with the given name.
func (ctx *context) Get(name string) string {
	for index := 0; index < ctx.paramCount; index++ {
		if ctx.paramNames[index] == name {
			return ctx.paramValues[index]
		}
	}

	return ""
}

// GetInt returns the value of the parameter with the given name as an integer.
func (ctx *context) GetInt(name string) (int, error) {
	return strconv.Atoi(ctx.Get(name))
}

// Path returns the requested path.
func (ctx *context) Path() string {
	return ctx.request.inner.URL.Path
}

// SetPath sets the requested path.
func (ctx *context) SetPath(path string) {
	ctx.request.inner.URL.Path = path
}

// Query returns the value of the given query parameter.
func (ctx *context) Query(param string) string {
	return ctx.request.inner.URL.Query().Get(param)
}

// SetStatus sets the HTTP status of the response.
func (ctx *context) SetStatus(status int) {
	ctx.status = status
}

// Status returns the HTTP status of the response.
func (ctx *context) Status() int {
	return ctx.status
}

// Bytes sets the response body. When the response has been deferred,
// the call also performs the transmission.
func (ctx *context) Bytes(body []byte) error {
	res := &ctx.response

	if res.implicitEnd {
		res.body = body
		return nil
	}

	// With implicit end disabled this call is the completion, no
	// matter whether the handler already returned. Only the winner
	// of the sent transition may touch the buffered response.
	if !res.claim() {
		return ErrAlreadySent
	}

	res.body = body
	err := ctx.write()
	ctx.release()
	return err
}

// String sets the response body to the given string.
func (ctx *context) String(body string) error {
	return ctx.Bytes(unsafe.StringToBytes(body))
}

// Text sets the response body to the given string as plain text.
func (ctx *context) Text(body string) error {
	if err := ctx.response.SetContentType(contentTypePlainText); err != nil {
		return err
	}

	return ctx.String(body)
}

// HTML sets the response body to the given HTML string.
func (ctx *context) HTML(body string) error {
	if err := ctx.response.SetContentType(contentTypeHTML); err != nil {
		return err
	}

	return ctx.String(body)
}

// CSS sets the response body to the given CSS string.
func (ctx *context) CSS(body string) error {
	if err := ctx.response.SetContentType(contentTypeCSS); err != nil {
		return err
	}

	return ctx.String(body)
}

// JavaScript sets the response body to the given JavaScript string.
func (ctx *context) JavaScript(body string) error {
	if err := ctx.response.SetContentType(contentTypeJavaScript); err != nil {
		return err
	}

	return ctx.String(body)
}

// JSON serializes the given value and sets it as the response body.
// The Content-Type is forced to application/json.
func (ctx *context) JSON(value interface{}) error {
	body, err := json.Marshal(value)

	if err != nil {
		return err
	}

	if err := ctx.response.SetContentType(contentTypeJSON); err != nil {
		return err
	}

	return ctx.Bytes(body)
}

// Reader reads the whole stream and sets it as the response body.
func (ctx *context) Reader(reader io.Reader) error {
	data, err := io.ReadAll(reader)

	if err != nil {
		return err
	}

	return ctx.Bytes(data)
}

// Error sets the status and returns an error built from the given messages.
func (ctx *context) Error(statusCode int, messages ...interface{}) error {
	ctx.SetStatus(statusCode)

	if len(messages) == 0 {
		return errors.New(http.StatusText(statusCode))
	}

	text := strings.Builder{}

	for index, message := range messages {
		if index != 0 {
			text.WriteString(": ")
		}

		switch value := message.(type) {
		case string:
			text.WriteString(value)
		case error:
			text.WriteString(value.Error())
		default:
			fmt.Fprint(&text, value)
		}
	}

	return errors.New(text.String())
}

// SetCookie buffers a cookie for the response.
func (ctx *context) SetCookie(name string, value string, options ...CookieOption) error {
	return ctx.response.SetCookie(name, value, options...)
}

// ClearCookie instructs the client to delete the named cookie.
func (ctx *context) ClearCookie(name string) {
	ctx.response.ClearCookie(name)
}

// Cookie returns the value of the named request cookie.
// Sealed values are opened transparently, plain values
// are returned as they came in.
func (ctx *context) Cookie(name string) (string, error) {
	cookie, err := ctx.request.inner.Cookie(name)

	if err != nil {
		return "", err
	}

	if opened, err := ctx.app.sealer.Open(cookie.Value); err == nil {
		return opened, nil
	}

	return cookie.Value, nil
}

// RemoteIP returns the remote IP without the port number.
func (ctx *context) RemoteIP() string {
	remoteIP := ctx.request.inner.RemoteAddr
	index := strings.LastIndex(remoteIP, ":")

	if index == -1 {
		return remoteIP
	}

	return remoteIP[:index]
}

// IP tries to determine the real IP address of the client.
func (ctx *context) IP() string {
	ip := ctx.request.Header("X-Real-Ip")

	if ip != "" {
		return ip
	}

	ip = ctx.request.Header("X-Forwarded-For")

	if ip != "" {
		return ip
	}

	return ctx.RemoteIP()
}

// HasSession indicates whether the client has a valid session or not.
func (ctx *context) HasSession() bool {
	if ctx.session != nil {
		return true
	}

	cookie, err := ctx.request.inner.Cookie(sessionCookieName)

	if err != nil || !session.IsValidID(cookie.Value) {
		return false
	}

	ctx.session, err = ctx.app.Sessions.Store.Get(cookie.Value)

	if err != nil || ctx.session == nil {
		return false
	}

	return true
}

// Session returns the session of the context or creates and caches a new session.
func (ctx *context) Session() *session.Session {
	if ctx.session != nil {
		return ctx.session
	}

	cookie, err := ctx.request.inner.Cookie(sessionCookieName)

	if err == nil && session.IsValidID(cookie.Value) {
		ctx.session, err = ctx.app.Sessions.Store.Get(cookie.Value)

		if err == nil && ctx.session != nil {
			return ctx.session
		}
	}

	ctx.session = ctx.app.Sessions.New()
	ctx.createSessionCookie()
	return ctx.session
}

// createSessionCookie buffers the session ID cookie for the client.
func (ctx *context) createSessionCookie() {
	_ = ctx.SetCookie(sessionCookieName, ctx.session.ID(), Plain(), WithHTTPOnly())
}

// Close frees the context and returns it to the pool.
func (ctx *context) Close() {
	ctx.app.contextPool.Put(ctx)
}
