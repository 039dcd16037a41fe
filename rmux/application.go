package rmux

import (
	"compress/gzip"
	stdContext "context"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aerogo/csp"
	"github.com/aerogo/session"
	"github.com/akyoto/color"
	"go.uber.org/zap"
)

// Application represents a single web service.
type Application struct {
	Config                *Configuration
	Sessions              session.Manager
	ContentSecurityPolicy *csp.ContentSecurityPolicy
	Logger                *zap.Logger

	router         Router
	rewrite        []func(RewriteContext)
	middleware     []Middleware
	macros         atomic.Value
	macrosMutex    sync.Mutex
	onStart        []func()
	onShutdown     []func()
	onError        []func(Context, error)
	stop           chan os.Signal
	sealer         *cookieSealer
	fileOpener     FileOpener
	contextPool    sync.Pool
	gzipWriterPool sync.Pool
	serversMutex   sync.Mutex
	servers        [2]*http.Server
}

// New creates a new application.
func New() *Application {
	app := &Application{
		Config:     defaultConfiguration(),
		Logger:     zap.NewNop(),
		fileOpener: osFileOpener{},
		stop:       make(chan os.Signal, 1),
	}

	key := make([]byte, 32)

	if _, err := rand.Read(key); err != nil {
		panic(err)
	}

	app.sealer, _ = newCookieSealer(key)

	// Context pool
	app.contextPool.New = func() interface{} {
		return &context{
			app: app,
		}
	}

	return app
}

// SetSecret sets the key used to seal cookie values.
// The key length must be 16, 24 or 32 bytes.
func (app *Application) SetSecret(key []byte) error {
	sealer, err := newCookieSealer(key)

	if err != nil {
		return err
	}

	app.sealer = sealer
	return nil
}

// SetFileOpener replaces the collaborator used to stream files.
func (app *Application) SetFileOpener(opener FileOpener) {
	app.fileOpener = opener
}

// Router returns the router used by the application.
func (app *Application) Router() *Router {
	return &app.router
}

// Handle registers the handler for the given method and path.
func (app *Application) Handle(method string, path string, handler Handler) *Route {
	return app.router.Add(method, path, handler)
}

// Get registers your function to be called when the given GET path has been requested.
func (app *Application) Get(path string, handler Handler) *Route {
	return app.Handle(http.MethodGet, path, handler)
}

// Post registers your function to be called when the given POST path has been requested.
func (app *Application) Post(path string, handler Handler) *Route {
	return app.Handle(http.MethodPost, path, handler)
}

// Put registers your function to be called when the given PUT path has been requested.
func (app *Application) Put(path string, handler Handler) *Route {
	return app.Handle(http.MethodPut, path, handler)
}

// Delete registers your function to be called when the given DELETE path has been requested.
func (app *Application) Delete(path string, handler Handler) *Route {
	return app.Handle(http.MethodDelete, path, handler)
}

// Rewrite adds a URL rewrite hook that runs before routing.
func (app *Application) Rewrite(rewrite func(RewriteContext)) {
	app.rewrite = append(app.rewrite, rewrite)
}

// NewContext returns a context from the pool, reset for the given
// request and response.
func (app *Application) NewContext(req *http.Request, res http.ResponseWriter) *context {
	ctx := app.contextPool.Get().(*context)
	ctx.status = 0
	ctx.session = nil
	ctx.handler = nil
	ctx.paramCount = 0
	ctx.macros, _ = app.macros.Load().(map[string]Macro)
	ctx.request.inner = req

	response := &ctx.response
	response.inner = res
	response.stdTransport.inner = res
	response.transport = &response.stdTransport
	response.body = nil
	response.cookies = response.cookies[:0]
	response.implicitEnd = true
	response.sealer = app.sealer
	response.state.Store(statePending)
	response.released.Store(false)

	if response.header == nil {
		response.header = make(http.Header)
	} else {
		clear(response.header)
	}

	if app.ContentSecurityPolicy != nil {
		response.header.Set(cspHeader, app.ContentSecurityPolicy.String())
	}

	return ctx
}

// ServeHTTP responds to the given request.
func (app *Application) ServeHTTP(response http.ResponseWriter, request *http.Request) {
	if cleaned := cleanPath(request.URL.Path); cleaned != request.URL.Path {
		url := *request.URL
		url.Path = cleaned
		response.Header().Set(locationHeader, url.String())
		response.WriteHeader(http.StatusMovedPermanently)
		return
	}

	ctx := app.NewContext(request, response)

	for _, rewrite := range app.rewrite {
		rewrite(ctx)
	}

	app.router.Lookup(request, ctx)

	if ctx.handler == nil {
		if app.router.allowsOtherMethod(request) {
			ctx.status = http.StatusMethodNotAllowed
		} else {
			ctx.status = http.StatusNotFound
		}

		_ = ctx.transmit()
		ctx.Close()
		return
	}

	err := app.bind(ctx.handler)(ctx)

	if err != nil {
		app.handleError(ctx, err)

		if ctx.response.implicitEnd {
			ctx.Close()
		}

		// With a deferral outstanding the context is never recycled,
		// so a late completion cannot reach another request.
		return
	}

	if err := ctx.finalize(); err != nil {
		app.Logger.Error("response transmission failed", zap.Error(err))
	}

	ctx.release()
}

// handleError runs the error callbacks and transmits an error
// response if nothing has been sent yet.
func (app *Application) handleError(ctx *context, err error) {
	for _, callback := range app.onError {
		callback(ctx, err)
	}

	app.Logger.Error("handler failed",
		zap.String("path", ctx.Path()),
		zap.Error(err))

	res := &ctx.response

	// Only the winner of the sent transition may touch the buffered
	// response. A handler that already transmitted keeps its response.
	if !res.claim() {
		return
	}

	if ctx.status < http.StatusBadRequest {
		ctx.status = http.StatusInternalServerError
	}

	res.header.Set(contentTypeHeader, contentTypePlainText)
	res.body = []byte(err.Error())

	txErr := ctx.write()

	if !res.implicitEnd {
		ctx.release()
	}

	if txErr != nil {
		app.Logger.Error("error response transmission failed", zap.Error(txErr))
	}
}

// acquireGZipWriter will return a clean gzip writer from the pool.
func (app *Application) acquireGZipWriter(response io.Writer) *gzip.Writer {
	var writer *gzip.Writer
	obj := app.gzipWriterPool.Get()

	if obj == nil {
		writer, _ = gzip.NewWriterLevel(response, gzip.BestCompression)
		return writer
	}

	writer = obj.(*gzip.Writer)
	writer.Reset(response)
	return writer
}

// Run starts your application.
func (app *Application) Run() {
	app.ListenAndServe()

	for _, callback := range app.onStart {
		callback()
	}

	app.wait()
	app.Shutdown()
}

// ListenAndServe starts the server.
// It guarantees that a TCP listener is listening on the port defined
// in the config when the function returns.
func (app *Application) ListenAndServe() {
	port := app.Config.Ports.HTTP
	listener := app.listen(":" + strconv.Itoa(port))
	go app.serveHTTP(listener)
	fmt.Println("Server running on:", color.GreenString("http://localhost:"+strconv.Itoa(port)))
}

// wait will make the process wait until it is killed.
func (app *Application) wait() {
	signal.Notify(app.stop, os.Interrupt, syscall.SIGTERM)
	<-app.stop
}

// Shutdown will gracefully shut down all servers.
func (app *Application) Shutdown() {
	app.serversMutex.Lock()
	defer app.serversMutex.Unlock()

	shutdown(app.servers[0])
	shutdown(app.servers[1])

	for _, callback := range app.onShutdown {
		callback()
	}
}

// OnStart registers a callback to be executed on server start.
func (app *Application) OnStart(callback func()) {
	app.onStart = append(app.onStart, callback)
}

// OnEnd registers a callback to be executed on server shutdown.
func (app *Application) OnEnd(callback func()) {
	app.onShutdown = append(app.onShutdown, callback)
}

// OnError registers a callback to be executed when a handler returns an error.
func (app *Application) OnError(callback func(Context, error)) {
	app.onError = append(app.onError, callback)
}

// listen returns a Listener for the given address.
func (app *Application) listen(address string) Listener {
	listener, err := net.Listen("tcp", address)

	if err != nil {
		panic(err)
	}

	return Listener{listener.(*net.TCPListener)}
}

// serveHTTP serves requests from the given listener.
func (app *Application) serveHTTP(listener Listener) {
	server := app.createServer()

	app.serversMutex.Lock()
	app.servers[0] = server
	app.serversMutex.Unlock()

	// This will block the calling goroutine until the server shuts down.
	// The returned error is never nil and in case of a normal shutdown
	// it will be `http.ErrServerClosed`.
	err := server.Serve(listener)

	if err != http.ErrServerClosed {
		panic(err)
	}
}

// createServer creates an http server instance.
func (app *Application) createServer() *http.Server {
	return &http.Server{
		Handler:           app,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      180 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// shutdown will gracefully shut down the server.
func shutdown(server *http.Server) {
	if server == nil {
		return
	}

	// Add a timeout to the server shutdown
	ctx, cancel := stdContext.WithTimeout(stdContext.Background(), 250*time.Millisecond)
	defer cancel()

	// Shut down server
	err := server.Shutdown(ctx)

	if err != nil {
		fmt.Println(err)
	}
}
