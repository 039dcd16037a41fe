package rmux

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aerogo/csp"
	"github.com/aerogo/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnError(t *testing.T) {
	app := New()
	handlerErr := errors.New("database is gone")
	var reported error

	app.OnError(func(ctx Context, err error) {
		reported = err
	})

	app.Get("/", func(ctx Context) error {
		return handlerErr
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Equal(t, "database is gone", recorder.Body.String())
	assert.Equal(t, handlerErr, reported)
}

func TestErrorKeepsExplicitStatus(t *testing.T) {
	app := New()

	app.Get("/", func(ctx Context) error {
		return ctx.Error(http.StatusNotFound, "user not found")
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "user not found", recorder.Body.String())
}

func TestErrorWithOutstandingCompletion(t *testing.T) {
	app := New()
	completionErr := make(chan error, 1)
	fire := make(chan struct{})

	app.Get("/fail", func(ctx Context) error {
		ctx.SetImplicitEnd(false)

		go func() {
			<-fire
			completionErr <- ctx.Send()
		}()

		return errors.New("backend down")
	})

	app.Get("/ok", func(ctx Context) error {
		// Let the stale completion run while this request is in
		// flight. It must not reach this pooled context.
		close(fire)

		assert.ErrorIs(t, <-completionErr, ErrAlreadySent)
		return ctx.Text("ok")
	})

	first := httptest.NewRecorder()
	app.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Equal(t, http.StatusInternalServerError, first.Code)
	assert.Equal(t, "backend down", first.Body.String())

	second := httptest.NewRecorder()
	app.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "ok", second.Body.String())
	assert.Equal(t, "backend down", first.Body.String())
}

func TestErrorAfterSendKeepsFirstResponse(t *testing.T) {
	app := New()

	app.Get("/", func(ctx Context) error {
		if err := ctx.Text("partial"); err != nil {
			return err
		}

		if err := ctx.Send(); err != nil {
			return err
		}

		return errors.New("too late")
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "partial", recorder.Body.String())
}

func TestRewrite(t *testing.T) {
	app := New()

	app.Rewrite(func(ctx RewriteContext) {
		if ctx.Path() == "/alias" {
			ctx.SetPath("/real")
		}
	})

	app.Get("/real", func(ctx Context) error {
		return ctx.Text("real")
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/alias", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "real", recorder.Body.String())
}

func TestMiddlewareOrder(t *testing.T) {
	app := New()
	var order []string

	app.Use(
		func(next Handler) Handler {
			return func(ctx Context) error {
				order = append(order, "first")
				return next(ctx)
			}
		},
		func(next Handler) Handler {
			return func(ctx Context) error {
				order = append(order, "second")
				return next(ctx)
			}
		},
	)

	app.Get("/", func(ctx Context) error {
		order = append(order, "handler")
		return nil
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestRequestIDMiddleware(t *testing.T) {
	app := New()
	app.Use(RequestID())

	app.Get("/", func(ctx Context) error {
		return nil
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, recorder.Header().Get("X-Request-Id"))
}

func TestContentSecurityPolicy(t *testing.T) {
	app := New()
	app.ContentSecurityPolicy = csp.New()
	app.ContentSecurityPolicy.SetMap(csp.Map{"default-src": "'self'"})

	app.Get("/", func(ctx Context) error {
		return ctx.HTML("<p>ok</p>")
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Contains(t, recorder.Header().Get("Content-Security-Policy"), "default-src")
}

func TestContextPoolReuse(t *testing.T) {
	app := New()

	app.Get("/a", func(ctx Context) error {
		require.NoError(t, ctx.Response().SetHeader("X-Leak", "1"))
		return ctx.Text("a")
	})

	app.Get("/b", func(ctx Context) error {
		assert.Empty(t, ctx.Response().Header("X-Leak"))
		return ctx.Text("b")
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/a", nil))

	recorder = httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/b", nil))
	assert.Empty(t, recorder.Header().Get("X-Leak"))
}

// testStore keeps sessions in memory for tests.
type testStore struct {
	mutex    sync.Mutex
	sessions map[string]*session.Session
}

func (store *testStore) Get(sid string) (*session.Session, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return store.sessions[sid], nil
}

func (store *testStore) Set(sid string, s *session.Session) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.sessions[sid] = s
	return nil
}

func (store *testStore) Delete(sid string) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	delete(store.sessions, sid)
}

func TestSession(t *testing.T) {
	app := New()
	store := &testStore{sessions: map[string]*session.Session{}}
	app.Sessions.Store = store

	app.Get("/", func(ctx Context) error {
		s := ctx.Session()
		require.NotNil(t, s)
		require.NoError(t, store.Set(s.ID(), s))
		assert.True(t, ctx.HasSession())
		return ctx.Text(s.ID())
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	sid := recorder.Body.String()
	require.NotEmpty(t, sid)

	found := false

	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == sessionCookieName {
			found = true
			assert.Equal(t, sid, cookie.Value)
		}
	}

	assert.True(t, found)
}

func TestIP(t *testing.T) {
	app := New()

	app.Get("/", func(ctx Context) error {
		return ctx.Text(ctx.IP())
	})

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("X-Real-Ip", "203.0.113.7")
	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, request)

	assert.Equal(t, "203.0.113.7", recorder.Body.String())
}
