package rmux

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteParameters(t *testing.T) {
	app := New()

	app.Get("/user/{id}/posts/{slug}", func(ctx Context) error {
		return ctx.Text(ctx.Get("id") + "/" + ctx.Get("slug"))
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/user/42/posts/hello-world", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "42/hello-world", recorder.Body.String())
}

func TestRouteParameterPattern(t *testing.T) {
	app := New()

	app.Get("/user/{id:[0-9]+}", func(ctx Context) error {
		id, err := ctx.GetInt("id")

		if err != nil {
			return err
		}

		return ctx.JSON(map[string]int{"id": id})
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/user/42", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, `{"id":42}`, recorder.Body.String())

	recorder = httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/user/alice", nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestNotFound(t *testing.T) {
	app := New()

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	app := New()

	app.Post("/submit", func(ctx Context) error {
		return ctx.Text("ok")
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/submit", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
}

func TestMethodRegistration(t *testing.T) {
	app := New()
	echo := func(ctx Context) error {
		return ctx.Text(ctx.Request().Method())
	}

	app.Get("/resource", echo)
	app.Post("/resource", echo)
	app.Put("/resource", echo)
	app.Delete("/resource", echo)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		recorder := httptest.NewRecorder()
		app.ServeHTTP(recorder, httptest.NewRequest(method, "/resource", nil))
		assert.Equal(t, method, recorder.Body.String())
	}
}

func TestURLBuilding(t *testing.T) {
	app := New()

	app.Get("/user/{id}/posts/{slug}", func(ctx Context) error {
		return nil
	}).Name("user.post")

	url, err := app.Router().URL("user.post", map[string]string{"id": "1", "slug": "intro"}, "")
	require.NoError(t, err)
	assert.Equal(t, "/user/1/posts/intro", url)

	url, err = app.Router().URL("user.post", map[string]string{"id": "1", "slug": "intro"}, "blog.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://blog.example.com/user/1/posts/intro", url)

	_, err = app.Router().URL("nope", nil, "")
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestURLBuildingValidatesPattern(t *testing.T) {
	app := New()

	app.Get("/user/{id:[0-9]+}", func(ctx Context) error {
		return nil
	}).Name("user.show")

	_, err := app.Router().URL("user.show", map[string]string{"id": "alice"}, "")
	require.Error(t, err)
}

func TestPathCleaning(t *testing.T) {
	app := New()

	app.Get("/a/b", func(ctx Context) error {
		return ctx.Text("ok")
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/a/../a/b", nil))

	assert.Equal(t, http.StatusMovedPermanently, recorder.Code)
	assert.Equal(t, "/a/b", recorder.Header().Get("Location"))
}

func TestUnbalancedBraces(t *testing.T) {
	_, err := braceIndices("/user/{id")
	require.Error(t, err)

	_, err = braceIndices("/user/id}")
	require.Error(t, err)
}
