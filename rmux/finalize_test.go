package rmux

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendTwice(t *testing.T) {
	ctx, recorder := newTestContext(t, http.MethodGet, "/")

	require.NoError(t, ctx.Text("once"))
	require.NoError(t, ctx.Send())
	assert.Equal(t, "once", recorder.Body.String())

	assert.ErrorIs(t, ctx.Send(), ErrAlreadySent)
	assert.Equal(t, "once", recorder.Body.String())
}

func TestImplicitEnd(t *testing.T) {
	app := New()

	app.Get("/", func(ctx Context) error {
		return ctx.Text("implicit")
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "implicit", recorder.Body.String())
}

func TestExplicitSendInsideHandler(t *testing.T) {
	app := New()

	app.Get("/", func(ctx Context) error {
		if err := ctx.Text("explicit"); err != nil {
			return err
		}

		// The finalizer must not transmit a second time.
		return ctx.Send()
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "explicit", recorder.Body.String())
}

func TestDeferredCompletion(t *testing.T) {
	app := New()
	var captured Context

	app.Get("/", func(ctx Context) error {
		ctx.SetImplicitEnd(false)
		captured = ctx
		return nil
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	// Nothing transmitted yet.
	assert.Zero(t, recorder.Body.Len())
	require.NotNil(t, captured)

	// The deferred completion performs the transmission.
	require.NoError(t, captured.JSON(map[string]bool{"done": true}))
	assert.Equal(t, `{"done":true}`, recorder.Body.String())
	assert.Equal(t, contentTypeJSON, recorder.Header().Get("Content-Type"))

	assert.ErrorIs(t, captured.Send(), ErrAlreadySent)
}

func TestDeferredCompletionRace(t *testing.T) {
	app := New()
	var captured *context

	app.Get("/", func(ctx Context) error {
		ctx.SetImplicitEnd(false)
		captured = ctx.(*context)
		return nil
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, captured)
	captured.response.body = []byte("winner")

	var successes atomic.Int32
	var waitGroup sync.WaitGroup

	for i := 0; i < 8; i++ {
		waitGroup.Add(1)

		go func() {
			defer waitGroup.Done()

			if err := captured.Send(); err == nil {
				successes.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrAlreadySent)
			}
		}()
	}

	waitGroup.Wait()
	assert.EqualValues(t, 1, successes.Load())
	assert.Equal(t, "winner", recorder.Body.String())
}

func TestCompletionBeforeHandlerReturns(t *testing.T) {
	app := New()

	app.Get("/", func(ctx Context) error {
		ctx.SetImplicitEnd(false)

		// The completion fires while the response is still pending.
		return ctx.JSON(map[string]bool{"early": true})
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, `{"early":true}`, recorder.Body.String())
}

func TestTimerCompletion(t *testing.T) {
	app := New()
	done := make(chan error, 1)

	app.Get("/", func(ctx Context) error {
		ctx.SetImplicitEnd(false)

		time.AfterFunc(time.Millisecond, func() {
			done <- ctx.JSON(map[string]bool{"done": true})
		})

		return nil
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	// The completion transmits no matter whether it fires before or
	// after the handler goroutine is done with the context.
	require.NoError(t, <-done)
	assert.Equal(t, `{"done":true}`, recorder.Body.String())
}

func TestStatusDefaultsToOK(t *testing.T) {
	ctx, recorder := newTestContext(t, http.MethodGet, "/")

	require.NoError(t, ctx.Send())
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestExplicitStatus(t *testing.T) {
	app := New()

	app.Get("/", func(ctx Context) error {
		ctx.SetStatus(http.StatusTeapot)
		return ctx.Text("short and stout")
	})

	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, recorder.Code)
}
