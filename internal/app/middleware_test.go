package app

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-crm/meridian-crm/internal/shared"
)

func applyStack(stack []func(http.Handler) http.Handler, handler http.Handler) http.Handler {
	for i := len(stack) - 1; i >= 0; i-- {
		handler = stack[i](handler)
	}
	return handler
}

func TestSessionCommitFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	// A client pointed at a closed port makes every write fail.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })
	manager := shared.NewSessionManager(client, "meridian_session", time.Hour, false)

	handler := applyStack(MiddlewareStack(MiddlewareConfig{
		Logger:         logger,
		SessionManager: manager,
	}), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, buf.String(), "session commit failed")
}

func TestSessionCookieIssuedOnFirstResponse(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	manager := shared.NewSessionManager(client, "meridian_session", time.Hour, false)

	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	handler := applyStack(MiddlewareStack(MiddlewareConfig{
		Logger:         logger,
		SessionManager: manager,
	}), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "meridian_session", cookies[0].Name)
	require.NotEmpty(t, cookies[0].Value)
}
