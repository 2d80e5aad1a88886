package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "meridian_session", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	require.True(t, sess.isNew)
	require.NotEmpty(t, sess.ID)
	require.Zero(t, sess.PrincipalID())

	sess.Authenticate(42)

	rec := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, rec, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "meridian_session", cookies[0].Name)
	require.Equal(t, sess.ID, cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	reloaded, err := manager.Load(ctx, next)
	require.NoError(t, err)
	require.Equal(t, sess.ID, reloaded.ID)
	require.EqualValues(t, 42, reloaded.PrincipalID())
}

func TestSessionUnknownCookieStartsFresh(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "meridian_session", Value: "stale-id"})

	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	require.True(t, sess.isNew)
	require.Equal(t, "stale-id", sess.ID)
	require.Zero(t, sess.PrincipalID())
}

func TestSessionDestroy(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	sess.Authenticate(7)
	require.NoError(t, manager.Commit(ctx, httptest.NewRecorder(), sess))

	manager.Destroy(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, rec, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, -1, cookies[0].MaxAge)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(&http.Cookie{Name: "meridian_session", Value: sess.ID})
	reloaded, err := manager.Load(ctx, next)
	require.NoError(t, err)
	require.True(t, reloaded.isNew)
	require.Zero(t, reloaded.PrincipalID())
}
