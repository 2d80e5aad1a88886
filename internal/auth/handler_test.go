package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-crm/meridian-crm/internal/authz"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

type stubRepository struct {
	accounts map[string]Account
	sessions map[string]int64
}

func (r *stubRepository) FindByEmail(_ context.Context, email string) (*Account, error) {
	account, ok := r.accounts[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &account, nil
}

func (r *stubRepository) CreateSession(_ context.Context, id string, principalID int64, _ time.Time, _, _ string) error {
	r.sessions[id] = principalID
	return nil
}

func (r *stubRepository) DeleteSession(_ context.Context, id string) error {
	delete(r.sessions, id)
	return nil
}

func newTestHandler(t *testing.T) (*Handler, *stubRepository, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "meridian_session", time.Hour, false)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubRepository{
		accounts: map[string]Account{
			"ana@example.com": {ID: 7, Email: "ana@example.com", PasswordHash: string(hash), Role: authz.RoleUser, IsActive: true},
			"off@example.com": {ID: 8, Email: "off@example.com", PasswordHash: string(hash), Role: authz.RoleUser, IsActive: false},
		},
		sessions: make(map[string]int64),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, NewService(repo), sessions), repo, sessions
}

func doLogin(t *testing.T, h *Handler, sessions *shared.SessionManager, body map[string]string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(payload))
	sess, err := sessions.Load(req.Context(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	rec := httptest.NewRecorder()
	h.handleLogin(rec, req)
	return rec, sess
}

func TestLoginSuccess(t *testing.T) {
	h, repo, sessions := newTestHandler(t)

	rec, sess := doLogin(t, h, sessions, map[string]string{"email": "ana@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.ID)
	assert.Equal(t, "user", resp.Role)
	assert.Equal(t, int64(7), sess.PrincipalID())
	assert.Equal(t, int64(7), repo.sessions[sess.ID])
}

func TestLoginWrongPassword(t *testing.T) {
	h, _, sessions := newTestHandler(t)

	rec, sess := doLogin(t, h, sessions, map[string]string{"email": "ana@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, sess.PrincipalID())
}

func TestLoginInactiveAccount(t *testing.T) {
	h, _, sessions := newTestHandler(t)

	rec, _ := doLogin(t, h, sessions, map[string]string{"email": "off@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	h, _, sessions := newTestHandler(t)

	rec, _ := doLogin(t, h, sessions, map[string]string{"email": "not-an-email", "password": "short"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLogoutDestroysSession(t *testing.T) {
	h, repo, sessions := newTestHandler(t)

	rec, sess := doLogin(t, h, sessions, map[string]string{"email": "ana@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, repo.sessions, sess.ID)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec = httptest.NewRecorder()
	h.handleLogout(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, repo.sessions, sess.ID)
}
