package profiles

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-crm/meridian-crm/internal/authz"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

type stubDirectory struct {
	roles map[int64]authz.Role
}

func (d *stubDirectory) RoleOf(_ context.Context, principalID int64) (authz.Role, error) {
	role, ok := d.roles[principalID]
	if !ok {
		return 0, authz.ErrPrincipalNotFound
	}
	return role, nil
}

type mockRepository struct {
	profiles  map[int64]Profile
	hashes    map[int64]string
	nextID    int64
	updateErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{profiles: make(map[int64]Profile), hashes: make(map[int64]string)}
}

func (m *mockRepository) ListProfiles(_ context.Context) ([]Profile, error) {
	out := make([]Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockRepository) GetProfile(_ context.Context, id int64) (*Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (m *mockRepository) InsertProfile(_ context.Context, p Profile, hash string) (int64, error) {
	for _, existing := range m.profiles {
		if existing.Email == p.Email {
			return 0, ErrEmailTaken
		}
	}
	m.nextID++
	p.ID = m.nextID
	m.profiles[p.ID] = p
	m.hashes[p.ID] = hash
	return p.ID, nil
}

func (m *mockRepository) UpdateProfile(_ context.Context, p Profile, passwordHash *string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.profiles[p.ID]; !ok {
		return shared.ErrNotFound
	}
	m.profiles[p.ID] = p
	if passwordHash != nil {
		m.hashes[p.ID] = *passwordHash
	}
	return nil
}

func (m *mockRepository) SetRole(_ context.Context, id int64, role authz.Role) error {
	p, ok := m.profiles[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.Role = role
	m.profiles[id] = p
	return nil
}

func (m *mockRepository) DeleteProfile(_ context.Context, id int64) error {
	p, ok := m.profiles[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.IsActive = false
	m.profiles[id] = p
	return nil
}

func newTestService(t *testing.T, roles map[int64]authz.Role) (*Service, *mockRepository) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMockRepository()
	guard := authz.NewGuard(authz.NewRegistry(), &stubDirectory{roles: roles}, logger, nil)
	return NewService(repo, guard, logger), repo
}

func TestUpdateOwnProfile(t *testing.T) {
	svc, repo := newTestService(t, map[int64]authz.Role{7: authz.RoleUser})
	repo.profiles[7] = Profile{ID: 7, Email: "ana@example.com", Name: "Ana", Role: authz.RoleUser, IsActive: true}

	name := "Ana Silva"
	updated, err := svc.UpdateProfile(context.Background(), 7, 7, UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ana Silva", updated.Name)
}

func TestUpdateProfileWithPasswordIsAtomic(t *testing.T) {
	svc, repo := newTestService(t, map[int64]authz.Role{7: authz.RoleUser})
	repo.profiles[7] = Profile{ID: 7, Email: "ana@example.com", Name: "Ana", Role: authz.RoleUser, IsActive: true}
	repo.hashes[7] = "old-hash"

	name := "Ana Silva"
	password := "fresh-password"
	updated, err := svc.UpdateProfile(context.Background(), 7, 7, UpdateProfileRequest{Name: &name, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, "Ana Silva", updated.Name)
	hashErr := bcrypt.CompareHashAndPassword([]byte(repo.hashes[7]), []byte("fresh-password"))
	assert.NoError(t, hashErr)
}

func TestUpdateProfileFailedWriteLeavesRowIntact(t *testing.T) {
	svc, repo := newTestService(t, map[int64]authz.Role{7: authz.RoleUser})
	repo.profiles[7] = Profile{ID: 7, Email: "ana@example.com", Name: "Ana", Role: authz.RoleUser, IsActive: true}
	repo.hashes[7] = "old-hash"
	repo.updateErr = errors.New("connection reset")

	name := "Ana Silva"
	password := "fresh-password"
	_, err := svc.UpdateProfile(context.Background(), 7, 7, UpdateProfileRequest{Name: &name, Password: &password})
	require.Error(t, err)
	assert.Equal(t, "Ana", repo.profiles[7].Name)
	assert.Equal(t, "old-hash", repo.hashes[7])
}

func TestUpdateOtherProfileDenied(t *testing.T) {
	svc, repo := newTestService(t, map[int64]authz.Role{7: authz.RoleUser, 8: authz.RoleUser})
	repo.profiles[8] = Profile{ID: 8, Email: "bo@example.com", Name: "Bo", Role: authz.RoleUser, IsActive: true}

	name := "Hijacked"
	_, err := svc.UpdateProfile(context.Background(), 7, 8, UpdateProfileRequest{Name: &name})
	require.ErrorIs(t, err, authz.ErrDenied)
	assert.Equal(t, "Bo", repo.profiles[8].Name)
}

func TestAdminUpdatesAnyProfile(t *testing.T) {
	svc, repo := newTestService(t, map[int64]authz.Role{1: authz.RoleAdmin})
	repo.profiles[8] = Profile{ID: 8, Email: "bo@example.com", Name: "Bo", Role: authz.RoleUser, IsActive: true}

	name := "Bo Chen"
	_, err := svc.UpdateProfile(context.Background(), 1, 8, UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Bo Chen", repo.profiles[8].Name)
}

func TestCreateProfileRequiresAdmin(t *testing.T) {
	svc, repo := newTestService(t, map[int64]authz.Role{7: authz.RoleUser, 1: authz.RoleAdmin})

	req := CreateProfileRequest{Email: "new@example.com", Name: "New", Password: "longenough", Role: "user"}
	_, err := svc.CreateProfile(context.Background(), 7, req)
	require.ErrorIs(t, err, authz.ErrDenied)
	assert.Empty(t, repo.profiles)

	created, err := svc.CreateProfile(context.Background(), 1, req)
	require.NoError(t, err)
	assert.Equal(t, authz.RoleUser, created.Role)
	hashErr := bcrypt.CompareHashAndPassword([]byte(repo.hashes[created.ID]), []byte("longenough"))
	assert.NoError(t, hashErr)
}

func TestSetRoleSelfEscalationDenied(t *testing.T) {
	svc, repo := newTestService(t, map[int64]authz.Role{7: authz.RoleUser, 1: authz.RoleAdmin})
	repo.profiles[7] = Profile{ID: 7, Email: "ana@example.com", Name: "Ana", Role: authz.RoleUser, IsActive: true}

	err := svc.SetRole(context.Background(), 7, 7, authz.RoleAdmin)
	require.ErrorIs(t, err, authz.ErrDenied)
	assert.Equal(t, authz.RoleUser, repo.profiles[7].Role)

	require.NoError(t, svc.SetRole(context.Background(), 1, 7, authz.RoleFinance))
	assert.Equal(t, authz.RoleFinance, repo.profiles[7].Role)
}

func TestDeleteProfileRequiresAdmin(t *testing.T) {
	svc, repo := newTestService(t, map[int64]authz.Role{7: authz.RoleUser, 1: authz.RoleAdmin})
	repo.profiles[7] = Profile{ID: 7, Email: "ana@example.com", Name: "Ana", Role: authz.RoleUser, IsActive: true}

	err := svc.DeleteProfile(context.Background(), 7, 7)
	require.ErrorIs(t, err, authz.ErrDenied)
	assert.True(t, repo.profiles[7].IsActive)

	require.NoError(t, svc.DeleteProfile(context.Background(), 1, 7))
	assert.False(t, repo.profiles[7].IsActive)
}

func TestDuplicateEmail(t *testing.T) {
	svc, repo := newTestService(t, map[int64]authz.Role{1: authz.RoleAdmin})
	repo.profiles[7] = Profile{ID: 7, Email: "ana@example.com", Name: "Ana", Role: authz.RoleUser, IsActive: true}
	repo.nextID = 7

	req := CreateProfileRequest{Email: "ana@example.com", Name: "Dup", Password: "longenough", Role: "user"}
	_, err := svc.CreateProfile(context.Background(), 1, req)
	require.ErrorIs(t, err, ErrEmailTaken)
}
