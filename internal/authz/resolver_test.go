package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDirectory struct {
	roles   map[int64]Role
	lookups int
}

func (d *stubDirectory) RoleOf(ctx context.Context, principalID int64) (Role, error) {
	d.lookups++
	role, ok := d.roles[principalID]
	if !ok {
		return RoleUser, ErrPrincipalNotFound
	}
	return role, nil
}

func TestContextResolvesOnce(t *testing.T) {
	dir := &stubDirectory{roles: map[int64]Role{5: RoleFinance}}
	actx := NewContext(dir, 5)

	for i := 0; i < 4; i++ {
		p, err := actx.Principal(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Principal{ID: 5, Role: RoleFinance}, p)
	}
	assert.Equal(t, 1, dir.lookups)
}

func TestContextIgnoresConcurrentRoleChange(t *testing.T) {
	dir := &stubDirectory{roles: map[int64]Role{5: RoleUser}}
	actx := NewContext(dir, 5)

	p, err := actx.Principal(context.Background())
	require.NoError(t, err)
	require.Equal(t, RoleUser, p.Role)

	// A role change mid-context must not leak into the open context.
	dir.roles[5] = RoleAdmin
	p, err = actx.Principal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RoleUser, p.Role)

	// A context opened after the change sees the new role.
	fresh := NewContext(dir, 5)
	p, err = fresh.Principal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, p.Role)
}

func TestContextMemoizesResolutionFailure(t *testing.T) {
	dir := &stubDirectory{roles: map[int64]Role{}}
	actx := NewContext(dir, 404)

	_, err := actx.Principal(context.Background())
	require.ErrorIs(t, err, ErrPrincipalNotFound)
	_, err = actx.Principal(context.Background())
	require.ErrorIs(t, err, ErrPrincipalNotFound)
	assert.Equal(t, 1, dir.lookups)
}

func TestParseRole(t *testing.T) {
	for stored, want := range map[string]Role{"user": RoleUser, "finance": RoleFinance, "admin": RoleAdmin} {
		role, err := ParseRole(stored)
		require.NoError(t, err)
		assert.Equal(t, want, role)
	}
	_, err := ParseRole("superuser")
	assert.Error(t, err)
}
