package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RoleDirectory answers role lookups for principals. Implementations must
// resolve against a fixed table; nothing in session state may redirect the
// lookup path.
type RoleDirectory interface {
	RoleOf(ctx context.Context, principalID int64) (Role, error)
}

// PGRoleDirectory resolves roles from the users table. The query text is
// constant so the resolution path cannot be shadowed by request input.
type PGRoleDirectory struct {
	pool *pgxpool.Pool
}

// NewPGRoleDirectory constructs a directory backed by the given pool.
func NewPGRoleDirectory(pool *pgxpool.Pool) *PGRoleDirectory {
	return &PGRoleDirectory{pool: pool}
}

// RoleOf returns the stored role for the principal. An absent row is
// ErrPrincipalNotFound, never a default role.
func (d *PGRoleDirectory) RoleOf(ctx context.Context, principalID int64) (Role, error) {
	const query = `SELECT role FROM users WHERE id = $1 AND is_active`
	var stored string
	if err := d.pool.QueryRow(ctx, query, principalID).Scan(&stored); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RoleUser, fmt.Errorf("%w: id %d", ErrPrincipalNotFound, principalID)
		}
		return RoleUser, fmt.Errorf("authz: resolve role: %w", err)
	}
	return ParseRole(stored)
}

// Context is one authorization context. It resolves the principal's role at
// most once and reuses the result for its lifetime, so a multi-row operation
// performs one role lookup and concurrent role changes only affect contexts
// opened afterwards.
type Context struct {
	principalID int64
	directory   RoleDirectory

	resolved bool
	role     Role
	err      error
}

// NewContext opens an authorization context for the principal. The role is
// not resolved until first use.
func NewContext(directory RoleDirectory, principalID int64) *Context {
	return &Context{principalID: principalID, directory: directory}
}

// PrincipalID returns the acting principal's identifier.
func (c *Context) PrincipalID() int64 {
	return c.principalID
}

// Principal resolves the role (once) and returns the bound principal.
func (c *Context) Principal(ctx context.Context) (Principal, error) {
	if !c.resolved {
		c.role, c.err = c.directory.RoleOf(ctx, c.principalID)
		c.resolved = true
	}
	if c.err != nil {
		return Principal{}, c.err
	}
	return Principal{ID: c.principalID, Role: c.role}, nil
}
