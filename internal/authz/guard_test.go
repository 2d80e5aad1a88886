package authz

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMetrics struct {
	allowed int
	denied  int
}

func (m *countingMetrics) Decision(entity, operation string, allowed bool) {
	if allowed {
		m.allowed++
	} else {
		m.denied++
	}
}

func newTestGuard(dir RoleDirectory, metrics DecisionMetrics) *Guard {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGuard(NewRegistry(), dir, logger, metrics)
}

func TestGuardAllowsOwnerInsert(t *testing.T) {
	dir := &stubDirectory{roles: map[int64]Role{5: RoleUser}}
	metrics := &countingMetrics{}
	guard := newTestGuard(dir, metrics)
	actx := guard.NewContext(5)

	err := guard.Require(context.Background(), actx, OpInsert, EntityLead, Record{}, Record{Creator: 5, Owners: []int64{5}})
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.allowed)
}

func TestGuardDeniesWithoutMutation(t *testing.T) {
	dir := &stubDirectory{roles: map[int64]Role{5: RoleUser}}
	metrics := &countingMetrics{}
	guard := newTestGuard(dir, metrics)
	actx := guard.NewContext(5)

	err := guard.Require(context.Background(), actx, OpDelete, EntityLead, Record{Creator: 5, Owners: []int64{5}}, Record{})
	require.ErrorIs(t, err, ErrDenied)
	assert.Equal(t, 1, metrics.denied)
}

func TestGuardTreatsUnknownPrincipalAsDeny(t *testing.T) {
	dir := &stubDirectory{roles: map[int64]Role{}}
	guard := newTestGuard(dir, nil)
	actx := guard.NewContext(404)

	err := guard.Require(context.Background(), actx, OpSelect, EntityLead, Record{}, Record{})
	require.ErrorIs(t, err, ErrDenied)
	assert.ErrorIs(t, err, ErrPrincipalNotFound)
}

func TestGuardSingleLookupAcrossOperations(t *testing.T) {
	dir := &stubDirectory{roles: map[int64]Role{5: RoleUser}}
	guard := newTestGuard(dir, nil)
	actx := guard.NewContext(5)

	// A multi-step unit of work reuses the resolved role.
	require.NoError(t, guard.Require(context.Background(), actx, OpSelect, EntityDeal, Record{}, Record{}))
	require.NoError(t, guard.Require(context.Background(), actx, OpInsert, EntityDeal, Record{}, Record{Creator: 5, Owners: []int64{5}}))
	require.NoError(t, guard.Require(context.Background(), actx, OpUpdate, EntityDeal, Record{Creator: 5, Owners: []int64{5}}, Record{Creator: 5, Owners: []int64{5}}))
	assert.Equal(t, 1, dir.lookups)
}

func TestGuardPropagatesUnconfiguredPolicy(t *testing.T) {
	dir := &stubDirectory{roles: map[int64]Role{1: RoleAdmin}}
	guard := newTestGuard(dir, nil)
	actx := guard.NewContext(1)

	err := guard.Require(context.Background(), actx, OpSelect, Entity("invoice"), Record{}, Record{})
	require.ErrorIs(t, err, ErrUnconfiguredPolicy)
	assert.NotErrorIs(t, err, ErrDenied)
}
