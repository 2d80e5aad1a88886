package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCoversEveryEntityOperation(t *testing.T) {
	registry := NewRegistry()

	for _, entity := range registry.Entities() {
		for _, op := range []Operation{OpSelect, OpInsert, OpUpdate, OpDelete} {
			_, err := registry.Lookup(entity, op)
			assert.NoError(t, err, "%s %s", entity, op)
		}
	}
}

func TestRegistryRules(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		entity Entity
		op     Operation
		kind   Kind
	}{
		{EntityLead, OpSelect, KindOpenRead},
		{EntityLead, OpInsert, KindOwnerOrAdmin},
		{EntityDeal, OpUpdate, KindOwnerOrAdmin},
		{EntityProposal, OpDelete, KindAdminOnly},
		{EntityCloserReport, OpUpdate, KindOwnerOrAdmin},
		{EntitySetterReport, OpInsert, KindOwnerOrAdmin},
		{EntityOffer, OpInsert, KindElevatedOnly},
		{EntityCashEntry, OpUpdate, KindElevatedOnly},
		{EntityExpense, OpDelete, KindAdminOnly},
		{EntityUser, OpInsert, KindSelfOnly},
		{EntityUser, OpUpdate, KindSelfOnly},
		{EntityUser, OpDelete, KindAdminOnly},
	}
	for _, tc := range tests {
		rule, err := registry.Lookup(tc.entity, tc.op)
		require.NoError(t, err)
		assert.Equal(t, tc.kind, rule.Kind, "%s %s", tc.entity, tc.op)
	}

	rule, err := registry.Lookup(EntityOffer, OpInsert)
	require.NoError(t, err)
	assert.Equal(t, RoleFinance, rule.Role)
}

func TestRegistryUnknownEntity(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Lookup(Entity("invoice"), OpSelect)
	assert.ErrorIs(t, err, ErrUnconfiguredPolicy)
}

func TestReadExposureListsEveryEntity(t *testing.T) {
	registry := NewRegistry()

	exposure, err := registry.ReadExposure()
	require.NoError(t, err)
	require.Len(t, exposure, len(registry.Entities()))
	for _, e := range exposure {
		assert.Equal(t, KindOpenRead, e.Kind, "%s", e.Entity)
	}
}
