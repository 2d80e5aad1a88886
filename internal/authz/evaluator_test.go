package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateAdminBypass(t *testing.T) {
	eval := NewEvaluator(NewRegistry())
	admin := Principal{ID: 99, Role: RoleAdmin}

	for _, entity := range NewRegistry().Entities() {
		for _, op := range []Operation{OpSelect, OpInsert, OpUpdate, OpDelete} {
			decision, err := eval.Evaluate(admin, op, entity, Record{Creator: 1, Owners: []int64{1}, SelfID: 1}, Record{Creator: 1, Owners: []int64{1}, SelfID: 1})
			require.NoError(t, err)
			assert.Equal(t, Allow, decision, "admin %s on %s", op, entity)
		}
	}
}

func TestEvaluateOpenRead(t *testing.T) {
	eval := NewEvaluator(NewRegistry())

	for _, p := range []Principal{{ID: 1, Role: RoleUser}, {ID: 2, Role: RoleFinance}} {
		for _, entity := range NewRegistry().Entities() {
			decision, err := eval.Evaluate(p, OpSelect, entity, Record{Creator: 42, Owners: []int64{42}}, Record{})
			require.NoError(t, err)
			assert.Equal(t, Allow, decision, "%s reading %s", p.Role, entity)
		}
	}
}

func TestEvaluateFinancialWritesIgnoreOwnership(t *testing.T) {
	eval := NewEvaluator(NewRegistry())
	user := Principal{ID: 7, Role: RoleUser}
	finance := Principal{ID: 8, Role: RoleFinance}
	owned := Record{Creator: 7, Owners: []int64{7}}

	for _, entity := range []Entity{EntityOffer, EntityCashEntry, EntityExpense} {
		// Ownership fields do not help a plain user.
		decision, err := eval.Evaluate(user, OpInsert, entity, Record{}, owned)
		require.NoError(t, err)
		assert.Equal(t, Deny, decision)

		decision, err = eval.Evaluate(user, OpUpdate, entity, owned, owned)
		require.NoError(t, err)
		assert.Equal(t, Deny, decision)

		// Finance writes without any ownership field at all.
		decision, err = eval.Evaluate(finance, OpInsert, entity, Record{}, Record{})
		require.NoError(t, err)
		assert.Equal(t, Allow, decision)

		decision, err = eval.Evaluate(finance, OpUpdate, entity, Record{}, Record{})
		require.NoError(t, err)
		assert.Equal(t, Allow, decision)
	}
}

func TestEvaluateDeleteIsAdminOnly(t *testing.T) {
	eval := NewEvaluator(NewRegistry())
	owned := Record{Creator: 7, Owners: []int64{7}, SelfID: 7}

	for _, p := range []Principal{{ID: 7, Role: RoleUser}, {ID: 7, Role: RoleFinance}} {
		for _, entity := range NewRegistry().Entities() {
			decision, err := eval.Evaluate(p, OpDelete, entity, owned, Record{})
			require.NoError(t, err)
			assert.Equal(t, Deny, decision, "%s deleting %s", p.Role, entity)
		}
	}
}

func TestEvaluateGeneralInsert(t *testing.T) {
	eval := NewEvaluator(NewRegistry())
	user := Principal{ID: 5, Role: RoleUser}

	tests := []struct {
		name string
		post Record
		want Decision
	}{
		{"creator matches", Record{Creator: 5, Owners: []int64{5}}, Allow},
		{"creator differs", Record{Creator: 6, Owners: []int64{6}}, Deny},
		{"creator unset", Record{}, Deny},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decision, err := eval.Evaluate(user, OpInsert, EntityLead, Record{}, tc.post)
			require.NoError(t, err)
			assert.Equal(t, tc.want, decision)
		})
	}
}

func TestEvaluateGeneralUpdateChecksBothImages(t *testing.T) {
	eval := NewEvaluator(NewRegistry())
	user := Principal{ID: 5, Role: RoleUser}

	mine := Record{Creator: 5, Owners: []int64{5}}
	assigned := Record{Creator: 9, Owners: []int64{9, 5}}
	theirs := Record{Creator: 9, Owners: []int64{9}}

	tests := []struct {
		name      string
		pre, post Record
		want      Decision
	}{
		{"owner in both images", mine, mine, Allow},
		{"assignee counts as owner", assigned, assigned, Allow},
		{"not an owner", theirs, theirs, Deny},
		{"transfer away denied by post image", mine, theirs, Deny},
		{"cannot claim someone else's record", theirs, mine, Deny},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decision, err := eval.Evaluate(user, OpUpdate, EntityDeal, tc.pre, tc.post)
			require.NoError(t, err)
			assert.Equal(t, tc.want, decision)
		})
	}
}

func TestEvaluateProfileSelfOnly(t *testing.T) {
	eval := NewEvaluator(NewRegistry())
	user := Principal{ID: 5, Role: RoleUser}
	finance := Principal{ID: 6, Role: RoleFinance}

	decision, err := eval.Evaluate(user, OpInsert, EntityUser, Record{}, Record{SelfID: 5})
	require.NoError(t, err)
	assert.Equal(t, Allow, decision)

	decision, err = eval.Evaluate(user, OpInsert, EntityUser, Record{}, Record{SelfID: 6})
	require.NoError(t, err)
	assert.Equal(t, Deny, decision)

	// Finance has no profile privilege beyond its own record.
	decision, err = eval.Evaluate(finance, OpUpdate, EntityUser, Record{SelfID: 5}, Record{SelfID: 5})
	require.NoError(t, err)
	assert.Equal(t, Deny, decision)

	decision, err = eval.Evaluate(user, OpUpdate, EntityUser, Record{SelfID: 5}, Record{SelfID: 5})
	require.NoError(t, err)
	assert.Equal(t, Allow, decision)
}

func TestEvaluateUnknownEntityFailsClosed(t *testing.T) {
	eval := NewEvaluator(NewRegistry())

	decision, err := eval.Evaluate(Principal{ID: 1, Role: RoleAdmin}, OpSelect, Entity("invoice"), Record{}, Record{})
	require.ErrorIs(t, err, ErrUnconfiguredPolicy)
	assert.Equal(t, Deny, decision)
}
