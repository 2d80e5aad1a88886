package authz

import "fmt"

// Kind enumerates the predicate kinds the policy table can reference.
type Kind int

const (
	// KindOpenRead allows any resolved role. Reads are open by explicit
	// entry, never by a default.
	KindOpenRead Kind = iota
	// KindOwnerOrAdmin requires an ownership-field match with the acting
	// principal.
	KindOwnerOrAdmin
	// KindElevatedOnly requires an exact role match; ownership fields are
	// irrelevant.
	KindElevatedOnly
	// KindAdminOnly denies everyone (Admin short-circuits before dispatch).
	KindAdminOnly
	// KindSelfOnly requires the record to be the principal's own profile.
	KindSelfOnly
)

func (k Kind) String() string {
	switch k {
	case KindOpenRead:
		return "open_read"
	case KindOwnerOrAdmin:
		return "owner_or_admin"
	case KindElevatedOnly:
		return "elevated_role_only"
	case KindAdminOnly:
		return "admin_only"
	case KindSelfOnly:
		return "self_only"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Rule is one policy table entry. Role is meaningful only for
// KindElevatedOnly.
type Rule struct {
	Kind Kind
	Role Role
}

// Registry is the declarative policy table: (entity, operation) -> rule.
// Pure data; the evaluator owns all logic.
type Registry struct {
	rules map[Entity]map[Operation]Rule
}

// NewRegistry builds the fixed policy table for the managed entities.
func NewRegistry() *Registry {
	general := map[Operation]Rule{
		OpSelect: {Kind: KindOpenRead},
		OpInsert: {Kind: KindOwnerOrAdmin},
		OpUpdate: {Kind: KindOwnerOrAdmin},
		OpDelete: {Kind: KindAdminOnly},
	}
	financial := map[Operation]Rule{
		OpSelect: {Kind: KindOpenRead},
		OpInsert: {Kind: KindElevatedOnly, Role: RoleFinance},
		OpUpdate: {Kind: KindElevatedOnly, Role: RoleFinance},
		OpDelete: {Kind: KindAdminOnly},
	}
	profile := map[Operation]Rule{
		OpSelect: {Kind: KindOpenRead},
		OpInsert: {Kind: KindSelfOnly},
		OpUpdate: {Kind: KindSelfOnly},
		OpDelete: {Kind: KindAdminOnly},
	}
	return &Registry{rules: map[Entity]map[Operation]Rule{
		EntityLead:         general,
		EntityDeal:         general,
		EntityProposal:     general,
		EntityCloserReport: general,
		EntitySetterReport: general,
		EntityOffer:        financial,
		EntityCashEntry:    financial,
		EntityExpense:      financial,
		EntityUser:         profile,
	}}
}

// Lookup returns the rule for (entity, op). A missing entry is a
// configuration defect, reported as ErrUnconfiguredPolicy.
func (r *Registry) Lookup(entity Entity, op Operation) (Rule, error) {
	ops, ok := r.rules[entity]
	if !ok {
		return Rule{}, fmt.Errorf("%w: entity %q", ErrUnconfiguredPolicy, entity)
	}
	rule, ok := ops[op]
	if !ok {
		return Rule{}, fmt.Errorf("%w: entity %q operation %s", ErrUnconfiguredPolicy, entity, op)
	}
	return rule, nil
}

// Entities returns every entity the table covers, in stable order.
func (r *Registry) Entities() []Entity {
	return []Entity{
		EntityLead,
		EntityDeal,
		EntityProposal,
		EntityCloserReport,
		EntitySetterReport,
		EntityOffer,
		EntityCashEntry,
		EntityExpense,
		EntityUser,
	}
}

// Exposure describes one entity's read rule for policy audits.
type Exposure struct {
	Entity Entity
	Kind   Kind
}

// ReadExposure enumerates the select rule of every entity so an audit can
// list read exposure instead of inferring a default.
func (r *Registry) ReadExposure() ([]Exposure, error) {
	entities := r.Entities()
	exposure := make([]Exposure, 0, len(entities))
	for _, entity := range entities {
		rule, err := r.Lookup(entity, OpSelect)
		if err != nil {
			return nil, err
		}
		exposure = append(exposure, Exposure{Entity: entity, Kind: rule.Kind})
	}
	return exposure, nil
}
