package authz

// Evaluator applies the policy table to one operation. Predicates are pure:
// the evaluator never touches storage and never errors for business reasons.
// Deny is a normal verdict; the only error is a missing policy entry.
type Evaluator struct {
	registry *Registry
}

// NewEvaluator constructs an Evaluator over the given policy table.
func NewEvaluator(registry *Registry) *Evaluator {
	return &Evaluator{registry: registry}
}

// Evaluate returns the verdict for principal performing op against entity.
// pre is the stored image (zero for inserts), post the proposed image (zero
// for deletes and reads).
func (e *Evaluator) Evaluate(p Principal, op Operation, entity Entity, pre, post Record) (Decision, error) {
	rule, err := e.registry.Lookup(entity, op)
	if err != nil {
		return Deny, err
	}

	// Admin bypass is uniform across entities and operations.
	if p.Role == RoleAdmin {
		return Allow, nil
	}

	switch rule.Kind {
	case KindOpenRead:
		// Open reads are explicit table entries, never an implicit default.
		return Allow, nil

	case KindElevatedOnly:
		// Ownership fields are irrelevant; a User cannot self-attribute a
		// financial record.
		if p.Role == rule.Role {
			return Allow, nil
		}
		return Deny, nil

	case KindAdminOnly:
		return Deny, nil

	case KindOwnerOrAdmin:
		return evalOwnership(p.ID, op, pre, post), nil

	case KindSelfOnly:
		return evalSelf(p.ID, op, pre, post), nil
	}
	return Deny, nil
}

// evalOwnership gates general-class mutations on the principal's ownership
// fields. Updates check both images so a write cannot transfer ownership
// away from a check that would deny the post-state.
func evalOwnership(principalID int64, op Operation, pre, post Record) Decision {
	switch op {
	case OpInsert:
		if post.Creator != 0 && post.Creator == principalID {
			return Allow
		}
	case OpUpdate:
		if pre.OwnedBy(principalID) && post.OwnedBy(principalID) {
			return Allow
		}
	}
	return Deny
}

// evalSelf restricts profile mutations to the principal's own record, in
// both images for updates.
func evalSelf(principalID int64, op Operation, pre, post Record) Decision {
	switch op {
	case OpInsert:
		if post.SelfID != 0 && post.SelfID == principalID {
			return Allow
		}
	case OpUpdate:
		if pre.SelfID == principalID && post.SelfID == principalID && principalID != 0 {
			return Allow
		}
	}
	return Deny
}
