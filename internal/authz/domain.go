package authz

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrPrincipalNotFound indicates no profile exists for the principal id.
	ErrPrincipalNotFound = errors.New("authz: principal not found")
	// ErrDenied indicates the policy rejected the operation. The mutation was
	// never attempted.
	ErrDenied = errors.New("authz: denied")
	// ErrUnconfiguredPolicy indicates a missing policy table entry. This is a
	// configuration defect and is always fatal; the engine fails closed.
	ErrUnconfiguredPolicy = errors.New("authz: unconfigured policy")
)

// Role is the closed set of roles the engine understands. Admin satisfies
// every check; Finance and User are incomparable.
type Role int

const (
	RoleUser Role = iota
	RoleFinance
	RoleAdmin
)

// ParseRole maps the stored role value onto the closed variant.
func ParseRole(s string) (Role, error) {
	switch s {
	case "user":
		return RoleUser, nil
	case "finance":
		return RoleFinance, nil
	case "admin":
		return RoleAdmin, nil
	}
	return RoleUser, fmt.Errorf("authz: unknown role %q", s)
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleFinance:
		return "finance"
	case RoleAdmin:
		return "admin"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// MarshalJSON renders the role name instead of the numeric variant.
func (r Role) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// UnmarshalJSON parses the role name.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Operation enumerates the data operations subject to authorization.
type Operation int

const (
	OpSelect Operation = iota
	OpInsert
	OpUpdate
	OpDelete
)

func (op Operation) String() string {
	switch op {
	case OpSelect:
		return "select"
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return fmt.Sprintf("operation(%d)", int(op))
}

// Entity names a managed record type.
type Entity string

const (
	EntityLead         Entity = "lead"
	EntityDeal         Entity = "deal"
	EntityProposal     Entity = "proposal"
	EntityCloserReport Entity = "closer_report"
	EntitySetterReport Entity = "setter_report"
	EntityOffer        Entity = "offer"
	EntityCashEntry    Entity = "cash_entry"
	EntityExpense      Entity = "expense"
	EntityUser         Entity = "user"
)

// Principal describes the authenticated actor bound to one authorization
// context.
type Principal struct {
	ID   int64
	Role Role
}

// Record is the authorization view of an entity instance: only identity and
// ownership fields matter to the evaluator. A zero Record stands in for the
// absent image (inserts have no pre-image, deletes no post-image).
type Record struct {
	// SelfID is set for profile records and holds the profile's own
	// principal id.
	SelfID int64
	// Creator is the primary ownership field checked on insert.
	Creator int64
	// Owners lists every ownership field set on the record (creator,
	// assignee, owner, submitter). Unset fields are omitted.
	Owners []int64
}

// OwnedBy reports whether id matches any ownership field on the record.
func (rec Record) OwnedBy(id int64) bool {
	if id == 0 {
		return false
	}
	for _, owner := range rec.Owners {
		if owner == id {
			return true
		}
	}
	return false
}

// Decision is the evaluator verdict. Deny is a value, not an error.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}
