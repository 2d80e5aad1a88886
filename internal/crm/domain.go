package crm

import (
	"time"

	"github.com/meridian-crm/meridian-crm/internal/authz"
)

// ============================================================================
// LEAD
// ============================================================================

type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusLost      LeadStatus = "lost"
)

type Lead struct {
	ID         int64      `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	Email      *string    `json:"email,omitempty" db:"email"`
	Phone      *string    `json:"phone,omitempty" db:"phone"`
	Source     *string    `json:"source,omitempty" db:"source"`
	Status     LeadStatus `json:"status" db:"status"`
	CreatedBy  int64      `json:"created_by" db:"created_by"`
	AssignedTo *int64     `json:"assigned_to,omitempty" db:"assigned_to"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

type CreateLeadRequest struct {
	Name       string  `json:"name" validate:"required,max=200"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Source     *string `json:"source,omitempty" validate:"omitempty,max=100"`
	AssignedTo *int64  `json:"assigned_to,omitempty" validate:"omitempty,gt=0"`
}

type UpdateLeadRequest struct {
	Name       *string     `json:"name,omitempty" validate:"omitempty,max=200"`
	Email      *string     `json:"email,omitempty" validate:"omitempty,email"`
	Phone      *string     `json:"phone,omitempty" validate:"omitempty,max=50"`
	Source     *string     `json:"source,omitempty" validate:"omitempty,max=100"`
	Status     *LeadStatus `json:"status,omitempty" validate:"omitempty,oneof=new contacted qualified lost"`
	AssignedTo *int64      `json:"assigned_to,omitempty" validate:"omitempty,gt=0"`
}

// ============================================================================
// DEAL
// ============================================================================

type DealStage string

const (
	DealStageNew          DealStage = "new"
	DealStageQualified    DealStage = "qualified"
	DealStageProposalSent DealStage = "proposal_sent"
	DealStageContractSent DealStage = "contract_sent"
	DealStageClosedWon    DealStage = "closed_won"
	DealStageClosedLost   DealStage = "closed_lost"
)

type Deal struct {
	ID              int64      `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	Value           float64    `json:"value" db:"value"`
	Stage           DealStage  `json:"stage" db:"stage"`
	LeadID          *int64     `json:"lead_id,omitempty" db:"lead_id"`
	CreatedBy       int64      `json:"created_by" db:"created_by"`
	OwnerID         *int64     `json:"owner_id,omitempty" db:"owner_id"`
	ActualCloseDate *time.Time `json:"actual_close_date,omitempty" db:"actual_close_date"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

type CreateDealRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Value   float64 `json:"value" validate:"gte=0"`
	LeadID  *int64  `json:"lead_id,omitempty" validate:"omitempty,gt=0"`
	OwnerID *int64  `json:"owner_id,omitempty" validate:"omitempty,gt=0"`
}

type UpdateDealRequest struct {
	Name    *string    `json:"name,omitempty" validate:"omitempty,max=200"`
	Value   *float64   `json:"value,omitempty" validate:"omitempty,gte=0"`
	Stage   *DealStage `json:"stage,omitempty" validate:"omitempty,oneof=new qualified proposal_sent contract_sent closed_won closed_lost"`
	OwnerID *int64     `json:"owner_id,omitempty" validate:"omitempty,gt=0"`
}

// ============================================================================
// PROPOSAL
// ============================================================================

type ProposalStatus string

const (
	ProposalStatusDraft    ProposalStatus = "draft"
	ProposalStatusSent     ProposalStatus = "sent"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusRejected ProposalStatus = "rejected"
)

type Proposal struct {
	ID         int64          `json:"id" db:"id"`
	DealID     int64          `json:"deal_id" db:"deal_id"`
	Title      string         `json:"title" db:"title"`
	Status     ProposalStatus `json:"status" db:"status"`
	Value      float64        `json:"value" db:"value"`
	CreatedBy  int64          `json:"created_by" db:"created_by"`
	AssignedTo *int64         `json:"assigned_to,omitempty" db:"assigned_to"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" db:"updated_at"`
}

type CreateProposalRequest struct {
	DealID     int64   `json:"deal_id" validate:"required,gt=0"`
	Title      string  `json:"title" validate:"required,max=200"`
	Value      float64 `json:"value" validate:"gte=0"`
	AssignedTo *int64  `json:"assigned_to,omitempty" validate:"omitempty,gt=0"`
}

type UpdateProposalRequest struct {
	Title      *string         `json:"title,omitempty" validate:"omitempty,max=200"`
	Status     *ProposalStatus `json:"status,omitempty" validate:"omitempty,oneof=draft sent accepted rejected"`
	Value      *float64        `json:"value,omitempty" validate:"omitempty,gte=0"`
	AssignedTo *int64          `json:"assigned_to,omitempty" validate:"omitempty,gt=0"`
}

// ============================================================================
// CALL REPORTS
// ============================================================================

type CloserReport struct {
	ID          int64     `json:"id" db:"id"`
	DealID      *int64    `json:"deal_id,omitempty" db:"deal_id"`
	Outcome     string    `json:"outcome" db:"outcome"`
	Notes       *string   `json:"notes,omitempty" db:"notes"`
	SubmittedBy int64     `json:"submitted_by" db:"submitted_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type SetterReport struct {
	ID          int64     `json:"id" db:"id"`
	LeadID      *int64    `json:"lead_id,omitempty" db:"lead_id"`
	Outcome     string    `json:"outcome" db:"outcome"`
	Notes       *string   `json:"notes,omitempty" db:"notes"`
	SubmittedBy int64     `json:"submitted_by" db:"submitted_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type CreateReportRequest struct {
	DealID  *int64  `json:"deal_id,omitempty" validate:"omitempty,gt=0"`
	LeadID  *int64  `json:"lead_id,omitempty" validate:"omitempty,gt=0"`
	Outcome string  `json:"outcome" validate:"required,max=100"`
	Notes   *string `json:"notes,omitempty"`
}

type UpdateReportRequest struct {
	Outcome *string `json:"outcome,omitempty" validate:"omitempty,max=100"`
	Notes   *string `json:"notes,omitempty"`
}

// ============================================================================
// FINANCIAL RECORDS
// ============================================================================

type Offer struct {
	ID        int64     `json:"id" db:"id"`
	DealID    *int64    `json:"deal_id,omitempty" db:"deal_id"`
	Amount    float64   `json:"amount" db:"amount"`
	Terms     *string   `json:"terms,omitempty" db:"terms"`
	CreatedBy *int64    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CashEntry struct {
	ID          int64     `json:"id" db:"id"`
	Amount      float64   `json:"amount" db:"amount"`
	EntryDate   time.Time `json:"entry_date" db:"entry_date"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedBy   *int64    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type Expense struct {
	ID          int64     `json:"id" db:"id"`
	Amount      float64   `json:"amount" db:"amount"`
	Category    string    `json:"category" db:"category"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedBy   *int64    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type CreateOfferRequest struct {
	DealID *int64  `json:"deal_id,omitempty" validate:"omitempty,gt=0"`
	Amount float64 `json:"amount" validate:"gte=0"`
	Terms  *string `json:"terms,omitempty"`
}

type UpdateOfferRequest struct {
	Amount *float64 `json:"amount,omitempty" validate:"omitempty,gte=0"`
	Terms  *string  `json:"terms,omitempty"`
}

type CreateCashEntryRequest struct {
	Amount      float64    `json:"amount" validate:"required"`
	EntryDate   *time.Time `json:"entry_date,omitempty"`
	Description *string    `json:"description,omitempty"`
}

type UpdateCashEntryRequest struct {
	Amount      *float64   `json:"amount,omitempty"`
	EntryDate   *time.Time `json:"entry_date,omitempty"`
	Description *string    `json:"description,omitempty"`
}

type CreateExpenseRequest struct {
	Amount      float64 `json:"amount" validate:"required"`
	Category    string  `json:"category" validate:"required,max=100"`
	Description *string `json:"description,omitempty"`
}

type UpdateExpenseRequest struct {
	Amount      *float64 `json:"amount,omitempty"`
	Category    *string  `json:"category,omitempty" validate:"omitempty,max=100"`
	Description *string  `json:"description,omitempty"`
}

// ============================================================================
// AUTHORIZATION IMAGES
// ============================================================================

func ownerRefs(creator int64, extra ...*int64) []int64 {
	refs := make([]int64, 0, 1+len(extra))
	if creator != 0 {
		refs = append(refs, creator)
	}
	for _, ref := range extra {
		if ref != nil && *ref != 0 {
			refs = append(refs, *ref)
		}
	}
	return refs
}

func (l *Lead) authzRecord() authz.Record {
	return authz.Record{Creator: l.CreatedBy, Owners: ownerRefs(l.CreatedBy, l.AssignedTo)}
}

func (d *Deal) authzRecord() authz.Record {
	return authz.Record{Creator: d.CreatedBy, Owners: ownerRefs(d.CreatedBy, d.OwnerID)}
}

func (p *Proposal) authzRecord() authz.Record {
	return authz.Record{Creator: p.CreatedBy, Owners: ownerRefs(p.CreatedBy, p.AssignedTo)}
}

func (r *CloserReport) authzRecord() authz.Record {
	return authz.Record{Creator: r.SubmittedBy, Owners: ownerRefs(r.SubmittedBy)}
}

func (r *SetterReport) authzRecord() authz.Record {
	return authz.Record{Creator: r.SubmittedBy, Owners: ownerRefs(r.SubmittedBy)}
}

func (o *Offer) authzRecord() authz.Record {
	return authz.Record{Creator: deref(o.CreatedBy), Owners: ownerRefs(deref(o.CreatedBy))}
}

func (c *CashEntry) authzRecord() authz.Record {
	return authz.Record{Creator: deref(c.CreatedBy), Owners: ownerRefs(deref(c.CreatedBy))}
}

func (e *Expense) authzRecord() authz.Record {
	return authz.Record{Creator: deref(e.CreatedBy), Owners: ownerRefs(deref(e.CreatedBy))}
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
