package crm

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/meridian-crm/meridian-crm/internal/authz"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetLead(ctx context.Context, id int64) (*Lead, error)
	ListLeads(ctx context.Context, params ListParams) ([]Lead, error)
	GetDeal(ctx context.Context, id int64) (*Deal, error)
	ListDeals(ctx context.Context, params ListParams) ([]Deal, error)
	GetProposal(ctx context.Context, id int64) (*Proposal, error)
	ListProposals(ctx context.Context, params ListParams) ([]Proposal, error)
	GetCloserReport(ctx context.Context, id int64) (*CloserReport, error)
	ListCloserReports(ctx context.Context, params ListParams) ([]CloserReport, error)
	GetSetterReport(ctx context.Context, id int64) (*SetterReport, error)
	ListSetterReports(ctx context.Context, params ListParams) ([]SetterReport, error)
	GetOffer(ctx context.Context, id int64) (*Offer, error)
	ListOffers(ctx context.Context, params ListParams) ([]Offer, error)
	GetCashEntry(ctx context.Context, id int64) (*CashEntry, error)
	ListCashEntries(ctx context.Context, params ListParams) ([]CashEntry, error)
	GetExpense(ctx context.Context, id int64) (*Expense, error)
	ListExpenses(ctx context.Context, params ListParams) ([]Expense, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates CRM operations. Every call opens one authorization
// context, so the acting principal's role is resolved exactly once per
// operation regardless of how many checks run inside it.
type Service struct {
	repo        RepositoryPort
	guard       *authz.Guard
	workflow    *Workflow
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	logger      *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, guard *authz.Guard, workflow *Workflow, audit AuditPort, idem *shared.IdempotencyStore, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		guard:       guard,
		workflow:    workflow,
		audit:       audit,
		idempotency: idem,
		logger:      logger,
	}
}

func (s *Service) recordMutation(ctx context.Context, actorID int64, action, entity string, entityID int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(entityID, 10),
		At:       time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("record audit", slog.Any("error", err))
	}
}

// ============================================================================
// LEADS
// ============================================================================

func (s *Service) CreateLead(ctx context.Context, principalID int64, req CreateLeadRequest) (*Lead, error) {
	actx := s.guard.NewContext(principalID)
	lead := Lead{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Source:     req.Source,
		Status:     LeadStatusNew,
		CreatedBy:  principalID,
		AssignedTo: req.AssignedTo,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.guard.Require(ctx, actx, authz.OpInsert, authz.EntityLead, authz.Record{}, lead.authzRecord()); err != nil {
			return err
		}
		id, err := tx.InsertLead(ctx, lead)
		if err != nil {
			return err
		}
		lead.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordMutation(ctx, principalID, "lead.create", "lead", lead.ID)
	return &lead, nil
}

func (s *Service) GetLead(ctx context.Context, principalID, id int64) (*Lead, error) {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpSelect, authz.EntityLead, authz.Record{}, authz.Record{}); err != nil {
		return nil, err
	}
	return s.repo.GetLead(ctx, id)
}

func (s *Service) ListLeads(ctx context.Context, principalID int64, params ListParams) ([]Lead, error) {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpSelect, authz.EntityLead, authz.Record{}, authz.Record{}); err != nil {
		return nil, err
	}
	return s.repo.ListLeads(ctx, params)
}

func (s *Service) UpdateLead(ctx context.Context, principalID, id int64, req UpdateLeadRequest) (*Lead, error) {
	actx := s.guard.NewContext(principalID)
	var updated Lead
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pre, err := tx.GetLeadForUpdate(ctx, id)
		if err != nil {
			return err
		}
		// Phase one: gate on the stored image before applying the patch.
		if err := s.guard.Require(ctx, actx, authz.OpUpdate, authz.EntityLead, pre.authzRecord(), pre.authzRecord()); err != nil {
			return err
		}
		post := *pre
		if req.Name != nil {
			post.Name = *req.Name
		}
		if req.Email != nil {
			post.Email = req.Email
		}
		if req.Phone != nil {
			post.Phone = req.Phone
		}
		if req.Source != nil {
			post.Source = req.Source
		}
		if req.Status != nil {
			post.Status = *req.Status
		}
		if req.AssignedTo != nil {
			post.AssignedTo = req.AssignedTo
		}
		// Phase two: re-validate the proposed state before commit.
		if err := s.guard.Require(ctx, actx, authz.OpUpdate, authz.EntityLead, pre.authzRecord(), post.authzRecord()); err != nil {
			return err
		}
		if err := tx.UpdateLead(ctx, post); err != nil {
			return err
		}
		updated = post
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordMutation(ctx, principalID, "lead.update", "lead", updated.ID)
	return &updated, nil
}

func (s *Service) DeleteLead(ctx context.Context, principalID, id int64) error {
	actx := s.guard.NewContext(principalID)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pre, err := tx.GetLeadForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.guard.Require(ctx, actx, authz.OpDelete, authz.EntityLead, pre.authzRecord(), authz.Record{}); err != nil {
			return err
		}
		return tx.DeleteLead(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordMutation(ctx, principalID, "lead.delete", "lead", id)
	return nil
}

// ============================================================================
// DEALS
// ============================================================================

func (s *Service) CreateDeal(ctx context.Context, principalID int64, req CreateDealRequest) (*Deal, error) {
	actx := s.guard.NewContext(principalID)
	deal := Deal{
		Name:      req.Name,
		Value:     req.Value,
		Stage:     DealStageNew,
		LeadID:    req.LeadID,
		CreatedBy: principalID,
		OwnerID:   req.OwnerID,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.guard.Require(ctx, actx, authz.OpInsert, authz.EntityDeal, authz.Record{}, deal.authzRecord()); err != nil {
			return err
		}
		id, err := tx.InsertDeal(ctx, deal)
		if err != nil {
			return err
		}
		deal.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordMutation(ctx, principalID, "deal.create", "deal", deal.ID)
	return &deal, nil
}

func (s *Service) GetDeal(ctx context.Context, principalID, id int64) (*Deal, error) {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpSelect, authz.EntityDeal, authz.Record{}, authz.Record{}); err != nil {
		return nil, err
	}
	return s.repo.GetDeal(ctx, id)
}

func (s *Service) ListDeals(ctx context.Context, principalID int64, params ListParams) ([]Deal, error) {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpSelect, authz.EntityDeal, authz.Record{}, authz.Record{}); err != nil {
		return nil, err
	}
	return s.repo.ListDeals(ctx, params)
}

func (s *Service) UpdateDeal(ctx context.Context, principalID, id int64, req UpdateDealRequest) (*Deal, error) {
	actx := s.guard.NewContext(principalID)
	var updated Deal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pre, err := tx.GetDealForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.guard.Require(ctx, actx, authz.OpUpdate, authz.EntityDeal, pre.authzRecord(), pre.authzRecord()); err != nil {
			return err
		}
		post := *pre
		if req.Name != nil {
			post.Name = *req.Name
		}
		if req.Value != nil {
			post.Value = *req.Value
		}
		if req.Stage != nil {
			post.Stage = *req.Stage
		}
		if req.OwnerID != nil {
			post.OwnerID = req.OwnerID
		}
		if err := s.guard.Require(ctx, actx, authz.OpUpdate, authz.EntityDeal, pre.authzRecord(), post.authzRecord()); err != nil {
			return err
		}
		if err := tx.UpdateDeal(ctx, post); err != nil {
			return err
		}
		updated = post
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordMutation(ctx, principalID, "deal.update", "deal", updated.ID)
	return &updated, nil
}

func (s *Service) DeleteDeal(ctx context.Context, principalID, id int64) error {
	actx := s.guard.NewContext(principalID)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pre, err := tx.GetDealForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.guard.Require(ctx, actx, authz.OpDelete, authz.EntityDeal, pre.authzRecord(), authz.Record{}); err != nil {
			return err
		}
		return tx.DeleteDeal(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordMutation(ctx, principalID, "deal.delete", "deal", id)
	return nil
}

// ============================================================================
// PROPOSALS
// ============================================================================

func (s *Service) CreateProposal(ctx context.Context, principalID int64, req CreateProposalRequest) (*Proposal, error) {
	actx := s.guard.NewContext(principalID)
	proposal := Proposal{
		DealID:     req.DealID,
		Title:      req.Title,
		Status:     ProposalStatusDraft,
		Value:      req.Value,
		CreatedBy:  principalID,
		AssignedTo: req.AssignedTo,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.guard.Require(ctx, actx, authz.OpInsert, authz.EntityProposal, authz.Record{}, proposal.authzRecord()); err != nil {
			return err
		}
		id, err := tx.InsertProposal(ctx, proposal)
		if err != nil {
			return err
		}
		proposal.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordMutation(ctx, principalID, "proposal.create", "proposal", proposal.ID)
	return &proposal, nil
}

func (s *Service) GetProposal(ctx context.Context, principalID, id int64) (*Proposal, error) {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpSelect, authz.EntityProposal, authz.Record{}, authz.Record{}); err != nil {
		return nil, err
	}
	return s.repo.GetProposal(ctx, id)
}

func (s *Service) ListProposals(ctx context.Context, principalID int64, params ListParams) ([]Proposal, error) {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpSelect, authz.EntityProposal, authz.Record{}, authz.Record{}); err != nil {
		return nil, err
	}
	return s.repo.ListProposals(ctx, params)
}

// UpdateProposal updates the proposal and, within the same transaction, runs
// the workflow derivation over the status transition. A failing derivation
// rolls back the proposal write as well.
func (s *Service) UpdateProposal(ctx context.Context, principalID, id int64, req UpdateProposalRequest) (*Proposal, error) {
	actx := s.guard.NewContext(principalID)
	var updated Proposal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pre, err := tx.GetProposalForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.guard.Require(ctx, actx, authz.OpUpdate, authz.EntityProposal, pre.authzRecord(), pre.authzRecord()); err != nil {
			return err
		}
		post := *pre
		if req.Title != nil {
			post.Title = *req.Title
		}
		if req.Status != nil {
			post.Status = *req.Status
		}
		if req.Value != nil {
			post.Value = *req.Value
		}
		if req.AssignedTo != nil {
			post.AssignedTo = req.AssignedTo
		}
		if err := s.guard.Require(ctx, actx, authz.OpUpdate, authz.EntityProposal, pre.authzRecord(), post.authzRecord()); err != nil {
			return err
		}
		if err := tx.UpdateProposal(ctx, post); err != nil {
			return err
		}
		if err := s.workflow.ProposalSaved(ctx, tx, pre, &post); err != nil {
			return err
		}
		updated = post
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordMutation(ctx, principalID, "proposal.update", "proposal", updated.ID)
	return &updated, nil
}

func (s *Service) DeleteProposal(ctx context.Context, principalID, id int64) error {
	actx := s.guard.NewContext(principalID)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pre, err := tx.GetProposalForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.guard.Require(ctx, actx, authz.OpDelete, authz.EntityProposal, pre.authzRecord(), authz.Record{}); err != nil {
			return err
		}
		return tx.DeleteProposal(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordMutation(ctx, principalID, "proposal.delete", "proposal", id)
	return nil
}

// ============================================================================
// CALL REPORTS
// ============================================================================

func (s *Service) CreateCloserReport(ctx context.Context, principalID int64, req CreateReportRequest) (*CloserReport, error) {
	actx := s.guard.NewContext(principalID)
	report := CloserReport{
		DealID:      req.DealID,
		Outcome:     req.Outcome,
		Notes:       req.Notes,
		SubmittedBy: principalID,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.guard.Require(ctx, actx, authz.OpInsert, authz.EntityCloserReport, authz.Record{}, report.authzRecord()); err != nil {
			return err
		}
		id, err := tx.InsertCloserReport(ctx, report)
		if err != nil {
			return err
		}
		report.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *Service) GetCloserReport(ctx context.Context, principalID, id int64) (*CloserReport, error) {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpSelect, authz.EntityCloserReport, authz.Record{}, authz.Record{}); err != nil {
		return nil, err
	}
	return s.repo.GetCloserReport(ctx, id)
}

func (s *Service) ListCloserReports(ctx context.Context, principalID int64, params ListParams) ([]CloserReport, error) {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpSelect, authz.EntityCloserReport, authz.Record{}, authz.Record{}); err != nil {
		return nil, err
	}
	return s.repo.ListCloserReports(ctx, params)
}

func (s *Service) UpdateCloserReport(ctx context.Context, principalID, id int64, req UpdateReportRequest) (*CloserReport, error) {
	actx := s.guard.NewContext(principalID)
	var updated CloserReport
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pre, err := tx.GetCloserReportForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.guard.Require(ctx, actx, authz.OpUpdate, authz.EntityCloserReport, pre.authzRecord(), pre.authzRecord()); err != nil {
			return err
		}
		post := *pre
		if req.Outcome != nil {
			post.Outcome = *req.Outcome
		}
		if req.Notes != nil {
			post.Notes = req.Notes
		}
		if err := s.guard.Require(ctx, actx, authz.OpUpdate, authz.EntityCloserReport, pre.authzRecord(), post.authzRecord()); err != nil {
			return err
		}
		if err := tx.UpdateCloserReport(ctx, post); err != nil {
			return err
		}
		updated = post
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Service) DeleteCloserReport(ctx context.Context, principalID, id int64) error {
	actx := s.guard.NewContext(principalID)
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pre, err := tx.GetCloserReportForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.guard.Require(ctx, actx, authz.OpDelete, authz.EntityCloserReport, pre.authzRecord(), authz.Record{}); err != nil {
			return err
		}
		return tx.DeleteCloserReport(ctx, id)
	})
}

func (s *Service) CreateSetterReport(ctx context.Context, principalID int64, req CreateReportRequest) (*SetterReport, error) {
	actx := s.guard.NewContext(principalID)
	report := SetterReport{
		LeadID:      req.LeadID,
		Outcome:     req.Outcome,
		Notes:       req.Notes,
		SubmittedBy: principalID,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.guard.Require(ctx, actx, authz.OpInsert, authz.EntitySetterReport, authz.Record{}, report.authzRecord()); err != nil {
			return err
		}
		id, err := tx.InsertSetterReport(ctx, report)
		if err != nil {
			return err
		}
		report.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *Service) GetSetterReport(ctx context.Context, principalID, id int64) (*SetterReport, error) {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpSelect, authz.EntitySetterReport, authz.Record{}, authz.Record{}); err != nil {
		return nil, err
	}
	return s.repo.GetSetterReport(ctx, id)
}

func (s *Service) ListSetterReports(ctx context.Context, principalID int64, params ListParams) ([]SetterReport, error) {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpSelect, authz.EntitySetterReport, authz.Record{}, authz.Record{}); err != nil {
		return nil, err
	}
	return s.repo.ListSetterReports(ctx, params)
}

func (s *Service) UpdateSetterReport(ctx context.Context, principalID, id int64, req UpdateReportRequest) (*SetterReport, error) {
	actx := s.guard.NewContext(principalID)
	var updated SetterReport
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pre, err := tx.GetSetterReportForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.guard.Require(ctx, actx, authz.OpUpdate, authz.EntitySetterReport, pre.authzRecord(), pre.authzRecord()); err != nil {
			return err
		}
		post := *pre
		if req.Outcome != nil {
			post.Outcome = *req.Outcome
		}
		if req.Notes != nil {
			post.Notes = req.Notes
		}
		if err := s.guard.Require(ctx, actx, authz.OpUpdate, authz.EntitySetterReport, pre.authzRecord(), post.authzRecord()); err != nil {
			return err
		}
		if err := tx.UpdateSetterReport(ctx, post); err != nil {
			return err
		}
		updated = post
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Service) DeleteSetterReport(ctx context.Context, principalID, id int64) error {
	actx := s.guard.NewContext(principalID)
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pre, err := tx.GetSetterReportForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.guard.Require(ctx, actx, authz.OpDelete, authz.EntitySetterReport, pre.authzRecord(), authz.Record{}); err != nil {
			return err
		}
		return tx.DeleteSetterReport(ctx, id)
	})
}

// ============================================================================
// FINANCIAL RECORDS
// ============================================================================

func (s *Service) CreateOffer(ctx context.Context, principalID int64, req CreateOfferRequest) (*Offer, error) {
	actx := s.guard.NewContext(principalID)
	offer := Offer{
		DealID:    req.DealID,
		Amount:    req.Amount,
		Terms:     req.Terms,
		CreatedBy: &principalID,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.guard.Require(ctx, actx, authz.OpInsert, authz.EntityOffer, authz.Record{}, offer.authzRecord()); err != nil {
			return err
		}
		id, err := tx.InsertOffer(ctx, offer)
		if err != nil {
			return err
		}
		offer.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordMutation(ctx, principalID, "offer.create", "offer", offer.ID)
	return &offer, nil
}

func (s *Service) GetOffer(ctx context.Context, principalID, id int64) (*Offer, error) {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpSelect, authz.EntityOffer, authz.Record{}, authz.Record{}); err != nil {
		return nil, err
	}
	return s.repo.GetOffer(ctx, id)
}

func (s *Service) ListOffers(ctx context.Context, principalID int64, params ListParams) ([]Offer, error) {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpSelect, authz.EntityOffer, authz.Record{}, authz.Record{}); err != nil {
		return nil, err
	}
	return s.repo.ListOffers(ctx, params)
}

func (s *Service) UpdateOffer(ctx context.Context, principalID, id int64, req UpdateOfferRequest) (*Offer, error) {
	actx := s.guard.NewContext(principalID)
	var updated Offer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pre, err := tx.GetOfferForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.guard.Require(ctx, actx, authz.OpUpdate, authz.EntityOffer, pre.authzRecord(), pre.authzRecord()); err != nil {
			return err
		}
		post := *pre
		if req.Amount != nil {
			post.Amount = *req.Amount
		}
		if req.Terms != nil {
			post.Terms = req.Terms
		}
		if err := s.guard.Require(ctx, actx, authz.OpUpdate, authz.EntityOffer, pre.authzRecord(), post.authzRecord()); err != nil {
			return err
		}
		if err := tx.UpdateOffer(ctx, post); err != nil {
			return err
		}
		updated = post
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordMutation(ctx, principalID, "offer.update", "offer", updated.ID)
	return &updated, nil
}

func (s *Service) DeleteOffer(ctx context.Context, principalID, id int64) error {
	actx := s.guard.NewContext(principalID)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pre, err := tx.GetOfferForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.guard.Require(ctx, actx, authz.OpDelete, authz.EntityOffer, pre.authzRecord(), authz.Record{}); err != nil {
			return err
		}
		return tx.DeleteOffer(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordMutation(ctx, principalID, "offer.delete", "offer", id)
	return nil
}

func (s *Service) CreateCashEntry(ctx context.Context, principalID int64, req CreateCashEntryRequest) (*CashEntry, error) {
	actx := s.guard.NewContext(principalID)
	entry := CashEntry{
		Amount:      req.Amount,
		EntryDate:   time.Now().UTC(),
		Description: req.Description,
		CreatedBy:   &principalID,
	}
	if req.EntryDate != nil {
		entry.EntryDate = *req.EntryDate
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.guard.Require(ctx, actx, authz.OpInsert, authz.EntityCashEntry, authz.Record{}, entry.authzRecord()); err != nil {
			return err
		}
		id, err := tx.InsertCashEntry(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordMutation(ctx, principalID, "cash_entry.create", "cash_entry", entry.ID)
	return &entry, nil
}

func (s *Service) GetCashEntry(ctx context.Context, principalID, id int64) (*CashEntry, error) {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpSelect, authz.EntityCashEntry, authz.Record{}, authz.Record{}); err != nil {
		return nil, err
	}
	return s.repo.GetCashEntry(ctx, id)
}

func (s *Service) ListCashEntries(ctx context.Context, principalID int64, params ListParams) ([]CashEntry, error) {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpSelect, authz.EntityCashEntry, authz.Record{}, authz.Record{}); err != nil {
		return nil, err
	}
	return s.repo.ListCashEntries(ctx, params)
}

func (s *Service) UpdateCashEntry(ctx context.Context, principalID, id int64, req UpdateCashEntryRequest) (*CashEntry, error) {
	actx := s.guard.NewContext(principalID)
	var updated CashEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pre, err := tx.GetCashEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.guard.Require(ctx, actx, authz.OpUpdate, authz.EntityCashEntry, pre.authzRecord(), pre.authzRecord()); err != nil {
			return err
		}
		post := *pre
		if req.Amount != nil {
			post.Amount = *req.Amount
		}
		if req.EntryDate != nil {
			post.EntryDate = *req.EntryDate
		}
		if req.Description != nil {
			post.Description = req.Description
		}
		if err := s.guard.Require(ctx, actx, authz.OpUpdate, authz.EntityCashEntry, pre.authzRecord(), post.authzRecord()); err != nil {
			return err
		}
		if err := tx.UpdateCashEntry(ctx, post); err != nil {
			return err
		}
		updated = post
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordMutation(ctx, principalID, "cash_entry.update", "cash_entry", updated.ID)
	return &updated, nil
}

func (s *Service) DeleteCashEntry(ctx context.Context, principalID, id int64) error {
	actx := s.guard.NewContext(principalID)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pre, err := tx.GetCashEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.guard.Require(ctx, actx, authz.OpDelete, authz.EntityCashEntry, pre.authzRecord(), authz.Record{}); err != nil {
			return err
		}
		return tx.DeleteCashEntry(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordMutation(ctx, principalID, "cash_entry.delete", "cash_entry", id)
	return nil
}

func (s *Service) CreateExpense(ctx context.Context, principalID int64, req CreateExpenseRequest) (*Expense, error) {
	actx := s.guard.NewContext(principalID)
	expense := Expense{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		CreatedBy:   &principalID,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.guard.Require(ctx, actx, authz.OpInsert, authz.EntityExpense, authz.Record{}, expense.authzRecord()); err != nil {
			return err
		}
		id, err := tx.InsertExpense(ctx, expense)
		if err != nil {
			return err
		}
		expense.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordMutation(ctx, principalID, "expense.create", "expense", expense.ID)
	return &expense, nil
}

func (s *Service) GetExpense(ctx context.Context, principalID, id int64) (*Expense, error) {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpSelect, authz.EntityExpense, authz.Record{}, authz.Record{}); err != nil {
		return nil, err
	}
	return s.repo.GetExpense(ctx, id)
}

func (s *Service) ListExpenses(ctx context.Context, principalID int64, params ListParams) ([]Expense, error) {
	actx := s.guard.NewContext(principalID)
	if err := s.guard.Require(ctx, actx, authz.OpSelect, authz.EntityExpense, authz.Record{}, authz.Record{}); err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx, params)
}

func (s *Service) UpdateExpense(ctx context.Context, principalID, id int64, req UpdateExpenseRequest) (*Expense, error) {
	actx := s.guard.NewContext(principalID)
	var updated Expense
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pre, err := tx.GetExpenseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.guard.Require(ctx, actx, authz.OpUpdate, authz.EntityExpense, pre.authzRecord(), pre.authzRecord()); err != nil {
			return err
		}
		post := *pre
		if req.Amount != nil {
			post.Amount = *req.Amount
		}
		if req.Category != nil {
			post.Category = *req.Category
		}
		if req.Description != nil {
			post.Description = req.Description
		}
		if err := s.guard.Require(ctx, actx, authz.OpUpdate, authz.EntityExpense, pre.authzRecord(), post.authzRecord()); err != nil {
			return err
		}
		if err := tx.UpdateExpense(ctx, post); err != nil {
			return err
		}
		updated = post
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordMutation(ctx, principalID, "expense.update", "expense", updated.ID)
	return &updated, nil
}

func (s *Service) DeleteExpense(ctx context.Context, principalID, id int64) error {
	actx := s.guard.NewContext(principalID)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pre, err := tx.GetExpenseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.guard.Require(ctx, actx, authz.OpDelete, authz.EntityExpense, pre.authzRecord(), authz.Record{}); err != nil {
			return err
		}
		return tx.DeleteExpense(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordMutation(ctx, principalID, "expense.delete", "expense", id)
	return nil
}
