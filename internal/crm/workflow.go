package crm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// WorkflowConfig groups workflow switches.
type WorkflowConfig struct {
	// RestampAcceptedCloseDate preserves the observed behavior of the
	// accepted transition: every save that leaves a proposal at accepted
	// re-stamps the deal's actual close date, even when the status did not
	// change. When false the transition is idempotent and only fires on a
	// real status change, like the sent transition.
	RestampAcceptedCloseDate bool
}

// Workflow derives deal updates from committed proposal transitions. It runs
// inside the transaction of the triggering write; a failed derivation aborts
// the whole unit of work. Derived writes are system-level, not subject to the
// per-principal guard.
type Workflow struct {
	cfg    WorkflowConfig
	logger *slog.Logger
	audit  AuditPort
	clock  func() time.Time
}

// NewWorkflow constructs the workflow engine.
func NewWorkflow(cfg WorkflowConfig, logger *slog.Logger, audit AuditPort) *Workflow {
	return &Workflow{
		cfg:    cfg,
		logger: logger,
		audit:  audit,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// ProposalSaved applies the derivation rules after a proposal update. pre and
// post are the images around the triggering write.
func (w *Workflow) ProposalSaved(ctx context.Context, tx TxRepository, pre, post *Proposal) error {
	switch post.Status {
	case ProposalStatusSent:
		// Guarded by old != new so no-op writes do not re-derive.
		if pre.Status == ProposalStatusSent {
			return nil
		}
		return w.setDealStage(ctx, tx, post, DealStageProposalSent, false)

	case ProposalStatusAccepted:
		if !w.cfg.RestampAcceptedCloseDate && pre.Status == ProposalStatusAccepted {
			return nil
		}
		return w.setDealStage(ctx, tx, post, DealStageContractSent, true)
	}
	return nil
}

func (w *Workflow) setDealStage(ctx context.Context, tx TxRepository, proposal *Proposal, stage DealStage, stampClose bool) error {
	deal, err := tx.GetDealForUpdate(ctx, proposal.DealID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: deal %d for proposal %d", ErrCascadeTargetMissing, proposal.DealID, proposal.ID)
		}
		return err
	}

	deal.Stage = stage
	if stampClose {
		now := w.clock()
		deal.ActualCloseDate = &now
	}
	if err := tx.UpdateDeal(ctx, *deal); err != nil {
		return fmt.Errorf("cascade update deal %d: %w", deal.ID, err)
	}

	w.logger.Info("workflow derived deal update",
		slog.Int64("proposal_id", proposal.ID),
		slog.Int64("deal_id", deal.ID),
		slog.String("stage", string(stage)),
	)
	w.recordCascade(ctx, proposal, deal, stage)
	return nil
}

func (w *Workflow) recordCascade(ctx context.Context, proposal *Proposal, deal *Deal, stage DealStage) {
	if w.audit == nil {
		return
	}
	err := w.audit.Record(ctx, shared.AuditLog{
		ActorID:  0, // system-derived, not user-initiated
		Action:   "workflow.deal_stage",
		Entity:   "deal",
		EntityID: strconv.FormatInt(deal.ID, 10),
		Meta: map[string]any{
			"proposal_id": proposal.ID,
			"stage":       string(stage),
		},
		At: w.clock(),
	})
	if err != nil {
		w.logger.Warn("record cascade audit", slog.Any("error", err))
	}
}
