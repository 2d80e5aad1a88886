package crm

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// DeriveProposal materializes a draft proposal from an existing deal. It runs
// with system privilege: the evaluator is not consulted because the operation
// is triggered by internal automation, not a principal. Ownership fields are
// copied from the deal so the deal's owner keeps control over the draft.
//
// A non-empty idempotencyKey makes repeated calls with the same key fail with
// shared.ErrIdempotencyConflict instead of producing duplicate drafts. The key
// reservation is released again if the derivation itself fails.
func (s *Service) DeriveProposal(ctx context.Context, dealID int64, idempotencyKey string) (*Proposal, error) {
	if s.idempotency != nil && idempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, "proposal.derive"); err != nil {
			return nil, err
		}
	}

	proposal, err := s.deriveProposal(ctx, dealID)
	if err != nil {
		if s.idempotency != nil && idempotencyKey != "" {
			if delErr := s.idempotency.Delete(ctx, idempotencyKey); delErr != nil {
				s.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		return nil, err
	}
	return proposal, nil
}

func (s *Service) deriveProposal(ctx context.Context, dealID int64) (*Proposal, error) {
	var proposal Proposal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		deal, err := tx.GetDealForUpdate(ctx, dealID)
		if err != nil {
			return fmt.Errorf("load deal %d: %w", dealID, err)
		}
		proposal = Proposal{
			DealID:     deal.ID,
			Title:      proposalTitle(deal.Name),
			Status:     ProposalStatusDraft,
			Value:      deal.Value,
			CreatedBy:  deal.CreatedBy,
			AssignedTo: deal.OwnerID,
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

	s.logger.Info("proposal derived",
		slog.Int64("deal_id", dealID),
		slog.Int64("proposal_id", proposal.ID),
	)
	if s.audit != nil {
		logErr := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  0,
			Action:   "proposal.derive",
			Entity:   "proposal",
			EntityID: strconv.FormatInt(proposal.ID, 10),
			Meta:     map[string]any{"deal_id": dealID},
			At:       time.Now().UTC(),
		})
		if logErr != nil {
			s.logger.Warn("record audit", slog.Any("error", logErr))
		}
	}
	return &proposal, nil
}

func proposalTitle(dealName string) string {
	// cases.Caser carries internal state, so a fresh one is built per call.
	return "Proposal for " + cases.Title(language.English).String(dealName)
}
