package crm

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkflow(t *testing.T, cfg WorkflowConfig) (*Workflow, *recordedAudit) {
	t.Helper()
	audit := &recordedAudit{}
	return NewWorkflow(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), audit), audit
}

func TestProposalSentAdvancesDeal(t *testing.T) {
	wf, audit := newTestWorkflow(t, WorkflowConfig{RestampAcceptedCloseDate: true})
	repo := newMockRepository()
	repo.deals[1] = Deal{ID: 1, Name: "Acme Deal", Stage: DealStageQualified}

	pre := &Proposal{ID: 2, DealID: 1, Status: ProposalStatusDraft}
	post := &Proposal{ID: 2, DealID: 1, Status: ProposalStatusSent}
	require.NoError(t, wf.ProposalSaved(context.Background(), repo, pre, post))

	assert.Equal(t, DealStageProposalSent, repo.deals[1].Stage)
	assert.Nil(t, repo.deals[1].ActualCloseDate)
	assert.Equal(t, 1, repo.dealUpdates)
	require.Len(t, audit.logs, 1)
	assert.Zero(t, audit.logs[0].ActorID)
}

func TestProposalSentResaveDoesNotRefire(t *testing.T) {
	wf, audit := newTestWorkflow(t, WorkflowConfig{RestampAcceptedCloseDate: true})
	repo := newMockRepository()
	repo.deals[1] = Deal{ID: 1, Name: "Acme Deal", Stage: DealStageProposalSent}

	pre := &Proposal{ID: 2, DealID: 1, Status: ProposalStatusSent}
	post := &Proposal{ID: 2, DealID: 1, Status: ProposalStatusSent, Value: 9000}
	require.NoError(t, wf.ProposalSaved(context.Background(), repo, pre, post))

	assert.Zero(t, repo.dealUpdates)
	assert.Empty(t, audit.logs)
}

func TestProposalAcceptedRestampsByDefault(t *testing.T) {
	wf, _ := newTestWorkflow(t, WorkflowConfig{RestampAcceptedCloseDate: true})
	repo := newMockRepository()
	stale := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	repo.deals[1] = Deal{ID: 1, Name: "Acme Deal", Stage: DealStageContractSent, ActualCloseDate: &stale}

	// An accepted proposal saved again moves the close date forward even
	// though the status did not change.
	pre := &Proposal{ID: 2, DealID: 1, Status: ProposalStatusAccepted}
	post := &Proposal{ID: 2, DealID: 1, Status: ProposalStatusAccepted, Value: 9000}
	require.NoError(t, wf.ProposalSaved(context.Background(), repo, pre, post))

	require.NotNil(t, repo.deals[1].ActualCloseDate)
	assert.True(t, repo.deals[1].ActualCloseDate.After(stale))
	assert.Equal(t, 1, repo.dealUpdates)
}

func TestProposalAcceptedIdempotentWhenConfigured(t *testing.T) {
	wf, audit := newTestWorkflow(t, WorkflowConfig{RestampAcceptedCloseDate: false})
	repo := newMockRepository()
	stale := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	repo.deals[1] = Deal{ID: 1, Name: "Acme Deal", Stage: DealStageContractSent, ActualCloseDate: &stale}

	pre := &Proposal{ID: 2, DealID: 1, Status: ProposalStatusAccepted}
	post := &Proposal{ID: 2, DealID: 1, Status: ProposalStatusAccepted, Value: 9000}
	require.NoError(t, wf.ProposalSaved(context.Background(), repo, pre, post))

	assert.Equal(t, stale, *repo.deals[1].ActualCloseDate)
	assert.Zero(t, repo.dealUpdates)
	assert.Empty(t, audit.logs)
}

func TestProposalDraftAndRejectedAreInert(t *testing.T) {
	wf, _ := newTestWorkflow(t, WorkflowConfig{RestampAcceptedCloseDate: true})
	repo := newMockRepository()
	repo.deals[1] = Deal{ID: 1, Name: "Acme Deal", Stage: DealStageQualified}

	for _, status := range []ProposalStatus{ProposalStatusDraft, ProposalStatusRejected} {
		pre := &Proposal{ID: 2, DealID: 1, Status: ProposalStatusSent}
		post := &Proposal{ID: 2, DealID: 1, Status: status}
		require.NoError(t, wf.ProposalSaved(context.Background(), repo, pre, post))
	}
	assert.Equal(t, DealStageQualified, repo.deals[1].Stage)
	assert.Zero(t, repo.dealUpdates)
}

func TestProposalCascadeMissingDeal(t *testing.T) {
	wf, _ := newTestWorkflow(t, WorkflowConfig{RestampAcceptedCloseDate: true})
	repo := newMockRepository()

	pre := &Proposal{ID: 2, DealID: 42, Status: ProposalStatusDraft}
	post := &Proposal{ID: 2, DealID: 42, Status: ProposalStatusSent}
	err := wf.ProposalSaved(context.Background(), repo, pre, post)
	require.ErrorIs(t, err, ErrCascadeTargetMissing)
}
