package crm

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-crm/meridian-crm/internal/authz"
)

func TestDeriveProposalCopiesDealFields(t *testing.T) {
	svc, repo, audit := newTestService(t, map[int64]authz.Role{})
	owner := int64(9)
	repo.deals[1] = Deal{ID: 1, Name: "acme renewal", Value: 12000, Stage: DealStageQualified, CreatedBy: 7, OwnerID: &owner}
	repo.nextID = 1

	proposal, err := svc.DeriveProposal(context.Background(), 1, "")
	require.NoError(t, err)

	assert.Equal(t, int64(1), proposal.DealID)
	assert.Equal(t, "Proposal for Acme Renewal", proposal.Title)
	assert.Equal(t, ProposalStatusDraft, proposal.Status)
	assert.Equal(t, 12000.0, proposal.Value)
	assert.Equal(t, int64(7), proposal.CreatedBy)
	require.NotNil(t, proposal.AssignedTo)
	assert.Equal(t, owner, *proposal.AssignedTo)
	assert.Len(t, repo.proposals, 1)

	require.Len(t, audit.logs, 1)
	assert.Zero(t, audit.logs[0].ActorID)
	assert.Equal(t, "proposal.derive", audit.logs[0].Action)
}

func TestDeriveProposalMissingDeal(t *testing.T) {
	svc, repo, _ := newTestService(t, map[int64]authz.Role{})

	_, err := svc.DeriveProposal(context.Background(), 42, "")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, repo.proposals)
}

func TestDeriveProposalBypassesGuard(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMockRepository()
	directory := &stubDirectory{roles: map[int64]authz.Role{}}
	guard := authz.NewGuard(authz.NewRegistry(), directory, logger, nil)
	workflow := NewWorkflow(WorkflowConfig{RestampAcceptedCloseDate: true}, logger, nil)
	svc := NewService(repo, guard, workflow, nil, nil, logger)

	repo.deals[1] = Deal{ID: 1, Name: "Acme Renewal", Value: 500, CreatedBy: 7}
	repo.nextID = 1

	_, err := svc.DeriveProposal(context.Background(), 1, "")
	require.NoError(t, err)
	// System derivation never consults the role directory.
	assert.Zero(t, directory.lookups)
}
