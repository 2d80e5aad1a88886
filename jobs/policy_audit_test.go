package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestNewPolicyAuditTask(t *testing.T) {
	at := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	task, err := NewPolicyAuditTask(at)
	require.NoError(t, err)
	require.Equal(t, TaskPolicyAudit, task.Type())

	var payload PolicyAuditPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.True(t, payload.ScheduledFor.Equal(at))
}

func TestPolicyAuditMalformedPayloadSkipsRetry(t *testing.T) {
	job := &PolicyAuditJob{}
	task := asynq.NewTask(TaskPolicyAudit, []byte("{not json"))

	err := job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestIdempotencyCleanupUnconfigured(t *testing.T) {
	var job *IdempotencyCleanupJob
	task := asynq.NewTask(TaskIdempotencyCleanup, nil)

	err := job.Handle(context.Background(), task)
	require.Error(t, err)
}

func TestTriggerPolicyAuditWithoutClient(t *testing.T) {
	h := NewHandler(nil, nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/policy-audit", nil)

	h.triggerPolicyAudit(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewWorkerRejectsBadCronSpec(t *testing.T) {
	task, err := NewIdempotencyCleanupTask(24)
	require.NoError(t, err)

	_, err = NewWorker(WorkerConfig{
		Cron: []CronRegistration{{Spec: "not a cron spec", Task: task}},
	})
	require.Error(t, err)
}
