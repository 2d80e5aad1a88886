package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPolicyAudit runs the periodic policy exposure and ownership audit.
	TaskPolicyAudit = "authz:policy_audit"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// PolicyAuditPayload tunes one audit run.
type PolicyAuditPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewPolicyAuditTask constructs an Asynq task for the policy audit.
func NewPolicyAuditTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(PolicyAuditPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPolicyAudit, body, asynq.Queue(QueueDefault)), nil
}

// IdempotencyCleanupPayload carries the retention window.
type IdempotencyCleanupPayload struct {
	RetainHours int `json:"retain_hours"`
}

// NewIdempotencyCleanupTask constructs a cleanup task.
func NewIdempotencyCleanupTask(retainHours int) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{RetainHours: retainHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
