package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// IdempotencyCleanupJob prunes idempotency keys older than the retention
// window so the table does not grow without bound.
type IdempotencyCleanupJob struct {
	Store  *shared.IdempotencyStore
	Logger *slog.Logger
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetainHours <= 0 {
		payload.RetainHours = 24
	}

	retention := time.Duration(payload.RetainHours) * time.Hour
	if err := j.Store.Cleanup(ctx, retention); err != nil {
		if j.Logger != nil {
			j.Logger.Error("idempotency cleanup", slog.Any("error", err))
		}
		return err
	}
	if j.Logger != nil {
		j.Logger.Info("idempotency keys pruned", slog.Duration("retention", retention))
	}
	return nil
}
