package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-crm/meridian-crm/internal/authz"
	jobmetrics "github.com/meridian-crm/meridian-crm/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// PolicyAuditJob periodically reports the policy table's read exposure and
// scans financial records for ownership references that no longer resolve to
// an active account. It observes only; the engine itself never relaxes.
type PolicyAuditJob struct {
	Pool     *pgxpool.Pool
	Registry *authz.Registry
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewPolicyAuditJob initialises the policy audit handler.
func NewPolicyAuditJob(pool *pgxpool.Pool, registry *authz.Registry, logger *slog.Logger, metrics *jobmetrics.Metrics) *PolicyAuditJob {
	return &PolicyAuditJob{
		Pool:     pool,
		Registry: registry,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the audit.
func (j *PolicyAuditJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil {
		return errors.New("policy audit: handler not configured")
	}
	var payload PolicyAuditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := j.now()
	tracker := j.metrics().Track(TaskPolicyAudit)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting policy audit", slog.Time("scheduled_for", payload.ScheduledFor))

	exposure, err := j.Registry.ReadExposure()
	if err != nil {
		// A hole in the policy table means the engine is denying an entire
		// entity; surface it loudly.
		resultErr = err
		logger.Error("policy table incomplete", slog.Any("error", err))
		return resultErr
	}
	for _, e := range exposure {
		logger.Info("read exposure",
			slog.String("entity", string(e.Entity)),
			slog.String("rule", e.Kind.String()),
		)
	}

	findings, err := j.scanOrphanedOwnership(ctx)
	if err != nil {
		resultErr = err
		logger.Error("ownership scan failed", slog.Any("error", err))
		return resultErr
	}
	for _, f := range findings {
		logger.Warn("orphaned ownership reference",
			slog.String("entity", f.Entity),
			slog.Int64("records", f.Count),
		)
		j.metrics().AddFindings("orphaned_owner", f.Entity, int(f.Count))
	}

	logger.Info("completed policy audit",
		slog.Int("entities", len(exposure)),
		slog.Int("findings", len(findings)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

type ownershipFinding struct {
	Entity string
	Count  int64
}

// scanOrphanedOwnership counts financial rows whose created_by no longer
// resolves to an active account. Those rows are still governed by role rules,
// so this is an observation, not a defect in the engine.
func (j *PolicyAuditJob) scanOrphanedOwnership(ctx context.Context) ([]ownershipFinding, error) {
	if j.Pool == nil {
		return nil, errors.New("policy audit: pool not configured")
	}
	tables := []string{"offers", "cash_entries", "expenses"}
	findings := make([]ownershipFinding, 0, len(tables))
	for _, table := range tables {
		query := fmt.Sprintf(
			`SELECT COUNT(*) FROM %s t
			 LEFT JOIN users u ON u.id = t.created_by
			 WHERE t.created_by IS NOT NULL AND (u.id IS NULL OR NOT u.is_active)`, table)
		var count int64
		if err := j.Pool.QueryRow(ctx, query).Scan(&count); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		if count > 0 {
			findings = append(findings, ownershipFinding{Entity: table, Count: count})
		}
	}
	return findings, nil
}

func (j *PolicyAuditJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPolicyAudit))
	}
	return slog.Default().With(slog.String("job", TaskPolicyAudit))
}

func (j *PolicyAuditJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PolicyAuditJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
