package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DecisionMetrics counts evaluated decisions. Implemented by the
// observability package; nil disables counting.
type DecisionMetrics interface {
	Decision(entity, operation string, allowed bool)
}

// Guard is the authorization boundary in front of storage. Every data
// operation passes through Require before any mutation becomes visible.
type Guard struct {
	evaluator *Evaluator
	directory RoleDirectory
	logger    *slog.Logger
	metrics   DecisionMetrics
}

// NewGuard wires the guard over the policy table and role directory.
func NewGuard(registry *Registry, directory RoleDirectory, logger *slog.Logger, metrics DecisionMetrics) *Guard {
	return &Guard{
		evaluator: NewEvaluator(registry),
		directory: directory,
		logger:    logger,
		metrics:   metrics,
	}
}

// NewContext opens an authorization context for the principal. Callers keep
// one context per unit of work so the role is resolved exactly once.
func (g *Guard) NewContext(principalID int64) *Context {
	return NewContext(g.directory, principalID)
}

// Require evaluates the applicable policy and returns ErrDenied unless the
// operation is allowed. An unresolvable principal is a Deny, never a default
// role. ErrUnconfiguredPolicy propagates as-is: fail closed, fatal.
func (g *Guard) Require(ctx context.Context, actx *Context, op Operation, entity Entity, pre, post Record) error {
	principal, err := actx.Principal(ctx)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			g.count(entity, op, false)
			g.logger.Warn("authorization denied",
				slog.Int64("principal_id", actx.PrincipalID()),
				slog.String("entity", string(entity)),
				slog.String("operation", op.String()),
				slog.String("reason", "principal not found"),
			)
			return fmt.Errorf("%w: %w", ErrDenied, err)
		}
		return err
	}

	decision, err := g.evaluator.Evaluate(principal, op, entity, pre, post)
	if err != nil {
		g.logger.Error("policy table misconfigured",
			slog.String("entity", string(entity)),
			slog.String("operation", op.String()),
			slog.Any("error", err),
		)
		return err
	}

	g.count(entity, op, decision == Allow)
	if decision != Allow {
		g.logger.Warn("authorization denied",
			slog.Int64("principal_id", principal.ID),
			slog.String("role", principal.Role.String()),
			slog.String("entity", string(entity)),
			slog.String("operation", op.String()),
		)
		return fmt.Errorf("%w: %s %s as principal %d", ErrDenied, op, entity, principal.ID)
	}
	return nil
}

func (g *Guard) count(entity Entity, op Operation, allowed bool) {
	if g.metrics != nil {
		g.metrics.Decision(string(entity), op.String(), allowed)
	}
}
