// Package kpi schedules recomputation of aggregate indicators after imports
// touch their underlying entries.
package kpi

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pulseboard/kpi-import/internal/repository"
)

// Recalculator resolves KPI dependencies synchronously and recomputes cached
// KPI values in the background. The import report only needs to know how
// many indicators will recompute, not wait for them to finish.
type Recalculator struct {
	repo    *repository.KPIRepository
	timeout time.Duration
}

// NewRecalculator creates a recalculator with the given per-dispatch timeout.
func NewRecalculator(repo *repository.KPIRepository, timeout time.Duration) *Recalculator {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Recalculator{repo: repo, timeout: timeout}
}

// DependentKPIs returns the distinct KPIs affected by the given fields.
func (r *Recalculator) DependentKPIs(ctx context.Context, orgID uuid.UUID, fieldIDs []uuid.UUID) ([]uuid.UUID, error) {
	return r.repo.DependentKPIs(ctx, orgID, fieldIDs)
}

// Recompute dispatches recomputation of each KPI over the touched date range
// as a background task. Failures are logged, not surfaced: the entries are
// already durable and a later import or scheduled job will recompute again.
func (r *Recalculator) Recompute(orgID uuid.UUID, kpiIDs []uuid.UUID, from, to time.Time) {
	logger := slog.Default().With(
		slog.String("service", "kpi-recalculator"),
		slog.String("org_id", orgID.String()),
	)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		start := time.Now()
		for _, kpiID := range kpiIDs {
			if err := r.repo.RecomputeRange(ctx, kpiID, from, to); err != nil {
				logger.Error("kpi recompute failed",
					slog.String("kpi_id", kpiID.String()),
					slog.String("error", err.Error()),
				)
				continue
			}
		}
		logger.Info("kpi recompute finished",
			slog.Int("kpi_count", len(kpiIDs)),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	}()
}
