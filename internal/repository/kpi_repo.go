package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulseboard/kpi-import/internal/models"
)

// KPIRepository handles data access for KPIs, their field dependencies, and
// cached KPI values.
type KPIRepository struct {
	pool *pgxpool.Pool
}

// NewKPIRepository creates a new KPI repository.
func NewKPIRepository(pool *pgxpool.Pool) *KPIRepository {
	return &KPIRepository{pool: pool}
}

const kpiColumns = `id, org_id, name, formula, created_at`

func scanKPI(row pgx.Row, k *models.KPI) error {
	return row.Scan(&k.ID, &k.OrgID, &k.Name, &k.Formula, &k.CreatedAt)
}

// DependentKPIs returns the distinct KPIs that depend on any of the given
// fields, scoped to the org. Each KPI appears once no matter how many of its
// fields were touched.
func (r *KPIRepository) DependentKPIs(ctx context.Context, orgID uuid.UUID, fieldIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(fieldIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT DISTINCT k.id
		FROM kpis k
		JOIN kpi_data_fields kdf ON kdf.kpi_id = k.id
		WHERE k.org_id = $1 AND kdf.data_field_id = ANY($2)
		ORDER BY k.id
	`

	rows, err := r.pool.Query(ctx, query, orgID, fieldIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecomputeRange recomputes the cached values of one KPI for every date in
// [from, to] that has entries, aggregating the entries of all its dependent
// fields. Existing cached values for those dates are overwritten.
func (r *KPIRepository) RecomputeRange(ctx context.Context, kpiID uuid.UUID, from, to time.Time) error {
	query := `
		INSERT INTO kpi_values (id, kpi_id, value_date, value, computed_at)
		SELECT gen_random_uuid(), $1, fe.entry_date, SUM(fe.value), NOW()
		FROM field_entries fe
		JOIN kpi_data_fields kdf ON kdf.data_field_id = fe.data_field_id
		WHERE kdf.kpi_id = $1 AND fe.entry_date BETWEEN $2 AND $3
		GROUP BY fe.entry_date
		ON CONFLICT (kpi_id, value_date)
		DO UPDATE SET value = EXCLUDED.value, computed_at = EXCLUDED.computed_at
	`
	_, err := r.pool.Exec(ctx, query, kpiID, from, to)
	return err
}

// List retrieves all KPIs for an org, ordered by name.
func (r *KPIRepository) List(ctx context.Context, orgID uuid.UUID) ([]models.KPI, error) {
	query := `SELECT ` + kpiColumns + ` FROM kpis WHERE org_id = $1 ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var kpis []models.KPI
	for rows.Next() {
		var k models.KPI
		if err := scanKPI(rows, &k); err != nil {
			return nil, err
		}
		kpis = append(kpis, k)
	}
	return kpis, rows.Err()
}
