package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/persistence"
	"github.com/google/uuid"
)

const planColumns = `
	id
  , template_id
  , template_snapshot
  , start_date
  , timezone
  , status
  , todo
  , metadata
  , created_at
  , updated_at
`

// PlanRepository handles plan-related database operations.
type PlanRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// NewPlanRepository creates a new plan repository.
func NewPlanRepository(db *sql.DB, dialect Dialect, logger *slog.Logger) *PlanRepository {
	return &PlanRepository{db: db, dialect: dialect, logger: logger}
}

// ListPlans returns one page of plans filtered by status.
func (r *PlanRepository) ListPlans(ctx context.Context, opts persistence.ListPlansOptions) (*persistence.PlanListResult, error) {
	err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	where := ""
	args := make([]any, 0, 3)

	if opts.Status != nil {
		where = " WHERE status = ?"

		args = append(args, string(*opts.Status))
	}

	var totalCount int64

	err = r.db.QueryRowContext(ctx, r.dialect.Rebind("SELECT COUNT(*) FROM plans"+where), args...).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count plans: %w", err)
	}

	// SortBy and SortOrder are checked against fixed lists by Normalize.
	query := "SELECT" + planColumns + "FROM plans" + where +
		fmt.Sprintf(" ORDER BY %s %s, id ASC LIMIT ? OFFSET ?", opts.SortBy, opts.SortOrder)

	args = append(args, opts.Limit, opts.Offset)

	plans, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &persistence.PlanListResult{
		Plans:       plans,
		TotalCount:  totalCount,
		HasNextPage: int64(opts.Offset+len(plans)) < totalCount,
	}, nil
}

// All returns every plan ordered by creation time.
func (r *PlanRepository) All(ctx context.Context) ([]*models.Plan, error) {
	return r.query(ctx, "SELECT"+planColumns+"FROM plans ORDER BY created_at DESC, id ASC")
}

// GetByID retrieves a plan by its ID.
func (r *PlanRepository) GetByID(ctx context.Context, id string) (*models.Plan, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind("SELECT"+planColumns+"FROM plans WHERE id = ?"), id)

	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewPlanError("GetByID", id, persistence.ErrPlanNotFound)
		}

		return nil, persistence.NewPlanError("GetByID", id, err)
	}

	return plan, nil
}

// planColumnsJSON holds the JSON encoded columns of a plan.
type planColumnsJSON struct {
	snapshot string
	todo     string
	metadata string
}

func encodePlan(plan *models.Plan) (planColumnsJSON, error) {
	var (
		columns planColumnsJSON
		err     error
	)

	columns.snapshot, err = encodeJSON(plan.TemplateSnapshot)
	if err != nil {
		return columns, fmt.Errorf("failed to marshal template snapshot: %w", err)
	}

	todo := plan.Todo
	if todo == nil {
		todo = []*models.Task{}
	}

	columns.todo, err = encodeJSON(todo)
	if err != nil {
		return columns, fmt.Errorf("failed to marshal todo: %w", err)
	}

	columns.metadata, err = encodeJSON(plan.Metadata)
	if err != nil {
		return columns, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	return columns, nil
}

// Save inserts or replaces a plan with its task list.
func (r *PlanRepository) Save(ctx context.Context, plan *models.Plan) error {
	now := time.Now().UTC()

	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}

	if plan.UpdatedAt.Before(plan.CreatedAt) {
		plan.UpdatedAt = plan.CreatedAt
	}

	if plan.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate plan ID: %w", err)
		}

		plan.ID = id.String()
	}

	columns, err := encodePlan(plan)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO plans (id, template_id, template_snapshot, start_date, timezone,
			status, todo, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			template_id = EXCLUDED.template_id,
			template_snapshot = EXCLUDED.template_snapshot,
			start_date = EXCLUDED.start_date,
			timezone = EXCLUDED.timezone,
			status = EXCLUDED.status,
			todo = EXCLUDED.todo,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.dialect.Rebind(query),
		plan.ID,
		plan.TemplateID,
		columns.snapshot,
		plan.StartDate.UTC(),
		plan.Timezone,
		string(plan.Status),
		columns.todo,
		columns.metadata,
		plan.CreatedAt.UTC(),
		plan.UpdatedAt.UTC(),
	)
	if err != nil {
		return persistence.NewPlanError("Save", plan.ID, err)
	}

	return nil
}

// Update overwrites an existing plan. It never inserts, so a plan deleted in the meantime
// stays deleted.
func (r *PlanRepository) Update(ctx context.Context, plan *models.Plan) error {
	columns, err := encodePlan(plan)
	if err != nil {
		return err
	}

	query := `
		UPDATE plans SET
			template_id = ?,
			template_snapshot = ?,
			start_date = ?,
			timezone = ?,
			status = ?,
			todo = ?,
			metadata = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		plan.TemplateID,
		columns.snapshot,
		plan.StartDate.UTC(),
		plan.Timezone,
		string(plan.Status),
		columns.todo,
		columns.metadata,
		plan.UpdatedAt.UTC(),
		plan.ID,
	)
	if err != nil {
		return persistence.NewPlanError("Update", plan.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewPlanError("Update", plan.ID, err)
	}

	if rowsAffected == 0 {
		return persistence.NewPlanError("Update", plan.ID, persistence.ErrPlanNotFound)
	}

	return nil
}

// Delete removes a plan by its ID. With statuses, the row is removed only while its status
// is one of them.
func (r *PlanRepository) Delete(ctx context.Context, id string, statuses ...models.PlanStatus) error {
	query := "DELETE FROM plans WHERE id = ?"
	args := []any{id}

	if len(statuses) > 0 {
		query += " AND status IN (?" + strings.Repeat(", ?", len(statuses)-1) + ")"

		for _, status := range statuses {
			args = append(args, string(status))
		}
	}

	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return persistence.NewPlanError("Delete", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewPlanError("Delete", id, err)
	}

	if rowsAffected > 0 {
		return nil
	}

	var status string

	err = r.db.QueryRowContext(ctx, r.dialect.Rebind("SELECT status FROM plans WHERE id = ?"), id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.NewPlanError("Delete", id, persistence.ErrPlanNotFound)
		}

		return persistence.NewPlanError("Delete", id, err)
	}

	return persistence.NewPlanError("Delete", id, fmt.Errorf("%w: plan is %s", persistence.ErrPlanStatusChanged, status))
}

func (r *PlanRepository) query(ctx context.Context, query string, args ...any) ([]*models.Plan, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	plans := make([]*models.Plan, 0)

	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}

		plans = append(plans, plan)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating plans: %w", err)
	}

	return plans, nil
}

func scanPlan(row scanner) (*models.Plan, error) {
	var (
		plan         models.Plan
		status       string
		snapshotJSON []byte
		todoJSON     []byte
		metadataJSON []byte
	)

	err := row.Scan(
		&plan.ID,
		&plan.TemplateID,
		&snapshotJSON,
		&plan.StartDate,
		&plan.Timezone,
		&status,
		&todoJSON,
		&metadataJSON,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	plan.Status = models.PlanStatus(status)
	plan.StartDate = plan.StartDate.UTC()
	plan.CreatedAt = plan.CreatedAt.UTC()
	plan.UpdatedAt = plan.UpdatedAt.UTC()

	err = decodeJSON(snapshotJSON, &plan.TemplateSnapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal template snapshot: %w", err)
	}

	plan.Todo = make([]*models.Task, 0)

	err = decodeJSON(todoJSON, &plan.Todo)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal todo: %w", err)
	}

	err = decodeJSON(metadataJSON, &plan.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &plan, nil
}
