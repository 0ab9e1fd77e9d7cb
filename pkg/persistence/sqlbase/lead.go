package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/persistence"
)

const leadColumns = `
	id
  , name
  , email
  , timezone
  , company_id
  , company_name
  , created_at
  , updated_at
`

// LeadRepository handles lead-related database operations.
type LeadRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// NewLeadRepository creates a new lead repository.
func NewLeadRepository(db *sql.DB, dialect Dialect, logger *slog.Logger) *LeadRepository {
	return &LeadRepository{db: db, dialect: dialect, logger: logger}
}

// GetByID retrieves a lead by its ID.
func (r *LeadRepository) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind("SELECT"+leadColumns+"FROM leads WHERE id = ?"), id)

	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewLeadError("GetByID", id, persistence.ErrLeadNotFound)
		}

		return nil, persistence.NewLeadError("GetByID", id, err)
	}

	return lead, nil
}

// ListByCompany returns leads matching either the company id or the company name.
func (r *LeadRepository) ListByCompany(ctx context.Context, companyID, companyName string) ([]*models.Lead, error) {
	query := "SELECT" + leadColumns + `FROM leads
		WHERE (? <> '' AND company_id = ?) OR (? <> '' AND company_name = ?)
		ORDER BY name ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), companyID, companyID, companyName, companyName)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	leads := make([]*models.Lead, 0)

	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}

		leads = append(leads, lead)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating leads: %w", err)
	}

	return leads, nil
}

// Save inserts or updates a lead.
func (r *LeadRepository) Save(ctx context.Context, lead *models.Lead) error {
	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}

	lead.UpdatedAt = now

	query := `
		INSERT INTO leads (id, name, email, timezone, company_id, company_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			timezone = EXCLUDED.timezone,
			company_id = EXCLUDED.company_id,
			company_name = EXCLUDED.company_name,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		lead.ID,
		lead.Name,
		lead.Email,
		lead.Timezone,
		lead.CompanyID,
		lead.CompanyName,
		lead.CreatedAt.UTC(),
		lead.UpdatedAt.UTC(),
	)
	if err != nil {
		return persistence.NewLeadError("Save", lead.ID, err)
	}

	return nil
}

func scanLead(row scanner) (*models.Lead, error) {
	var lead models.Lead

	err := row.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Email,
		&lead.Timezone,
		&lead.CompanyID,
		&lead.CompanyName,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	lead.CreatedAt = lead.CreatedAt.UTC()
	lead.UpdatedAt = lead.UpdatedAt.UTC()

	return &lead, nil
}
