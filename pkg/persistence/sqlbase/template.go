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

const templateColumns = `
	id
  , title
  , number_of_days_to_run
  , time_of_day_to_run
  , number_of_emails
  , number_of_calls
  , number_of_whatsapp_messages
  , metadata
  , created_at
  , updated_at
`

// TemplateRepository handles template-related database operations.
type TemplateRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *sql.DB, dialect Dialect, logger *slog.Logger) *TemplateRepository {
	return &TemplateRepository{db: db, dialect: dialect, logger: logger}
}

// GetTemplates returns every template ordered by title.
func (r *TemplateRepository) GetTemplates(ctx context.Context) ([]*models.Template, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT"+templateColumns+"FROM templates ORDER BY title ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	templates := make([]*models.Template, 0)

	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}

		templates = append(templates, template)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}

	return templates, nil
}

// GetByID retrieves a template by its ID.
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.Template, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind("SELECT"+templateColumns+"FROM templates WHERE id = ?"), id)

	template, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewTemplateError("GetByID", id, persistence.ErrTemplateNotFound)
		}

		return nil, persistence.NewTemplateError("GetByID", id, err)
	}

	return template, nil
}

// Save inserts or updates a template.
func (r *TemplateRepository) Save(ctx context.Context, template *models.Template) error {
	now := time.Now().UTC()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}

	template.UpdatedAt = now

	metadataJSON, err := encodeJSON(template.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO templates (id, title, number_of_days_to_run, time_of_day_to_run,
			number_of_emails, number_of_calls, number_of_whatsapp_messages, metadata,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			number_of_days_to_run = EXCLUDED.number_of_days_to_run,
			time_of_day_to_run = EXCLUDED.time_of_day_to_run,
			number_of_emails = EXCLUDED.number_of_emails,
			number_of_calls = EXCLUDED.number_of_calls,
			number_of_whatsapp_messages = EXCLUDED.number_of_whatsapp_messages,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.dialect.Rebind(query),
		template.ID,
		template.Title,
		template.NumberOfDaysToRun,
		template.TimeOfDayToRun,
		template.NumberOfEmails,
		template.NumberOfCalls,
		template.NumberOfWhatsappMessages,
		metadataJSON,
		template.CreatedAt.UTC(),
		template.UpdatedAt.UTC(),
	)
	if err != nil {
		return persistence.NewTemplateError("Save", template.ID, err)
	}

	return nil
}

func scanTemplate(row scanner) (*models.Template, error) {
	var (
		template     models.Template
		metadataJSON []byte
	)

	err := row.Scan(
		&template.ID,
		&template.Title,
		&template.NumberOfDaysToRun,
		&template.TimeOfDayToRun,
		&template.NumberOfEmails,
		&template.NumberOfCalls,
		&template.NumberOfWhatsappMessages,
		&metadataJSON,
		&template.CreatedAt,
		&template.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	template.CreatedAt = template.CreatedAt.UTC()
	template.UpdatedAt = template.UpdatedAt.UTC()

	err = decodeJSON(metadataJSON, &template.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &template, nil
}
