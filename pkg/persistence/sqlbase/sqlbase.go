package sqlbase

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/followup/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of a database/sql handle.
// The postgresql and sqlite packages open the database and hand it over here.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	planRepo     *PlanRepository
	templateRepo *TemplateRepository
	leadRepo     *LeadRepository
}

// NewPersistence runs the given migrations and returns the repositories bound to db.
func NewPersistence(
	ctx context.Context,
	logger *slog.Logger,
	db *sql.DB,
	dialect Dialect,
	migrations map[int]string,
) (*Persistence, error) {
	migrationManager := NewMigrationManager(logger, db, dialect, migrations)

	err := migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:           db,
		logger:       logger,
		planRepo:     NewPlanRepository(db, dialect, logger),
		templateRepo: NewTemplateRepository(db, dialect, logger),
		leadRepo:     NewLeadRepository(db, dialect, logger),
	}, nil
}

func (p *Persistence) PlanRepository() persistence.PlanRepository {
	return p.planRepo
}

func (p *Persistence) TemplateRepository() persistence.TemplateRepository {
	return p.templateRepo
}

func (p *Persistence) LeadRepository() persistence.LeadRepository {
	return p.leadRepo
}

// DB exposes the underlying handle.
func (p *Persistence) DB() *sql.DB {
	return p.db
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

// encodeJSON renders a value for a JSON column.
func encodeJSON(value any) (string, error) {
	body, err := json.Marshal(value)
	if err != nil {
		return "", err
	}

	return string(body), nil
}

// decodeJSON fills target from a JSON column; NULL and empty columns leave it untouched.
func decodeJSON(column []byte, target any) error {
	if len(column) == 0 || string(column) == "null" {
		return nil
	}

	return json.Unmarshal(column, target)
}
