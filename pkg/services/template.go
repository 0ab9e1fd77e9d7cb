package services

import (
	"context"
	"fmt"

	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/persistence"
)

// Template exposes the read side of the template catalog.
type Template struct {
	persistence persistence.Persistence
}

// NewTemplate creates a new template service.
func NewTemplate(persistence persistence.Persistence) *Template {
	return &Template{persistence: persistence}
}

// GetTemplates returns the templates an operator can pick from, ordered by title.
func (t *Template) GetTemplates(ctx context.Context) ([]*models.Template, error) {
	templates, err := t.persistence.TemplateRepository().GetTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get templates: %w", err)
	}

	return templates, nil
}

// FetchByID retrieves a template by its ID.
func (t *Template) FetchByID(ctx context.Context, id string) (*models.Template, error) {
	return t.persistence.TemplateRepository().GetByID(ctx, id)
}
