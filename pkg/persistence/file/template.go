package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/persistence"
)

// TemplateRepository handles template-related file operations.
type TemplateRepository struct {
	templates *collection
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(root string) *TemplateRepository {
	return &TemplateRepository{templates: newCollection(root, "templates")}
}

// GetTemplates returns every template ordered by title.
func (tr *TemplateRepository) GetTemplates(ctx context.Context) ([]*models.Template, error) {
	ids, err := tr.templates.ids()
	if err != nil {
		return nil, fmt.Errorf("failed to list template files: %w", err)
	}

	templates := make([]*models.Template, 0, len(ids))

	for _, id := range ids {
		template, err := tr.GetByID(ctx, id)
		if err != nil {
			if persistence.IsTemplateNotFound(err) {
				continue
			}

			return nil, err
		}

		templates = append(templates, template)
	}

	sort.SliceStable(templates, func(i, j int) bool {
		return templates[i].Title < templates[j].Title
	})

	return templates, nil
}

// GetByID retrieves a template by its ID from the file system.
func (tr *TemplateRepository) GetByID(_ context.Context, id string) (*models.Template, error) {
	var template models.Template

	found, err := tr.templates.read(id, &template)
	if err != nil {
		return nil, persistence.NewTemplateError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewTemplateError("GetByID", id, persistence.ErrTemplateNotFound)
	}

	return &template, nil
}

// Save saves a template to the file system.
func (tr *TemplateRepository) Save(_ context.Context, template *models.Template) error {
	now := time.Now().UTC()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}

	template.UpdatedAt = now

	err := tr.templates.write(template.ID, template)
	if err != nil {
		return persistence.NewTemplateError("Save", template.ID, err)
	}

	return nil
}
