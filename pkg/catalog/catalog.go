// Package catalog loads template definitions from JSON or YAML files.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/followup/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed template.schema.json
var schema []byte

// ErrInvalidCatalog is returned when a catalog file does not match the template schema.
var ErrInvalidCatalog = errors.New("invalid template catalog")

var validate = validator.New(validator.WithRequiredStructEnabled())

// TemplateStore is the subset of the template repository the seeder writes to.
type TemplateStore interface {
	GetByID(ctx context.Context, id string) (*models.Template, error)
	Save(ctx context.Context, template *models.Template) error
}

type document struct {
	Templates []*models.Template `json:"templates"`
}

// Load reads a catalog file. Files ending in .yaml or .yml are parsed as YAML, anything
// else as JSON.
func Load(path string) ([]*models.Template, error) {
	body, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))

	return Parse(body, ext == ".yaml" || ext == ".yml")
}

// Parse decodes and validates a catalog document.
func Parse(body []byte, isYAML bool) ([]*models.Template, error) {
	var raw any

	var err error
	if isYAML {
		err = yaml.Unmarshal(body, &raw)
	} else {
		err = json.Unmarshal(body, &raw)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	err = validateSchema(raw)
	if err != nil {
		return nil, err
	}

	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize catalog: %w", err)
	}

	var doc document

	err = json.Unmarshal(normalized, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	for _, template := range doc.Templates {
		err := ValidateTemplate(template)
		if err != nil {
			return nil, err
		}
	}

	return doc.Templates, nil
}

// ValidateTemplate checks the template's struct tags and its time of day.
func ValidateTemplate(template *models.Template) error {
	err := validate.Struct(template)
	if err != nil {
		return fmt.Errorf("%w: template %s: %w", ErrInvalidCatalog, template.ID, err)
	}

	err = template.Validate()
	if err != nil {
		return fmt.Errorf("%w: template %s: %w", ErrInvalidCatalog, template.ID, err)
	}

	return nil
}

func validateSchema(raw any) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	if !result.Valid() {
		var messages []string
		for _, resultError := range result.Errors() {
			messages = append(messages, resultError.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(messages, "; "))
	}

	return nil
}

// Seed upserts templates into the store, keeping the original creation time of templates
// that already exist.
func Seed(ctx context.Context, logger *slog.Logger, store TemplateStore, templates []*models.Template) error {
	for _, template := range templates {
		err := ValidateTemplate(template)
		if err != nil {
			return err
		}

		existing, err := store.GetByID(ctx, template.ID)
		if err == nil && existing != nil {
			template.CreatedAt = existing.CreatedAt
		}

		err = store.Save(ctx, template)
		if err != nil {
			return fmt.Errorf("failed to seed template %s: %w", template.ID, err)
		}

		logger.InfoContext(ctx, "Seeded template", "template_id", template.ID, "title", template.Title)
	}

	return nil
}
