package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/followup/pkg/association"
	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Lead manages the lead fields scheduling depends on.
type Lead struct {
	persistence persistence.Persistence
}

// NewLead creates a new lead service.
func NewLead(persistence persistence.Persistence) *Lead {
	return &Lead{persistence: persistence}
}

// FetchByID retrieves a lead by its ID.
func (l *Lead) FetchByID(ctx context.Context, id string) (*models.Lead, error) {
	return l.persistence.LeadRepository().GetByID(ctx, id)
}

// Save upserts a lead after checking its timezone.
func (l *Lead) Save(ctx context.Context, lead *models.Lead) (*models.Lead, error) {
	lead.ID = strings.TrimSpace(lead.ID)

	err := validate.Struct(lead)
	if err != nil {
		return nil, leadValidationError(err)
	}

	existing, err := l.persistence.LeadRepository().GetByID(ctx, lead.ID)
	if err != nil && !persistence.IsLeadNotFound(err) {
		return nil, err
	}

	if existing != nil {
		lead.CreatedAt = existing.CreatedAt
	}

	err = l.persistence.LeadRepository().Save(ctx, lead)
	if err != nil {
		return nil, fmt.Errorf("failed to save lead: %w", err)
	}

	return lead, nil
}

func leadValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return NewValidationError("SaveLead", "INVALID_LEAD", err.Error(), ErrInvalidRequest)
	}

	for _, fieldError := range validationErrors {
		if fieldError.Field() == "Timezone" {
			return NewValidationError("SaveLead", "INVALID_TIMEZONE",
				fmt.Sprintf("unknown timezone %q", fieldError.Value()), ErrInvalidTimezone)
		}
	}

	return NewValidationError("SaveLead", "LEAD_ID_REQUIRED", "lead id is required", ErrInvalidRequest)
}

// Colleagues returns the other leads of the lead's company.
func (l *Lead) Colleagues(ctx context.Context, leadID string) ([]*models.Lead, error) {
	reference, err := l.persistence.LeadRepository().GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	if reference.CompanyID == "" && reference.CompanyName == "" {
		return []*models.Lead{}, nil
	}

	candidates, err := l.persistence.LeadRepository().ListByCompany(ctx, reference.CompanyID, reference.CompanyName)
	if err != nil {
		return nil, fmt.Errorf("failed to list company leads: %w", err)
	}

	return association.SameCompany(candidates, reference), nil
}
