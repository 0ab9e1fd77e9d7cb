package file

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/persistence"
)

// LeadRepository handles lead-related file operations.
type LeadRepository struct {
	leads *collection
}

// NewLeadRepository creates a new lead repository.
func NewLeadRepository(root string) *LeadRepository {
	return &LeadRepository{leads: newCollection(root, "leads")}
}

// GetByID retrieves a lead by its ID from the file system.
func (lr *LeadRepository) GetByID(_ context.Context, id string) (*models.Lead, error) {
	var lead models.Lead

	found, err := lr.leads.read(id, &lead)
	if err != nil {
		return nil, persistence.NewLeadError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewLeadError("GetByID", id, persistence.ErrLeadNotFound)
	}

	return &lead, nil
}

// ListByCompany returns leads matching either the company id or the company name.
func (lr *LeadRepository) ListByCompany(ctx context.Context, companyID, companyName string) ([]*models.Lead, error) {
	ids, err := lr.leads.ids()
	if err != nil {
		return nil, fmt.Errorf("failed to list lead files: %w", err)
	}

	leads := make([]*models.Lead, 0)

	for _, id := range ids {
		lead, err := lr.GetByID(ctx, id)
		if err != nil {
			if persistence.IsLeadNotFound(err) {
				continue
			}

			return nil, err
		}

		if (companyID != "" && lead.CompanyID == companyID) ||
			(companyName != "" && lead.CompanyName == companyName) {
			leads = append(leads, lead)
		}
	}

	return leads, nil
}

// Save saves a lead to the file system.
func (lr *LeadRepository) Save(_ context.Context, lead *models.Lead) error {
	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}

	lead.UpdatedAt = now

	err := lr.leads.write(lead.ID, lead)
	if err != nil {
		return persistence.NewLeadError("Save", lead.ID, err)
	}

	return nil
}
