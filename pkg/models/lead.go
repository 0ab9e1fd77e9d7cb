package models

import "time"

// Lead is a target contact. Only the timezone and company fields matter for scheduling.
type Lead struct {
	ID          string    `json:"id"                    validate:"required"`
	Name        string    `json:"name,omitempty"`
	Email       string    `json:"email,omitempty"`
	Timezone    string    `json:"timezone,omitempty"    validate:"omitempty,timezone"`
	CompanyID   string    `json:"companyId,omitempty"`
	CompanyName string    `json:"companyName,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// SameCompany reports whether both leads belong to the same company. Leads are matched
// by company id when both carry one, otherwise by company name.
func (l *Lead) SameCompany(other *Lead) bool {
	if l == nil || other == nil {
		return false
	}

	if l.CompanyID != "" && other.CompanyID != "" {
		return l.CompanyID == other.CompanyID
	}

	return l.CompanyName != "" && l.CompanyName == other.CompanyName
}
