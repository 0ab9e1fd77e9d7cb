// Package web provides HTTP request and response types for the follow-up API.
package web

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/services"
)

// DateLayout is the calendar date form accepted for start dates, next to RFC 3339.
const DateLayout = "2006-01-02"

// ScheduleRequest overrides the template run time and optionally the start date.
type ScheduleRequest struct {
	Enabled   bool   `json:"enabled"`
	Time      string `json:"time"                validate:"required_if=Enabled true"`
	StartDate string `json:"startDate,omitempty"`
}

// CreatePlanRequest represents the request body for creating a plan.
type CreatePlanRequest struct {
	TemplateID string           `json:"templateId"          validate:"required"`
	PersonIDs  []string         `json:"personIds"           validate:"required,min=1,dive,required"`
	Timezone   string           `json:"timezone,omitempty"  validate:"omitempty,timezone"`
	StartDate  string           `json:"startDate,omitempty"`
	Schedule   *ScheduleRequest `json:"schedule,omitempty"`
}

// ToService converts the body into a service request, parsing the dates.
func (r CreatePlanRequest) ToService() (services.CreatePlanRequest, error) {
	startDate, err := ParseDate(r.StartDate)
	if err != nil {
		return services.CreatePlanRequest{}, err
	}

	req := services.CreatePlanRequest{
		TemplateID: r.TemplateID,
		PersonIDs:  r.PersonIDs,
		StartDate:  startDate,
		Timezone:   r.Timezone,
	}

	if r.Schedule != nil {
		scheduleStart, err := ParseDate(r.Schedule.StartDate)
		if err != nil {
			return services.CreatePlanRequest{}, err
		}

		req.Schedule = &services.Schedule{
			Enabled:   r.Schedule.Enabled,
			Time:      r.Schedule.Time,
			StartDate: scheduleStart,
		}
	}

	return req, nil
}

// ParseDate reads a calendar date or an RFC 3339 timestamp. An empty value yields nil.
func ParseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	for _, layout := range []string{DateLayout, time.RFC3339} {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return &parsed, nil
		}
	}

	return nil, services.NewValidationError("ParseDate", "INVALID_START_DATE",
		fmt.Sprintf("invalid date '%s', expected YYYY-MM-DD", value), services.ErrInvalidStartDate)
}

// UpsertLeadRequest represents the request body for storing a lead.
type UpsertLeadRequest struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"       validate:"omitempty,email"`
	Timezone    string `json:"timezone,omitempty"    validate:"omitempty,timezone"`
	CompanyID   string `json:"companyId,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
}

// ToModel builds the lead stored under id.
func (r UpsertLeadRequest) ToModel(id string) *models.Lead {
	return &models.Lead{
		ID:          id,
		Name:        r.Name,
		Email:       r.Email,
		Timezone:    r.Timezone,
		CompanyID:   r.CompanyID,
		CompanyName: r.CompanyName,
	}
}
