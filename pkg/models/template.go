// Package models defines the core domain models for follow-up campaign scheduling.
package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTimeOfDay is returned when a time of day is not in HH:mm form.
	ErrInvalidTimeOfDay = errors.New("invalid time of day")

	// ErrInvalidTemplate is returned when template validation fails.
	ErrInvalidTemplate = errors.New("invalid template")
)

// Template is a reusable cadence of emails, calls and WhatsApp messages spread over a
// number of days. Plans reference templates but never mutate them.
type Template struct {
	ID                       string         `json:"id"                       validate:"required"`
	Title                    string         `json:"title"                    validate:"required"`
	NumberOfDaysToRun        int            `json:"numberOfDaysToRun"        validate:"gte=1"`
	TimeOfDayToRun           string         `json:"timeOfDayToRun"           validate:"required"`
	NumberOfEmails           int            `json:"numberOfEmails"           validate:"gte=0"`
	NumberOfCalls            int            `json:"numberOfCalls"            validate:"gte=0"`
	NumberOfWhatsappMessages int            `json:"numberOfWhatsappMessages" validate:"gte=0"`
	Metadata                 map[string]any `json:"metadata,omitempty"`
	CreatedAt                time.Time      `json:"createdAt"`
	UpdatedAt                time.Time      `json:"updatedAt"`
}

// TemplateSnapshot is the copy of a template's scheduling fields captured onto a plan
// at creation time, so later template edits do not reach in-flight plans.
type TemplateSnapshot struct {
	Title                    string `json:"title"`
	NumberOfDaysToRun        int    `json:"numberOfDaysToRun"`
	TimeOfDayToRun           string `json:"timeOfDayToRun"`
	NumberOfEmails           int    `json:"numberOfEmails"`
	NumberOfCalls            int    `json:"numberOfCalls"`
	NumberOfWhatsappMessages int    `json:"numberOfWhatsappMessages"`
}

// Snapshot copies the scheduling-relevant fields of the template.
func (t *Template) Snapshot() *TemplateSnapshot {
	return &TemplateSnapshot{
		Title:                    t.Title,
		NumberOfDaysToRun:        t.NumberOfDaysToRun,
		TimeOfDayToRun:           t.TimeOfDayToRun,
		NumberOfEmails:           t.NumberOfEmails,
		NumberOfCalls:            t.NumberOfCalls,
		NumberOfWhatsappMessages: t.NumberOfWhatsappMessages,
	}
}

// ChannelCounts returns how many tasks of each channel the template asks for.
func (t *Template) ChannelCounts() map[TaskType]int {
	return map[TaskType]int{
		TaskTypeEmail:    t.NumberOfEmails,
		TaskTypeCall:     t.NumberOfCalls,
		TaskTypeWhatsapp: t.NumberOfWhatsappMessages,
	}
}

// Validate checks the rule the struct tags cannot express: the time of day must be HH:mm.
func (t *Template) Validate() error {
	if _, err := ParseTimeOfDay(t.TimeOfDayToRun); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	return nil
}

// TimeOfDay is a local wall-clock time without a date or zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses a 24h "HH:mm" value.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}

	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}
