package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// PlanStatus represents the lifecycle state of a plan.
type PlanStatus string

const (
	PlanStatusScheduled  PlanStatus = "scheduled"
	PlanStatusInProgress PlanStatus = "in_progress"
	PlanStatusCompleted  PlanStatus = "completed"
	PlanStatusFailed     PlanStatus = "failed"
)

// IsValid reports whether the status is one of the known plan states.
func (s PlanStatus) IsValid() bool {
	switch s {
	case PlanStatusScheduled, PlanStatusInProgress, PlanStatusCompleted, PlanStatusFailed:
		return true
	default:
		return false
	}
}

// MetadataLastResult is the plan metadata key carrying the last delivery annotation.
const MetadataLastResult = "lastResult"

// LastResultRescheduled marks a plan the delivery subsystem has rescheduled.
const LastResultRescheduled = "rescheduled"

// Plan is one instantiation of a template against a set of target leads.
type Plan struct {
	ID string `json:"id"`
	// TemplateID references the live template; it may be dangling once the template is removed.
	TemplateID       string            `json:"templateId,omitempty"`
	TemplateSnapshot *TemplateSnapshot `json:"templateSnapshot,omitempty"`
	// Template is populated by readers that resolved TemplateID; it is never persisted.
	Template  *Template      `json:"-"`
	StartDate time.Time      `json:"startDate"`
	Timezone  string         `json:"timezone"`
	Status    PlanStatus     `json:"status"`
	Todo      []*Task        `json:"todo"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// LastTouched returns the most recent of UpdatedAt and CreatedAt.
func (p *Plan) LastTouched() time.Time {
	if p.UpdatedAt.After(p.CreatedAt) {
		return p.UpdatedAt
	}

	return p.CreatedAt
}

// LastResult returns the metadata lastResult annotation, if any.
func (p *Plan) LastResult() string {
	if p.Metadata == nil {
		return ""
	}

	value, _ := p.Metadata[MetadataLastResult].(string)

	return value
}

// TaskByID finds a task in the plan todo list.
func (p *Plan) TaskByID(id string) *Task {
	for _, task := range p.Todo {
		if task.ID == id {
			return task
		}
	}

	return nil
}

// Location loads the plan's IANA zone, falling back to UTC when it cannot be resolved.
func (p *Plan) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}

// TaskType is the outreach channel of a task.
type TaskType string

const (
	TaskTypeEmail    TaskType = "email"
	TaskTypeCall     TaskType = "call"
	TaskTypeWhatsapp TaskType = "whatsapp_message"
)

// Channels lists the task types in their canonical order.
var Channels = []TaskType{TaskTypeEmail, TaskTypeCall, TaskTypeWhatsapp}

// TaskStatus is the delivery state of a task, owned by the delivery subsystem.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusScheduled TaskStatus = "scheduled"
	TaskStatusSent      TaskStatus = "sent"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusCancelled TaskStatus = "cancelled"
	TaskStatusSkipped   TaskStatus = "skipped"
	TaskStatusFailed    TaskStatus = "failed"
)

// CountsAsDone reports whether a task in this status may count as completed work.
func (s TaskStatus) CountsAsDone() bool {
	return s != TaskStatusCancelled && s != TaskStatusSkipped
}

// Task is a single scheduled unit of outreach within a plan.
type Task struct {
	ID           string     `json:"id"`
	Type         TaskType   `json:"type"`
	Day          int        `json:"day"`
	PersonID     PersonRef  `json:"personId"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
	IsComplete   bool       `json:"isComplete"`
	Status       TaskStatus `json:"status"`
}

// PersonRef references a target lead either by id or by an embedded lead document.
type PersonRef struct {
	ID     string
	Person *Lead
}

// RefID builds a reference from a bare id.
func RefID(id string) PersonRef {
	return PersonRef{ID: id}
}

// LeadID returns the referenced lead id regardless of the reference form.
func (r PersonRef) LeadID() string {
	if r.Person != nil && r.Person.ID != "" {
		return r.Person.ID
	}

	return r.ID
}

func (r PersonRef) MarshalJSON() ([]byte, error) {
	if r.Person != nil {
		return json.Marshal(r.Person)
	}

	return json.Marshal(r.ID)
}

func (r *PersonRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*r = PersonRef{}

		return nil
	case data[0] == '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}

		*r = PersonRef{ID: id}

		return nil
	case data[0] == '{':
		var doc struct {
			Lead

			DocumentID string `json:"_id"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}

		lead := doc.Lead
		if lead.ID == "" {
			lead.ID = doc.DocumentID
		}

		*r = PersonRef{ID: lead.ID, Person: &lead}

		return nil
	default:
		return errors.New("personId must be a string or an object")
	}
}
