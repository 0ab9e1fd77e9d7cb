// Package events defines the plan and task notifications exchanged over the event bus.
package events

import (
	"time"

	"github.com/dukex/followup/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every follow-up event; the plan id is the partition key.
const Topic = "followup.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Published by the API.
	PlanCreatedEvent EventType = "plan.created"
	PlanDeletedEvent EventType = "plan.deleted"

	// Published by the dispatcher when a pending task becomes due.
	TaskDueEvent EventType = "task.due"

	// Published by the delivery subsystem and observed by the dispatcher.
	TaskUpdatedEvent       EventType = "task.updated"
	PlanStatusChangedEvent EventType = "plan.status_changed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	PlanID    string         `json:"plan_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, planID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		PlanID:    planID,
		Metadata:  make(map[string]any),
	}
}

type PlanCreated struct {
	BaseEvent

	TemplateID string    `json:"template_id"`
	PersonIDs  []string  `json:"person_ids"`
	TaskCount  int       `json:"task_count"`
	StartDate  time.Time `json:"start_date"`
	Timezone   string    `json:"timezone"`
}

func (e PlanCreated) GetType() EventType {
	return PlanCreatedEvent
}

type PlanDeleted struct {
	BaseEvent

	Status models.PlanStatus `json:"status"`
}

func (e PlanDeleted) GetType() EventType {
	return PlanDeletedEvent
}

// TaskDue announces that a task's scheduledFor instant has been reached.
type TaskDue struct {
	BaseEvent

	TaskID       string          `json:"task_id"`
	TaskType     models.TaskType `json:"task_type"`
	PersonID     string          `json:"person_id"`
	Day          int             `json:"day"`
	ScheduledFor time.Time       `json:"scheduled_for"`
}

func (e TaskDue) GetType() EventType {
	return TaskDueEvent
}

// TaskUpdated reports a delivery outcome for a single task.
type TaskUpdated struct {
	BaseEvent

	TaskID       string            `json:"task_id"`
	Status       models.TaskStatus `json:"status"`
	IsComplete   bool              `json:"is_complete"`
	ScheduledFor *time.Time        `json:"scheduled_for,omitempty"`
}

func (e TaskUpdated) GetType() EventType {
	return TaskUpdatedEvent
}

// PlanStatusChanged reports a plan status transition decided by the delivery subsystem.
type PlanStatusChanged struct {
	BaseEvent

	Status     models.PlanStatus `json:"status"`
	LastResult string            `json:"last_result,omitempty"`
}

func (e PlanStatusChanged) GetType() EventType {
	return PlanStatusChangedEvent
}

// New returns an empty event value for decoding a payload of the given type.
func New(eventType EventType) (any, bool) {
	switch eventType {
	case PlanCreatedEvent:
		return &PlanCreated{}, true
	case PlanDeletedEvent:
		return &PlanDeleted{}, true
	case TaskDueEvent:
		return &TaskDue{}, true
	case TaskUpdatedEvent:
		return &TaskUpdated{}, true
	case PlanStatusChangedEvent:
		return &PlanStatusChanged{}, true
	default:
		return nil, false
	}
}
