// Package planner turns a template into a concrete, timezone-aware plan of scheduled tasks.
package planner

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"time"

	"github.com/dukex/followup/pkg/models"
	"github.com/google/uuid"
)

var (
	ErrTemplateRequired  = errors.New("select a template")
	ErrNoTargets         = errors.New("select at least one target")
	ErrInvalidDays       = errors.New("template must run for at least one day")
	ErrInvalidTimezone   = errors.New("invalid timezone")
	ErrNothingToSchedule = errors.New("nothing to schedule")
)

// Request carries the inputs of a single materialization.
type Request struct {
	Template  *models.Template
	PersonIDs []string
	// StartDate is read as a calendar date; nil means today in the plan timezone.
	StartDate *time.Time
	// Timezone is an IANA zone name; empty means the process local zone.
	Timezone string
	// TimeOfDay overrides the template's timeOfDayToRun when set.
	TimeOfDay string
}

// Materializer builds plans. It holds no mutable state and is safe for concurrent use.
type Materializer struct {
	now   func() time.Time
	newID func() string
}

type Option func(*Materializer)

// WithClock injects the source of "now" used for the default start date and timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Materializer) {
		m.now = now
	}
}

// WithIDGenerator replaces the uuid generator for plan and task ids.
func WithIDGenerator(newID func() string) Option {
	return func(m *Materializer) {
		m.newID = newID
	}
}

func New(opts ...Option) *Materializer {
	m := &Materializer{
		now:   time.Now,
		newID: func() string { return uuid.Must(uuid.NewV7()).String() },
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Materialize produces a scheduled plan with every task resolved to an absolute UTC time.
func (m *Materializer) Materialize(req Request) (*models.Plan, error) {
	template := req.Template
	if template == nil {
		return nil, ErrTemplateRequired
	}

	if template.NumberOfDaysToRun < 1 {
		return nil, ErrInvalidDays
	}

	personIDs := uniqueIDs(req.PersonIDs)
	if len(personIDs) == 0 {
		return nil, ErrNoTargets
	}

	counts := template.ChannelCounts()
	if counts[models.TaskTypeEmail]+counts[models.TaskTypeCall]+counts[models.TaskTypeWhatsapp] == 0 {
		return nil, ErrNothingToSchedule
	}

	loc, err := ResolveLocation(req.Timezone)
	if err != nil {
		return nil, err
	}

	timeOfDay := template.TimeOfDayToRun
	if req.TimeOfDay != "" {
		timeOfDay = req.TimeOfDay
	}

	runAt, err := models.ParseTimeOfDay(timeOfDay)
	if err != nil {
		return nil, err
	}

	now := m.now()
	startDate := StartOfDay(now, loc)

	if req.StartDate != nil {
		year, month, day := req.StartDate.Date()
		startDate = time.Date(year, month, day, 0, 0, 0, 0, loc)
	}

	snapshot := template.Snapshot()
	snapshot.TimeOfDayToRun = runAt.String()

	plan := &models.Plan{
		ID:               m.newID(),
		TemplateID:       template.ID,
		TemplateSnapshot: snapshot,
		StartDate:        startDate,
		Timezone:         loc.String(),
		Status:           models.PlanStatusScheduled,
		Todo:             make([]*models.Task, 0),
		Metadata:         map[string]any{},
		CreatedAt:        now.UTC(),
		UpdatedAt:        now.UTC(),
	}

	for _, channel := range models.Channels {
		for _, day := range Distribute(counts[channel], template.NumberOfDaysToRun) {
			scheduledFor := ScheduledFor(startDate, day, runAt)

			for _, personID := range personIDs {
				plan.Todo = append(plan.Todo, &models.Task{
					ID:           m.newID(),
					Type:         channel,
					Day:          day,
					PersonID:     models.RefID(personID),
					ScheduledFor: &scheduledFor,
					Status:       models.TaskStatusPending,
				})
			}
		}
	}

	sort.SliceStable(plan.Todo, func(i, j int) bool {
		return plan.Todo[i].Day < plan.Todo[j].Day
	})

	return plan, nil
}

// ScheduledFor returns the UTC instant of the given 1-based day at the wall-clock time in
// the zone of startDate. Day arithmetic goes through the calendar, so DST shifts keep the
// local time of day stable.
func ScheduledFor(startDate time.Time, day int, at models.TimeOfDay) time.Time {
	year, month, date := startDate.Date()

	return time.Date(year, month, date+day-1, at.Hour, at.Minute, 0, 0, startDate.Location()).UTC()
}

// StartOfDay returns midnight of the calendar day t falls on in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	year, month, day := t.In(loc).Date()

	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// ResolveLocation loads an IANA zone. An empty name resolves to the zone named by TZ,
// or UTC when the process zone has no IANA name.
func ResolveLocation(name string) (*time.Location, error) {
	if name == "" {
		if tz := os.Getenv("TZ"); tz != "" {
			if loc, err := time.LoadLocation(tz); err == nil {
				return loc, nil
			}
		}

		return time.UTC, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil || name == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}

	return loc, nil
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		if id == "" || slices.Contains(out, id) {
			continue
		}

		out = append(out, id)
	}

	return out
}
