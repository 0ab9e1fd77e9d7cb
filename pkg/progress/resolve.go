package progress

import (
	"time"

	"github.com/dukex/followup/pkg/models"
)

const (
	// DefaultTotalDays is used when neither the template nor the tasks say how long a plan runs.
	DefaultTotalDays = 7

	// FallbackTitle names plans whose template can no longer be resolved.
	FallbackTitle = "Follow up campaign"
)

// Source tells where a resolved template view came from.
type Source string

const (
	SourceSnapshot  Source = "snapshot"
	SourceReference Source = "reference"
	SourceFallback  Source = "fallback"
)

// TemplateView is the normalized template information of a plan.
type TemplateView struct {
	Title             string `json:"title"`
	NumberOfDaysToRun int    `json:"numberOfDaysToRun,omitempty"`
	TimeOfDayToRun    string `json:"timeOfDayToRun,omitempty"`
	Source            Source `json:"source"`
}

// ResolveTemplate collapses the snapshot, the populated template reference and the
// fallback into one view. Each field is taken from the first source that carries it.
func ResolveTemplate(plan *models.Plan) TemplateView {
	view := TemplateView{Source: SourceFallback}

	if snapshot := plan.TemplateSnapshot; snapshot != nil {
		view = TemplateView{
			Title:             snapshot.Title,
			NumberOfDaysToRun: snapshot.NumberOfDaysToRun,
			TimeOfDayToRun:    snapshot.TimeOfDayToRun,
			Source:            SourceSnapshot,
		}
	}

	if ref := plan.Template; ref != nil {
		if view.Source == SourceFallback {
			view.Source = SourceReference
		}

		if view.Title == "" {
			view.Title = ref.Title
		}

		if view.NumberOfDaysToRun < 1 {
			view.NumberOfDaysToRun = ref.NumberOfDaysToRun
		}

		if view.TimeOfDayToRun == "" {
			view.TimeOfDayToRun = ref.TimeOfDayToRun
		}
	}

	if view.Title == "" {
		view.Title = FallbackTitle
	}

	return view
}

// TotalDays is the plan duration: the template's day count, else the latest task day,
// else DefaultTotalDays.
func TotalDays(plan *models.Plan, view TemplateView) int {
	if view.NumberOfDaysToRun > 0 {
		return view.NumberOfDaysToRun
	}

	maxDay := 0

	for _, task := range plan.Todo {
		if task.Day > maxDay {
			maxDay = task.Day
		}
	}

	if maxDay > 0 {
		return maxDay
	}

	return DefaultTotalDays
}

// DisplayTitle appends the time of day of the earliest scheduled task to the resolved title.
func DisplayTitle(plan *models.Plan, view TemplateView) string {
	var earliest *time.Time

	for _, task := range plan.Todo {
		if task.ScheduledFor == nil || task.ScheduledFor.IsZero() {
			continue
		}

		if earliest == nil || task.ScheduledFor.Before(*earliest) {
			earliest = task.ScheduledFor
		}
	}

	if earliest == nil {
		return view.Title
	}

	return view.Title + " (Runs at " + earliest.In(plan.Location()).Format("03:04 PM") + ")"
}
