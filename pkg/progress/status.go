package progress

import (
	"time"

	"github.com/dukex/followup/pkg/models"
)

// Label is the display form of a plan status.
type Label string

const (
	LabelScheduled   Label = "Scheduled"
	LabelInProgress  Label = "In Progress"
	LabelCompleted   Label = "Completed"
	LabelFailed      Label = "Failed"
	LabelRescheduled Label = "Rescheduled"
)

// StatusLabel returns the display label of the plan. A "rescheduled" lastResult annotation
// wins over the stored status; the stored status itself is left alone.
func StatusLabel(plan *models.Plan) Label {
	if plan.LastResult() == models.LastResultRescheduled {
		return LabelRescheduled
	}

	switch plan.Status {
	case models.PlanStatusScheduled:
		return LabelScheduled
	case models.PlanStatusInProgress:
		return LabelInProgress
	case models.PlanStatusCompleted:
		return LabelCompleted
	case models.PlanStatusFailed:
		return LabelFailed
	default:
		return Label(plan.Status)
	}
}

// Summary is everything a dashboard renders for one plan.
type Summary struct {
	Progress

	Title       string                  `json:"title"`
	Template    TemplateView            `json:"template"`
	StatusLabel Label                   `json:"statusLabel"`
	TotalCounts map[models.TaskType]int `json:"totalCounts"`
}

// Summarize resolves the template view once and derives every display field from it.
func Summarize(plan *models.Plan, now time.Time) Summary {
	view := ResolveTemplate(plan)

	return Summary{
		Progress:    derive(plan, TotalDays(plan, view), now),
		Title:       DisplayTitle(plan, view),
		Template:    view,
		StatusLabel: StatusLabel(plan),
		TotalCounts: TotalCounts(plan),
	}
}
