// Package progress derives run-time status of a plan from its task list.
//
// Nothing here is persisted: every value is a pure function of the plan and the
// supplied "now", recomputed on each read.
package progress

import (
	"time"

	"github.com/dukex/followup/pkg/models"
)

const day = 24 * time.Hour

// Progress is the derived position of a plan at a given instant.
type Progress struct {
	CurrentDay       int                     `json:"currentDay"`
	Progress         int                     `json:"progress"`
	TotalDays        int                     `json:"totalDays"`
	CumulativeCounts map[models.TaskType]int `json:"cumulativeCounts"`
}

// Derive computes the current day, progress marker and per-channel completion counts.
func Derive(plan *models.Plan, now time.Time) Progress {
	return derive(plan, TotalDays(plan, ResolveTemplate(plan)), now)
}

func derive(plan *models.Plan, totalDays int, now time.Time) Progress {
	currentDay := clamp(elapsedDays(plan.StartDate, now)+1, 1, totalDays)

	counts := emptyCounts()

	for _, task := range plan.Todo {
		if task.Day > currentDay || !task.IsComplete || !task.Status.CountsAsDone() {
			continue
		}

		if _, known := counts[task.Type]; known {
			counts[task.Type]++
		}
	}

	return Progress{
		CurrentDay:       currentDay,
		Progress:         max(1, currentDay),
		TotalDays:        totalDays,
		CumulativeCounts: counts,
	}
}

// TotalCounts counts every task of each channel regardless of completion.
func TotalCounts(plan *models.Plan) map[models.TaskType]int {
	counts := emptyCounts()

	for _, task := range plan.Todo {
		if _, known := counts[task.Type]; known {
			counts[task.Type]++
		}
	}

	return counts
}

// elapsedDays is floor((now - start) / 24h), rounding toward negative infinity.
func elapsedDays(start, now time.Time) int {
	elapsed := now.Sub(start)
	days := elapsed / day

	if elapsed < 0 && elapsed%day != 0 {
		days--
	}

	return int(days)
}

func clamp(value, lower, upper int) int {
	if upper < lower {
		upper = lower
	}

	return min(max(value, lower), upper)
}

func emptyCounts() map[models.TaskType]int {
	counts := make(map[models.TaskType]int, len(models.Channels))
	for _, channel := range models.Channels {
		counts[channel] = 0
	}

	return counts
}
