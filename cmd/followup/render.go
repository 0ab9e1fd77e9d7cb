package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/progress"
	"github.com/dukex/followup/pkg/services"
	"github.com/dustin/go-humanize"
)

func renderTemplates(w io.Writer, templates []*models.Template) {
	if len(templates) == 0 {
		fmt.Fprintln(w, subtleStyle.Render("No templates"))

		return
	}

	for _, tpl := range templates {
		fmt.Fprintf(w, "%s  %s\n", titleStyle.Render(tpl.Title), subtleStyle.Render(tpl.ID))
		fmt.Fprintf(w, "  %d days at %s: %d emails, %d calls, %d WhatsApp messages\n",
			tpl.NumberOfDaysToRun, tpl.TimeOfDayToRun,
			tpl.NumberOfEmails, tpl.NumberOfCalls, tpl.NumberOfWhatsappMessages)
	}
}

func statusStyle(label progress.Label) string {
	switch label {
	case progress.LabelCompleted:
		return successStyle.Render(string(label))
	case progress.LabelFailed:
		return errorStyle.Render(string(label))
	default:
		return string(label)
	}
}

func renderPlanLine(w io.Writer, detail *services.PlanDetail, now time.Time) {
	view := detail.View

	fmt.Fprintf(w, "%s  [%s]  day %d of %d  %s\n",
		titleStyle.Render(view.Title),
		statusStyle(view.StatusLabel),
		view.CurrentDay, view.TotalDays,
		subtleStyle.Render(detail.Plan.ID+" updated "+humanize.RelTime(detail.Plan.LastTouched(), now, "ago", "from now")),
	)
}

func renderPlans(w io.Writer, plans []*services.PlanDetail, now time.Time) {
	if len(plans) == 0 {
		fmt.Fprintln(w, subtleStyle.Render("No plans"))

		return
	}

	for _, detail := range plans {
		renderPlanLine(w, detail, now)
	}
}

func renderPlanList(w io.Writer, result *services.ListPlansResponse, now time.Time) {
	renderPlans(w, result.Plans, now)

	footer := fmt.Sprintf("%d of %d plans", len(result.Plans), result.TotalCount)
	if result.HasNextPage {
		footer += ", more with --offset"
	}

	fmt.Fprintln(w, subtleStyle.Render(footer))
}

func renderPlan(w io.Writer, detail *services.PlanDetail, now time.Time) {
	renderPlanLine(w, detail, now)

	view := detail.View
	counts := make([]string, 0, len(models.Channels))

	for _, channel := range models.Channels {
		if total := view.TotalCounts[channel]; total > 0 {
			counts = append(counts, fmt.Sprintf("%s %d/%d", channel, view.CumulativeCounts[channel], total))
		}
	}

	fmt.Fprintf(w, "  starts %s (%s), %s\n",
		detail.Plan.StartDate.Format("2006-01-02"), detail.Plan.Timezone, strings.Join(counts, ", "))

	for _, task := range detail.Plan.Todo {
		when := subtleStyle.Render("unscheduled")
		if task.ScheduledFor != nil {
			when = fmt.Sprintf("%s (%s)", task.ScheduledFor.UTC().Format(time.RFC3339), humanize.RelTime(*task.ScheduledFor, now, "ago", "from now"))
		}

		fmt.Fprintf(w, "  day %-2d %-16s %-10s %-8s %s\n", task.Day, task.Type, task.PersonID.LeadID(), task.Status, when)
	}

	if !view.CanDelete {
		fmt.Fprintln(w, subtleStyle.Render("  in progress, cannot be deleted"))
	}
}

func renderLeads(w io.Writer, leads []*models.Lead) {
	if len(leads) == 0 {
		fmt.Fprintln(w, subtleStyle.Render("No colleagues"))

		return
	}

	for _, lead := range leads {
		name := lead.Name
		if name == "" {
			name = lead.ID
		}

		fmt.Fprintf(w, "%s  %s  %s\n", titleStyle.Render(name), lead.Email, subtleStyle.Render(lead.CompanyName))
	}
}
