// Package association answers which plans and leads relate to a given lead.
package association

import (
	"slices"
	"sort"

	"github.com/dukex/followup/pkg/models"
)

// PlansForLead returns the plans with at least one task referencing leadID, most recently
// touched first. Plans touched at the same instant keep their input order.
func PlansForLead(plans []*models.Plan, leadID string) []*models.Plan {
	matches := make([]*models.Plan, 0)

	if leadID == "" {
		return matches
	}

	for _, plan := range plans {
		if plan != nil && Includes(plan, leadID) {
			matches = append(matches, plan)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].LastTouched().After(matches[j].LastTouched())
	})

	return matches
}

// Includes reports whether any task of the plan targets leadID.
func Includes(plan *models.Plan, leadID string) bool {
	return slices.ContainsFunc(plan.Todo, func(task *models.Task) bool {
		return task != nil && task.PersonID.LeadID() == leadID
	})
}

// LeadIDs lists the distinct leads targeted by the plan in task order.
func LeadIDs(plan *models.Plan) []string {
	ids := make([]string, 0)

	for _, task := range plan.Todo {
		id := task.PersonID.LeadID()
		if id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}

	return ids
}

// SameCompany filters leads that belong to the same company as the reference lead,
// excluding the reference itself.
func SameCompany(leads []*models.Lead, reference *models.Lead) []*models.Lead {
	matches := make([]*models.Lead, 0)

	for _, lead := range leads {
		if lead == nil || lead.ID == reference.ID {
			continue
		}

		if reference.SameCompany(lead) {
			matches = append(matches, lead)
		}
	}

	return matches
}
