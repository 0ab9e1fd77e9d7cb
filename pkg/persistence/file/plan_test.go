package file

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/persistence"
	"github.com/dukex/followup/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPlanRepository_ListPlans_InvalidSortField tests that invalid sort field returns typed error.
func TestPlanRepository_ListPlans_InvalidSortField(t *testing.T) {
	tempDir := t.TempDir()
	repo := NewPlanRepository(tempDir)

	tests := []struct {
		name    string
		sortBy  string
		wantErr error
	}{
		{
			name:    "invalid sort field should return ErrInvalidSortField",
			sortBy:  "invalid_field",
			wantErr: persistence.ErrInvalidSortField,
		},
		{
			name:    "sql injection attempt should return ErrInvalidSortField",
			sortBy:  "created_at; DROP TABLE plans; --",
			wantErr: persistence.ErrInvalidSortField,
		},
		{
			name:    "valid sort field start_date should not return error",
			sortBy:  "start_date",
			wantErr: nil,
		},
		{
			name:    "valid sort field created_at should not return error",
			sortBy:  "created_at",
			wantErr: nil,
		},
		{
			name:    "valid sort field updated_at should not return error",
			sortBy:  "updated_at",
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := persistence.ListPlansOptions{
				SortBy:    tt.sortBy,
				SortOrder: "asc",
				Limit:     10,
			}

			_, err := repo.ListPlans(context.Background(), opts)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, persistence.IsInvalidSortField(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPlanRepository_ListPlans_PaginationAndFilter(t *testing.T) {
	repo := NewPlanRepository(t.TempDir())
	ctx := t.Context()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range 5 {
		status := models.PlanStatusScheduled
		if i%2 == 1 {
			status = models.PlanStatusCompleted
		}

		created := base.Add(time.Duration(i) * time.Hour)
		plan := testutil.CreateTestPlan(testutil.WithStatus(status), testutil.WithTouched(created, created))
		require.NoError(t, repo.Save(ctx, plan))
	}

	page, err := repo.ListPlans(ctx, persistence.ListPlansOptions{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.TotalCount)
	assert.True(t, page.HasNextPage)
	require.Len(t, page.Plans, 2)
	assert.True(t, page.Plans[0].CreatedAt.After(page.Plans[1].CreatedAt), "default order is newest first")

	last, err := repo.ListPlans(ctx, persistence.ListPlansOptions{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, last.Plans, 1)
	assert.False(t, last.HasNextPage)

	beyond, err := repo.ListPlans(ctx, persistence.ListPlansOptions{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond.Plans)

	completed := models.PlanStatusCompleted
	filtered, err := repo.ListPlans(ctx, persistence.ListPlansOptions{Status: &completed, SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), filtered.TotalCount)

	for _, plan := range filtered.Plans {
		assert.Equal(t, models.PlanStatusCompleted, plan.Status)
	}

	assert.True(t, filtered.Plans[0].CreatedAt.Before(filtered.Plans[1].CreatedAt))
}

func TestPlanRepository_All(t *testing.T) {
	repo := NewPlanRepository(t.TempDir())
	ctx := t.Context()

	plans, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, plans)

	require.NoError(t, repo.Save(ctx, testutil.CreateTestPlan()))
	require.NoError(t, repo.Save(ctx, testutil.CreateTestPlan()))

	plans, err = repo.All(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 2)
}
