package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/progress"
	"github.com/dukex/followup/pkg/services"
	"github.com/dukex/followup/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 12, 10, 0, 0, 0, time.UTC)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func testDetail() *services.PlanDetail {
	plan := testutil.CreateTestPlan(func(plan *models.Plan) {
		plan.ID = "plan-1"
	}, testutil.WithTasks(
		testutil.CreateTestTask(testutil.OnDay(1), testutil.Completed(models.TaskStatusSent)),
		testutil.CreateTestTask(testutil.OnDay(4)),
	))

	return &services.PlanDetail{
		Plan: plan,
		View: services.View{Summary: progress.Summarize(plan, fixedNow), CanDelete: true},
	}
}

func run(t *testing.T, handler http.Handler, args ...string) (string, error) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var out bytes.Buffer

	err := newCommand(&out, func() time.Time { return fixedNow }).
		Run(t.Context(), append([]string{"followup", "--api-url", server.URL}, args...))

	return out.String(), err
}

func TestTemplatesCommand(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /templates", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []*models.Template{testutil.CreateTestTemplate(func(tpl *models.Template) {
			tpl.ID = "tpl-1"
		})})
	})

	out, err := run(t, mux, "templates")
	require.NoError(t, err)
	assert.Contains(t, out, "Five day follow up")
	assert.Contains(t, out, "tpl-1")
	assert.Contains(t, out, "5 days at 09:00: 3 emails, 1 calls, 0 WhatsApp messages")
}

func TestPlansGetCommand(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /plans/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "plan-1", r.PathValue("id"))
		writeJSON(w, http.StatusOK, testDetail())
	})

	out, err := run(t, mux, "plans", "get", "plan-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Five day follow up")
	assert.Contains(t, out, "day 3 of 5")
	assert.Contains(t, out, "email 1/")
	assert.Contains(t, out, "starts 2024-01-10 (UTC)")
}

func TestPlansListCommand(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /plans", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "scheduled", r.URL.Query().Get("status"))
		writeJSON(w, http.StatusOK, services.ListPlansResponse{
			Plans:       []*services.PlanDetail{testDetail()},
			TotalCount:  3,
			HasNextPage: true,
		})
	})

	out, err := run(t, mux, "plans", "list", "--limit", "5", "--status", "scheduled")
	require.NoError(t, err)
	assert.Contains(t, out, "plan-1")
	assert.Contains(t, out, "1 of 3 plans, more with --offset")
}

func TestPlansDeleteCommand(t *testing.T) {
	t.Parallel()

	t.Run("deleted", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("DELETE /plans/{id}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		out, err := run(t, mux, "plans", "delete", "plan-1")
		require.NoError(t, err)
		assert.Contains(t, out, "Plan plan-1 deleted")
	})

	t.Run("refused by the server", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("DELETE /plans/{id}", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusConflict, map[string]string{"detail": "plan has already started"})
		})

		_, err := run(t, mux, "plans", "delete", "plan-1")
		require.ErrorIs(t, err, services.ErrPrecondition)
		assert.Equal(t, "plan has already started", err.Error())
	})

	t.Run("missing id", func(t *testing.T) {
		t.Parallel()

		_, err := run(t, http.NewServeMux(), "plans", "delete")
		require.ErrorIs(t, err, errMissingID)
	})
}

func TestPlansCreateCommand(t *testing.T) {
	t.Parallel()

	t.Run("sends the request", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("POST /plans", func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "tpl-1", body["templateId"])
			assert.Equal(t, []any{"lead-1", "lead-2"}, body["personIds"])
			assert.Equal(t, map[string]any{"enabled": true, "time": "15:30"}, body["schedule"])

			writeJSON(w, http.StatusCreated, testDetail())
		})

		out, err := run(t, mux, "plans", "create", "--template", "tpl-1", "--lead", "lead-1", "--lead", "lead-2", "--at", "15:30")
		require.NoError(t, err)
		assert.Contains(t, out, "Plan created")
	})

	t.Run("no targets never reaches the server", func(t *testing.T) {
		t.Parallel()

		calls := 0
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := run(t, mux, "plans", "create", "--template", "tpl-1")
		require.ErrorIs(t, err, services.ErrNoTargets)
		assert.Zero(t, calls)
	})
}

func TestLeadsCommands(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /leads/{id}/plans", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []*services.PlanDetail{})
	})
	mux.HandleFunc("GET /leads/{id}/colleagues", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []*models.Lead{{ID: "lead-2", Name: "Ada", Email: "ada@acme.test", CompanyName: "Acme"}})
	})
	mux.HandleFunc("PUT /leads/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.Lead{ID: r.PathValue("id"), Timezone: "Asia/Tokyo"})
	})

	out, err := run(t, mux, "leads", "plans", "lead-1")
	require.NoError(t, err)
	assert.Contains(t, out, "No plans")

	out, err = run(t, mux, "leads", "colleagues", "lead-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada")
	assert.Contains(t, out, "ada@acme.test")

	out, err = run(t, mux, "leads", "upsert", "--timezone", "Asia/Tokyo", "lead-3")
	require.NoError(t, err)
	assert.Contains(t, out, "Lead lead-3 saved")
}
