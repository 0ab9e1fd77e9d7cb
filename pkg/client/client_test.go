package client_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukex/followup/pkg/client"
	"github.com/dukex/followup/pkg/guard"
	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/services"
	"github.com/dukex/followup/pkg/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		cause    error
		expected string
	}{
		{"server message", `{"message": "Template archived", "error": "conflict"}`, errors.New("status 409"), "Template archived"},
		{"problem detail", `{"title": "Conflict", "detail": "plan no longer cancellable"}`, nil, "plan no longer cancellable"},
		{"server error string", `{"error": "boom", "message": ""}`, nil, "boom"},
		{"problem title", `{"title": "Bad Gateway"}`, nil, "Bad Gateway"},
		{"transport text", `<html>oops</html>`, errors.New("request failed with status 502"), "request failed with status 502"},
		{"static fallback", ``, nil, client.FallbackMessage},
		{"blank cause", `{}`, errors.New(" "), client.FallbackMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, client.Message([]byte(tt.body), tt.cause))
		})
	}
}

func TestClient_CreatePlan(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/plans", r.URL.Path)

		var body web.CreatePlanRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tpl-1", body.TemplateID)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"plan": {"id": "plan-1", "status": "scheduled", "todo": [{"id": "t1", "type": "email", "day": 1, "personId": "lead-1", "status": "pending"}]}, "view": {"currentDay": 1, "progress": 1, "totalDays": 5, "canDelete": true, "statusLabel": "Scheduled"}}`)
	}))
	defer server.Close()

	c := client.New(server.URL)

	detail, err := c.CreatePlan(t.Context(), web.CreatePlanRequest{TemplateID: "tpl-1", PersonIDs: []string{"lead-1"}})
	require.NoError(t, err)

	assert.Equal(t, "plan-1", detail.Plan.ID)
	assert.Equal(t, "lead-1", detail.Plan.Todo[0].PersonID.LeadID())
	assert.Equal(t, 5, detail.View.TotalDays)
	assert.True(t, detail.View.CanDelete)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_CreatePlanValidatesLocally(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	c := client.New(server.URL)

	_, err := c.CreatePlan(t.Context(), web.CreatePlanRequest{PersonIDs: []string{"lead-1"}})
	require.ErrorIs(t, err, services.ErrTemplateRequired)
	assert.True(t, services.IsValidationError(err))

	_, err = c.CreatePlan(t.Context(), web.CreatePlanRequest{TemplateID: "tpl-1", PersonIDs: []string{" "}})
	require.ErrorIs(t, err, services.ErrNoTargets)

	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_InFlightGuard(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	g := guard.NewMemory()
	c := client.New(server.URL, client.WithGuard(g))

	release, err := g.Acquire(t.Context(), "plan-1")
	require.NoError(t, err)

	err = c.DeletePlan(t.Context(), "plan-1")
	require.ErrorIs(t, err, services.ErrMutationInFlight)
	assert.True(t, services.IsPreconditionError(err))

	release()

	require.NoError(t, c.DeletePlan(t.Context(), "plan-1"))
	assert.Equal(t, int32(1), calls.Load())

	released, err := g.Acquire(t.Context(), "plan-1")
	require.NoError(t, err)
	released()

	held, err := g.Acquire(t.Context(), services.CreationKey("tpl-1", []string{"lead-2", "lead-1"}))
	require.NoError(t, err)

	defer held()

	_, err = c.CreatePlan(t.Context(), web.CreatePlanRequest{TemplateID: "tpl-1", PersonIDs: []string{"lead-1", "lead-2"}})
	require.ErrorIs(t, err, services.ErrMutationInFlight)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ErrorResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		class       error
		message     string
		contentType string
	}{
		{"validation problem", http.StatusBadRequest, `{"type": "validation_error", "title": "Bad Request", "detail": "select a template"}`, services.ErrValidation, "select a template", "application/problem+json"},
		{"precondition problem", http.StatusConflict, `{"title": "Conflict", "detail": "plan no longer cancellable"}`, services.ErrPrecondition, "plan no longer cancellable", "application/problem+json"},
		{"not found", http.StatusNotFound, `{"title": "Not Found"}`, client.ErrNotFound, "Not Found", "application/json"},
		{"server error without body", http.StatusBadGateway, ``, services.ErrTransport, "request failed with status 502", "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			err := client.New(server.URL).DeletePlan(t.Context(), "plan-1")
			require.ErrorIs(t, err, tt.class)

			var transportErr *client.TransportError
			require.ErrorAs(t, err, &transportErr)
			assert.Equal(t, tt.status, transportErr.StatusCode)
			assert.Equal(t, tt.message, transportErr.Error())
			assert.Equal(t, "DeletePlan", transportErr.Op)
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	c := client.New(url, client.WithHTTPClient(&http.Client{Timeout: time.Second}))

	_, err := c.Templates(t.Context())
	require.ErrorIs(t, err, services.ErrTransport)
	assert.True(t, services.IsTransportError(err))

	var transportErr *client.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 0, transportErr.StatusCode)
	assert.NotEmpty(t, transportErr.Message)
}

func TestClient_Reads(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /plans", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "completed", r.URL.Query().Get("status"))
		assert.Equal(t, "start_date", r.URL.Query().Get("sort_by"))

		_, _ = io.WriteString(w, `{"plans": [{"plan": {"id": "plan-1", "status": "completed", "todo": []}, "view": {"canDelete": false}}], "total_count": 11, "has_next_page": true}`)
	})
	mux.HandleFunc("GET /leads/lead-1/plans", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"plan": {"id": "plan-2", "status": "scheduled", "todo": []}, "view": {"canDelete": true}}]`)
	})
	mux.HandleFunc("GET /leads/lead-1/colleagues", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id": "lead-2", "companyId": "acme"}]`)
	})
	mux.HandleFunc("PUT /leads/lead-1", func(w http.ResponseWriter, r *http.Request) {
		var body web.UpsertLeadRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		_ = json.NewEncoder(w).Encode(body.ToModel("lead-1"))
	})
	mux.HandleFunc("GET /templates", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id": "tpl-1", "title": "Five day follow up", "numberOfDaysToRun": 5, "timeOfDayToRun": "09:00"}]`)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := client.New(server.URL + "/")

	page, err := c.ListPlans(t.Context(), client.ListOptions{Limit: 10, Status: models.PlanStatusCompleted, SortBy: "start_date"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), page.TotalCount)
	assert.True(t, page.HasNextPage)
	require.Len(t, page.Plans, 1)
	assert.False(t, page.Plans[0].View.CanDelete)

	plans, err := c.PlansForLead(t.Context(), "lead-1")
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "plan-2", plans[0].Plan.ID)

	colleagues, err := c.Colleagues(t.Context(), "lead-1")
	require.NoError(t, err)
	require.Len(t, colleagues, 1)
	assert.Equal(t, "acme", colleagues[0].CompanyID)

	lead, err := c.UpsertLead(t.Context(), "lead-1", web.UpsertLeadRequest{Timezone: "Asia/Tokyo"})
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", lead.Timezone)

	templates, err := c.Templates(t.Context())
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, 5, templates[0].NumberOfDaysToRun)
}
