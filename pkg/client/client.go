// Package client is a Go client for the follow-up REST API. Create and delete calls hold
// an in-flight flag per key, so a second call for the same plan fails fast without
// contacting the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/followup/pkg/guard"
	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/services"
	"github.com/dukex/followup/pkg/web"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
	guard      guard.Guard
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithGuard(g guard.Guard) Option {
	return func(c *Client) {
		c.guard = g
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		guard: guard.NewMemory(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListOptions selects one page of plans.
type ListOptions struct {
	Limit     int
	Offset    int
	Status    models.PlanStatus
	SortBy    string
	SortOrder string
}

func (o ListOptions) query() url.Values {
	values := url.Values{}

	if o.Limit > 0 {
		values.Set("limit", strconv.Itoa(o.Limit))
	}

	if o.Offset > 0 {
		values.Set("offset", strconv.Itoa(o.Offset))
	}

	if o.Status != "" {
		values.Set("status", string(o.Status))
	}

	if o.SortBy != "" {
		values.Set("sort_by", o.SortBy)
	}

	if o.SortOrder != "" {
		values.Set("sort_order", o.SortOrder)
	}

	return values
}

func (c *Client) Templates(ctx context.Context) ([]*models.Template, error) {
	var templates []*models.Template

	err := c.do(ctx, "GetTemplates", http.MethodGet, "/templates", nil, &templates)

	return templates, err
}

func (c *Client) ListPlans(ctx context.Context, opts ListOptions) (*services.ListPlansResponse, error) {
	path := "/plans"
	if query := opts.query().Encode(); query != "" {
		path += "?" + query
	}

	var page services.ListPlansResponse

	err := c.do(ctx, "ListPlans", http.MethodGet, path, nil, &page)
	if err != nil {
		return nil, err
	}

	return &page, nil
}

func (c *Client) GetPlan(ctx context.Context, id string) (*services.PlanDetail, error) {
	var detail services.PlanDetail

	err := c.do(ctx, "GetPlan", http.MethodGet, "/plans/"+url.PathEscape(id), nil, &detail)
	if err != nil {
		return nil, err
	}

	return &detail, nil
}

// CreatePlan rejects a missing template or an empty target list before any request is sent.
func (c *Client) CreatePlan(ctx context.Context, req web.CreatePlanRequest) (*services.PlanDetail, error) {
	if strings.TrimSpace(req.TemplateID) == "" {
		return nil, services.NewValidationError("CreatePlan", "TEMPLATE_REQUIRED", "select a template", services.ErrTemplateRequired)
	}

	if !hasTarget(req.PersonIDs) {
		return nil, services.NewValidationError("CreatePlan", "NO_TARGETS", "select at least one target", services.ErrNoTargets)
	}

	release, err := c.acquire(ctx, services.CreationKey(req.TemplateID, req.PersonIDs))
	if err != nil {
		return nil, err
	}
	defer release()

	var detail services.PlanDetail

	err = c.do(ctx, "CreatePlan", http.MethodPost, "/plans", req, &detail)
	if err != nil {
		return nil, err
	}

	return &detail, nil
}

// DeletePlan cancels a plan. A precondition error means the server refused and the
// caller's copy of the plan is stale.
func (c *Client) DeletePlan(ctx context.Context, id string) error {
	release, err := c.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	return c.do(ctx, "DeletePlan", http.MethodDelete, "/plans/"+url.PathEscape(id), nil, nil)
}

func (c *Client) PlansForLead(ctx context.Context, leadID string) ([]*services.PlanDetail, error) {
	var plans []*services.PlanDetail

	err := c.do(ctx, "PlansForLead", http.MethodGet, "/leads/"+url.PathEscape(leadID)+"/plans", nil, &plans)

	return plans, err
}

func (c *Client) Colleagues(ctx context.Context, leadID string) ([]*models.Lead, error) {
	var leads []*models.Lead

	err := c.do(ctx, "Colleagues", http.MethodGet, "/leads/"+url.PathEscape(leadID)+"/colleagues", nil, &leads)

	return leads, err
}

func (c *Client) UpsertLead(ctx context.Context, id string, req web.UpsertLeadRequest) (*models.Lead, error) {
	var lead models.Lead

	err := c.do(ctx, "UpsertLead", http.MethodPut, "/leads/"+url.PathEscape(id), req, &lead)
	if err != nil {
		return nil, err
	}

	return &lead, nil
}

func (c *Client) acquire(ctx context.Context, key string) (guard.Release, error) {
	release, err := c.guard.Acquire(ctx, key)
	if err != nil {
		if errors.Is(err, guard.ErrInFlight) {
			return nil, services.NewPreconditionError("AcquireMutation", "MUTATION_IN_FLIGHT",
				"a change to this plan is already in progress", services.ErrMutationInFlight)
		}

		return nil, err
	}

	return release, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return requestFailed(op, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return requestFailed(op, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return responseFailed(op, resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}

	err = json.Unmarshal(data, out)
	if err != nil {
		return requestFailed(op, fmt.Errorf("invalid response body: %w", err))
	}

	return nil
}

func hasTarget(ids []string) bool {
	for _, id := range ids {
		if strings.TrimSpace(id) != "" {
			return true
		}
	}

	return false
}
