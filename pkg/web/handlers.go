package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	planService     *services.Plan
	templateService *services.Template
	leadService     *services.Lead
	validator       *validator.Validate
}

func NewAPIHandlers(
	planService *services.Plan,
	templateService *services.Template,
	leadService *services.Lead,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		planService:     planService,
		templateService: templateService,
		leadService:     leadService,
		validator:       validator,
	}
}

// Register mounts every route on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	t := app.Group("/templates")
	t.Get("/", h.GetTemplates)
	t.Get("/:id", h.GetTemplate)

	p := app.Group("/plans")
	p.Get("/", h.GetPlans)
	p.Post("/", h.CreatePlan)
	p.Get("/:id", h.GetPlan)
	p.Delete("/:id", h.DeletePlan)

	l := app.Group("/leads")
	l.Get("/:id", h.GetLead)
	l.Get("/:id/plans", h.GetLeadPlans)
	l.Get("/:id/colleagues", h.GetLeadColleagues)
	l.Put("/:id", h.UpsertLead)

	app.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	templates, err := h.templateService.GetTemplates(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(templates)
}

func (h *APIHandlers) GetTemplate(c fiber.Ctx) error {
	template, err := h.templateService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) GetPlans(c fiber.Ctx) error {
	req, err := h.parseListPlansRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.planService.List(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"plans":         result.Plans,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
		"sorting": fiber.Map{
			"sort_by":    req.SortBy,
			"sort_order": req.SortOrder,
		},
	})
}

// parseListPlansRequest parses query parameters for listing plans.
func (h *APIHandlers) parseListPlansRequest(c fiber.Ctx) (*services.ListPlansRequest, error) {
	req := &services.ListPlansRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.PlanStatus(statusStr)
		req.Status = &status
	}

	req.SortBy = c.Query("sort_by")
	req.SortOrder = c.Query("sort_order")

	return req, nil
}

func (h *APIHandlers) CreatePlan(c fiber.Ctx) error {
	var body CreatePlanRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(body); err != nil {
		return badRequest(c, err.Error())
	}

	req, err := body.ToService()
	if err != nil {
		return handleServiceError(c, err)
	}

	created, err := h.planService.Create(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetPlan(c fiber.Ctx) error {
	plan, err := h.planService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(plan)
}

func (h *APIHandlers) DeletePlan(c fiber.Ctx) error {
	err := h.planService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetLead(c fiber.Ctx) error {
	lead, err := h.leadService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(lead)
}

func (h *APIHandlers) GetLeadPlans(c fiber.Ctx) error {
	plans, err := h.planService.PlansForLead(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(plans)
}

func (h *APIHandlers) GetLeadColleagues(c fiber.Ctx) error {
	leads, err := h.leadService.Colleagues(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(leads)
}

func (h *APIHandlers) UpsertLead(c fiber.Ctx) error {
	var body UpsertLeadRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(body); err != nil {
		return badRequest(c, err.Error())
	}

	lead, err := h.leadService.Save(c.Context(), body.ToModel(c.Params("id")))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(lead)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.planService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Follow-up API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Follow-up API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
