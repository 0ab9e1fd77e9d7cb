// Package mocks provides testify mocks of the persistence and event bus interfaces.
package mocks

import (
	"context"

	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPlanRepository is a mock implementation of persistence.PlanRepository interface.
type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) ListPlans(ctx context.Context, opts persistence.ListPlansOptions) (*persistence.PlanListResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*persistence.PlanListResult), args.Error(1)
}

func (m *MockPlanRepository) All(ctx context.Context) ([]*models.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Plan), args.Error(1)
}

func (m *MockPlanRepository) GetByID(ctx context.Context, id string) (*models.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *MockPlanRepository) Save(ctx context.Context, plan *models.Plan) error {
	args := m.Called(ctx, plan)

	return args.Error(0)
}

func (m *MockPlanRepository) Update(ctx context.Context, plan *models.Plan) error {
	args := m.Called(ctx, plan)

	return args.Error(0)
}

func (m *MockPlanRepository) Delete(ctx context.Context, id string, statuses ...models.PlanStatus) error {
	args := m.Called(ctx, id, statuses)

	return args.Error(0)
}

// MockTemplateRepository is a mock implementation of persistence.TemplateRepository interface.
type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) GetTemplates(ctx context.Context) ([]*models.Template, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Template), args.Error(1)
}

func (m *MockTemplateRepository) GetByID(ctx context.Context, id string) (*models.Template, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Template), args.Error(1)
}

func (m *MockTemplateRepository) Save(ctx context.Context, template *models.Template) error {
	args := m.Called(ctx, template)

	return args.Error(0)
}

// MockLeadRepository is a mock implementation of persistence.LeadRepository interface.
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockLeadRepository) ListByCompany(ctx context.Context, companyID, companyName string) ([]*models.Lead, error) {
	args := m.Called(ctx, companyID, companyName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Lead), args.Error(1)
}

func (m *MockLeadRepository) Save(ctx context.Context, lead *models.Lead) error {
	args := m.Called(ctx, lead)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	plans     *MockPlanRepository
	templates *MockTemplateRepository
	leads     *MockLeadRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		plans:     &MockPlanRepository{},
		templates: &MockTemplateRepository{},
		leads:     &MockLeadRepository{},
	}
}

func (m *MockPersistence) GetMockPlanRepository() *MockPlanRepository {
	return m.plans
}

func (m *MockPersistence) GetMockTemplateRepository() *MockTemplateRepository {
	return m.templates
}

func (m *MockPersistence) GetMockLeadRepository() *MockLeadRepository {
	return m.leads
}

func (m *MockPersistence) PlanRepository() persistence.PlanRepository {
	return m.plans
}

func (m *MockPersistence) TemplateRepository() persistence.TemplateRepository {
	return m.templates
}

func (m *MockPersistence) LeadRepository() persistence.LeadRepository {
	return m.leads
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
