package mocks

import (
	"context"
	"errors"

	"github.com/godilite/review-insights/internal/metrics"
	"github.com/godilite/review-insights/internal/repository/models"
	"github.com/godilite/review-insights/internal/service"
	"github.com/godilite/review-insights/internal/syncer"
)

// MockDashboardService is a mock implementation of the DashboardService
// interface for testing the handler layer.
type MockDashboardService struct {
	GetOverviewFunc           func(ctx context.Context, q service.Query) (service.Overview, error)
	GetAgentMetricsFunc       func(ctx context.Context, q service.Query) ([]metrics.AgentSummary, error)
	GetDailyMetricsFunc       func(ctx context.Context, q service.Query) ([]metrics.DailySummary, error)
	SourceCountsFunc          func(ctx context.Context) (map[string]int, error)
	ListAgentsFunc            func(ctx context.Context) ([]models.Agent, error)
	ListDepartmentsFunc       func(ctx context.Context) ([]models.Department, error)
	SetAgentHiddenFunc        func(ctx context.Context, agentID string, hidden bool) error
	AssignAgentDepartmentFunc func(ctx context.Context, agentID, departmentID string) error
	CreateDepartmentFunc      func(ctx context.Context, name string) (models.Department, error)
}

func (m *MockDashboardService) GetOverview(ctx context.Context, q service.Query) (service.Overview, error) {
	if m.GetOverviewFunc != nil {
		return m.GetOverviewFunc(ctx, q)
	}
	return service.Overview{}, errors.New("GetOverviewFunc not implemented")
}

func (m *MockDashboardService) GetAgentMetrics(ctx context.Context, q service.Query) ([]metrics.AgentSummary, error) {
	if m.GetAgentMetricsFunc != nil {
		return m.GetAgentMetricsFunc(ctx, q)
	}
	return nil, errors.New("GetAgentMetricsFunc not implemented")
}

func (m *MockDashboardService) GetDailyMetrics(ctx context.Context, q service.Query) ([]metrics.DailySummary, error) {
	if m.GetDailyMetricsFunc != nil {
		return m.GetDailyMetricsFunc(ctx, q)
	}
	return nil, errors.New("GetDailyMetricsFunc not implemented")
}

func (m *MockDashboardService) SourceCounts(ctx context.Context) (map[string]int, error) {
	if m.SourceCountsFunc != nil {
		return m.SourceCountsFunc(ctx)
	}
	return nil, errors.New("SourceCountsFunc not implemented")
}

func (m *MockDashboardService) ListAgents(ctx context.Context) ([]models.Agent, error) {
	if m.ListAgentsFunc != nil {
		return m.ListAgentsFunc(ctx)
	}
	return nil, errors.New("ListAgentsFunc not implemented")
}

func (m *MockDashboardService) ListDepartments(ctx context.Context) ([]models.Department, error) {
	if m.ListDepartmentsFunc != nil {
		return m.ListDepartmentsFunc(ctx)
	}
	return nil, errors.New("ListDepartmentsFunc not implemented")
}

func (m *MockDashboardService) SetAgentHidden(ctx context.Context, agentID string, hidden bool) error {
	if m.SetAgentHiddenFunc != nil {
		return m.SetAgentHiddenFunc(ctx, agentID, hidden)
	}
	return errors.New("SetAgentHiddenFunc not implemented")
}

func (m *MockDashboardService) AssignAgentDepartment(ctx context.Context, agentID, departmentID string) error {
	if m.AssignAgentDepartmentFunc != nil {
		return m.AssignAgentDepartmentFunc(ctx, agentID, departmentID)
	}
	return errors.New("AssignAgentDepartmentFunc not implemented")
}

func (m *MockDashboardService) CreateDepartment(ctx context.Context, name string) (models.Department, error) {
	if m.CreateDepartmentFunc != nil {
		return m.CreateDepartmentFunc(ctx, name)
	}
	return models.Department{}, errors.New("CreateDepartmentFunc not implemented")
}

// MockSyncService is a mock implementation of the SyncService interface.
type MockSyncService struct {
	StartFunc  func(ctx context.Context) (string, error)
	StatusFunc func(ctx context.Context, id string) (syncer.Status, error)
}

func (m *MockSyncService) Start(ctx context.Context) (string, error) {
	if m.StartFunc != nil {
		return m.StartFunc(ctx)
	}
	return "", errors.New("StartFunc not implemented")
}

func (m *MockSyncService) Status(ctx context.Context, id string) (syncer.Status, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, id)
	}
	return syncer.Status{}, errors.New("StatusFunc not implemented")
}
