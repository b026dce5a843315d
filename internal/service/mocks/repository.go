package mocks

import (
	"context"
	"errors"

	"github.com/godilite/review-insights/internal/repository/models"
)

// MockReviewRepository is a mock implementation of the ReviewRepository interface
// for testing the service layer.
type MockReviewRepository struct {
	ListReviewsFunc           func(ctx context.Context) ([]models.Review, error)
	SourceCountsFunc          func(ctx context.Context) (map[string]int, error)
	ListAgentsFunc            func(ctx context.Context) ([]models.Agent, error)
	ListDepartmentsFunc       func(ctx context.Context) ([]models.Department, error)
	SetAgentHiddenFunc        func(ctx context.Context, agentID string, hidden bool) error
	AssignAgentDepartmentFunc func(ctx context.Context, agentID, departmentID string) error
	CreateDepartmentFunc      func(ctx context.Context, name string) (models.Department, error)
}

// ListReviews implements the ReviewRepository interface
func (m *MockReviewRepository) ListReviews(ctx context.Context) ([]models.Review, error) {
	if m.ListReviewsFunc != nil {
		return m.ListReviewsFunc(ctx)
	}
	return nil, errors.New("ListReviewsFunc not implemented")
}

// SourceCounts implements the ReviewRepository interface
func (m *MockReviewRepository) SourceCounts(ctx context.Context) (map[string]int, error) {
	if m.SourceCountsFunc != nil {
		return m.SourceCountsFunc(ctx)
	}
	return nil, errors.New("SourceCountsFunc not implemented")
}

// ListAgents implements the ReviewRepository interface
func (m *MockReviewRepository) ListAgents(ctx context.Context) ([]models.Agent, error) {
	if m.ListAgentsFunc != nil {
		return m.ListAgentsFunc(ctx)
	}
	return nil, nil
}

// ListDepartments implements the ReviewRepository interface
func (m *MockReviewRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	if m.ListDepartmentsFunc != nil {
		return m.ListDepartmentsFunc(ctx)
	}
	return nil, nil
}

// SetAgentHidden implements the ReviewRepository interface
func (m *MockReviewRepository) SetAgentHidden(ctx context.Context, agentID string, hidden bool) error {
	if m.SetAgentHiddenFunc != nil {
		return m.SetAgentHiddenFunc(ctx, agentID, hidden)
	}
	return errors.New("SetAgentHiddenFunc not implemented")
}

// AssignAgentDepartment implements the ReviewRepository interface
func (m *MockReviewRepository) AssignAgentDepartment(ctx context.Context, agentID, departmentID string) error {
	if m.AssignAgentDepartmentFunc != nil {
		return m.AssignAgentDepartmentFunc(ctx, agentID, departmentID)
	}
	return errors.New("AssignAgentDepartmentFunc not implemented")
}

// CreateDepartment implements the ReviewRepository interface
func (m *MockReviewRepository) CreateDepartment(ctx context.Context, name string) (models.Department, error) {
	if m.CreateDepartmentFunc != nil {
		return m.CreateDepartmentFunc(ctx, name)
	}
	return models.Department{}, errors.New("CreateDepartmentFunc not implemented")
}
