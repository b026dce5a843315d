package service

import (
	"context"

	"github.com/godilite/review-insights/internal/repository/models"
)

// ReviewRepository defines the storage operations the dashboard reads from
// and the user overrides it writes.
type ReviewRepository interface {
	ListReviews(ctx context.Context) ([]models.Review, error)
	SourceCounts(ctx context.Context) (map[string]int, error)
	ListAgents(ctx context.Context) ([]models.Agent, error)
	ListDepartments(ctx context.Context) ([]models.Department, error)
	SetAgentHidden(ctx context.Context, agentID string, hidden bool) error
	AssignAgentDepartment(ctx context.Context, agentID, departmentID string) error
	CreateDepartment(ctx context.Context, name string) (models.Department, error)
}
