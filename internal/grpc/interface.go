package grpc

import (
	"context"
	"time"

	"github.com/godilite/review-insights/internal/metrics"
	"github.com/godilite/review-insights/internal/repository/models"
	"github.com/godilite/review-insights/internal/service"
	"github.com/godilite/review-insights/internal/syncer"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

type DashboardService interface {
	GetOverview(ctx context.Context, q service.Query) (service.Overview, error)
	GetAgentMetrics(ctx context.Context, q service.Query) ([]metrics.AgentSummary, error)
	GetDailyMetrics(ctx context.Context, q service.Query) ([]metrics.DailySummary, error)
	SourceCounts(ctx context.Context) (map[string]int, error)
	ListAgents(ctx context.Context) ([]models.Agent, error)
	ListDepartments(ctx context.Context) ([]models.Department, error)
	SetAgentHidden(ctx context.Context, agentID string, hidden bool) error
	AssignAgentDepartment(ctx context.Context, agentID, departmentID string) error
	CreateDepartment(ctx context.Context, name string) (models.Department, error)
}

type SyncService interface {
	Start(ctx context.Context) (string, error)
	Status(ctx context.Context, id string) (syncer.Status, error)
}
