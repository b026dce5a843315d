package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/godilite/review-insights/internal/metrics"
	"github.com/godilite/review-insights/internal/repository/models"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	dbTimeout = 2 * time.Second
)

var (
	ErrNoReviews          = errors.New("no reviews found")
	ErrStorageFailure     = errors.New("storage failure")
	ErrInvalidRange       = errors.New("invalid date range")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrAgentNotFound      = errors.New("agent not found")
	ErrDepartmentNotFound = errors.New("department not found")
)

// DashboardService computes dashboard views from the stored review snapshot.
type DashboardService struct {
	storage ReviewRepository
	logger  *zap.Logger
}

// NewDashboardService creates a new DashboardService instance.
func NewDashboardService(storage ReviewRepository, logger *zap.Logger) *DashboardService {
	if storage == nil {
		panic("storage must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	return &DashboardService{
		storage: storage,
		logger:  logger,
	}
}

// dataset is one consistent read of the stored snapshot. Each call loads its
// own copy, so a sync replacing reviews never changes it mid-computation.
type dataset struct {
	reviews     []models.Review
	agents      []models.Agent
	departments []models.Department
}

func (s *DashboardService) load(ctx context.Context) (dataset, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	reviews, err := s.storage.ListReviews(dbCtx)
	if err != nil {
		return dataset{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if len(reviews) == 0 {
		return dataset{}, ErrNoReviews
	}
	agents, err := s.storage.ListAgents(dbCtx)
	if err != nil {
		return dataset{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	departments, err := s.storage.ListDepartments(dbCtx)
	if err != nil {
		return dataset{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	return dataset{
		reviews:     applyOverrides(reviews, agents),
		agents:      agents,
		departments: departments,
	}, nil
}

// applyOverrides moves each review to its agent's current department, so a
// re-assignment made after ingestion drives the department filter.
func applyOverrides(reviews []models.Review, agents []models.Agent) []models.Review {
	byID := lo.KeyBy(agents, func(a models.Agent) string { return a.ID })
	return lo.Map(reviews, func(r models.Review, _ int) models.Review {
		if a, ok := byID[r.AgentID]; ok && a.DepartmentID != "" {
			r.DepartmentID = a.DepartmentID
		}
		return r
	})
}

func validateRange(r metrics.DateRange) error {
	if r.From.IsZero() || r.To.IsZero() {
		return fmt.Errorf("%w: from and to are required", ErrInvalidRange)
	}
	if !r.To.After(r.From) {
		return fmt.Errorf("%w: to must be after from", ErrInvalidRange)
	}
	return nil
}

func (q Query) filter(reviews []models.Review, r metrics.DateRange) []models.Review {
	out := metrics.FilterByDate(reviews, r)
	out = metrics.FilterByAgents(out, q.AgentIDs)
	return metrics.FilterByDepartments(out, q.DepartmentIDs)
}

func visibleAgents(agents []models.Agent) []models.Agent {
	return lo.Filter(agents, func(a models.Agent, _ int) bool { return !a.Hidden })
}

// GetOverview returns the headline summary for the window next to the one
// for the equal-length window before it.
func (s *DashboardService) GetOverview(ctx context.Context, q Query) (Overview, error) {
	if err := validateRange(q.Range); err != nil {
		return Overview{}, err
	}
	data, err := s.load(ctx)
	if err != nil {
		return Overview{}, err
	}

	prevRange := metrics.PreviousPeriod(q.Range)
	current := q.filter(data.reviews, q.Range)
	previous := q.filter(data.reviews, prevRange)

	cur := metrics.Summarize(current)
	prev := metrics.Summarize(previous)

	s.logger.Info("computed overview",
		zap.Time("from", q.Range.From),
		zap.Time("to", q.Range.To),
		zap.Int("current_total", cur.Total),
		zap.Int("previous_total", prev.Total))

	return Overview{
		Range:         q.Range,
		PreviousRange: prevRange,
		Current:       cur,
		Previous:      prev,
		Change: PeriodChange{
			Total:        ChangePercent(float64(cur.Total), float64(prev.Total)),
			AvgRating:    ChangePercent(cur.AvgRating, prev.AvgRating),
			Percent5Star: ChangePercent(cur.Percent5Star, prev.Percent5Star),
		},
		Sources: lo.CountValuesBy(current, func(r models.Review) string { return r.Source }),
		UnresolvedCount: lo.CountBy(current, func(r models.Review) bool {
			return r.AgentID == models.UnknownID
		}),
	}, nil
}

// GetAgentMetrics returns the per-agent leaderboard for the window. Hidden
// agents and unresolved reviews are left out.
func (s *DashboardService) GetAgentMetrics(ctx context.Context, q Query) ([]metrics.AgentSummary, error) {
	if err := validateRange(q.Range); err != nil {
		return nil, err
	}
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	reviews := q.filter(data.reviews, q.Range)
	return metrics.ByAgent(reviews, visibleAgents(data.agents), data.departments), nil
}

// GetDailyMetrics returns one bucket per calendar day of the window.
func (s *DashboardService) GetDailyMetrics(ctx context.Context, q Query) ([]metrics.DailySummary, error) {
	if err := validateRange(q.Range); err != nil {
		return nil, err
	}
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	reviews := q.filter(data.reviews, q.Range)
	return metrics.ByDay(reviews, q.Range), nil
}

// SourceCounts returns how many stored reviews came from each source.
func (s *DashboardService) SourceCounts(ctx context.Context) (map[string]int, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	counts, err := s.storage.SourceCounts(dbCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return counts, nil
}

func (s *DashboardService) ListAgents(ctx context.Context) ([]models.Agent, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	agents, err := s.storage.ListAgents(dbCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return agents, nil
}

func (s *DashboardService) ListDepartments(ctx context.Context) ([]models.Department, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	departments, err := s.storage.ListDepartments(dbCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return departments, nil
}

func (s *DashboardService) SetAgentHidden(ctx context.Context, agentID string, hidden bool) error {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := s.requireAgent(dbCtx, agentID); err != nil {
		return err
	}
	if err := s.storage.SetAgentHidden(dbCtx, agentID, hidden); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	s.logger.Info("agent visibility changed", zap.String("agent_id", agentID), zap.Bool("hidden", hidden))
	return nil
}

func (s *DashboardService) AssignAgentDepartment(ctx context.Context, agentID, departmentID string) error {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := s.requireAgent(dbCtx, agentID); err != nil {
		return err
	}

	departments, err := s.storage.ListDepartments(dbCtx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if !lo.ContainsBy(departments, func(d models.Department) bool { return d.ID == departmentID }) {
		return fmt.Errorf("%w: %s", ErrDepartmentNotFound, departmentID)
	}

	if err := s.storage.AssignAgentDepartment(dbCtx, agentID, departmentID); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	s.logger.Info("agent department assigned",
		zap.String("agent_id", agentID),
		zap.String("department_id", departmentID))
	return nil
}

// CreateDepartment adds a user-defined department.
func (s *DashboardService) CreateDepartment(ctx context.Context, name string) (models.Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Department{}, fmt.Errorf("%w: department name is required", ErrInvalidArgument)
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	d, err := s.storage.CreateDepartment(dbCtx, name)
	if err != nil {
		return models.Department{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	s.logger.Info("department created", zap.String("department_id", d.ID), zap.String("name", d.Name))
	return d, nil
}

func (s *DashboardService) requireAgent(ctx context.Context, agentID string) error {
	if agentID == "" {
		return fmt.Errorf("%w: agent id is required", ErrInvalidArgument)
	}
	agents, err := s.storage.ListAgents(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if !lo.ContainsBy(agents, func(a models.Agent) bool { return a.ID == agentID }) {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}
	return nil
}

// ChangePercent is the rounded relative change from prev to cur. A rise
// from zero counts as 100%.
func ChangePercent(cur, prev float64) float64 {
	switch {
	case prev > 0:
		return metrics.Round2((cur - prev) / prev * 100.0)
	case cur > 0:
		return 100.0
	default:
		return 0
	}
}
