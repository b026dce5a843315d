package grpc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/godilite/review-insights/internal/metrics"
	"github.com/godilite/review-insights/internal/repository/models"
	"github.com/godilite/review-insights/internal/service"
	"github.com/godilite/review-insights/internal/syncer"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	defaultCacheDuration = 10 * time.Minute
	defaultGRPCTimeout   = 10 * time.Second
)

type CacheKeyType string

const (
	cacheKeyOverview     CacheKeyType = "grpc:overview"
	cacheKeyAgentMetrics CacheKeyType = "grpc:agent_metrics"
	cacheKeyDailyMetrics CacheKeyType = "grpc:daily_metrics"
)

type Handlers struct {
	dashboard DashboardService
	sync      SyncService
	cache     Cacher
	logger    *zap.Logger
	sfGroup   singleflight.Group
	cacheTTL  time.Duration
	location  *time.Location
	now       func() time.Time

	// generation is part of every cache key and moves on each user edit
	// and completed sync, so views computed before are no longer served.
	generation atomic.Uint64
}

var _ ReviewInsightsServer = (*Handlers)(nil)

// NewHandlers initializes the gRPC handlers.
func NewHandlers(dashboard DashboardService, sync SyncService, cache Cacher, logger *zap.Logger, ttl time.Duration, loc *time.Location) *Handlers {
	if dashboard == nil {
		panic("nil DashboardService provided to NewHandlers")
	}
	if sync == nil {
		panic("nil SyncService provided to NewHandlers")
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		dashboard: dashboard,
		sync:      sync,
		cache:     cache,
		logger:    logger.Named("grpc-handler"),
		cacheTTL:  ttl,
		location:  loc,
		now:       time.Now,
	}
}

// Invalidate retires every cached dashboard view.
func (s *Handlers) Invalidate() {
	s.generation.Add(1)
}

func normalizeKey(prefix CacheKeyType, generation uint64, q service.Query) string {
	agents := append([]string(nil), q.AgentIDs...)
	sort.Strings(agents)
	departments := append([]string(nil), q.DepartmentIDs...)
	sort.Strings(departments)

	return fmt.Sprintf("%s:g%d:%d:%d:%s:%s",
		prefix,
		generation,
		q.Range.From.Unix(),
		q.Range.To.Unix(),
		strings.Join(agents, ","),
		strings.Join(departments, ","))
}

func (s *Handlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	if st, ok := status.FromError(err); ok {
		return st.Err()
	}

	switch {
	case errors.Is(err, service.ErrNoReviews):
		s.logger.Info("no reviews found", zap.String("op", op))
		return status.Error(codes.NotFound, "no reviews found, run a sync first")
	case errors.Is(err, service.ErrAgentNotFound),
		errors.Is(err, service.ErrDepartmentNotFound),
		errors.Is(err, syncer.ErrSyncNotFound):
		s.logger.Info("not found", zap.String("op", op), zap.Error(err))
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, metrics.ErrUnknownRange):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, syncer.ErrSyncInFlight):
		s.logger.Info("sync rejected", zap.String("op", op))
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, service.ErrStorageFailure):
		s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "database error")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

func (s *Handlers) respond(ctx context.Context, op string, v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		return nil, s.handleError(ctx, op, err)
	}
	return out, nil
}

func (s *Handlers) GetOverview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	q, err := parseQuery(req, s.now(), s.location)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	cacheKey := normalizeKey(cacheKeyOverview, s.generation.Load(), q)
	overview, err := FindAndCache(ctx, s.cache, &s.sfGroup, cacheKey, s.cacheTTL, s.logger, func(fetchCtx context.Context) (service.Overview, error) {
		return s.dashboard.GetOverview(fetchCtx, q)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetOverview", err)
	}
	return s.respond(ctx, "GetOverview", overview)
}

func (s *Handlers) GetAgentMetrics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	q, err := parseQuery(req, s.now(), s.location)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	cacheKey := normalizeKey(cacheKeyAgentMetrics, s.generation.Load(), q)
	agents, err := FindAndCache(ctx, s.cache, &s.sfGroup, cacheKey, s.cacheTTL, s.logger, func(fetchCtx context.Context) ([]metrics.AgentSummary, error) {
		return s.dashboard.GetAgentMetrics(fetchCtx, q)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetAgentMetrics", err)
	}
	return s.respond(ctx, "GetAgentMetrics", map[string]any{"range": q.Range, "agents": agents})
}

func (s *Handlers) GetDailyMetrics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	q, err := parseQuery(req, s.now(), s.location)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	cacheKey := normalizeKey(cacheKeyDailyMetrics, s.generation.Load(), q)
	days, err := FindAndCache(ctx, s.cache, &s.sfGroup, cacheKey, s.cacheTTL, s.logger, func(fetchCtx context.Context) ([]metrics.DailySummary, error) {
		return s.dashboard.GetDailyMetrics(fetchCtx, q)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetDailyMetrics", err)
	}
	return s.respond(ctx, "GetDailyMetrics", map[string]any{"range": q.Range, "days": days})
}

func (s *Handlers) GetSourceCounts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	counts, err := s.dashboard.SourceCounts(ctx)
	if err != nil {
		return nil, s.handleError(ctx, "GetSourceCounts", err)
	}
	return s.respond(ctx, "GetSourceCounts", map[string]any{"sources": counts})
}

// ListDateRanges returns every named range as of now in the server's zone.
func (s *Handlers) ListDateRanges(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.respond(ctx, "ListDateRanges", map[string]any{
		"ranges": metrics.NamedRanges(s.now().In(s.location)),
	})
}

func (s *Handlers) StartSync(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := s.sync.Start(ctx)
	if err != nil {
		return nil, s.handleError(ctx, "StartSync", err)
	}
	s.logger.Info("sync started", zap.String("sync_id", id))
	return s.respond(ctx, "StartSync", map[string]any{"sync_id": id})
}

func (s *Handlers) GetSyncStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "sync_id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "sync_id is required")
	}
	st, err := s.sync.Status(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, "GetSyncStatus", err)
	}
	return s.respond(ctx, "GetSyncStatus", st)
}

func (s *Handlers) ListAgents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	agents, err := s.dashboard.ListAgents(ctx)
	if err != nil {
		return nil, s.handleError(ctx, "ListAgents", err)
	}
	departments, err := s.dashboard.ListDepartments(ctx)
	if err != nil {
		return nil, s.handleError(ctx, "ListAgents", err)
	}
	if agents == nil {
		agents = []models.Agent{}
	}
	if departments == nil {
		departments = []models.Department{}
	}
	return s.respond(ctx, "ListAgents", map[string]any{"agents": agents, "departments": departments})
}

func (s *Handlers) SetAgentHidden(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	agentID := stringField(req, "agent_id")
	hidden := boolField(req, "hidden")
	if err := s.dashboard.SetAgentHidden(ctx, agentID, hidden); err != nil {
		return nil, s.handleError(ctx, "SetAgentHidden", err)
	}
	s.Invalidate()
	return s.respond(ctx, "SetAgentHidden", map[string]any{"agent_id": agentID, "hidden": hidden})
}

func (s *Handlers) AssignAgentDepartment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	agentID := stringField(req, "agent_id")
	departmentID := stringField(req, "department_id")
	if err := s.dashboard.AssignAgentDepartment(ctx, agentID, departmentID); err != nil {
		return nil, s.handleError(ctx, "AssignAgentDepartment", err)
	}
	s.Invalidate()
	return s.respond(ctx, "AssignAgentDepartment", map[string]any{
		"agent_id":      agentID,
		"department_id": departmentID,
	})
}

func (s *Handlers) CreateDepartment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	d, err := s.dashboard.CreateDepartment(ctx, stringField(req, "name"))
	if err != nil {
		return nil, s.handleError(ctx, "CreateDepartment", err)
	}
	return s.respond(ctx, "CreateDepartment", d)
}
