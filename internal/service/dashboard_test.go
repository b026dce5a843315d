package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/godilite/review-insights/internal/metrics"
	"github.com/godilite/review-insights/internal/repository/models"
	"github.com/godilite/review-insights/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	testAgents = []models.Agent{
		{ID: "a1", AgentKey: "jane", DisplayName: "Jane", DepartmentID: "d1"},
		// Bob was moved from d1 to d2 after his reviews were ingested.
		{ID: "a2", AgentKey: "bob", DisplayName: "Bob", DepartmentID: "d2"},
		{ID: "a3", AgentKey: "gone", DisplayName: "Gone", DepartmentID: "d1", Hidden: true},
	}
	testDepartments = []models.Department{
		{ID: "d1", Name: "Sales"},
		{ID: "d2", Name: "Claims"},
	}
	testReviews = []models.Review{
		{ID: "p1", AgentID: "a1", DepartmentID: "d1", Rating: 5, ReviewTimestamp: "2025-01-03T10:00:00Z", Source: "live"},
		{ID: "p2", AgentID: "a2", DepartmentID: "d1", Rating: 3, ReviewTimestamp: "2025-01-05T10:00:00Z", Source: "live"},
		{ID: "r1", AgentID: "a1", DepartmentID: "d1", Rating: 5, ReviewTimestamp: "2025-01-08T00:00:00Z", Source: "live"},
		{ID: "r6", AgentID: "a1", DepartmentID: "d1", Rating: 0, ReviewTimestamp: "2025-01-09T10:00:00Z", Source: "live"},
		{ID: "r2", AgentID: "a1", DepartmentID: "d1", Rating: 4, ReviewTimestamp: "2025-01-10T10:00:00Z", Source: "live"},
		{ID: "r3", AgentID: "a2", DepartmentID: "d1", Rating: 5, ReviewTimestamp: "2025-01-12T10:00:00Z", Source: "2024"},
		{ID: "r4", AgentID: models.UnknownID, DepartmentID: models.UnknownID, Rating: 3, ReviewTimestamp: "2025-01-14T10:00:00Z", Source: "live"},
		{ID: "r5", AgentID: "a3", DepartmentID: "d1", Rating: 1, ReviewTimestamp: "2025-01-14T11:00:00Z", Source: "live"},
		{ID: "r7", AgentID: "a1", DepartmentID: "d1", Rating: 5, ReviewTimestamp: "2025-01-15T00:00:00Z", Source: "live"},
		{ID: "x1", AgentID: "a1", DepartmentID: "d1", Rating: 5, ReviewTimestamp: "", Source: "live"},
	}
	testRange = metrics.DateRange{
		From: time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	}
)

func newTestRepo() *mocks.MockReviewRepository {
	return &mocks.MockReviewRepository{
		ListReviewsFunc: func(ctx context.Context) ([]models.Review, error) {
			return append([]models.Review(nil), testReviews...), nil
		},
		ListAgentsFunc: func(ctx context.Context) ([]models.Agent, error) {
			return testAgents, nil
		},
		ListDepartmentsFunc: func(ctx context.Context) ([]models.Department, error) {
			return testDepartments, nil
		},
	}
}

// TestNewDashboardService tests the constructor
func TestNewDashboardService(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		repo := &mocks.MockReviewRepository{}
		logger := zap.NewNop()

		svc := NewDashboardService(repo, logger)

		assert.NotNil(t, svc)
		assert.Equal(t, repo, svc.storage)
		assert.Equal(t, logger, svc.logger)
	})

	t.Run("nil storage panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewDashboardService(nil, zap.NewNop())
		})
	})

	t.Run("nil logger gets default", func(t *testing.T) {
		svc := NewDashboardService(&mocks.MockReviewRepository{}, nil)
		assert.NotNil(t, svc.logger)
	})
}

func TestGetOverview(t *testing.T) {
	ctx := context.Background()

	t.Run("current vs previous period", func(t *testing.T) {
		svc := NewDashboardService(newTestRepo(), zap.NewNop())

		ov, err := svc.GetOverview(ctx, Query{Range: testRange})
		require.NoError(t, err)

		assert.Equal(t, metrics.Summary{
			Star1: 1, Star3: 1, Star4: 1, Star5: 2,
			Total: 5, AvgRating: 3.6, Percent5Star: 40,
		}, ov.Current)
		assert.Equal(t, metrics.Summary{
			Star3: 1, Star5: 1,
			Total: 2, AvgRating: 4, Percent5Star: 50,
		}, ov.Previous)
		assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), ov.PreviousRange.From)
		assert.Equal(t, testRange.From, ov.PreviousRange.To)
		assert.Equal(t, PeriodChange{Total: 150, AvgRating: -10, Percent5Star: -20}, ov.Change)
		assert.Equal(t, map[string]int{"live": 5, "2024": 1}, ov.Sources)
		assert.Equal(t, 1, ov.UnresolvedCount)
	})

	t.Run("department filter follows re-assignment", func(t *testing.T) {
		svc := NewDashboardService(newTestRepo(), zap.NewNop())

		ov, err := svc.GetOverview(ctx, Query{Range: testRange, DepartmentIDs: []string{"d2"}})
		require.NoError(t, err)
		assert.Equal(t, 1, ov.Current.Total)
		assert.Equal(t, 1, ov.Current.Star5)
		assert.Equal(t, 1, ov.Previous.Total)
	})

	t.Run("agent filter", func(t *testing.T) {
		svc := NewDashboardService(newTestRepo(), zap.NewNop())

		ov, err := svc.GetOverview(ctx, Query{Range: testRange, AgentIDs: []string{"a1"}})
		require.NoError(t, err)
		assert.Equal(t, 2, ov.Current.Total)
		assert.Equal(t, 4.5, ov.Current.AvgRating)
	})

	t.Run("no reviews", func(t *testing.T) {
		repo := &mocks.MockReviewRepository{
			ListReviewsFunc: func(ctx context.Context) ([]models.Review, error) { return nil, nil },
		}
		svc := NewDashboardService(repo, zap.NewNop())

		_, err := svc.GetOverview(ctx, Query{Range: testRange})
		assert.ErrorIs(t, err, ErrNoReviews)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := &mocks.MockReviewRepository{
			ListReviewsFunc: func(ctx context.Context) ([]models.Review, error) {
				return nil, errors.New("database connection failed")
			},
		}
		svc := NewDashboardService(repo, zap.NewNop())

		_, err := svc.GetOverview(ctx, Query{Range: testRange})
		assert.ErrorIs(t, err, ErrStorageFailure)
		assert.Contains(t, err.Error(), "database connection failed")
	})

	t.Run("invalid range", func(t *testing.T) {
		svc := NewDashboardService(newTestRepo(), zap.NewNop())

		_, err := svc.GetOverview(ctx, Query{Range: metrics.DateRange{From: testRange.To, To: testRange.From}})
		assert.ErrorIs(t, err, ErrInvalidRange)

		_, err = svc.GetOverview(ctx, Query{})
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("dbTimeout applied", func(t *testing.T) {
		repo := newTestRepo()
		repo.ListReviewsFunc = func(ctx context.Context) ([]models.Review, error) {
			deadline, ok := ctx.Deadline()
			assert.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(dbTimeout), deadline, time.Second)
			return testReviews, nil
		}
		svc := NewDashboardService(repo, zap.NewNop())

		_, err := svc.GetOverview(ctx, Query{Range: testRange})
		assert.NoError(t, err)
	})
}

func TestGetAgentMetrics(t *testing.T) {
	svc := NewDashboardService(newTestRepo(), zap.NewNop())

	got, err := svc.GetAgentMetrics(context.Background(), Query{Range: testRange})
	require.NoError(t, err)
	require.Len(t, got, 2, "hidden and unresolved agents are left out")

	assert.Equal(t, "a1", got[0].AgentID)
	assert.Equal(t, "Sales", got[0].DepartmentName)
	assert.Equal(t, 2, got[0].Total)
	require.NotNil(t, got[0].LastReviewDate)
	assert.Equal(t, "2025-01-10T10:00:00Z", *got[0].LastReviewDate)

	assert.Equal(t, "a2", got[1].AgentID)
	assert.Equal(t, "d2", got[1].DepartmentID)
	assert.Equal(t, "Claims", got[1].DepartmentName)
	assert.Equal(t, 1, got[1].Total)
}

func TestGetDailyMetrics(t *testing.T) {
	svc := NewDashboardService(newTestRepo(), zap.NewNop())

	got, err := svc.GetDailyMetrics(context.Background(), Query{Range: testRange})
	require.NoError(t, err)
	require.Len(t, got, 7)

	assert.Equal(t, "2025-01-08", got[0].Date)
	assert.Equal(t, 1, got[0].Total)
	assert.Equal(t, "2025-01-09", got[1].Date)
	assert.Equal(t, 0, got[1].Total, "invalid ratings do not count")
	assert.Equal(t, 0.0, got[1].AvgRating)
	assert.Equal(t, "2025-01-14", got[6].Date)
	assert.Equal(t, 2, got[6].Total)
	assert.Equal(t, 2.0, got[6].AvgRating)
}

func TestSourceCounts(t *testing.T) {
	repo := &mocks.MockReviewRepository{
		SourceCountsFunc: func(ctx context.Context) (map[string]int, error) {
			return map[string]int{"live": 3, "2024": 2}, nil
		},
	}
	svc := NewDashboardService(repo, zap.NewNop())

	got, err := svc.SourceCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"live": 3, "2024": 2}, got)

	repo.SourceCountsFunc = func(ctx context.Context) (map[string]int, error) {
		return nil, errors.New("locked")
	}
	_, err = svc.SourceCounts(context.Background())
	assert.ErrorIs(t, err, ErrStorageFailure)
}

func TestSetAgentHidden(t *testing.T) {
	ctx := context.Background()

	t.Run("known agent", func(t *testing.T) {
		repo := newTestRepo()
		var gotID string
		var gotHidden bool
		repo.SetAgentHiddenFunc = func(ctx context.Context, agentID string, hidden bool) error {
			gotID, gotHidden = agentID, hidden
			return nil
		}
		svc := NewDashboardService(repo, zap.NewNop())

		require.NoError(t, svc.SetAgentHidden(ctx, "a2", true))
		assert.Equal(t, "a2", gotID)
		assert.True(t, gotHidden)
	})

	t.Run("unknown agent", func(t *testing.T) {
		svc := NewDashboardService(newTestRepo(), zap.NewNop())
		assert.ErrorIs(t, svc.SetAgentHidden(ctx, "nope", true), ErrAgentNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		svc := NewDashboardService(newTestRepo(), zap.NewNop())
		assert.ErrorIs(t, svc.SetAgentHidden(ctx, "", true), ErrInvalidArgument)
	})
}

func TestAssignAgentDepartment(t *testing.T) {
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		repo := newTestRepo()
		called := false
		repo.AssignAgentDepartmentFunc = func(ctx context.Context, agentID, departmentID string) error {
			called = true
			assert.Equal(t, "a1", agentID)
			assert.Equal(t, "d2", departmentID)
			return nil
		}
		svc := NewDashboardService(repo, zap.NewNop())

		require.NoError(t, svc.AssignAgentDepartment(ctx, "a1", "d2"))
		assert.True(t, called)
	})

	t.Run("unknown department", func(t *testing.T) {
		svc := NewDashboardService(newTestRepo(), zap.NewNop())
		assert.ErrorIs(t, svc.AssignAgentDepartment(ctx, "a1", "d9"), ErrDepartmentNotFound)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := newTestRepo()
		repo.AssignAgentDepartmentFunc = func(ctx context.Context, agentID, departmentID string) error {
			return errors.New("disk I/O error")
		}
		svc := NewDashboardService(repo, zap.NewNop())
		assert.ErrorIs(t, svc.AssignAgentDepartment(ctx, "a1", "d2"), ErrStorageFailure)
	})
}

func TestCreateDepartment(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.MockReviewRepository{
		CreateDepartmentFunc: func(ctx context.Context, name string) (models.Department, error) {
			return models.Department{ID: "new", Name: name, Custom: true}, nil
		},
	}
	svc := NewDashboardService(repo, zap.NewNop())

	d, err := svc.CreateDepartment(ctx, "  Retention ")
	require.NoError(t, err)
	assert.Equal(t, models.Department{ID: "new", Name: "Retention", Custom: true}, d)

	_, err = svc.CreateDepartment(ctx, "   ")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestChangePercent(t *testing.T) {
	cases := []struct {
		name      string
		cur, prev float64
		want      float64
	}{
		{"increase", 150, 100, 50},
		{"decrease", 3.6, 4, -10},
		{"from zero", 5, 0, 100},
		{"both zero", 0, 0, 0},
		{"to zero", 0, 4, -100},
		{"rounded", 1, 3, -66.67},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ChangePercent(tc.cur, tc.prev))
		})
	}
}
