package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/godilite/review-insights/internal/grpc/mocks"
	"github.com/godilite/review-insights/internal/service"
	"github.com/godilite/review-insights/internal/syncer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func dialBufconn(t *testing.T, srv ReviewInsightsServer, opts ...grpc.ServerOption) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(opts...)
	RegisterReviewInsightsServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewClient(conn)
}

func TestServiceDescOverBufconn(t *testing.T) {
	var methods []string
	record := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		methods = append(methods, info.FullMethod)
		return handler(ctx, req)
	}

	sync := &mocks.MockSyncService{
		StartFunc: func(ctx context.Context) (string, error) { return "sync-1", nil },
		StatusFunc: func(ctx context.Context, id string) (syncer.Status, error) {
			return syncer.Status{ID: id, Status: syncer.StageComplete, Progress: 100}, nil
		},
	}
	dash := &mocks.MockDashboardService{
		GetOverviewFunc: func(ctx context.Context, q service.Query) (service.Overview, error) {
			return service.Overview{}, service.ErrNoReviews
		},
	}
	client := dialBufconn(t, newTestHandlers(dash, sync, nil), grpc.ChainUnaryInterceptor(record))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Call(ctx, MethodStartSync, nil)
	require.NoError(t, err)
	assert.Equal(t, "sync-1", resp.AsMap()["sync_id"])

	req, err := structpb.NewStruct(map[string]any{"sync_id": "sync-1"})
	require.NoError(t, err)
	resp, err = client.Call(ctx, MethodGetSyncStatus, req)
	require.NoError(t, err)
	assert.Equal(t, "complete", resp.AsMap()["status"])

	req, err = structpb.NewStruct(map[string]any{"range": "last_30_days"})
	require.NoError(t, err)
	_, err = client.Call(ctx, MethodGetOverview, req)
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.Call(ctx, "NoSuchMethod", nil)
	assert.Equal(t, codes.Unimplemented, status.Code(err))

	assert.Equal(t, []string{
		"/reviews.v1.ReviewInsights/StartSync",
		"/reviews.v1.ReviewInsights/GetSyncStatus",
		"/reviews.v1.ReviewInsights/GetOverview",
	}, methods)
}

func TestServiceDescCoversServer(t *testing.T) {
	names := make([]string, 0, len(ServiceDesc.Methods))
	for _, m := range ServiceDesc.Methods {
		names = append(names, m.MethodName)
	}
	assert.ElementsMatch(t, []string{
		MethodGetOverview, MethodGetAgentMetrics, MethodGetDailyMetrics, MethodGetSourceCounts,
		MethodListDateRanges, MethodStartSync, MethodGetSyncStatus, MethodListAgents,
		MethodSetAgentHidden, MethodAssignAgentDepartment, MethodCreateDepartment,
	}, names)
}
