package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name. Requests and
// responses are google.protobuf.Struct documents.
const ServiceName = "reviews.v1.ReviewInsights"

const (
	MethodGetOverview           = "GetOverview"
	MethodGetAgentMetrics       = "GetAgentMetrics"
	MethodGetDailyMetrics       = "GetDailyMetrics"
	MethodGetSourceCounts       = "GetSourceCounts"
	MethodListDateRanges        = "ListDateRanges"
	MethodStartSync             = "StartSync"
	MethodGetSyncStatus         = "GetSyncStatus"
	MethodListAgents            = "ListAgents"
	MethodSetAgentHidden        = "SetAgentHidden"
	MethodAssignAgentDepartment = "AssignAgentDepartment"
	MethodCreateDepartment      = "CreateDepartment"
)

type ReviewInsightsServer interface {
	GetOverview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetAgentMetrics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetDailyMetrics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetSourceCounts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListDateRanges(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	StartSync(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetSyncStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListAgents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SetAgentHidden(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AssignAgentDepartment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CreateDepartment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv ReviewInsightsServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ReviewInsightsServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ReviewInsightsServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReviewInsightsServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodGetOverview, ReviewInsightsServer.GetOverview),
		unaryMethod(MethodGetAgentMetrics, ReviewInsightsServer.GetAgentMetrics),
		unaryMethod(MethodGetDailyMetrics, ReviewInsightsServer.GetDailyMetrics),
		unaryMethod(MethodGetSourceCounts, ReviewInsightsServer.GetSourceCounts),
		unaryMethod(MethodListDateRanges, ReviewInsightsServer.ListDateRanges),
		unaryMethod(MethodStartSync, ReviewInsightsServer.StartSync),
		unaryMethod(MethodGetSyncStatus, ReviewInsightsServer.GetSyncStatus),
		unaryMethod(MethodListAgents, ReviewInsightsServer.ListAgents),
		unaryMethod(MethodSetAgentHidden, ReviewInsightsServer.SetAgentHidden),
		unaryMethod(MethodAssignAgentDepartment, ReviewInsightsServer.AssignAgentDepartment),
		unaryMethod(MethodCreateDepartment, ReviewInsightsServer.CreateDepartment),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reviews/v1/review_insights.proto",
}

func RegisterReviewInsightsServer(s grpc.ServiceRegistrar, srv ReviewInsightsServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls ReviewInsights methods by name.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
