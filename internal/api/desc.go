package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "ionoprop.v1.RayTraceService"

// Method names of RayTraceService.
const (
	MethodTrace         = "Trace"
	MethodSweep         = "Sweep"
	MethodProfile       = "Profile"
	MethodListScenarios = "ListScenarios"
	MethodPutScenario   = "PutScenario"
)

// FullMethod returns the gRPC path of a RayTraceService method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// RayTraceServer is the server API. Requests and responses are JSON-shaped
// documents carried as google.protobuf.Struct.
type RayTraceServer interface {
	Trace(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Sweep(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Profile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListScenarios(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PutScenario(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(RayTraceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call structMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RayTraceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RayTraceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RayTraceServiceDesc describes RayTraceService for grpc.Server.
var RayTraceServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RayTraceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodTrace, Handler: unaryHandler(MethodTrace, RayTraceServer.Trace)},
		{MethodName: MethodSweep, Handler: unaryHandler(MethodSweep, RayTraceServer.Sweep)},
		{MethodName: MethodProfile, Handler: unaryHandler(MethodProfile, RayTraceServer.Profile)},
		{MethodName: MethodListScenarios, Handler: unaryHandler(MethodListScenarios, RayTraceServer.ListScenarios)},
		{MethodName: MethodPutScenario, Handler: unaryHandler(MethodPutScenario, RayTraceServer.PutScenario)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ionoprop/v1/raytrace.proto",
}

// RegisterRayTraceServiceServer registers srv on s.
func RegisterRayTraceServiceServer(s grpc.ServiceRegistrar, srv RayTraceServer) {
	s.RegisterService(&RayTraceServiceDesc, srv)
}

// RayTraceClient is a typed client for RayTraceService.
type RayTraceClient struct {
	cc grpc.ClientConnInterface
}

// NewRayTraceClient wraps a client connection.
func NewRayTraceClient(cc grpc.ClientConnInterface) *RayTraceClient {
	return &RayTraceClient{cc: cc}
}

func (c *RayTraceClient) invoke(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	in, err := encodeStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return err
	}
	return decodeStruct(out, resp)
}

// Trace traces a single ray.
func (c *RayTraceClient) Trace(ctx context.Context, req *TraceRequest, opts ...grpc.CallOption) (*TraceResponse, error) {
	resp := new(TraceResponse)
	if err := c.invoke(ctx, MethodTrace, req, resp, opts...); err != nil {
		return nil, err
	}
	return resp, nil
}

// Sweep traces a frequency × elevation grid.
func (c *RayTraceClient) Sweep(ctx context.Context, req *SweepRequest, opts ...grpc.CallOption) (*SweepResponse, error) {
	resp := new(SweepResponse)
	if err := c.invoke(ctx, MethodSweep, req, resp, opts...); err != nil {
		return nil, err
	}
	return resp, nil
}

// Profile samples the electron density profile.
func (c *RayTraceClient) Profile(ctx context.Context, req *ProfileRequest, opts ...grpc.CallOption) (*ProfileResponse, error) {
	resp := new(ProfileResponse)
	if err := c.invoke(ctx, MethodProfile, req, resp, opts...); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListScenarios returns the scenario catalog.
func (c *RayTraceClient) ListScenarios(ctx context.Context, opts ...grpc.CallOption) (*ListScenariosResponse, error) {
	resp := new(ListScenariosResponse)
	if err := c.invoke(ctx, MethodListScenarios, struct{}{}, resp, opts...); err != nil {
		return nil, err
	}
	return resp, nil
}

// PutScenario creates or replaces a catalog scenario.
func (c *RayTraceClient) PutScenario(ctx context.Context, s *ScenarioView, opts ...grpc.CallOption) (*ScenarioView, error) {
	resp := new(ScenarioView)
	if err := c.invoke(ctx, MethodPutScenario, s, resp, opts...); err != nil {
		return nil, err
	}
	return resp, nil
}
