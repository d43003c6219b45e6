package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// OutbreakEngineServiceName is the fully qualified gRPC service name.
const OutbreakEngineServiceName = "jalrakshak.outbreak.v1.OutbreakEngine"

// OutbreakEngineServer is the server API for the OutbreakEngine service. Requests and
// responses are google.protobuf.Struct documents shaped like the HTTP JSON bodies.
type OutbreakEngineServer interface {
	SubmitReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SyncReports(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitSensorReading(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RunDetection(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAlerts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetHotspots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ParseSMS(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(OutbreakEngineServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(OutbreakEngineServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + OutbreakEngineServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(OutbreakEngineServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// OutbreakEngineServiceDesc describes the OutbreakEngine service for registration.
var OutbreakEngineServiceDesc = grpc.ServiceDesc{
	ServiceName: OutbreakEngineServiceName,
	HandlerType: (*OutbreakEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("SubmitReport", OutbreakEngineServer.SubmitReport),
		unaryHandler("SyncReports", OutbreakEngineServer.SyncReports),
		unaryHandler("SubmitSensorReading", OutbreakEngineServer.SubmitSensorReading),
		unaryHandler("RunDetection", OutbreakEngineServer.RunDetection),
		unaryHandler("ListAlerts", OutbreakEngineServer.ListAlerts),
		unaryHandler("GetHotspots", OutbreakEngineServer.GetHotspots),
		unaryHandler("ParseSMS", OutbreakEngineServer.ParseSMS),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "jalrakshak/outbreak/v1/outbreak.proto",
}

// RegisterOutbreakEngineServer registers srv on s.
func RegisterOutbreakEngineServer(s grpc.ServiceRegistrar, srv OutbreakEngineServer) {
	s.RegisterService(&OutbreakEngineServiceDesc, srv)
}

// OutbreakEngineClient calls the OutbreakEngine service.
type OutbreakEngineClient struct {
	cc grpc.ClientConnInterface
}

// NewOutbreakEngineClient wraps a client connection.
func NewOutbreakEngineClient(cc grpc.ClientConnInterface) *OutbreakEngineClient {
	return &OutbreakEngineClient{cc: cc}
}

// Call invokes a unary method by name.
func (c *OutbreakEngineClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+OutbreakEngineServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
