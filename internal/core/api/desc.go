package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "blockkeeper.v1.BlockAPI"

// Full method names, as seen by interceptors.
const (
	ValidateBlockMethod   = "/" + ServiceName + "/ValidateBlock"
	SanitizeBlockMethod   = "/" + ServiceName + "/SanitizeBlock"
	ProcessDocumentMethod = "/" + ServiceName + "/ProcessDocument"
)

// BlockAPIServer is the server API for the BlockAPI service.
// Payloads travel as JSON inside BytesValue so object key order survives the
// round trip.
type BlockAPIServer interface {
	ValidateBlock(context.Context, *wrapperspb.BytesValue) (*emptypb.Empty, error)
	SanitizeBlock(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	ProcessDocument(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// RegisterBlockAPIServer registers srv with a gRPC server.
func RegisterBlockAPIServer(s grpc.ServiceRegistrar, srv BlockAPIServer) {
	s.RegisterService(&blockAPIServiceDesc, srv)
}

var blockAPIServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BlockAPIServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ValidateBlock", Handler: validateBlockHandler},
		{MethodName: "SanitizeBlock", Handler: sanitizeBlockHandler},
		{MethodName: "ProcessDocument", Handler: processDocumentHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "blockkeeper/v1/block_api.proto",
}

func validateBlockHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BlockAPIServer).ValidateBlock(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ValidateBlockMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BlockAPIServer).ValidateBlock(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func sanitizeBlockHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BlockAPIServer).SanitizeBlock(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SanitizeBlockMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BlockAPIServer).SanitizeBlock(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func processDocumentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BlockAPIServer).ProcessDocument(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ProcessDocumentMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BlockAPIServer).ProcessDocument(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}
