package grpc

import (
	"context"

	"github.com/dmitrijs2005/usersvc/internal/server/policy"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Method names of the usersvc.v1.UserService service. Requests and
// responses are google.protobuf.Struct messages.
const (
	MethodPing     = "Ping"
	MethodRegister = "Register"
	MethodLogin    = "Login"
	MethodWhoami   = "Whoami"
	MethodGetUser  = "GetUser"
)

// FullMethod returns the gRPC path of a method, e.g.
// "/usersvc.v1.UserService/Login".
func FullMethod(name string) string {
	return "/" + policy.GRPCServiceName + "/" + name
}

// UserServiceServer is the server API of usersvc.v1.UserService.
type UserServiceServer interface {
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Whoami(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(UserServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodHandler(name string, m unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return m(srv.(UserServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
		handler := func(ctx context.Context, req any) (any, error) {
			return m(srv.(UserServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes usersvc.v1.UserService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: policy.GRPCServiceName,
	HandlerType: (*UserServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodPing, Handler: methodHandler(MethodPing, UserServiceServer.Ping)},
		{MethodName: MethodRegister, Handler: methodHandler(MethodRegister, UserServiceServer.Register)},
		{MethodName: MethodLogin, Handler: methodHandler(MethodLogin, UserServiceServer.Login)},
		{MethodName: MethodWhoami, Handler: methodHandler(MethodWhoami, UserServiceServer.Whoami)},
		{MethodName: MethodGetUser, Handler: methodHandler(MethodGetUser, UserServiceServer.GetUser)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "usersvc/v1/users.proto",
}
