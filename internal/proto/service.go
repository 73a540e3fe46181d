// Package proto describes the casedesk.v1.CaseDesk gRPC service. Messages are
// google.protobuf.Struct values whose fields are listed next to each method.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "casedesk.v1.CaseDesk"

// Method names. Request and response fields are snake_case.
const (
	// Register: first_name, last_name, email, password -> {}
	MethodRegister = "Register"
	// Confirm: token -> {}
	MethodConfirm = "Confirm"
	// ResendConfirmation: email -> {}
	MethodResendConfirmation = "ResendConfirmation"
	// Login: email, password -> access_token, expires_at, user_id, email, full_name
	MethodLogin = "Login"
	// RequestPasswordReset: email -> {}
	MethodRequestPasswordReset = "RequestPasswordReset"
	// ApplyPasswordReset: token, new_password -> {}
	MethodApplyPasswordReset = "ApplyPasswordReset"
	// ChangePassword (authenticated): old_password, new_password -> {}
	MethodChangePassword = "ChangePassword"
	// CreateAccident (authenticated): occurred_at, location, description -> accident
	MethodCreateAccident = "CreateAccident"
	// GetAccident (authenticated): case_number -> accident
	MethodGetAccident = "GetAccident"
	// Ping: {} -> status
	MethodPing = "Ping"
)

// FullMethod returns the wire name of method, e.g. /casedesk.v1.CaseDesk/Login.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// CaseDeskServer is implemented by the server side of the service.
type CaseDeskServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Confirm(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResendConfirmation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RequestPasswordReset(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApplyPasswordReset(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ChangePassword(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateAccident(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAccident(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(CaseDeskServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CaseDeskServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CaseDeskServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// CaseDeskServiceDesc is the grpc.ServiceDesc for casedesk.v1.CaseDesk.
var CaseDeskServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CaseDeskServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodRegister, CaseDeskServer.Register),
		unary(MethodConfirm, CaseDeskServer.Confirm),
		unary(MethodResendConfirmation, CaseDeskServer.ResendConfirmation),
		unary(MethodLogin, CaseDeskServer.Login),
		unary(MethodRequestPasswordReset, CaseDeskServer.RequestPasswordReset),
		unary(MethodApplyPasswordReset, CaseDeskServer.ApplyPasswordReset),
		unary(MethodChangePassword, CaseDeskServer.ChangePassword),
		unary(MethodCreateAccident, CaseDeskServer.CreateAccident),
		unary(MethodGetAccident, CaseDeskServer.GetAccident),
		unary(MethodPing, CaseDeskServer.Ping),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "casedesk/v1/casedesk.proto",
}

func RegisterCaseDeskServer(s grpc.ServiceRegistrar, srv CaseDeskServer) {
	s.RegisterService(&CaseDeskServiceDesc, srv)
}

// CaseDeskClient calls the service over cc.
type CaseDeskClient struct {
	cc grpc.ClientConnInterface
}

func NewCaseDeskClient(cc grpc.ClientConnInterface) *CaseDeskClient {
	return &CaseDeskClient{cc: cc}
}

// Call invokes method with in and returns the response struct.
func (c *CaseDeskClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
