package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/viralforge/webauth/internal/application"
	"github.com/viralforge/webauth/internal/domain"
)

const serviceName = "webauth.auth.v1.AuthInternalService"

// AuthInternalService lets sibling services resolve bearer tokens without
// sharing the signing secret.
type AuthInternalService interface {
	ResolveToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckRole(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type AuthInternalServer struct {
	service *application.Service
}

func NewAuthInternalServer(service *application.Service) *AuthInternalServer {
	return &AuthInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc AuthInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*AuthInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "ResolveToken", Handler: unaryHandler("ResolveToken", svc.ResolveToken)},
			{MethodName: "CheckRole", Handler: unaryHandler("CheckRole", svc.CheckRole)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "webauth/auth/v1/auth_internal.proto",
	}, svc)
}

// ResolveToken returns {valid:false} for any unusable token. Only a missing
// token is an error.
func (s *AuthInternalServer) ResolveToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token := req.GetFields()["token"].GetStringValue()
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "missing token")
	}

	identity := s.service.ResolveIdentity(ctx, application.IdentityRequest{BearerToken: token})
	if !identity.Authenticated {
		return newStruct(map[string]any{"valid": false})
	}
	return newStruct(map[string]any{
		"valid":   true,
		"user_id": identity.User.ID.String(),
		"email":   identity.User.Email,
		"name":    identity.User.Name,
		"role":    string(identity.User.Role),
	})
}

// CheckRole answers whether the token's user holds one of roles. An empty
// role list only asks for authentication.
func (s *AuthInternalServer) CheckRole(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	token := fields["token"].GetStringValue()
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "missing token")
	}
	var roles []domain.Role
	for _, v := range fields["roles"].GetListValue().GetValues() {
		role, ok := domain.ParseRole(v.GetStringValue())
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "unknown role %q", v.GetStringValue())
		}
		roles = append(roles, role)
	}

	identity := s.service.ResolveIdentity(ctx, application.IdentityRequest{BearerToken: token})
	err := s.service.RequireRole(identity, roles...)
	switch {
	case err == nil:
		return newStruct(map[string]any{"allowed": true, "role": string(identity.User.Role)})
	case identity.Authenticated:
		return newStruct(map[string]any{"allowed": false, "role": string(identity.User.Role)})
	default:
		return nil, toStatus(err)
	}
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "authentication required")
	case errors.Is(err, domain.ErrForbidden):
		return status.Error(codes.PermissionDenied, "insufficient permissions")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

type unaryMethod func(context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + serviceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

// LoggingInterceptor logs each unary call with its status code.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		code := status.Code(err)
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		logger.InfoContext(ctx, "grpc request completed",
			"module", "grpc",
			"layer", "adapter",
			"operation", info.FullMethod,
			"outcome", outcome,
			"code", code.String(),
		)
		return resp, err
	}
}
