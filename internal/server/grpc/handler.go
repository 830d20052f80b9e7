package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/usersvc/internal/common"
	"github.com/dmitrijs2005/usersvc/internal/server/auth"
	"github.com/dmitrijs2005/usersvc/internal/server/models"
	"github.com/dmitrijs2005/usersvc/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"status": "OK"})
}

func (s *GRPCServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := services.RegisterInput{
		UserName: stringField(req, "username"),
		Email:    stringField(req, "email"),
		Password: stringField(req, "password"),
	}

	u, err := s.users.Register(ctx, in)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "user_id", u.ID)
	return userStruct(u)
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	identifier := stringField(req, "identifier")
	password := stringField(req, "password")
	if identifier == "" || password == "" {
		return nil, status.Error(codes.InvalidArgument, "identifier and password are required")
	}

	tok, err := s.auth.Login(ctx, identifier, password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return structpb.NewStruct(map[string]any{
		"token":      tok.Value,
		"token_type": common.BearerScheme,
		"expires_at": tok.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *GRPCServer) Whoami(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, ok := auth.PrincipalFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	return userStruct(u)
}

func (s *GRPCServer) GetUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return userStruct(u)
}

// toStatus converts service errors to gRPC status errors without leaking
// internal details.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrStoreUnavailable):
		return status.Error(codes.Unavailable, "service temporarily unavailable")
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, "username or email already taken")
	case errors.Is(err, common.ErrorUnauthorized), common.IsTokenError(err):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	default:
		s.logger.Error(ctx, "internal error", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func userStruct(u *models.User) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":         u.ID,
		"username":   u.UserName,
		"email":      u.Email,
		"enabled":    u.Enabled,
		"created_at": u.CreatedAt.UTC().Format(time.RFC3339),
	})
}
