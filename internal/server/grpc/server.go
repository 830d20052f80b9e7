// Package grpc is the gRPC transport of the user service. Messages are
// google.protobuf.Struct values, so no generated code is needed.
package grpc

import (
	"context"
	"net"
	"net/http"

	"github.com/dmitrijs2005/usersvc/internal/logging"
	"github.com/dmitrijs2005/usersvc/internal/server/auth"
	"github.com/dmitrijs2005/usersvc/internal/server/models"
	"github.com/dmitrijs2005/usersvc/internal/server/policy"
	"github.com/dmitrijs2005/usersvc/internal/server/services"
	"google.golang.org/grpc"
)

type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (*auth.Token, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type GRPCServer struct {
	address string
	users   UserService
	auth    AuthService
	policy  *policy.Policy
	logger  logging.Logger
}

var _ UserServiceServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, us UserService, as AuthService) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		users:   us,
		auth:    as,
		policy:  policy.New(policy.GRPCRules()...),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.authInterceptor))
	srv.RegisterService(&ServiceDesc, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

// requirement evaluates the access policy for a gRPC method. All gRPC calls
// are treated as POST requests to their full method path.
func (s *GRPCServer) requirement(fullMethod string) policy.Requirement {
	return s.policy.Evaluate(http.MethodPost, fullMethod)
}
