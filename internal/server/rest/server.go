// Package rest is the HTTP transport: a gin engine serving the user and
// authentication API behind the access-policy and authentication middleware.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/usersvc/internal/logging"
	"github.com/dmitrijs2005/usersvc/internal/server/auth"
	"github.com/dmitrijs2005/usersvc/internal/server/models"
	"github.com/dmitrijs2005/usersvc/internal/server/policy"
	"github.com/dmitrijs2005/usersvc/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

// UserService is the part of services.UserService the API needs.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Update(ctx context.Context, id string, in services.UpdateInput) (*models.User, error)
	Delete(ctx context.Context, id string) error
	Verify(ctx context.Context, email, code string) error
}

// AuthService is the part of services.AuthService the API needs.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*auth.Token, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Pinger reports store health; *sql.DB implements it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HTTPServer struct {
	address string
	handler http.Handler
	logger  logging.Logger
}

func NewHTTPServer(address string, l logging.Logger, us UserService, as AuthService, db Pinger) *HTTPServer {
	l = l.With("module", "http_server")
	return &HTTPServer{
		address: address,
		handler: NewRouter(l, policy.New(policy.HTTPRules()...), us, as, db),
		logger:  l,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
