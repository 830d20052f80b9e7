package grpc

import (
	"context"

	"github.com/dmitrijs2005/usersvc/internal/server/auth"
	"github.com/dmitrijs2005/usersvc/internal/server/models"
	"github.com/dmitrijs2005/usersvc/internal/server/services"
)

// ---- fakes ----

type fakeUsers struct {
	regIn   services.RegisterInput
	regResp *models.User
	regErr  error

	getCalls int
	getResp  *models.User
	getErr   error
}

func (f *fakeUsers) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	f.regIn = in
	return f.regResp, f.regErr
}

func (f *fakeUsers) Get(ctx context.Context, id string) (*models.User, error) {
	f.getCalls++
	return f.getResp, f.getErr
}

type fakeAuth struct {
	loginResp *auth.Token
	loginErr  error

	authCalls int
	authToken string
	authResp  *models.User
	authErr   error
}

func (f *fakeAuth) Login(ctx context.Context, username, password string) (*auth.Token, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) Authenticate(ctx context.Context, token string) (*models.User, error) {
	f.authCalls++
	f.authToken = token
	return f.authResp, f.authErr
}
