package auth

import (
	"context"

	"github.com/dmitrijs2005/usersvc/internal/server/models"
)

type ctxKey struct{}

// WithPrincipal returns a copy of ctx carrying the authenticated user.
func WithPrincipal(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// PrincipalFrom returns the user bound by the authentication step, if any.
func PrincipalFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*models.User)
	return u, ok && u != nil
}
