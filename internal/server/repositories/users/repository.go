// Package users is the credential store: persistence of user records.
package users

import (
	"context"

	"github.com/dmitrijs2005/usersvc/internal/server/models"
)

// Repository stores users. Lookups of a missing row return
// common.ErrorNotFound; a username or email clash returns
// common.ErrorAlreadyExists; an unreachable or timed-out store returns an
// error wrapping common.ErrStoreUnavailable.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
	Delete(ctx context.Context, id string) error

	// RecordFailedVerification counts a wrong verification code and clears
	// the pending code once maxAttempts is reached. Update resets the count
	// whenever it clears the code.
	RecordFailedVerification(ctx context.Context, id string, maxAttempts int) (int, error)
}
