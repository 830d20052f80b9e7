package rest

import (
	"time"

	"github.com/dmitrijs2005/usersvc/internal/server/auth"
	"github.com/dmitrijs2005/usersvc/internal/server/models"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (r verifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Code, validation.Required),
	)
}

type loginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newLoginResponse(t *auth.Token) loginResponse {
	return loginResponse{Token: t.Value, TokenType: "Bearer", ExpiresAt: t.ExpiresAt.UTC()}
}

// userResponse is the public view of a user; the password hash and any
// verification code are never exposed.
type userResponse struct {
	ID        string    `json:"id"`
	UserName  string    `json:"username"`
	Email     string    `json:"email"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		UserName:  u.UserName,
		Email:     u.Email,
		Enabled:   u.Enabled,
		CreatedAt: u.CreatedAt.UTC(),
		UpdatedAt: u.UpdatedAt.UTC(),
	}
}

type listUsersResponse struct {
	Users []userResponse `json:"users"`
}
