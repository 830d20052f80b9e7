package services

import (
	"fmt"
	"regexp"

	"github.com/dmitrijs2005/usersvc/internal/common"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	minPasswordLen = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordLen = 72
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func usernameRules() []validation.Rule {
	return []validation.Rule{validation.Length(3, 64), validation.Match(usernamePattern)}
}

func emailRules() []validation.Rule {
	return []validation.Rule{validation.Length(3, 254), is.EmailFormat}
}

func passwordRules() []validation.Rule {
	return []validation.Rule{validation.Length(minPasswordLen, maxPasswordLen)}
}

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	UserName string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.UserName, append([]validation.Rule{validation.Required}, usernameRules()...)...),
		validation.Field(&in.Email, append([]validation.Rule{validation.Required}, emailRules()...)...),
		validation.Field(&in.Password, append([]validation.Rule{validation.Required}, passwordRules()...)...),
	)
}

// UpdateInput carries the fields to change; nil fields are left untouched.
type UpdateInput struct {
	UserName *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (in UpdateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.UserName, append([]validation.Rule{validation.NilOrNotEmpty}, usernameRules()...)...),
		validation.Field(&in.Email, append([]validation.Rule{validation.NilOrNotEmpty}, emailRules()...)...),
		validation.Field(&in.Password, append([]validation.Rule{validation.NilOrNotEmpty}, passwordRules()...)...),
	)
}

func validatePassword(password string) error {
	return validation.Validate(password, append([]validation.Rule{validation.Required}, passwordRules()...)...)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", common.ErrorValidation, err)
}
