package models

import "time"

// User is a row of the users table and the principal bound to authenticated
// requests. PasswordHash and VerificationCode never leave the server.
type User struct {
	ID           string
	UserName     string
	Email        string
	PasswordHash string
	Enabled      bool

	// VerificationCode is empty when no verification is pending.
	VerificationCode      string
	VerificationExpiresAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// VerificationPending reports whether a code was issued and not yet used.
func (u *User) VerificationPending() bool {
	return u.VerificationCode != ""
}
