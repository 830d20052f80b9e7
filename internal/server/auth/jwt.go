// Package auth holds the credential primitives: bcrypt password hashing,
// HS256 token issuance and validation, and the request principal carried in
// a context.Context.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/usersvc/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded content of a valid token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// Extra holds every claim other than sub, iat and exp.
	Extra map[string]any
}

// Token is an issued token together with its validity window.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

var signingMethod = jwt.SigningMethodHS256

// TokenService issues and validates HS256 tokens with a process-wide secret.
// It is immutable after construction and safe for concurrent use.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

func NewTokenService(secret []byte) *TokenService {
	return &TokenService{secret: secret, now: time.Now}
}

// Issue signs a token for subject valid for at least ttl. Extra claims are
// merged first, so they can never override sub, iat or exp.
func (s *TokenService) Issue(subject string, extra map[string]any, ttl time.Duration) (*Token, error) {
	if subject == "" {
		return nil, errors.New("token subject must not be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	now := s.now()
	issuedAt := now.Truncate(time.Second)
	// NumericDate has second precision; round up so the token lives >= ttl.
	expiresAt := now.Add(ttl).Truncate(time.Second)
	if expiresAt.Before(now.Add(ttl)) {
		expiresAt = expiresAt.Add(time.Second)
	}

	claims := jwt.MapClaims{}
	for k, v := range extra {
		claims[k] = v
	}
	claims["sub"] = subject
	claims["iat"] = jwt.NewNumericDate(issuedAt)
	claims["exp"] = jwt.NewNumericDate(expiresAt)

	value, err := jwt.NewWithClaims(signingMethod, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Token{Value: value, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// Validate checks the signature, then expiry, and returns the claims.
// Errors are common.ErrSignatureInvalid, common.ErrTokenExpired or
// common.ErrTokenMalformed.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	claims := jwt.MapClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", common.ErrTokenMalformed, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, fmt.Errorf("%w: %v", common.ErrSignatureInvalid, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, common.ErrTokenExpired
		default:
			return nil, fmt.Errorf("%w: %v", common.ErrTokenMalformed, err)
		}
	}

	return decodeClaims(claims)
}

// IsExpired reports whether the token's exp is not in the future. The
// signature is not checked: callers validate first. Tokens that cannot be
// decoded count as expired.
func (s *TokenService) IsExpired(tokenString string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return !s.now().Before(exp.Time)
}

func decodeClaims(mc jwt.MapClaims) (*Claims, error) {
	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject", common.ErrTokenMalformed)
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing expiry", common.ErrTokenMalformed)
	}

	c := &Claims{Subject: sub, ExpiresAt: exp.Time, Extra: map[string]any{}}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	for k, v := range mc {
		switch k {
		case "sub", "iat", "exp":
		default:
			c.Extra[k] = v
		}
	}
	return c, nil
}
