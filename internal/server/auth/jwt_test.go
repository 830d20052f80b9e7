package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/usersvc/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(secret string) (*TokenService, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 500_000_000, time.UTC)}
	s := NewTokenService([]byte(secret))
	s.now = clk.Now
	return s, clk
}

func flipSignatureBit(tok string) string {
	i := strings.LastIndex(tok, ".") + 10
	b := []byte(tok)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

func TestIssueAndValidate_Success(t *testing.T) {
	t.Parallel()

	s, _ := newTestService("super-secret")

	tok, err := s.Issue("alice", map[string]any{"uid": "u-1"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := s.Validate(tok.Value)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if claims.Subject != "alice" {
		t.Fatalf("subject mismatch: got %q want %q", claims.Subject, "alice")
	}
	if claims.Extra["uid"] != "u-1" {
		t.Fatalf("extra claim uid: got %v", claims.Extra["uid"])
	}
	if !claims.ExpiresAt.Equal(tok.ExpiresAt) {
		t.Fatalf("exp mismatch: got %v want %v", claims.ExpiresAt, tok.ExpiresAt)
	}
	if !claims.IssuedAt.Equal(tok.IssuedAt) {
		t.Fatalf("iat mismatch: got %v want %v", claims.IssuedAt, tok.IssuedAt)
	}
}

func TestIssue_ExpiryRoundedUp(t *testing.T) {
	t.Parallel()

	s, clk := newTestService("k")
	start := clk.Now()

	tok, err := s.Issue("bob", nil, 300*time.Millisecond)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if tok.ExpiresAt.Before(start.Add(300 * time.Millisecond)) {
		t.Fatalf("token expires before ttl elapsed: %v", tok.ExpiresAt)
	}
	if _, err := s.Validate(tok.Value); err != nil {
		t.Fatalf("fresh sub-second token should validate: %v", err)
	}
}

func TestIssue_ExtraClaimsCannotOverrideReserved(t *testing.T) {
	t.Parallel()

	s, _ := newTestService("k")

	tok, err := s.Issue("carol", map[string]any{"sub": "mallory", "exp": 1, "role": "x"}, time.Minute)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	claims, err := s.Validate(tok.Value)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if claims.Subject != "carol" {
		t.Fatalf("subject overridden: %q", claims.Subject)
	}
	if claims.Extra["role"] != "x" {
		t.Fatalf("missing extra claim role")
	}
	if _, ok := claims.Extra["sub"]; ok {
		t.Fatalf("reserved claim leaked into Extra")
	}
}

func TestIssue_RejectsBadInput(t *testing.T) {
	t.Parallel()

	s, _ := newTestService("k")

	if _, err := s.Issue("", nil, time.Minute); err == nil {
		t.Fatalf("expected error for empty subject")
	}
	if _, err := s.Issue("x", nil, 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
	if _, err := s.Issue("x", nil, -time.Second); err == nil {
		t.Fatalf("expected error for negative ttl")
	}
}

func TestValidate_Expired(t *testing.T) {
	t.Parallel()

	s, clk := newTestService("secret")

	tok, err := s.Issue("u1", nil, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	clk.Advance(time.Hour)
	if _, err := s.Validate(tok.Value); err != nil {
		t.Fatalf("token should still be valid at iat+ttl: %v", err)
	}

	clk.Advance(time.Second)
	_, err = s.Validate(tok.Value)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestValidate_FlippedSignature(t *testing.T) {
	t.Parallel()

	s, _ := newTestService("secret")

	tok, err := s.Issue("u1", nil, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = s.Validate(flipSignatureBit(tok.Value))
	if !errors.Is(err, common.ErrSignatureInvalid) {
		t.Fatalf("expected common.ErrSignatureInvalid, got %v", err)
	}
}

func TestValidate_SignatureCheckedBeforeExpiry(t *testing.T) {
	t.Parallel()

	s, clk := newTestService("secret")

	tok, err := s.Issue("u1", nil, time.Minute)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	clk.Advance(time.Hour)

	_, err = s.Validate(flipSignatureBit(tok.Value))
	if !errors.Is(err, common.ErrSignatureInvalid) {
		t.Fatalf("expected common.ErrSignatureInvalid for tampered expired token, got %v", err)
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	t.Parallel()

	issuer, _ := newTestService("right-secret")
	verifier, _ := newTestService("wrong-secret")

	tok, err := issuer.Issue("u2", nil, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = verifier.Validate(tok.Value)
	if !errors.Is(err, common.ErrSignatureInvalid) {
		t.Fatalf("expected common.ErrSignatureInvalid, got %v", err)
	}
}

func TestValidate_MalformedString(t *testing.T) {
	t.Parallel()

	s, _ := newTestService("k")

	for _, in := range []string{"", "not.a.jwt", "abc", "a.b"} {
		_, err := s.Validate(in)
		if !errors.Is(err, common.ErrTokenMalformed) {
			t.Fatalf("Validate(%q): expected common.ErrTokenMalformed, got %v", in, err)
		}
	}
}

func TestValidate_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	s, clk := newTestService("k")

	claims := jwt.MapClaims{"sub": "u", "exp": clk.Now().Add(time.Hour).Unix()}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := s.Validate(tok); err == nil {
		t.Fatalf("expected alg=none token to be rejected")
	}

	tok, err = jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := s.Validate(tok); !errors.Is(err, common.ErrSignatureInvalid) {
		t.Fatalf("expected HS512 token to be rejected as invalid signature, got %v", err)
	}
}

func TestValidate_MissingClaims(t *testing.T) {
	t.Parallel()

	s, clk := newTestService("k")

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": clk.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := s.Validate(noSub); !errors.Is(err, common.ErrTokenMalformed) {
		t.Fatalf("missing sub: expected common.ErrTokenMalformed, got %v", err)
	}

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u"}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := s.Validate(noExp); !errors.Is(err, common.ErrTokenMalformed) {
		t.Fatalf("missing exp: expected common.ErrTokenMalformed, got %v", err)
	}
}

func TestIsExpired(t *testing.T) {
	t.Parallel()

	s, clk := newTestService("k")

	tok, err := s.Issue("u", nil, time.Minute)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if s.IsExpired(tok.Value) {
		t.Fatalf("fresh token reported expired")
	}

	clk.Advance(2 * time.Minute)
	if !s.IsExpired(tok.Value) {
		t.Fatalf("old token reported not expired")
	}

	if !s.IsExpired("garbage") {
		t.Fatalf("undecodable token should count as expired")
	}
}
