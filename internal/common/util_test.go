package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestMakeRandDigits(t *testing.T) {
	s, err := MakeRandDigits(6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != 6 {
		t.Fatalf("expected 6 digits, got %q", s)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			t.Fatalf("non-digit %q in %q", c, s)
		}
	}
}

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

func TestIsTokenError(t *testing.T) {
	for _, err := range []error{ErrSignatureInvalid, ErrTokenExpired, ErrTokenMalformed} {
		if !IsTokenError(fmt.Errorf("wrapped: %w", err)) {
			t.Fatalf("expected %v to be a token error", err)
		}
	}
	if IsTokenError(ErrorNotFound) || IsTokenError(errors.New("x")) {
		t.Fatal("unexpected token error match")
	}
}
