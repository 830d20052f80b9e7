package common

import (
	"crypto/rand"
	"math/big"
)

// MakeRandDigits returns a string of n uniformly random decimal digits.
// It is used for short one-time codes sent to users.
func MakeRandDigits(n int) (string, error) {
	out := make([]byte, n)
	ten := big.NewInt(10)
	for i := range out {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		out[i] = byte('0' + d.Int64())
	}
	return string(out), nil
}

// WipeByteArray overwrites b with zeros. Use it for passwords read from a
// terminal once they are no longer needed. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
