package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"io"
	"math/big"
	"strconv"
)

const (
	MinOTPDigits = 4
	MaxOTPDigits = 10
)

var errInvalidOTPDigits = errors.New("invalid otp digits")

// NewOTP returns a decimal code drawn uniformly from [10^(digits-1), 10^digits-1],
// so the result never has a leading zero and is always exactly digits long.
func NewOTP(digits int) (string, error) {
	return newOTPFrom(rand.Reader, digits)
}

func newOTPFrom(r io.Reader, digits int) (string, error) {
	if digits < MinOTPDigits || digits > MaxOTPDigits {
		return "", errInvalidOTPDigits
	}

	lower := pow10(digits - 1)
	span := lower * 9 // upper - lower + 1

	n, err := rand.Int(r, big.NewInt(span))
	if err != nil {
		return "", err
	}

	otp := strconv.FormatInt(lower+n.Int64(), 10)
	if len(otp) != digits {
		return "", errors.New("invalid otp generation length")
	}
	return otp, nil
}

// HashOTP is the at-rest form of a code.
func HashOTP(code string) [32]byte {
	return sha256.Sum256([]byte(code))
}

// EqualOTPHash compares two hashes in constant time.
func EqualOTPHash(a, b [32]byte) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

func pow10(n int) int64 {
	v := int64(1)
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}
