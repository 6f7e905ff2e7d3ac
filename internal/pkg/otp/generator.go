package otp

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"

	"github.com/pquerna/otp"
)

const (
	// DefaultLength is the number of digits in a passcode when none is configured.
	DefaultLength = 6
	// MinLength is the shortest passcode accepted by NewRandom.
	MinLength = 4
	// MaxLength is the longest passcode accepted by NewRandom.
	MaxLength = 9

	sessionIDBytes = 32
)

// Generator produces passcodes and session identifiers.
type Generator interface {
	// GenerateCode returns a fixed-length numeric passcode.
	GenerateCode() (string, error)
	// GenerateSessionID returns a URL-safe identifier with 256 bits of entropy.
	GenerateSessionID() (string, error)
}

// Random implements Generator on top of a cryptographically secure reader.
type Random struct {
	digits otp.Digits
	max    *big.Int
	reader io.Reader
}

// NewRandom returns a Random generator producing codes of the given length.
//
// A length outside [MinLength, MaxLength] falls back to DefaultLength.
func NewRandom(length int) *Random {
	return newRandom(length, rand.Reader)
}

func newRandom(length int, reader io.Reader) *Random {
	if length < MinLength || length > MaxLength {
		length = DefaultLength
	}

	upper := int64(1)
	for range length {
		upper *= 10
	}

	return &Random{
		digits: otp.Digits(length),
		max:    big.NewInt(upper),
		reader: reader,
	}
}

// Length returns the number of digits of generated codes.
func (r *Random) Length() int {
	return r.digits.Length()
}

// GenerateCode draws a uniform number in [0, 10^length) and left-pads it with zeros.
func (r *Random) GenerateCode() (string, error) {
	n, err := rand.Int(r.reader, r.max)
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}

	//nolint:gosec // bounded by 10^9
	return r.digits.Format(int32(n.Int64())), nil
}

// GenerateSessionID returns 32 random bytes encoded as unpadded base64url.
func (r *Random) GenerateSessionID() (string, error) {
	var b [sessionIDBytes]byte
	if _, err := io.ReadFull(r.reader, b[:]); err != nil {
		return "", fmt.Errorf("otp: generate session id: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}
