package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	Digits = 6
	TTL    = 10 * time.Minute
)

var codeSpace = big.NewInt(1_000_000)

// Generate returns a uniformly random zero-padded six digit code.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", errors.Wrap(err, "Failed to generate code")
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func Valid(code string) bool {
	if len(code) != Digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func Hash(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "Failed to hash code")
	}
	return string(hash), nil
}

func Compare(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}

// Remaining is anchored at issuance, so reloading a page never restarts the countdown.
func Remaining(issuedAt, now time.Time, ttl time.Duration) time.Duration {
	left := issuedAt.Add(ttl).Sub(now)
	if left < 0 {
		return 0
	}
	if left > ttl {
		return ttl
	}
	return left
}

func FormatCountdown(remaining time.Duration) string {
	if remaining <= 0 {
		return "Code expired"
	}
	secs := int64(remaining / time.Second)
	return fmt.Sprintf("Code expires in %d:%02d", secs/60, secs%60)
}

// StartTime is the issuance instant in epoch milliseconds.
func StartTime(issuedAt time.Time) int64 {
	return issuedAt.UnixMilli()
}
