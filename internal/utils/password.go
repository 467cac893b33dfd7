package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen is the shortest password accepted at registration.
const MinPasswordLen = 8

// ErrPasswordTooShort is returned by HashPassword for short passwords.
var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

// HashPassword returns the bcrypt hash of plain at the given cost.  Costs
// outside bcrypt's range fall back to bcrypt.DefaultCost.
func HashPassword(plain string, cost int) (string, error) {
	if len(plain) < MinPasswordLen {
		return "", ErrPasswordTooShort
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a bcrypt hash with a plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
