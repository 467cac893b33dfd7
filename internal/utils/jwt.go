package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for refresh tokens
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/hall-reservation/internal/model"
)

// ErrInvalidToken is returned by ParseAccessToken for any token that
// fails verification or lacks the expected claims.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken is a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken is a long-lived opaque token used to obtain new access
// tokens.  Only its SHA-256 hash is persisted.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT carrying the user id in
// "sub" and the role in "role".  sub is encoded as a decimal string so
// it round-trips without float precision loss.
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(userID, 10),
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies an HS256 token and returns the caller it
// identifies.
func ParseAccessToken(secret, raw string) (model.Caller, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return model.Caller{}, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return model.Caller{}, ErrInvalidToken
	}
	id, ok := subjectID(claims["sub"])
	if !ok {
		return model.Caller{}, ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	return model.Caller{UserID: id, Role: role}, nil
}

// subjectID accepts "sub" either as a decimal string or as a JSON number.
func subjectID(v interface{}) (uint64, bool) {
	switch s := v.(type) {
	case string:
		id, err := strconv.ParseUint(s, 10, 64)
		return id, err == nil && id != 0
	case float64:
		if s <= 0 {
			return 0, false
		}
		return uint64(s), true
	}
	return 0, false
}

// NewRefreshToken returns a random 96-character hex token and its
// expiration time.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: hex.EncodeToString(buf),
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// HashRefreshRaw returns the hex SHA-256 of a raw refresh token.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
