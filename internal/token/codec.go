// Package token implements the signed session-token codec. It is pure:
// no clock reads besides expiry comparison, no I/O, no store access.
// Tokens are standard three-part HS256 JWTs whose claims identify the
// user, the session, and a role snapshot taken at issuance.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/identity-service/internal/model"
)

// Sentinel errors returned by the codec. The auth resolver collapses all
// of these to a single opaque unauthorized error before anything reaches
// a client; they stay distinct here so internal logs and tests can tell
// failure modes apart.
var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpired          = errors.New("token expired")
)

// Claims is the payload embedded in every session token. Role is an
// integer snapshot of the user's role at issuance; iat/exp are epoch
// seconds carried by the registered claims.
type Claims struct {
	UserUUID    string     `json:"user_uuid"`
	SessionUUID string     `json:"session_uuid"`
	Role        model.Role `json:"role"`
	jwt.RegisteredClaims
}

// NewClaims builds the claims for a session issued now with the given
// validity duration. A zero or negative duration yields a token that is
// already expired, which is valid input: such sessions are rejected on
// first use.
func NewClaims(userUUID, sessionUUID string, role model.Role, now time.Time, validity time.Duration) Claims {
	return Claims{
		UserUUID:    userUUID,
		SessionUUID: sessionUUID,
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
	}
}

// Encode signs the claims with the per-session secret using HS256 and
// returns the serialized token.
func Encode(claims Claims, secret string) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// DecodeUnverified parses the token structure and returns its claims
// WITHOUT checking the signature or expiry. It exists so the resolver can
// recover which session secret to verify against; nothing decoded here
// may be trusted. Returns ErrMalformedToken when the input is not a
// well-formed three-part token.
func DecodeUnverified(tok string) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tok, &claims); err != nil {
		return Claims{}, ErrMalformedToken
	}
	return claims, nil
}

// DecodeVerified checks the signature against the given secret and the
// expiry claim in one step, returning the verified claims.
func DecodeVerified(tok, secret string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformedToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSignature
		default:
			return Claims{}, ErrInvalidSignature
		}
	}
	return claims, nil
}

// IsExpired inspects only the expiry claim, without verifying the
// signature. Used for lazy expiry checks where the secret is not at hand
// (listing sessions, pruning). A token with no exp claim is treated as
// unexpired; a malformed token reports an error.
func IsExpired(tok string, now time.Time) (bool, error) {
	claims, err := DecodeUnverified(tok)
	if err != nil {
		return false, err
	}
	if claims.ExpiresAt == nil {
		return false, nil
	}
	return claims.ExpiresAt.Before(now), nil
}
