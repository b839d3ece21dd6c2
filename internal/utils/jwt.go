package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// AccessToken represents a signed JWT access token along with its expiry.
// Access tokens are short-lived and sent as a bearer header on protected
// endpoints.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// AccessClaims is the decoded payload of a verified access token.
type AccessClaims struct {
	UserID uint64
	Email  string
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The claims
// carry the subject (user ID), email, a type discriminator and the
// standard exp/iat timestamps.  The type claim lets verification reject
// any other token class presented as an access token.
func NewAccessToken(secret string, userID uint64, email string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"type":  "access",
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// VerifyAccessToken parses and validates a bearer token.  It returns nil
// for anything that should not grant access: bad signature, expiry, a
// non-HMAC signing method, or a token whose type claim is not "access".
// It never returns an error; invalid simply means nil.
func VerifyAccessToken(secret, raw string) *AccessClaims {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	if typ, _ := claims["type"].(string); typ != "access" {
		return nil
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub < 0 {
		return nil
	}
	email, _ := claims["email"].(string)
	return &AccessClaims{UserID: uint64(sub), Email: email}
}
