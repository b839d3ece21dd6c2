package utils // package utils provides helper functions for OTP and token hashing

import (
	"crypto/hmac"     // HMAC construction for OTP digests
	"crypto/rand"     // secure random number generation
	"crypto/sha256"   // SHA-256 for token lookup hashes and as HMAC core
	"encoding/base64" // base64url encoding for refresh tokens
	"encoding/hex"    // hex encoding of digests
	"fmt"             // zero-padded OTP formatting
	"math/big"        // unbiased random integer in [0, 1e6)
	"strings"         // email normalization
)

// GenerateOtp returns a uniformly random 6-digit numeric code, with
// leading zeros preserved (e.g. "001234").  The draw comes from
// crypto/rand over [0, 1_000_000) so every code is equally likely.
func GenerateOtp() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashOtp computes the HMAC-SHA256 of "email:otp" under the server OTP
// secret and returns the hex digest.  Binding the lowercased email into
// the input prevents a digest stolen for one account from verifying for
// another.
func HashOtp(otp, email, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.ToLower(email) + ":" + otp))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyOtpHash recomputes the HMAC for the submitted code and compares it
// against the stored digest in constant time.  Malformed stored hashes and
// length mismatches return false rather than an error.
func VerifyOtpHash(otp, email, storedHash, secret string) bool {
	want, err := hex.DecodeString(storedHash)
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(HashOtp(otp, email, secret))
	if err != nil {
		return false
	}
	return hmac.Equal(got, want)
}

// HashToken returns the SHA-256 hex digest of a raw refresh token.  A
// plain hash (not an HMAC) is enough here: the digest is only a lookup
// key, and the raw token itself is the secret.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GenerateRefreshToken returns 64 bytes of secure randomness encoded as
// base64url, safe to place in a cookie.
func GenerateRefreshToken() (string, error) {
	buf := make([]byte, 64)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
