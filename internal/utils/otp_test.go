package utils

import (
	"regexp"
	"testing"
)

const testSecret = "test-otp-secret"

func TestGenerateOtpFormat(t *testing.T) {
	re := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 200; i++ {
		otp, err := GenerateOtp()
		if err != nil {
			t.Fatalf("GenerateOtp: %v", err)
		}
		if !re.MatchString(otp) {
			t.Fatalf("got %q, want 6 digits with leading zeros preserved", otp)
		}
	}
}

func TestHashOtpRoundTrip(t *testing.T) {
	otp := "004217"
	email := "user@example.com"
	hash := HashOtp(otp, email, testSecret)

	if !VerifyOtpHash(otp, email, hash, testSecret) {
		t.Fatal("correct otp/email/hash should verify")
	}
	if VerifyOtpHash("004218", email, hash, testSecret) {
		t.Error("altered otp should not verify")
	}
	if VerifyOtpHash(otp, "other@example.com", hash, testSecret) {
		t.Error("altered email should not verify")
	}
	if VerifyOtpHash(otp, email, hash[:len(hash)-2], testSecret) {
		t.Error("truncated hash should not verify")
	}
	if VerifyOtpHash(otp, email, hash, "wrong-secret") {
		t.Error("wrong secret should not verify")
	}
}

func TestHashOtpEmailCaseInsensitive(t *testing.T) {
	hash := HashOtp("123456", "User@Example.COM", testSecret)
	if !VerifyOtpHash("123456", "user@example.com", hash, testSecret) {
		t.Fatal("email casing must not affect the digest")
	}
}

func TestVerifyOtpHashMalformedStoredHash(t *testing.T) {
	// Non-hex stored hash must return false, never panic or error.
	if VerifyOtpHash("123456", "user@example.com", "not-hex!", testSecret) {
		t.Fatal("malformed stored hash should not verify")
	}
}

func TestHashTokenStable(t *testing.T) {
	a := HashToken("some-raw-token")
	b := HashToken("some-raw-token")
	if a != b {
		t.Fatal("hash must be deterministic")
	}
	if len(a) != 64 {
		t.Fatalf("want 64 hex chars, got %d", len(a))
	}
	if a == HashToken("some-raw-tokem") {
		t.Fatal("distinct tokens must not collide trivially")
	}
}

func TestGenerateRefreshTokenLengthAndUniqueness(t *testing.T) {
	a, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	b, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	if a == b {
		t.Fatal("two tokens should never match")
	}
	// 64 bytes -> 86 base64url chars, comfortably above the 48-byte floor.
	if len(a) < 64 {
		t.Fatalf("token too short: %d chars", len(a))
	}
}
