package service

import (
	"context"
	"database/sql"
	"log"
	"math"
	"strings"
	"time"

	"github.com/learnhub/learning-platform/internal/model"
	"github.com/learnhub/learning-platform/internal/utils"
)

// Error codes surfaced by the OTP flow.  Verification deliberately folds
// "no pending code", "expired", "burned" and "wrong code" into one generic
// code so responses never reveal whether an email has an account.
const (
	ErrCodeCooldown        = "COOLDOWN_ACTIVE"
	ErrCodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	ErrCodeEmailSendFailed = "EMAIL_SEND_FAILED"
	ErrCodeInvalidOtp      = "INVALID_OTP"
)

// OtpStore is the storage contract for OTP records.
type OtpStore interface {
	Create(ctx context.Context, rec *model.OtpRecord) error
	LatestUnused(ctx context.Context, email string) (model.OtpRecord, error)
	LatestActive(ctx context.Context, email string) (model.OtpRecord, error)
	MarkUsed(ctx context.Context, id uint64) error
	IncrementAttempts(ctx context.Context, id uint64) (int, error)
	DeleteStaleForEmail(ctx context.Context, email string) (int64, error)
}

// UserStore is the storage contract for user lookup/creation.
type UserStore interface {
	Upsert(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// AuditStore appends audit entries.
type AuditStore interface {
	Insert(ctx context.Context, entry model.AuditLog) error
}

// OtpConfig carries the tunables of the OTP flow.
type OtpConfig struct {
	Secret      string        // HMAC key for code digests
	Expiry      time.Duration // code lifetime
	MaxAttempts int           // wrong codes before the record is burned
	Cooldown    time.Duration // minimum gap between requests per email
	Production  bool          // whether a send failure is fatal to the request
}

// OtpRequestResult is the outcome of RequestOtp.  Expected failures are
// encoded in ErrorCode; infra failures surface as a separate error.
type OtpRequestResult struct {
	Success           bool
	ErrorCode         string
	Message           string
	ExpiresAt         time.Time
	ResendAvailableAt time.Time
	RetryAfter        *time.Time
	WaitSeconds       int
	RemainingRequests int
}

// OtpVerifyResult is the outcome of VerifyOtp.
type OtpVerifyResult struct {
	Success           bool
	ErrorCode         string
	Message           string
	User              model.User
	IsNewUser         bool
	AttemptsRemaining *int
}

// OtpService implements the request/verify lifecycle: cooldown, rate
// limits, hashing, attempt accounting, user upsert and audit logging.
type OtpService struct {
	otps    OtpStore
	users   UserStore
	audit   AuditStore
	limiter *RateLimiter
	mailer  Mailer
	cfg     OtpConfig
}

func NewOtpService(otps OtpStore, users UserStore, audit AuditStore, limiter *RateLimiter, mailer Mailer, cfg OtpConfig) *OtpService {
	return &OtpService{otps: otps, users: users, audit: audit, limiter: limiter, mailer: mailer, cfg: cfg}
}

// RequestOtp issues a fresh code for an email, subject to the resend
// cooldown and the per-email request limit.  The code itself is only
// handed to the mailer; storage sees its HMAC digest.
func (s *OtpService) RequestOtp(ctx context.Context, email, ip, userAgent string) (OtpRequestResult, error) {
	email = normalizeEmail(email)
	now := time.Now().UTC()

	last, err := s.otps.LatestUnused(ctx, email)
	if err != nil && err != sql.ErrNoRows {
		return OtpRequestResult{}, err
	}
	if err == nil {
		if since := now.Sub(last.CreatedAt); since < s.cfg.Cooldown {
			resendAt := last.CreatedAt.Add(s.cfg.Cooldown)
			return OtpRequestResult{
				ErrorCode:         ErrCodeCooldown,
				Message:           "Please wait before requesting another code",
				ResendAvailableAt: resendAt,
				WaitSeconds:       ceilSeconds(s.cfg.Cooldown - since),
			}, nil
		}
	}

	rl, err := s.limiter.Check(ctx, email, model.RateLimitOtpRequest)
	if err != nil {
		return OtpRequestResult{}, err
	}
	if !rl.Allowed {
		return OtpRequestResult{
			ErrorCode:   ErrCodeRateLimited,
			Message:     "Too many OTP requests. Please try again later.",
			RetryAfter:  rl.RetryAfter,
			WaitSeconds: rl.WaitSeconds,
		}, nil
	}

	// Lazy per-email purge keeps at most one live code per address.
	if _, err := s.otps.DeleteStaleForEmail(ctx, email); err != nil {
		return OtpRequestResult{}, err
	}

	otp, err := utils.GenerateOtp()
	if err != nil {
		return OtpRequestResult{}, err
	}
	rec := &model.OtpRecord{
		Email:     email,
		OtpHash:   utils.HashOtp(otp, email, s.cfg.Secret),
		ExpiresAt: now.Add(s.cfg.Expiry),
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := s.otps.Create(ctx, rec); err != nil {
		return OtpRequestResult{}, err
	}

	if err := s.mailer.SendOtp(ctx, email, otp, s.cfg.Expiry); err != nil {
		log.Printf("otp: send to %s failed: %v", email, err)
		if s.cfg.Production {
			// The record stays; the caller has to wait out the cooldown
			// and resend.
			return OtpRequestResult{
				ErrorCode: ErrCodeEmailSendFailed,
				Message:   "Failed to send OTP email. Please try again.",
			}, nil
		}
	}

	if err := s.auditLog(ctx, nil, email, model.AuditOtpRequested, ip, userAgent, nil); err != nil {
		return OtpRequestResult{}, err
	}

	return OtpRequestResult{
		Success:           true,
		Message:           "OTP sent to your email",
		ExpiresAt:         rec.ExpiresAt,
		ResendAvailableAt: now.Add(s.cfg.Cooldown),
		RemainingRequests: rl.Remaining,
	}, nil
}

// VerifyOtp checks a submitted code against the newest live record for
// the email.  On success the user row is created or loaded and the caller
// proceeds to token issuance.
func (s *OtpService) VerifyOtp(ctx context.Context, email, otp, ip, userAgent string) (OtpVerifyResult, error) {
	email = normalizeEmail(email)

	rl, err := s.limiter.Check(ctx, email, model.RateLimitOtpVerify)
	if err != nil {
		return OtpVerifyResult{}, err
	}
	if !rl.Allowed {
		return OtpVerifyResult{
			ErrorCode: ErrCodeRateLimited,
			Message:   "Too many verification attempts. Please try again later.",
		}, nil
	}

	generic := OtpVerifyResult{
		ErrorCode: ErrCodeInvalidOtp,
		Message:   "Invalid or expired verification code",
	}

	rec, err := s.otps.LatestActive(ctx, email)
	if err == sql.ErrNoRows {
		if err := s.auditLog(ctx, nil, email, model.AuditOtpFailed, ip, userAgent,
			map[string]any{"reason": "no_record"}); err != nil {
			return OtpVerifyResult{}, err
		}
		return generic, nil
	}
	if err != nil {
		return OtpVerifyResult{}, err
	}

	if rec.Attempts >= s.cfg.MaxAttempts {
		// Burn the record; even the correct code is refused from here on.
		if err := s.otps.MarkUsed(ctx, rec.ID); err != nil {
			return OtpVerifyResult{}, err
		}
		if err := s.auditLog(ctx, nil, email, model.AuditOtpFailed, ip, userAgent,
			map[string]any{"reason": "max_attempts"}); err != nil {
			return OtpVerifyResult{}, err
		}
		return generic, nil
	}

	if !utils.VerifyOtpHash(otp, email, rec.OtpHash, s.cfg.Secret) {
		attempts, err := s.otps.IncrementAttempts(ctx, rec.ID)
		if err != nil {
			return OtpVerifyResult{}, err
		}
		if err := s.auditLog(ctx, nil, email, model.AuditOtpFailed, ip, userAgent,
			map[string]any{"reason": "invalid_code", "attempts": attempts}); err != nil {
			return OtpVerifyResult{}, err
		}
		remaining := s.cfg.MaxAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		out := generic
		out.AttemptsRemaining = &remaining
		return out, nil
	}

	if err := s.otps.MarkUsed(ctx, rec.ID); err != nil {
		return OtpVerifyResult{}, err
	}

	user, err := s.users.Upsert(ctx, email)
	if err != nil {
		return OtpVerifyResult{}, err
	}
	// Heuristic signup detection: a row created within the last few
	// seconds is treated as brand new.  Clock skew or a slow round trip
	// can misclassify; accepted trade-off.
	isNewUser := time.Since(user.CreatedAt) < 5*time.Second

	action := model.AuditLoginSuccess
	if isNewUser {
		action = model.AuditSignupSuccess
	}
	uid := user.ID
	if err := s.auditLog(ctx, &uid, email, action, ip, userAgent, nil); err != nil {
		return OtpVerifyResult{}, err
	}

	return OtpVerifyResult{
		Success:   true,
		Message:   "Authentication successful",
		User:      user,
		IsNewUser: isNewUser,
	}, nil
}

func (s *OtpService) auditLog(ctx context.Context, userID *uint64, email, action, ip, userAgent string, meta map[string]any) error {
	return s.audit.Insert(ctx, model.AuditLog{
		UserID:    userID,
		Email:     email,
		Action:    action,
		IPAddress: ip,
		UserAgent: userAgent,
		Metadata:  meta,
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ceilSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 0 {
		return 0
	}
	return s
}
