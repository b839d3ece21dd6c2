package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/learnhub/learning-platform/internal/model"
	"github.com/learnhub/learning-platform/internal/utils"
)

// ErrInvalidRefresh marks every deliberate refresh rejection: unknown,
// expired, revoked or reused tokens.  Handlers translate it to 401;
// anything else is a storage failure and becomes a 500.  The two must
// never be conflated.
var ErrInvalidRefresh = errors.New("invalid refresh token")

// TokenStore is the storage contract for refresh tokens.
type TokenStore interface {
	Create(ctx context.Context, t *model.RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error)
	MarkReplaced(ctx context.Context, id uint64, newHash string) (int64, error)
	RevokeByHash(ctx context.Context, tokenHash string) (int64, error)
	RevokeFamily(ctx context.Context, familyID string) (int64, error)
	RevokeAllForUser(ctx context.Context, userID uint64) (int64, error)
	RevokeAllExceptFamily(ctx context.Context, userID uint64, familyID string) (int64, error)
	SessionsForUser(ctx context.Context, userID uint64) ([]model.RefreshToken, error)
	FamilyBelongsToUser(ctx context.Context, familyID string, userID uint64) (bool, error)
	TouchLastUsed(ctx context.Context, tokenHash string) error
}

// TokenConfig carries signing and lifetime settings.
type TokenConfig struct {
	JWTSecret    string
	AccessTTLMin int
	RefreshTTL   time.Duration
}

// DeviceInfo is the request metadata recorded with each refresh token.
type DeviceInfo struct {
	UserAgent string
	IPAddress string
}

// TokenPair is a freshly issued access/refresh pair.  RefreshToken is the
// raw value destined for the cookie; only its hash is stored.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenService mints JWT access tokens and manages refresh-token rotation
// with family-based reuse detection.
type TokenService struct {
	tokens TokenStore
	users  UserStore
	cfg    TokenConfig
}

func NewTokenService(tokens TokenStore, users UserStore, cfg TokenConfig) *TokenService {
	return &TokenService{tokens: tokens, users: users, cfg: cfg}
}

// CreatePair starts a new token family for a login and issues the first
// access/refresh pair under it.
func (s *TokenService) CreatePair(ctx context.Context, user model.User, dev DeviceInfo) (TokenPair, error) {
	return s.issuePair(ctx, user, uuid.NewString(), dev)
}

func (s *TokenService) issuePair(ctx context.Context, user model.User, familyID string, dev DeviceInfo) (TokenPair, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, user.ID, user.Email, s.cfg.AccessTTLMin)
	if err != nil {
		return TokenPair{}, err
	}
	raw, err := utils.GenerateRefreshToken()
	if err != nil {
		return TokenPair{}, err
	}
	rec := &model.RefreshToken{
		TokenHash:  utils.HashToken(raw),
		UserID:     user.ID,
		FamilyID:   familyID,
		ExpiresAt:  time.Now().UTC().Add(s.cfg.RefreshTTL),
		DeviceName: utils.DeviceName(dev.UserAgent),
		IPAddress:  dev.IPAddress,
	}
	if err := s.tokens.Create(ctx, rec); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access.Token,
		AccessExpiresAt:  access.Exp,
		RefreshToken:     raw,
		RefreshExpiresAt: rec.ExpiresAt,
	}, nil
}

// Rotate exchanges a presented refresh token for a new pair in the same
// family.  Presenting a token that was already rotated away is treated as
// theft: the whole family is revoked, logging out the legitimate holder
// too.  That trade-off is intentional.
func (s *TokenService) Rotate(ctx context.Context, rawToken string, dev DeviceInfo) (TokenPair, error) {
	oldHash := utils.HashToken(rawToken)

	existing, err := s.tokens.GetByHash(ctx, oldHash)
	if err == sql.ErrNoRows {
		return TokenPair{}, ErrInvalidRefresh
	}
	if err != nil {
		return TokenPair{}, err
	}
	// Rotated-away rows carry both replaced_by and revoked_at, so the
	// replacement pointer must be inspected first: a replayed token that
	// was rotated out is the theft signal.  Only rows revoked without a
	// successor (logout, admin) or expired take the plain reject path.
	if existing.ReplacedBy != "" {
		log.Printf("token: refresh reuse detected, revoking family %s (user %d)",
			existing.FamilyID, existing.UserID)
		if _, err := s.tokens.RevokeFamily(ctx, existing.FamilyID); err != nil {
			return TokenPair{}, err
		}
		return TokenPair{}, ErrInvalidRefresh
	}
	now := time.Now().UTC()
	if existing.RevokedAt != nil || now.After(existing.ExpiresAt) {
		return TokenPair{}, ErrInvalidRefresh
	}

	if err := s.tokens.TouchLastUsed(ctx, oldHash); err != nil {
		return TokenPair{}, err
	}
	user, err := s.users.GetByID(ctx, existing.UserID)
	if err != nil {
		return TokenPair{}, err
	}
	return s.issuePairForRotation(ctx, user, existing, dev)
}

func (s *TokenService) issuePairForRotation(ctx context.Context, user model.User, old model.RefreshToken, dev DeviceInfo) (TokenPair, error) {
	pair, err := s.issuePair(ctx, user, old.FamilyID, dev)
	if err != nil {
		return TokenPair{}, err
	}
	newHash := utils.HashToken(pair.RefreshToken)
	// The conditional update serializes concurrent rotations of the same
	// token: only one caller replaces the row.  Zero rows means another
	// rotation won between our read and this write, so the successor we
	// just minted must not survive as a second current token.
	n, err := s.tokens.MarkReplaced(ctx, old.ID, newHash)
	if err != nil {
		return TokenPair{}, err
	}
	if n == 0 {
		if _, err := s.tokens.RevokeByHash(ctx, newHash); err != nil {
			return TokenPair{}, err
		}
		return TokenPair{}, ErrInvalidRefresh
	}
	return pair, nil
}

// FindByRawToken resolves a presented refresh token to its stored row.
// ErrInvalidRefresh when unknown.
func (s *TokenService) FindByRawToken(ctx context.Context, rawToken string) (model.RefreshToken, error) {
	t, err := s.tokens.GetByHash(ctx, utils.HashToken(rawToken))
	if err == sql.ErrNoRows {
		return model.RefreshToken{}, ErrInvalidRefresh
	}
	return t, err
}

// RevokeByRawToken revokes the presented token.  Idempotent; reports
// whether a live row was actually revoked.
func (s *TokenService) RevokeByRawToken(ctx context.Context, rawToken string) (bool, error) {
	n, err := s.tokens.RevokeByHash(ctx, utils.HashToken(rawToken))
	return n > 0, err
}

// RevokeAllUserTokens revokes every live token of a user and returns the
// count affected.  Idempotent: a second call revokes zero rows.
func (s *TokenService) RevokeAllUserTokens(ctx context.Context, userID uint64) (int64, error) {
	return s.tokens.RevokeAllForUser(ctx, userID)
}

// RevokeAllExceptFamily revokes every live token of a user outside the
// given family ("sign out other devices").
func (s *TokenService) RevokeAllExceptFamily(ctx context.Context, userID uint64, familyID string) (int64, error) {
	return s.tokens.RevokeAllExceptFamily(ctx, userID, familyID)
}

// RevokeSession revokes one family after checking it belongs to the
// calling user; false when it does not.
func (s *TokenService) RevokeSession(ctx context.Context, userID uint64, familyID string) (bool, error) {
	owned, err := s.tokens.FamilyBelongsToUser(ctx, familyID, userID)
	if err != nil {
		return false, err
	}
	if !owned {
		return false, nil
	}
	if _, err := s.tokens.RevokeFamily(ctx, familyID); err != nil {
		return false, err
	}
	return true, nil
}

// Sessions lists the user's active sessions, one per live family, marking
// the one matching currentFamilyID (the cookie-presented token's family).
func (s *TokenService) Sessions(ctx context.Context, userID uint64, currentFamilyID string) ([]model.Session, error) {
	rows, err := s.tokens.SessionsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Session, 0, len(rows))
	for _, t := range rows {
		out = append(out, model.Session{
			ID:         t.ID,
			FamilyID:   t.FamilyID,
			DeviceName: t.DeviceName,
			IPAddress:  t.IPAddress,
			CreatedAt:  t.CreatedAt,
			LastUsedAt: t.LastUsedAt,
			IsCurrent:  currentFamilyID != "" && t.FamilyID == currentFamilyID,
		})
	}
	return out, nil
}

// VerifyAccess validates a bearer token; nil means reject.
func (s *TokenService) VerifyAccess(raw string) *utils.AccessClaims {
	return utils.VerifyAccessToken(s.cfg.JWTSecret, raw)
}
