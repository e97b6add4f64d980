package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-integrations/app/dto"
	"github.com/vibast-solutions/ms-go-integrations/app/entity"
	"github.com/vibast-solutions/ms-go-integrations/app/ratelimit"
	"github.com/vibast-solutions/ms-go-integrations/config"
)

const (
	apiKeyPrefix    = "sk_live_"
	apiKeyPrefixLen = 12
)

type APIKeyRepository interface {
	Create(ctx context.Context, key *entity.APIKey) error
	FindByID(ctx context.Context, id uint64) (*entity.APIKey, error)
	FindByHash(ctx context.Context, keyHash string) (*entity.APIKey, error)
	List(ctx context.Context) ([]*entity.APIKey, error)
	SetActive(ctx context.Context, id uint64, active bool, now time.Time) error
	TouchLastUsed(ctx context.Context, id uint64, now time.Time) error
}

// CredentialService owns API key records: it mints, reveals-once, revokes
// and authenticates them. Only the sha256 hash of a token is ever persisted.
type CredentialService struct {
	apiKeyRepo APIKeyRepository
	limiter    ratelimit.Limiter
	defaults   config.RateLimitDefaults
}

func NewCredentialService(apiKeyRepo APIKeyRepository, limiter ratelimit.Limiter, defaults config.RateLimitDefaults) *CredentialService {
	return &CredentialService{
		apiKeyRepo: apiKeyRepo,
		limiter:    limiter,
		defaults:   defaults,
	}
}

func (s *CredentialService) Issue(ctx context.Context, in dto.IssueAPIKeyInput) (*dto.IssueAPIKeyResult, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	limits := ratelimit.Limits{
		PerMinute: valueOrDefault(in.PerMinute, s.defaults.PerMinute),
		PerHour:   valueOrDefault(in.PerHour, s.defaults.PerHour),
		PerDay:    valueOrDefault(in.PerDay, s.defaults.PerDay),
	}
	if limits.PerMinute <= 0 || limits.PerHour <= 0 || limits.PerDay <= 0 {
		return nil, fmt.Errorf("%w: rate limits must be positive", ErrValidation)
	}

	now := time.Now()
	var expiresAt sql.NullTime
	if in.ExpiresAt != nil {
		if !in.ExpiresAt.After(now) {
			return nil, fmt.Errorf("%w: expires_at must be in the future", ErrValidation)
		}
		expiresAt = sql.NullTime{Time: *in.ExpiresAt, Valid: true}
	}

	plaintext, keyHash, err := generateAPIKey()
	if err != nil {
		return nil, err
	}

	key := &entity.APIKey{
		Name:               name,
		Prefix:             plaintext[:apiKeyPrefixLen],
		KeyHash:            keyHash,
		RateLimitPerMinute: limits.PerMinute,
		RateLimitPerHour:   limits.PerHour,
		RateLimitPerDay:    limits.PerDay,
		IsActive:           true,
		ExpiresAt:          expiresAt,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err = s.apiKeyRepo.Create(ctx, key); err != nil {
		return nil, err
	}

	return &dto.IssueAPIKeyResult{Key: key, Plaintext: plaintext}, nil
}

// Revoke deactivates a key. Revoking an already-revoked key is a no-op
// success.
func (s *CredentialService) Revoke(ctx context.Context, id uint64) error {
	key, err := s.apiKeyRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if key == nil {
		return ErrNotFound
	}
	if !key.IsActive {
		return nil
	}

	if err = s.apiKeyRepo.SetActive(ctx, id, false, time.Now()); err != nil {
		return err
	}
	s.limiter.Reset(id)
	return nil
}

// Authenticate resolves a presented plaintext token to its key record. The
// last_used_at update is best-effort and never fails the authentication
// outcome.
func (s *CredentialService) Authenticate(ctx context.Context, presentedToken string) (*entity.APIKey, error) {
	presentedToken = strings.TrimSpace(presentedToken)
	if presentedToken == "" {
		return nil, ErrKeyNotFound
	}

	key, err := s.apiKeyRepo.FindByHash(ctx, hashAPIKey(presentedToken))
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, ErrKeyNotFound
	}

	now := time.Now()
	if !key.IsActive {
		return nil, ErrKeyRevoked
	}
	if key.Expired(now) {
		return nil, ErrKeyExpired
	}

	if err := s.apiKeyRepo.TouchLastUsed(ctx, key.ID, now); err != nil {
		logrus.WithError(err).WithField("key_id", key.ID).Warn("Failed to update api key last_used_at")
	}
	return key, nil
}

// Consume charges one request against the key's rate limit windows.
func (s *CredentialService) Consume(key *entity.APIKey, now time.Time) ratelimit.Decision {
	limits := ratelimit.Limits{
		PerMinute: key.RateLimitPerMinute,
		PerHour:   key.RateLimitPerHour,
		PerDay:    key.RateLimitPerDay,
	}
	return s.limiter.CheckAndConsume(key.ID, limits, now)
}

func (s *CredentialService) List(ctx context.Context) ([]*entity.APIKey, error) {
	return s.apiKeyRepo.List(ctx)
}

func generateAPIKey() (string, string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", "", err
	}

	plaintext := apiKeyPrefix + hex.EncodeToString(secret)
	return plaintext, hashAPIKey(plaintext), nil
}

func hashAPIKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func valueOrDefault(v *int, def int) int {
	if v != nil {
		return *v
	}
	return def
}
