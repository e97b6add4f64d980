package entity

import (
	"database/sql"
	"time"
)

type APIKey struct {
	ID                 uint64
	Name               string
	Prefix             string
	KeyHash            string
	RateLimitPerMinute int
	RateLimitPerHour   int
	RateLimitPerDay    int
	IsActive           bool
	LastUsedAt         sql.NullTime
	ExpiresAt          sql.NullTime
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Expired reports whether the key's expiry timestamp has passed. A key with
// no expiry never expires.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt.Valid && !now.Before(k.ExpiresAt.Time)
}

// Usable reports whether the key may authenticate requests at the given
// time. An expired key is unusable regardless of IsActive.
func (k *APIKey) Usable(now time.Time) bool {
	return k.IsActive && !k.Expired(now)
}
