package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-integrations/app/entity"
)

type APIKeyRepository struct {
	db DBTX
}

func NewAPIKeyRepository(db DBTX) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) Create(ctx context.Context, key *entity.APIKey) error {
	query := `
		INSERT INTO api_keys (
			name, prefix, key_hash, rate_limit_per_minute, rate_limit_per_hour, rate_limit_per_day,
			is_active, last_used_at, expires_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		key.Name,
		key.Prefix,
		key.KeyHash,
		key.RateLimitPerMinute,
		key.RateLimitPerHour,
		key.RateLimitPerDay,
		key.IsActive,
		key.LastUsedAt,
		key.ExpiresAt,
		key.CreatedAt,
		key.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	key.ID = uint64(id)
	return nil
}

func (r *APIKeyRepository) FindByID(ctx context.Context, id uint64) (*entity.APIKey, error) {
	query := `
		SELECT id, name, prefix, key_hash, rate_limit_per_minute, rate_limit_per_hour, rate_limit_per_day,
			is_active, last_used_at, expires_at, created_at, updated_at
		FROM api_keys WHERE id = ?
	`
	return r.findOne(ctx, query, id)
}

func (r *APIKeyRepository) FindByHash(ctx context.Context, keyHash string) (*entity.APIKey, error) {
	query := `
		SELECT id, name, prefix, key_hash, rate_limit_per_minute, rate_limit_per_hour, rate_limit_per_day,
			is_active, last_used_at, expires_at, created_at, updated_at
		FROM api_keys WHERE key_hash = ?
	`
	return r.findOne(ctx, query, keyHash)
}

func (r *APIKeyRepository) List(ctx context.Context) ([]*entity.APIKey, error) {
	query := `
		SELECT id, name, prefix, key_hash, rate_limit_per_minute, rate_limit_per_hour, rate_limit_per_day,
			is_active, last_used_at, expires_at, created_at, updated_at
		FROM api_keys ORDER BY id DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]*entity.APIKey, 0)
	for rows.Next() {
		key, err := scanAPIKey(rows.Scan)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *APIKeyRepository) SetActive(ctx context.Context, id uint64, active bool, now time.Time) error {
	query := `UPDATE api_keys SET is_active = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, active, now, id)
	return err
}

func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, id uint64, now time.Time) error {
	query := `UPDATE api_keys SET last_used_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, now, id)
	return err
}

func (r *APIKeyRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.APIKey, error) {
	row := r.db.QueryRowContext(ctx, query, args...)
	key, err := scanAPIKey(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return key, nil
}

func scanAPIKey(scan rowScanner) (*entity.APIKey, error) {
	key := &entity.APIKey{}
	if err := scan(
		&key.ID,
		&key.Name,
		&key.Prefix,
		&key.KeyHash,
		&key.RateLimitPerMinute,
		&key.RateLimitPerHour,
		&key.RateLimitPerDay,
		&key.IsActive,
		&key.LastUsedAt,
		&key.ExpiresAt,
		&key.CreatedAt,
		&key.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return key, nil
}
