package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-integrations/app/entity"
)

type IntegrationFilter struct {
	Type   string
	Status string
	Search string
}

type IntegrationRepository struct {
	db DBTX
}

func NewIntegrationRepository(db DBTX) *IntegrationRepository {
	return &IntegrationRepository{db: db}
}

const integrationColumns = `id, name, integration_type, provider, api_endpoint, webhook_url,
			authentication_type, configuration_json, status, sync_enabled, sync_frequency,
			success_count, error_count, last_sync_at, last_sync_status, is_system, created_at, updated_at`

func (r *IntegrationRepository) Create(ctx context.Context, in *entity.Integration) error {
	configuration, err := marshalConfiguration(in.Configuration)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO integrations (
			name, integration_type, provider, api_endpoint, webhook_url, authentication_type,
			configuration_json, status, sync_enabled, sync_frequency, success_count, error_count,
			last_sync_at, last_sync_status, is_system, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		in.Name,
		in.IntegrationType,
		in.Provider,
		in.APIEndpoint,
		in.WebhookURL,
		in.AuthenticationType,
		configuration,
		string(in.Status),
		in.SyncEnabled,
		in.SyncFrequency,
		in.SuccessCount,
		in.ErrorCount,
		in.LastSyncAt,
		in.LastSyncStatus,
		in.IsSystem,
		in.CreatedAt,
		in.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	in.ID = uint64(id)
	return nil
}

func (r *IntegrationRepository) FindByID(ctx context.Context, id uint64) (*entity.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	in, err := scanIntegration(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return in, nil
}

func (r *IntegrationRepository) Update(ctx context.Context, in *entity.Integration) error {
	configuration, err := marshalConfiguration(in.Configuration)
	if err != nil {
		return err
	}

	query := `
		UPDATE integrations SET
			name = ?,
			integration_type = ?,
			provider = ?,
			api_endpoint = ?,
			webhook_url = ?,
			authentication_type = ?,
			configuration_json = ?,
			sync_enabled = ?,
			sync_frequency = ?,
			updated_at = ?
		WHERE id = ?
	`
	_, err = r.db.ExecContext(ctx, query,
		in.Name,
		in.IntegrationType,
		in.Provider,
		in.APIEndpoint,
		in.WebhookURL,
		in.AuthenticationType,
		configuration,
		in.SyncEnabled,
		in.SyncFrequency,
		in.UpdatedAt,
		in.ID,
	)
	return err
}

// UpdateStatus applies a compare-and-swap on the status column. It returns
// false when the row's status no longer matches the expected value, which
// callers treat as a lost optimistic-concurrency race.
func (r *IntegrationRepository) UpdateStatus(ctx context.Context, id uint64, from, to entity.IntegrationStatus, now time.Time) (bool, error) {
	query := `UPDATE integrations SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, query, string(to), now, id, string(from))
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// RecordSyncOutcome updates the sync bookkeeping columns and bumps the
// matching outcome counter in one statement.
func (r *IntegrationRepository) RecordSyncOutcome(ctx context.Context, id uint64, status string, success bool, now time.Time) error {
	counter := "error_count = error_count + 1"
	if success {
		counter = "success_count = success_count + 1"
	}
	query := `UPDATE integrations SET last_sync_at = ?, last_sync_status = ?, ` + counter + `, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, now, status, now, id)
	return err
}

func (r *IntegrationRepository) Delete(ctx context.Context, id uint64) (bool, error) {
	query := `DELETE FROM integrations WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *IntegrationRepository) List(ctx context.Context, filter IntegrationFilter) ([]*entity.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations`

	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if filter.Type != "" {
		conditions = append(conditions, "integration_type = ?")
		args = append(args, filter.Type)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, "LOWER(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	integrations := make([]*entity.Integration, 0)
	for rows.Next() {
		in, err := scanIntegration(rows.Scan)
		if err != nil {
			return nil, err
		}
		integrations = append(integrations, in)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return integrations, nil
}

func marshalConfiguration(configuration map[string]any) (string, error) {
	if configuration == nil {
		configuration = map[string]any{}
	}
	data, err := json.Marshal(configuration)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func scanIntegration(scan rowScanner) (*entity.Integration, error) {
	in := &entity.Integration{}
	var status string
	var configurationJSON string
	if err := scan(
		&in.ID,
		&in.Name,
		&in.IntegrationType,
		&in.Provider,
		&in.APIEndpoint,
		&in.WebhookURL,
		&in.AuthenticationType,
		&configurationJSON,
		&status,
		&in.SyncEnabled,
		&in.SyncFrequency,
		&in.SuccessCount,
		&in.ErrorCount,
		&in.LastSyncAt,
		&in.LastSyncStatus,
		&in.IsSystem,
		&in.CreatedAt,
		&in.UpdatedAt,
	); err != nil {
		return nil, err
	}

	in.Status = entity.IntegrationStatus(status)
	if err := json.Unmarshal([]byte(configurationJSON), &in.Configuration); err != nil {
		return nil, err
	}
	return in, nil
}
