package repository

import (
	"context"
	"strings"

	"github.com/vibast-solutions/ms-go-integrations/app/entity"
)

type ActivityLogFilter struct {
	LogType       string
	Status        string
	IntegrationID uint64
	Limit         int
}

type ActivityLogRepository struct {
	db DBTX
}

func NewActivityLogRepository(db DBTX) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

func (r *ActivityLogRepository) Create(ctx context.Context, log *entity.ActivityLog) error {
	query := `
		INSERT INTO integration_logs (
			integration_id, log_type, status, direction, execution_time_ms,
			records_processed, records_success, detail, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		log.IntegrationID,
		log.LogType,
		log.Status,
		log.Direction,
		log.ExecutionTimeMs,
		log.RecordsProcessed,
		log.RecordsSuccess,
		log.Detail,
		log.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	log.ID = uint64(id)
	return nil
}

func (r *ActivityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]*entity.ActivityLog, error) {
	query := `
		SELECT id, integration_id, log_type, status, direction, execution_time_ms,
			records_processed, records_success, detail, created_at
		FROM integration_logs
	`

	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	if filter.LogType != "" {
		conditions = append(conditions, "log_type = ?")
		args = append(args, filter.LogType)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.IntegrationID != 0 {
		conditions = append(conditions, "integration_id = ?")
		args = append(args, filter.IntegrationID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]*entity.ActivityLog, 0)
	for rows.Next() {
		log := &entity.ActivityLog{}
		if err := rows.Scan(
			&log.ID,
			&log.IntegrationID,
			&log.LogType,
			&log.Status,
			&log.Direction,
			&log.ExecutionTimeMs,
			&log.RecordsProcessed,
			&log.RecordsSuccess,
			&log.Detail,
			&log.CreatedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
