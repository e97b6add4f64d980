package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-integrations/app/entity"
	"github.com/vibast-solutions/ms-go-integrations/app/observability"
	"github.com/vibast-solutions/ms-go-integrations/app/repository"
)

type ActivityLogRepository interface {
	Create(ctx context.Context, log *entity.ActivityLog) error
	List(ctx context.Context, filter repository.ActivityLogFilter) ([]*entity.ActivityLog, error)
}

// ActivityRecorder is the append-only operations journal. Record is
// infallible from the caller's perspective: a logging outage must never
// block an orchestration outcome.
type ActivityRecorder struct {
	repo         ActivityLogRepository
	defaultLimit int
	maxLimit     int
}

func NewActivityRecorder(repo ActivityLogRepository, defaultLimit, maxLimit int) *ActivityRecorder {
	return &ActivityRecorder{
		repo:         repo,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

func (r *ActivityRecorder) Record(ctx context.Context, log *entity.ActivityLog) {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	if err := r.repo.Create(ctx, log); err != nil {
		observability.GetMetrics().ActivityWriteFailures.Inc()
		logrus.WithError(err).WithFields(logrus.Fields{
			"log_type": log.LogType,
			"status":   log.Status,
		}).Warn("Failed to persist activity log entry")
	}
}

func (r *ActivityRecorder) Query(ctx context.Context, filter repository.ActivityLogFilter) ([]*entity.ActivityLog, error) {
	if filter.LogType != "" && !entity.ValidLogType(filter.LogType) {
		return nil, fmt.Errorf("%w: invalid log type %q", ErrValidation, filter.LogType)
	}
	if filter.Status != "" && !entity.ValidLogStatus(filter.Status) {
		return nil, fmt.Errorf("%w: invalid log status %q", ErrValidation, filter.Status)
	}

	if filter.Limit <= 0 {
		filter.Limit = r.defaultLimit
	}
	if filter.Limit > r.maxLimit {
		filter.Limit = r.maxLimit
	}
	return r.repo.List(ctx, filter)
}
