package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-integrations/app/dto"
	"github.com/vibast-solutions/ms-go-integrations/app/entity"
	"github.com/vibast-solutions/ms-go-integrations/app/observability"
)

// Orchestrator drives connectivity tests and sync runs against an
// integration. Test and sync failures are recorded and returned as
// structured results, never propagated as hard errors; only malformed input
// (unknown id, illegal state, a run already in flight) is.
type Orchestrator struct {
	integrations *IntegrationService
	connector    Connector
	activity     *ActivityRecorder
	probeTimeout time.Duration
	syncTimeout  time.Duration

	mu       sync.Mutex
	inflight map[uint64]struct{}
}

func NewOrchestrator(
	integrations *IntegrationService,
	connector Connector,
	activity *ActivityRecorder,
	probeTimeout, syncTimeout time.Duration,
) *Orchestrator {
	return &Orchestrator{
		integrations: integrations,
		connector:    connector,
		activity:     activity,
		probeTimeout: probeTimeout,
		syncTimeout:  syncTimeout,
		inflight:     make(map[uint64]struct{}),
	}
}

// Test runs a single connectivity probe: inactive|error -> testing ->
// active|error. Exactly one api_call activity entry is written; the outcome
// is returned to the caller regardless of whether that write succeeded.
func (o *Orchestrator) Test(ctx context.Context, id uint64) (*dto.TestResult, error) {
	if err := o.acquire(id); err != nil {
		return nil, err
	}
	defer o.release(id)

	in, err := o.integrations.Transition(ctx, id, entity.IntegrationStatusTesting)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	probeCtx, cancel := context.WithTimeout(ctx, o.probeTimeout)
	defer cancel()

	start := time.Now()
	probeErr := o.connector.Probe(probeCtx, in)
	elapsed := time.Since(start)

	result := &dto.TestResult{
		RunID:           runID,
		Status:          dto.RunStatusSuccess,
		Message:         "connectivity test passed",
		ExecutionTimeMs: elapsed.Milliseconds(),
	}
	target := entity.IntegrationStatusActive
	logStatus := entity.LogStatusSuccess
	if probeErr != nil {
		result.Status = dto.RunStatusFailure
		result.Message = probeErr.Error()
		target = entity.IntegrationStatusError
		logStatus = entity.LogStatusError
	}

	// State and log writes use a fresh context so a caller that gave up
	// cannot strand the integration in testing.
	writeCtx, writeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer writeCancel()

	if _, err := o.integrations.Transition(writeCtx, id, target); err != nil {
		logrus.WithError(err).WithField("integration_id", id).Error("Failed to finalize test transition")
	}

	o.activity.Record(writeCtx, &entity.ActivityLog{
		IntegrationID:   sql.NullInt64{Int64: int64(id), Valid: true},
		LogType:         entity.LogTypeAPICall,
		Status:          logStatus,
		Direction:       sql.NullString{String: entity.LogDirectionOutbound, Valid: true},
		ExecutionTimeMs: elapsed.Milliseconds(),
		Detail:          fmt.Sprintf("run %s: %s", runID, result.Message),
	})

	observability.GetMetrics().TestRunsTotal.WithLabelValues(result.Status).Inc()
	return result, nil
}

// Sync performs a sync run against an enabled, non-inactive integration. A
// failed or cancelled run transitions the integration to error; a cancelled
// run is journaled with status warning.
func (o *Orchestrator) Sync(ctx context.Context, id uint64) (*dto.SyncResult, error) {
	if err := o.acquire(id); err != nil {
		return nil, err
	}
	defer o.release(id)

	in, err := o.integrations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !in.SyncEnabled {
		return nil, fmt.Errorf("%w: sync is disabled for this integration", ErrPrecondition)
	}
	if in.Status == entity.IntegrationStatusInactive {
		return nil, fmt.Errorf("%w: integration is inactive", ErrPrecondition)
	}

	runID := uuid.New().String()
	syncCtx, cancel := context.WithTimeout(ctx, o.syncTimeout)
	defer cancel()

	start := time.Now()
	stats, syncErr := o.connector.Sync(syncCtx, in)
	elapsed := time.Since(start)
	cancelled := ctx.Err() != nil

	writeCtx, writeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer writeCancel()

	result := &dto.SyncResult{
		RunID:            runID,
		Status:           dto.RunStatusSuccess,
		Message:          "sync completed",
		ExecutionTimeMs:  elapsed.Milliseconds(),
		RecordsProcessed: stats.RecordsProcessed,
		RecordsSuccess:   stats.RecordsSuccess,
	}
	logStatus := entity.LogStatusSuccess

	if syncErr != nil {
		result.Status = dto.RunStatusFailure
		result.Message = syncErr.Error()
		logStatus = entity.LogStatusError
		if cancelled {
			logStatus = entity.LogStatusWarning
			result.Message = "sync cancelled: " + syncErr.Error()
		}

		if _, err := o.integrations.Transition(writeCtx, id, entity.IntegrationStatusError); err != nil {
			logrus.WithError(err).WithField("integration_id", id).Error("Failed to transition integration to error after sync failure")
		}
	}

	if err := o.integrations.RecordSyncOutcome(writeCtx, id, syncErr == nil, time.Now()); err != nil {
		logrus.WithError(err).WithField("integration_id", id).Error("Failed to record sync outcome")
	}

	o.activity.Record(writeCtx, &entity.ActivityLog{
		IntegrationID:    sql.NullInt64{Int64: int64(id), Valid: true},
		LogType:          entity.LogTypeSync,
		Status:           logStatus,
		Direction:        sql.NullString{String: entity.LogDirectionOutbound, Valid: true},
		ExecutionTimeMs:  elapsed.Milliseconds(),
		RecordsProcessed: stats.RecordsProcessed,
		RecordsSuccess:   stats.RecordsSuccess,
		Detail:           fmt.Sprintf("run %s: %s", runID, result.Message),
	})

	observability.GetMetrics().SyncRunsTotal.WithLabelValues(result.Status).Inc()
	return result, nil
}

// RecordWebhookDelivery journals an inbound webhook delivery for an
// integration.
func (o *Orchestrator) RecordWebhookDelivery(ctx context.Context, id uint64, event string, executionTime time.Duration) error {
	if _, err := o.integrations.Get(ctx, id); err != nil {
		return err
	}

	o.activity.Record(ctx, &entity.ActivityLog{
		IntegrationID:   sql.NullInt64{Int64: int64(id), Valid: true},
		LogType:         entity.LogTypeWebhook,
		Status:          entity.LogStatusSuccess,
		Direction:       sql.NullString{String: entity.LogDirectionInbound, Valid: true},
		ExecutionTimeMs: executionTime.Milliseconds(),
		Detail:          fmt.Sprintf("webhook event %q received", event),
	})
	observability.GetMetrics().WebhookDeliveriesTotal.WithLabelValues(entity.LogStatusSuccess).Inc()
	return nil
}

// acquire reserves the per-integration single-flight slot. Sync and test
// runs against the same integration never overlap; a second caller is
// rejected rather than queued.
func (o *Orchestrator) acquire(id uint64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, running := o.inflight[id]; running {
		return ErrAlreadyInProgress
	}
	o.inflight[id] = struct{}{}
	return nil
}

func (o *Orchestrator) release(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, id)
}
