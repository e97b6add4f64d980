package controller_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/vibast-solutions/ms-go-integrations/app/entity"
	"github.com/vibast-solutions/ms-go-integrations/app/ratelimit"
	"github.com/vibast-solutions/ms-go-integrations/app/repository"
	"github.com/vibast-solutions/ms-go-integrations/app/service"
	"github.com/vibast-solutions/ms-go-integrations/config"
)

// The test hub runs against in-memory integration and activity stores and a
// sqlmock-backed credential store, with a connector stub for outbound calls.
type testHub struct {
	hub          *service.Hub
	integrations *memIntegrationRepo
	activity     *memActivityRepo
	connector    *connectorStub
	mock         sqlmock.Sqlmock
	cleanup      func()
}

func newTestHub(t *testing.T) *testHub {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	integrations := &memIntegrationRepo{integrations: make(map[uint64]*entity.Integration)}
	activity := &memActivityRepo{}
	connector := &connectorStub{}

	defaults := config.RateLimitDefaults{PerMinute: 60, PerHour: 1000, PerDay: 10000}
	credentials := service.NewCredentialService(repository.NewAPIKeyRepository(db), ratelimit.NewMemoryLimiter(), defaults)
	registry := service.NewIntegrationService(integrations)
	recorder := service.NewActivityRecorder(activity, 100, 500)
	orchestrator := service.NewOrchestrator(registry, connector, recorder, time.Second, time.Second)

	return &testHub{
		hub:          service.NewHub(credentials, registry, orchestrator, recorder),
		integrations: integrations,
		activity:     activity,
		connector:    connector,
		mock:         mock,
		cleanup:      func() { _ = db.Close() },
	}
}

func (h *testHub) seedIntegration(status entity.IntegrationStatus) *entity.Integration {
	return h.integrations.seed(&entity.Integration{
		Name:               "Stripe Billing",
		IntegrationType:    entity.IntegrationTypeAPI,
		APIEndpoint:        sql.NullString{String: "https://api.stripe.com/v1", Valid: true},
		AuthenticationType: entity.AuthTypeAPIKey,
		Configuration:      map[string]any{"api_key": "secret"},
		Status:             status,
		SyncEnabled:        true,
		SyncFrequency:      entity.SyncFrequencyManual,
	})
}

func newJSONRequest(t *testing.T, method, target string, body any) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, httptest.NewRecorder()
}

func newEchoContext(req *http.Request, rec *httptest.ResponseRecorder) echo.Context {
	return echo.New().NewContext(req, rec)
}

type memIntegrationRepo struct {
	mu           sync.Mutex
	nextID       uint64
	integrations map[uint64]*entity.Integration
}

func (r *memIntegrationRepo) seed(in *entity.Integration) *entity.Integration {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	in.ID = r.nextID
	r.integrations[in.ID] = in
	return in
}

func (r *memIntegrationRepo) Create(_ context.Context, in *entity.Integration) error {
	r.seed(in)
	return nil
}

func (r *memIntegrationRepo) FindByID(_ context.Context, id uint64) (*entity.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	in, ok := r.integrations[id]
	if !ok {
		return nil, nil
	}
	copied := *in
	return &copied, nil
}

func (r *memIntegrationRepo) Update(_ context.Context, in *entity.Integration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.integrations[in.ID]
	if !ok {
		return errors.New("missing row")
	}
	status := stored.Status
	copied := *in
	copied.Status = status
	r.integrations[in.ID] = &copied
	return nil
}

func (r *memIntegrationRepo) UpdateStatus(_ context.Context, id uint64, from, to entity.IntegrationStatus, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	in, ok := r.integrations[id]
	if !ok || in.Status != from {
		return false, nil
	}
	in.Status = to
	in.UpdatedAt = now
	return true, nil
}

func (r *memIntegrationRepo) RecordSyncOutcome(_ context.Context, id uint64, status string, success bool, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if in, ok := r.integrations[id]; ok {
		in.LastSyncAt = sql.NullTime{Time: now, Valid: true}
		in.LastSyncStatus = sql.NullString{String: status, Valid: true}
		if success {
			in.SuccessCount++
		} else {
			in.ErrorCount++
		}
	}
	return nil
}

func (r *memIntegrationRepo) Delete(_ context.Context, id uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.integrations[id]; !ok {
		return false, nil
	}
	delete(r.integrations, id)
	return true, nil
}

func (r *memIntegrationRepo) List(_ context.Context, filter repository.IntegrationFilter) ([]*entity.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*entity.Integration, 0, len(r.integrations))
	for _, in := range r.integrations {
		if filter.Type != "" && in.IntegrationType != filter.Type {
			continue
		}
		if filter.Status != "" && string(in.Status) != filter.Status {
			continue
		}
		copied := *in
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memIntegrationRepo) status(t *testing.T, id uint64) entity.IntegrationStatus {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()

	in, ok := r.integrations[id]
	if !ok {
		t.Fatalf("integration %d not found", id)
	}
	return in.Status
}

type memActivityRepo struct {
	mu   sync.Mutex
	logs []*entity.ActivityLog
}

func (r *memActivityRepo) Create(_ context.Context, log *entity.ActivityLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logs = append(r.logs, log)
	return nil
}

func (r *memActivityRepo) List(_ context.Context, _ repository.ActivityLogFilter) ([]*entity.ActivityLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.ActivityLog(nil), r.logs...), nil
}

func (r *memActivityRepo) entries() []*entity.ActivityLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.ActivityLog(nil), r.logs...)
}

type connectorStub struct {
	probeErr error
	stats    service.SyncStats
	syncErr  error
}

func (c *connectorStub) Probe(context.Context, *entity.Integration) error {
	return c.probeErr
}

func (c *connectorStub) Sync(context.Context, *entity.Integration) (service.SyncStats, error) {
	return c.stats, c.syncErr
}
