package controller_test

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vibast-solutions/ms-go-integrations/app/controller"
	"github.com/vibast-solutions/ms-go-integrations/app/entity"
)

func callWithID(t *testing.T, handler echo.HandlerFunc, req *http.Request, rec *httptest.ResponseRecorder, id string) {
	t.Helper()

	ctx := newEchoContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues(id)
	if err := handler(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestIntegrationController_Create(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	ctrl := controller.NewIntegrationController(th.hub)

	req, rec := newJSONRequest(t, http.MethodPost, "/integrations", map[string]any{
		"name":                "Stripe Billing",
		"integration_type":    "api",
		"api_endpoint":        "https://api.stripe.com/v1",
		"authentication_type": "api_key",
		"configuration":       map[string]any{"api_key": "secret"},
		"sync_enabled":        true,
	})
	if err := ctrl.Create(newEchoContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"inactive"`) {
		t.Fatalf("new integrations must start inactive, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"sync_frequency":"manual"`) {
		t.Fatalf("expected manual default frequency, got %s", rec.Body.String())
	}
}

func TestIntegrationController_Create_InvalidType(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	ctrl := controller.NewIntegrationController(th.hub)

	req, rec := newJSONRequest(t, http.MethodPost, "/integrations", map[string]any{
		"name":                "FTP Drop",
		"integration_type":    "ftp",
		"authentication_type": "api_key",
	})
	if err := ctrl.Create(newEchoContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestIntegrationController_Get_Unknown(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	ctrl := controller.NewIntegrationController(th.hub)

	req, rec := newJSONRequest(t, http.MethodGet, "/integrations/99", nil)
	callWithID(t, ctrl.Get, req, rec, "99")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestIntegrationController_Update(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	ctrl := controller.NewIntegrationController(th.hub)
	in := th.seedIntegration(entity.IntegrationStatusActive)

	req, rec := newJSONRequest(t, http.MethodPut, "/integrations/1", map[string]any{
		"name":         "Stripe Payments",
		"sync_enabled": false,
	})
	callWithID(t, ctrl.Update, req, rec, "1")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"name":"Stripe Payments"`) {
		t.Fatalf("expected updated name, got %s", rec.Body.String())
	}
	if th.integrations.status(t, in.ID) != entity.IntegrationStatusActive {
		t.Fatalf("update must not change status")
	}
}

func TestIntegrationController_Delete_RequiresConfirmation(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	ctrl := controller.NewIntegrationController(th.hub)
	th.seedIntegration(entity.IntegrationStatusInactive)

	req, rec := newJSONRequest(t, http.MethodDelete, "/integrations/1", nil)
	callWithID(t, ctrl.Delete, req, rec, "1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without confirm, got %d", rec.Code)
	}

	req, rec = newJSONRequest(t, http.MethodDelete, "/integrations/1?confirm=true", nil)
	callWithID(t, ctrl.Delete, req, rec, "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 with confirm, got %d body: %s", rec.Code, rec.Body.String())
	}
}

func TestIntegrationController_Delete_SystemForbidden(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	ctrl := controller.NewIntegrationController(th.hub)

	in := th.seedIntegration(entity.IntegrationStatusActive)
	in.IsSystem = true

	req, rec := newJSONRequest(t, http.MethodDelete, "/integrations/1?confirm=true", nil)
	callWithID(t, ctrl.Delete, req, rec, "1")

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}
}

func TestIntegrationController_List(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	ctrl := controller.NewIntegrationController(th.hub)
	th.seedIntegration(entity.IntegrationStatusActive)
	th.seedIntegration(entity.IntegrationStatusInactive)

	req, rec := newJSONRequest(t, http.MethodGet, "/integrations?status=active", nil)
	if err := ctrl.List(newEchoContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if strings.Count(rec.Body.String(), `"status":"active"`) != 1 {
		t.Fatalf("expected exactly one active integration, got %s", rec.Body.String())
	}
}

func TestIntegrationController_List_InvalidStatus(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	ctrl := controller.NewIntegrationController(th.hub)

	req, rec := newJSONRequest(t, http.MethodGet, "/integrations?status=bogus", nil)
	if err := ctrl.List(newEchoContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestIntegrationController_Test(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	ctrl := controller.NewIntegrationController(th.hub)
	in := th.seedIntegration(entity.IntegrationStatusInactive)

	req, rec := newJSONRequest(t, http.MethodPost, "/integrations/1/test", nil)
	callWithID(t, ctrl.Test, req, rec, "1")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"success"`) {
		t.Fatalf("expected success result, got %s", rec.Body.String())
	}
	if th.integrations.status(t, in.ID) != entity.IntegrationStatusActive {
		t.Fatalf("expected integration active after passing test")
	}
	if len(th.activity.entries()) != 1 {
		t.Fatalf("expected one journal entry, got %d", len(th.activity.entries()))
	}
}

func TestIntegrationController_Test_FailureStillOK(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	th.connector.probeErr = errors.New("endpoint returned status 503")
	ctrl := controller.NewIntegrationController(th.hub)
	in := th.seedIntegration(entity.IntegrationStatusInactive)

	req, rec := newJSONRequest(t, http.MethodPost, "/integrations/1/test", nil)
	callWithID(t, ctrl.Test, req, rec, "1")

	if rec.Code != http.StatusOK {
		t.Fatalf("a failed probe is still a 200 with a failure result, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"failure"`) {
		t.Fatalf("expected failure result, got %s", rec.Body.String())
	}
	if th.integrations.status(t, in.ID) != entity.IntegrationStatusError {
		t.Fatalf("expected integration error after failed test")
	}
}

func TestIntegrationController_Test_FromActive(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	ctrl := controller.NewIntegrationController(th.hub)
	th.seedIntegration(entity.IntegrationStatusActive)

	req, rec := newJSONRequest(t, http.MethodPost, "/integrations/1/test", nil)
	callWithID(t, ctrl.Test, req, rec, "1")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d body: %s", rec.Code, rec.Body.String())
	}
}

func TestIntegrationController_Deactivate(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	ctrl := controller.NewIntegrationController(th.hub)
	in := th.seedIntegration(entity.IntegrationStatusActive)

	req, rec := newJSONRequest(t, http.MethodPost, "/integrations/1/deactivate", nil)
	callWithID(t, ctrl.Deactivate, req, rec, "1")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"inactive"`) {
		t.Fatalf("expected inactive integration, got %s", rec.Body.String())
	}
	if th.integrations.status(t, in.ID) != entity.IntegrationStatusInactive {
		t.Fatalf("expected integration inactive after deactivation")
	}
}

func TestIntegrationController_Deactivate_ThenTestAllowed(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	ctrl := controller.NewIntegrationController(th.hub)
	in := th.seedIntegration(entity.IntegrationStatusActive)

	req, rec := newJSONRequest(t, http.MethodPost, "/integrations/1/deactivate", nil)
	callWithID(t, ctrl.Deactivate, req, rec, "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body: %s", rec.Code, rec.Body.String())
	}

	req, rec = newJSONRequest(t, http.MethodPost, "/integrations/1/test", nil)
	callWithID(t, ctrl.Test, req, rec, "1")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected re-test after deactivation to succeed, got %d body: %s", rec.Code, rec.Body.String())
	}
	if th.integrations.status(t, in.ID) != entity.IntegrationStatusActive {
		t.Fatalf("expected integration active after passing re-test")
	}
}

func TestIntegrationController_Deactivate_Unknown(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	ctrl := controller.NewIntegrationController(th.hub)

	req, rec := newJSONRequest(t, http.MethodPost, "/integrations/42/deactivate", nil)
	callWithID(t, ctrl.Deactivate, req, rec, "42")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestIntegrationController_Sync(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	th.connector.stats.RecordsProcessed = 42
	th.connector.stats.RecordsSuccess = 40
	ctrl := controller.NewIntegrationController(th.hub)
	th.seedIntegration(entity.IntegrationStatusActive)

	req, rec := newJSONRequest(t, http.MethodPost, "/integrations/1/sync", nil)
	callWithID(t, ctrl.Sync, req, rec, "1")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"records_processed":42`) {
		t.Fatalf("expected record counts in result, got %s", rec.Body.String())
	}
}

func TestIntegrationController_Sync_Disabled(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	ctrl := controller.NewIntegrationController(th.hub)

	in := th.seedIntegration(entity.IntegrationStatusActive)
	in.SyncEnabled = false

	req, rec := newJSONRequest(t, http.MethodPost, "/integrations/1/sync", nil)
	callWithID(t, ctrl.Sync, req, rec, "1")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}
}

func TestIntegrationController_Webhook(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	ctrl := controller.NewIntegrationController(th.hub)
	th.seedIntegration(entity.IntegrationStatusActive)

	req, rec := newJSONRequest(t, http.MethodPost, "/integrations/1/webhook", map[string]any{
		"event":   "invoice.paid",
		"payload": map[string]any{"amount": 1200},
	})
	callWithID(t, ctrl.Webhook, req, rec, "1")

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d body: %s", rec.Code, rec.Body.String())
	}

	logs := th.activity.entries()
	if len(logs) != 1 || logs[0].LogType != entity.LogTypeWebhook {
		t.Fatalf("expected one webhook entry, got %+v", logs)
	}
}

// delayedBody stalls on the first read so that request binding takes a
// measurable amount of time.
type delayedBody struct {
	r     *bytes.Reader
	delay time.Duration
	once  sync.Once
}

func (b *delayedBody) Read(p []byte) (int, error) {
	b.once.Do(func() { time.Sleep(b.delay) })
	return b.r.Read(p)
}

func TestIntegrationController_Webhook_RecordsHandlingTime(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	ctrl := controller.NewIntegrationController(th.hub)
	th.seedIntegration(entity.IntegrationStatusActive)

	body := &delayedBody{r: bytes.NewReader([]byte(`{"event":"invoice.paid"}`)), delay: 50 * time.Millisecond}
	req := httptest.NewRequest(http.MethodPost, "/integrations/1/webhook", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	callWithID(t, ctrl.Webhook, req, rec, "1")

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d body: %s", rec.Code, rec.Body.String())
	}

	logs := th.activity.entries()
	if len(logs) != 1 {
		t.Fatalf("expected one webhook entry, got %d", len(logs))
	}
	if logs[0].ExecutionTimeMs < 50 {
		t.Fatalf("expected entry to cover request handling time, got %dms", logs[0].ExecutionTimeMs)
	}
}

func TestIntegrationController_Webhook_MissingEvent(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	ctrl := controller.NewIntegrationController(th.hub)
	th.seedIntegration(entity.IntegrationStatusActive)

	req, rec := newJSONRequest(t, http.MethodPost, "/integrations/1/webhook", map[string]any{})
	callWithID(t, ctrl.Webhook, req, rec, "1")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestIntegrationController_InvalidID(t *testing.T) {
	th := newTestHub(t)
	defer th.cleanup()
	ctrl := controller.NewIntegrationController(th.hub)

	req, rec := newJSONRequest(t, http.MethodGet, "/integrations/abc", nil)
	callWithID(t, ctrl.Get, req, rec, "abc")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}
