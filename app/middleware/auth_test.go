package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/vibast-solutions/ms-go-integrations/app/entity"
	"github.com/vibast-solutions/ms-go-integrations/app/middleware"
	"github.com/vibast-solutions/ms-go-integrations/app/ratelimit"
	"github.com/vibast-solutions/ms-go-integrations/app/service"
)

type stubCredentials struct {
	key      *entity.APIKey
	err      error
	decision ratelimit.Decision
}

func (s *stubCredentials) Authenticate(context.Context, string) (*entity.APIKey, error) {
	return s.key, s.err
}

func (s *stubCredentials) Consume(*entity.APIKey, time.Time) ratelimit.Decision {
	return s.decision
}

func newAuthMiddleware(credentials *stubCredentials) *middleware.AuthMiddleware {
	return middleware.NewAuthMiddleware(service.NewSessionService("test-secret"), credentials)
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func invoke(t *testing.T, m *middleware.AuthMiddleware, req *http.Request, next echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if err := m.RequireCaller(next)(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestRequireCaller_MissingCredentials(t *testing.T) {
	m := newAuthMiddleware(&stubCredentials{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := invoke(t, m, req, okHandler)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestRequireCaller_InvalidHeaderFormat(t *testing.T) {
	m := newAuthMiddleware(&stubCredentials{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := invoke(t, m, req, okHandler)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestRequireCaller_RejectedAPIKeysAreUniform(t *testing.T) {
	for _, err := range []error{service.ErrKeyNotFound, service.ErrKeyRevoked, service.ErrKeyExpired} {
		m := newAuthMiddleware(&stubCredentials{err: err})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-API-Key", "sk_live_bogus")
		rec := invoke(t, m, req, okHandler)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected status 401 for %v, got %d", err, rec.Code)
		}
		if body := rec.Body.String(); body != "{\"error\":\"unauthorized\"}\n" {
			t.Fatalf("rejection body must not distinguish causes, got %q", body)
		}
	}
}

func TestRequireCaller_Throttled(t *testing.T) {
	credentials := &stubCredentials{
		key: &entity.APIKey{ID: 1, IsActive: true},
		decision: ratelimit.Decision{
			Allowed:    false,
			Window:     "minute",
			RetryAfter: 42500 * time.Millisecond,
		},
	}
	m := newAuthMiddleware(credentials)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "sk_live_real")
	rec := invoke(t, m, req, okHandler)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "43" {
		t.Fatalf("expected Retry-After 43, got %q", got)
	}
}

func TestRequireCaller_AdmitsAPIKey(t *testing.T) {
	credentials := &stubCredentials{
		key:      &entity.APIKey{ID: 7, IsActive: true},
		decision: ratelimit.Decision{Allowed: true},
	}
	m := newAuthMiddleware(credentials)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "sk_live_real")
	rec := invoke(t, m, req, func(c echo.Context) error {
		if c.Get(middleware.ContextKeyCallerType) != middleware.CallerTypeAPIKey {
			t.Fatalf("expected api_key caller type, got %v", c.Get(middleware.ContextKeyCallerType))
		}
		keyID, ok := c.Get(middleware.ContextKeyCallerKeyID).(uint64)
		if !ok || keyID != 7 {
			t.Fatalf("expected caller key id 7, got %v", c.Get(middleware.ContextKeyCallerKeyID))
		}
		return c.NoContent(http.StatusOK)
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestRequireCaller_AdmitsSession(t *testing.T) {
	m := newAuthMiddleware(&stubCredentials{})

	claims := &service.Claims{
		UserID: 1,
		Email:  "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := invoke(t, m, req, func(c echo.Context) error {
		if c.Get(middleware.ContextKeyCallerType) != middleware.CallerTypeSession {
			t.Fatalf("expected session caller type, got %v", c.Get(middleware.ContextKeyCallerType))
		}
		userID, ok := c.Get(middleware.ContextKeyCallerUserID).(uint64)
		if !ok || userID != 1 {
			t.Fatalf("expected caller user id 1, got %v", c.Get(middleware.ContextKeyCallerUserID))
		}
		return c.NoContent(http.StatusOK)
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestRequireCaller_AllowsPreflight(t *testing.T) {
	m := newAuthMiddleware(&stubCredentials{})

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := invoke(t, m, req, okHandler)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected preflight to pass, got %d", rec.Code)
	}
}
