package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-integrations/app/entity"
	"github.com/vibast-solutions/ms-go-integrations/app/observability"
	"github.com/vibast-solutions/ms-go-integrations/app/ratelimit"
	"github.com/vibast-solutions/ms-go-integrations/app/service"
)

const (
	ContextKeyCallerType   = "caller_type"
	ContextKeyCallerUserID = "caller_user_id"
	ContextKeyCallerEmail  = "caller_email"
	ContextKeyCallerKeyID  = "caller_key_id"

	CallerTypeSession = "session"
	CallerTypeAPIKey  = "api_key"
)

type sessionValidator interface {
	ValidateAccessToken(tokenString string) (*service.Claims, error)
}

type apiKeyAuthenticator interface {
	Authenticate(ctx context.Context, presentedToken string) (*entity.APIKey, error)
	Consume(key *entity.APIKey, now time.Time) ratelimit.Decision
}

// AuthMiddleware admits either an interactive dashboard session (JWT
// bearer) or a machine caller (X-API-Key). API key callers are charged
// against their rate limit windows on every request.
type AuthMiddleware struct {
	sessions    sessionValidator
	credentials apiKeyAuthenticator
}

func NewAuthMiddleware(sessions sessionValidator, credentials apiKeyAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions, credentials: credentials}
}

func (m *AuthMiddleware) RequireCaller(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Let CORS preflight pass.
		if c.Request().Method == http.MethodOptions {
			return next(c)
		}

		if apiKey := strings.TrimSpace(c.Request().Header.Get("X-API-Key")); apiKey != "" {
			return m.admitAPIKey(c, next, apiKey)
		}
		return m.admitSession(c, next)
	}
}

// admitAPIKey authenticates a machine caller. All credential failures
// produce the same 401 body so a response never reveals whether a key is
// unknown, revoked or expired.
func (m *AuthMiddleware) admitAPIKey(c echo.Context, next echo.HandlerFunc, apiKey string) error {
	key, err := m.credentials.Authenticate(c.Request().Context(), apiKey)
	if err != nil {
		if service.IsAuthError(err) {
			observability.GetMetrics().AuthFailuresTotal.Inc()
			logrus.Debug("Rejected X-API-Key credential")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "unauthorized",
			})
		}
		logrus.WithError(err).Error("API key authentication failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}

	decision := m.credentials.Consume(key, time.Now())
	if !decision.Allowed {
		observability.GetMetrics().RateLimitThrottled.WithLabelValues(decision.Window).Inc()
		retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
		return c.JSON(http.StatusTooManyRequests, map[string]any{
			"error":               "rate limit exceeded",
			"window":              decision.Window,
			"retry_after_seconds": retryAfter,
		})
	}

	c.Set(ContextKeyCallerType, CallerTypeAPIKey)
	c.Set(ContextKeyCallerKeyID, key.ID)
	return next(c)
}

func (m *AuthMiddleware) admitSession(c echo.Context, next echo.HandlerFunc) error {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		logrus.Debug("Missing credentials on hub endpoint")
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "unauthorized",
		})
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		logrus.Debug("Invalid authorization header format")
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "unauthorized",
		})
	}

	claims, err := m.sessions.ValidateAccessToken(parts[1])
	if err != nil {
		logrus.Debug("Invalid or expired session token")
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "unauthorized",
		})
	}

	c.Set(ContextKeyCallerType, CallerTypeSession)
	c.Set(ContextKeyCallerUserID, claims.UserID)
	c.Set(ContextKeyCallerEmail, claims.Email)
	return next(c)
}
