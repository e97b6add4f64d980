package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/vibast-solutions/ms-go-integrations/app/entity"
	"github.com/vibast-solutions/ms-go-integrations/app/observability"
	"github.com/vibast-solutions/ms-go-integrations/config"
)

// SyncStats are the record counts reported by a completed sync run.
type SyncStats struct {
	RecordsProcessed int
	RecordsSuccess   int
}

// Connector performs the outbound calls against an external system: a
// single-attempt connectivity probe and a full sync run. Implementations
// must respect context cancellation.
type Connector interface {
	Probe(ctx context.Context, in *entity.Integration) error
	Sync(ctx context.Context, in *entity.Integration) (SyncStats, error)
}

// HTTPConnector talks to the integration's configured endpoint. Each
// integration gets its own circuit breaker so a flapping remote cannot
// starve probes against healthy ones.
type HTTPConnector struct {
	client *http.Client
	policy config.BreakerPolicy

	mu       sync.Mutex
	breakers map[uint64]*gobreaker.CircuitBreaker[SyncStats]
}

func NewHTTPConnector(policy config.BreakerPolicy) *HTTPConnector {
	return &HTTPConnector{
		client:   &http.Client{},
		policy:   policy,
		breakers: make(map[uint64]*gobreaker.CircuitBreaker[SyncStats]),
	}
}

func (c *HTTPConnector) Probe(ctx context.Context, in *entity.Integration) error {
	endpoint, err := integrationEndpoint(in)
	if err != nil {
		return err
	}

	_, err = c.breaker(in).Execute(func() (SyncStats, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return SyncStats{}, err
		}
		applyAuthentication(req, in)

		resp, err := c.client.Do(req)
		if err != nil {
			return SyncStats{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			return SyncStats{}, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
		}
		return SyncStats{}, nil
	})
	return translateBreakerError(err)
}

func (c *HTTPConnector) Sync(ctx context.Context, in *entity.Integration) (SyncStats, error) {
	endpoint, err := integrationEndpoint(in)
	if err != nil {
		return SyncStats{}, err
	}

	stats, err := c.breaker(in).Execute(func() (SyncStats, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
		if err != nil {
			return SyncStats{}, err
		}
		applyAuthentication(req, in)

		resp, err := c.client.Do(req)
		if err != nil {
			return SyncStats{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			return SyncStats{}, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
		}

		// Remotes that report counts do so in the response body; absent
		// or malformed counts are treated as zero, not a failure.
		var body struct {
			RecordsProcessed int `json:"records_processed"`
			RecordsSuccess   int `json:"records_success"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return SyncStats{}, nil
		}
		return SyncStats{RecordsProcessed: body.RecordsProcessed, RecordsSuccess: body.RecordsSuccess}, nil
	})
	if err != nil {
		return SyncStats{}, translateBreakerError(err)
	}
	return stats, nil
}

func (c *HTTPConnector) breaker(in *entity.Integration) *gobreaker.CircuitBreaker[SyncStats] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[in.ID]; ok {
		return cb
	}

	name := fmt.Sprintf("integration-%d", in.ID)
	policy := c.policy
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: policy.MaxRequests,
		Interval:    policy.Interval,
		Timeout:     policy.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < policy.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= policy.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state change")

			metrics := observability.GetMetrics()
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(breakerStateValue(to)))
			if to == gobreaker.StateOpen {
				metrics.BreakerTripsTotal.WithLabelValues(name).Inc()
			}
		},
	}

	cb := gobreaker.NewCircuitBreaker[SyncStats](settings)
	c.breakers[in.ID] = cb
	return cb
}

func integrationEndpoint(in *entity.Integration) (string, error) {
	if in.APIEndpoint.Valid && in.APIEndpoint.String != "" {
		return in.APIEndpoint.String, nil
	}
	if in.WebhookURL.Valid && in.WebhookURL.String != "" {
		return in.WebhookURL.String, nil
	}
	return "", errors.New("integration has no endpoint configured")
}

func applyAuthentication(req *http.Request, in *entity.Integration) {
	switch in.AuthenticationType {
	case entity.AuthTypeBearer:
		if token, ok := in.Configuration["token"].(string); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	case entity.AuthTypeAPIKey:
		if key, ok := in.Configuration["api_key"].(string); ok {
			req.Header.Set("X-API-Key", key)
		}
	case entity.AuthTypeBasic:
		user, _ := in.Configuration["username"].(string)
		pass, _ := in.Configuration["password"].(string)
		if user != "" {
			req.SetBasicAuth(user, pass)
		}
	}
}

func translateBreakerError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("endpoint unavailable: %w", err)
	}
	return err
}

// breakerStateValue maps a breaker state for the state gauge:
// 0=closed, 1=half-open, 2=open.
func breakerStateValue(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}
