package http

import (
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-integrations/app/entity"
)

type CreateAPIKeyRequest struct {
	Name               string     `json:"name"`
	RateLimitPerMinute *int       `json:"rate_limit_per_minute,omitempty"`
	RateLimitPerHour   *int       `json:"rate_limit_per_hour,omitempty"`
	RateLimitPerDay    *int       `json:"rate_limit_per_day,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
}

func (r *CreateAPIKeyRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	for _, limit := range []*int{r.RateLimitPerMinute, r.RateLimitPerHour, r.RateLimitPerDay} {
		if limit != nil && *limit <= 0 {
			return errors.New("rate limits must be positive")
		}
	}
	return nil
}

type CreateIntegrationRequest struct {
	Name               string         `json:"name"`
	IntegrationType    string         `json:"integration_type"`
	Provider           string         `json:"provider,omitempty"`
	APIEndpoint        string         `json:"api_endpoint,omitempty"`
	WebhookURL         string         `json:"webhook_url,omitempty"`
	AuthenticationType string         `json:"authentication_type"`
	Configuration      map[string]any `json:"configuration,omitempty"`
	SyncEnabled        bool           `json:"sync_enabled"`
	SyncFrequency      string         `json:"sync_frequency"`
}

func (r *CreateIntegrationRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if !entity.ValidIntegrationType(r.IntegrationType) {
		return errors.New("invalid integration_type")
	}
	if !entity.ValidAuthenticationType(r.AuthenticationType) {
		return errors.New("invalid authentication_type")
	}
	if r.SyncFrequency == "" {
		r.SyncFrequency = entity.SyncFrequencyManual
	}
	if !entity.ValidSyncFrequency(r.SyncFrequency) {
		return errors.New("invalid sync_frequency")
	}
	return nil
}

type UpdateIntegrationRequest struct {
	Name               *string        `json:"name,omitempty"`
	IntegrationType    *string        `json:"integration_type,omitempty"`
	Provider           *string        `json:"provider,omitempty"`
	APIEndpoint        *string        `json:"api_endpoint,omitempty"`
	WebhookURL         *string        `json:"webhook_url,omitempty"`
	AuthenticationType *string        `json:"authentication_type,omitempty"`
	Configuration      map[string]any `json:"configuration,omitempty"`
	SyncEnabled        *bool          `json:"sync_enabled,omitempty"`
	SyncFrequency      *string        `json:"sync_frequency,omitempty"`
}

func (r *UpdateIntegrationRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return errors.New("name cannot be empty")
	}
	if r.IntegrationType != nil && !entity.ValidIntegrationType(*r.IntegrationType) {
		return errors.New("invalid integration_type")
	}
	if r.AuthenticationType != nil && !entity.ValidAuthenticationType(*r.AuthenticationType) {
		return errors.New("invalid authentication_type")
	}
	if r.SyncFrequency != nil && !entity.ValidSyncFrequency(*r.SyncFrequency) {
		return errors.New("invalid sync_frequency")
	}
	return nil
}

type WebhookDeliveryRequest struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
}

func (r *WebhookDeliveryRequest) Validate() error {
	if strings.TrimSpace(r.Event) == "" {
		return errors.New("event is required")
	}
	return nil
}
