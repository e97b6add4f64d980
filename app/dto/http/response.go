package http

import (
	"time"

	"github.com/vibast-solutions/ms-go-integrations/app/entity"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// APIKeyResponse exposes key metadata only. Neither the key hash nor the
// plaintext token ever appears here.
type APIKeyResponse struct {
	ID                 uint64     `json:"id"`
	Name               string     `json:"name"`
	Prefix             string     `json:"prefix"`
	RateLimitPerMinute int        `json:"rate_limit_per_minute"`
	RateLimitPerHour   int        `json:"rate_limit_per_hour"`
	RateLimitPerDay    int        `json:"rate_limit_per_day"`
	IsActive           bool       `json:"is_active"`
	LastUsedAt         *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// CreateAPIKeyResponse is the only place the plaintext token is ever
// returned.
type CreateAPIKeyResponse struct {
	APIKeyResponse
	Key string `json:"key"`
}

type IntegrationResponse struct {
	ID                 uint64         `json:"id"`
	Name               string         `json:"name"`
	IntegrationType    string         `json:"integration_type"`
	Provider           string         `json:"provider,omitempty"`
	APIEndpoint        string         `json:"api_endpoint,omitempty"`
	WebhookURL         string         `json:"webhook_url,omitempty"`
	AuthenticationType string         `json:"authentication_type"`
	Configuration      map[string]any `json:"configuration"`
	Status             string         `json:"status"`
	SyncEnabled        bool           `json:"sync_enabled"`
	SyncFrequency      string         `json:"sync_frequency"`
	SuccessCount       uint64         `json:"success_count"`
	ErrorCount         uint64         `json:"error_count"`
	LastSyncAt         *time.Time     `json:"last_sync_at,omitempty"`
	LastSyncStatus     string         `json:"last_sync_status,omitempty"`
	IsSystem           bool           `json:"is_system"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

type ActivityLogResponse struct {
	ID               uint64    `json:"id"`
	IntegrationID    *uint64   `json:"integration_id,omitempty"`
	LogType          string    `json:"log_type"`
	Status           string    `json:"status"`
	Direction        string    `json:"direction,omitempty"`
	ExecutionTimeMs  int64     `json:"execution_time_ms"`
	RecordsProcessed int       `json:"records_processed"`
	RecordsSuccess   int       `json:"records_success"`
	Detail           string    `json:"detail"`
	CreatedAt        time.Time `json:"created_at"`
}

func NewAPIKeyResponse(k *entity.APIKey) APIKeyResponse {
	resp := APIKeyResponse{
		ID:                 k.ID,
		Name:               k.Name,
		Prefix:             k.Prefix,
		RateLimitPerMinute: k.RateLimitPerMinute,
		RateLimitPerHour:   k.RateLimitPerHour,
		RateLimitPerDay:    k.RateLimitPerDay,
		IsActive:           k.IsActive,
		CreatedAt:          k.CreatedAt,
	}
	if k.LastUsedAt.Valid {
		t := k.LastUsedAt.Time
		resp.LastUsedAt = &t
	}
	if k.ExpiresAt.Valid {
		t := k.ExpiresAt.Time
		resp.ExpiresAt = &t
	}
	return resp
}

func NewIntegrationResponse(in *entity.Integration) IntegrationResponse {
	resp := IntegrationResponse{
		ID:                 in.ID,
		Name:               in.Name,
		IntegrationType:    in.IntegrationType,
		Provider:           in.Provider.String,
		APIEndpoint:        in.APIEndpoint.String,
		WebhookURL:         in.WebhookURL.String,
		AuthenticationType: in.AuthenticationType,
		Configuration:      in.Configuration,
		Status:             string(in.Status),
		SyncEnabled:        in.SyncEnabled,
		SyncFrequency:      in.SyncFrequency,
		SuccessCount:       in.SuccessCount,
		ErrorCount:         in.ErrorCount,
		LastSyncStatus:     in.LastSyncStatus.String,
		IsSystem:           in.IsSystem,
		CreatedAt:          in.CreatedAt,
		UpdatedAt:          in.UpdatedAt,
	}
	if in.LastSyncAt.Valid {
		t := in.LastSyncAt.Time
		resp.LastSyncAt = &t
	}
	return resp
}

func NewActivityLogResponse(log *entity.ActivityLog) ActivityLogResponse {
	resp := ActivityLogResponse{
		ID:               log.ID,
		LogType:          log.LogType,
		Status:           log.Status,
		Direction:        log.Direction.String,
		ExecutionTimeMs:  log.ExecutionTimeMs,
		RecordsProcessed: log.RecordsProcessed,
		RecordsSuccess:   log.RecordsSuccess,
		Detail:           log.Detail,
		CreatedAt:        log.CreatedAt,
	}
	if log.IntegrationID.Valid {
		id := uint64(log.IntegrationID.Int64)
		resp.IntegrationID = &id
	}
	return resp
}
