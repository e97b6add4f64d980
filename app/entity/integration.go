package entity

import (
	"database/sql"
	"time"
)

type IntegrationStatus string

const (
	IntegrationStatusInactive IntegrationStatus = "inactive"
	IntegrationStatusActive   IntegrationStatus = "active"
	IntegrationStatusError    IntegrationStatus = "error"
	IntegrationStatusTesting  IntegrationStatus = "testing"
)

const (
	IntegrationTypeAPI     = "api"
	IntegrationTypeWebhook = "webhook"
	IntegrationTypeZapier  = "zapier"
	IntegrationTypeMake    = "make"
	IntegrationTypeCustom  = "custom"
)

const (
	AuthTypeAPIKey = "api_key"
	AuthTypeOAuth  = "oauth"
	AuthTypeBasic  = "basic"
	AuthTypeBearer = "bearer"
	AuthTypeCustom = "custom"
)

const (
	SyncFrequencyManual   = "manual"
	SyncFrequencyRealTime = "real_time"
	SyncFrequencyHourly   = "hourly"
	SyncFrequencyDaily    = "daily"
	SyncFrequencyWeekly   = "weekly"
)

type Integration struct {
	ID                 uint64
	Name               string
	IntegrationType    string
	Provider           sql.NullString
	APIEndpoint        sql.NullString
	WebhookURL         sql.NullString
	AuthenticationType string
	Configuration      map[string]any
	Status             IntegrationStatus
	SyncEnabled        bool
	SyncFrequency      string
	SuccessCount       uint64
	ErrorCount         uint64
	LastSyncAt         sql.NullTime
	LastSyncStatus     sql.NullString
	IsSystem           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CanTransitionTo encodes the connection lifecycle:
// inactive -> testing, testing -> active|error, active -> error,
// error -> testing, and any state -> inactive on explicit deactivation.
func (s IntegrationStatus) CanTransitionTo(to IntegrationStatus) bool {
	if to == IntegrationStatusInactive {
		return true
	}
	switch s {
	case IntegrationStatusInactive:
		return to == IntegrationStatusTesting
	case IntegrationStatusTesting:
		return to == IntegrationStatusActive || to == IntegrationStatusError
	case IntegrationStatusActive:
		return to == IntegrationStatusError
	case IntegrationStatusError:
		return to == IntegrationStatusTesting
	}
	return false
}

func ValidIntegrationType(t string) bool {
	switch t {
	case IntegrationTypeAPI, IntegrationTypeWebhook, IntegrationTypeZapier, IntegrationTypeMake, IntegrationTypeCustom:
		return true
	}
	return false
}

func ValidAuthenticationType(t string) bool {
	switch t {
	case AuthTypeAPIKey, AuthTypeOAuth, AuthTypeBasic, AuthTypeBearer, AuthTypeCustom:
		return true
	}
	return false
}

func ValidSyncFrequency(f string) bool {
	switch f {
	case SyncFrequencyManual, SyncFrequencyRealTime, SyncFrequencyHourly, SyncFrequencyDaily, SyncFrequencyWeekly:
		return true
	}
	return false
}

func ValidIntegrationStatus(s string) bool {
	switch IntegrationStatus(s) {
	case IntegrationStatusInactive, IntegrationStatusActive, IntegrationStatusError, IntegrationStatusTesting:
		return true
	}
	return false
}
