package dto

import (
	"time"

	"github.com/vibast-solutions/ms-go-integrations/app/entity"
)

// IssueAPIKeyInput carries the parameters for minting a new API key. Nil
// rate limits fall back to the configured defaults.
type IssueAPIKeyInput struct {
	Name      string
	PerMinute *int
	PerHour   *int
	PerDay    *int
	ExpiresAt *time.Time
}

// IssueAPIKeyResult pairs the persisted metadata with the plaintext token.
// The plaintext exists only in this value and is never retrievable again.
type IssueAPIKeyResult struct {
	Key       *entity.APIKey
	Plaintext string
}

type TestResult struct {
	RunID           string `json:"run_id"`
	Status          string `json:"status"`
	Message         string `json:"message"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
}

type SyncResult struct {
	RunID            string `json:"run_id"`
	Status           string `json:"status"`
	Message          string `json:"message"`
	ExecutionTimeMs  int64  `json:"execution_time_ms"`
	RecordsProcessed int    `json:"records_processed"`
	RecordsSuccess   int    `json:"records_success"`
}

const (
	RunStatusSuccess = "success"
	RunStatusFailure = "failure"
)

// IntegrationPatch carries the updatable subset of an integration. Nil
// fields are left unchanged.
type IntegrationPatch struct {
	Name               *string
	IntegrationType    *string
	Provider           *string
	APIEndpoint        *string
	WebhookURL         *string
	AuthenticationType *string
	Configuration      map[string]any
	SyncEnabled        *bool
	SyncFrequency      *string
}
