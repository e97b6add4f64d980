package entity

import (
	"database/sql"
	"time"
)

const (
	LogTypeSync    = "sync"
	LogTypeWebhook = "webhook"
	LogTypeAPICall = "api_call"
	LogTypeError   = "error"
	LogTypeInfo    = "info"
)

const (
	LogStatusSuccess = "success"
	LogStatusPending = "pending"
	LogStatusError   = "error"
	LogStatusWarning = "warning"
)

const (
	LogDirectionInbound  = "inbound"
	LogDirectionOutbound = "outbound"
)

// ActivityLog entries are append-only: corrections are made by writing a new
// entry, never by mutating an existing one.
type ActivityLog struct {
	ID               uint64
	IntegrationID    sql.NullInt64
	LogType          string
	Status           string
	Direction        sql.NullString
	ExecutionTimeMs  int64
	RecordsProcessed int
	RecordsSuccess   int
	Detail           string
	CreatedAt        time.Time
}

func ValidLogType(t string) bool {
	switch t {
	case LogTypeSync, LogTypeWebhook, LogTypeAPICall, LogTypeError, LogTypeInfo:
		return true
	}
	return false
}

func ValidLogStatus(s string) bool {
	switch s {
	case LogStatusSuccess, LogStatusPending, LogStatusError, LogStatusWarning:
		return true
	}
	return false
}
