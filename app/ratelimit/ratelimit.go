package ratelimit

import "time"

const (
	WindowMinute = "minute"
	WindowHour   = "hour"
	WindowDay    = "day"
)

// Limits are the per-key ceilings for the three fixed windows. All three
// must be positive.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

// Decision is the outcome of a CheckAndConsume call. When throttled, Window
// names the binding window (the one whose boundary is closest) and
// RetryAfter is the time until that boundary.
type Decision struct {
	Allowed    bool
	Window     string
	RetryAfter time.Duration
}

type Limiter interface {
	CheckAndConsume(keyID uint64, limits Limits, now time.Time) Decision
	Reset(keyID uint64)
}
