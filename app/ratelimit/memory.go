package ratelimit

import (
	"sync"
	"time"
)

// Fixed-window counting: each window tracks floor(now/size) and a count that
// resets whenever the index moves.
var windows = [3]struct {
	name string
	size int64 // seconds
}{
	{WindowMinute, 60},
	{WindowHour, 3600},
	{WindowDay, 86400},
}

type windowState struct {
	index int64
	count int
}

type keyState struct {
	mu      sync.Mutex
	windows [3]windowState
}

// MemoryLimiter keeps per-key counters in process memory. Counters for a
// single key are updated under that key's own mutex, so concurrent requests
// against the same key are linearized while distinct keys never contend.
type MemoryLimiter struct {
	keys sync.Map // uint64 -> *keyState
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{}
}

func (l *MemoryLimiter) CheckAndConsume(keyID uint64, limits Limits, now time.Time) Decision {
	st := l.state(keyID)

	ceilings := [3]int{limits.PerMinute, limits.PerHour, limits.PerDay}

	st.mu.Lock()
	defer st.mu.Unlock()

	unix := now.Unix()
	for i := range windows {
		idx := unix / windows[i].size
		if st.windows[i].index != idx {
			st.windows[i].index = idx
			st.windows[i].count = 0
		}
	}

	binding := -1
	var retryAfter time.Duration
	for i := range windows {
		if ceilings[i] <= 0 || st.windows[i].count < ceilings[i] {
			continue
		}
		boundary := time.Unix((st.windows[i].index+1)*windows[i].size, 0)
		remaining := boundary.Sub(now)
		if binding == -1 || remaining < retryAfter {
			binding = i
			retryAfter = remaining
		}
	}
	if binding >= 0 {
		return Decision{Allowed: false, Window: windows[binding].name, RetryAfter: retryAfter}
	}

	for i := range windows {
		st.windows[i].count++
	}
	return Decision{Allowed: true}
}

func (l *MemoryLimiter) Reset(keyID uint64) {
	l.keys.Delete(keyID)
}

func (l *MemoryLimiter) state(keyID uint64) *keyState {
	if st, ok := l.keys.Load(keyID); ok {
		return st.(*keyState)
	}
	st, _ := l.keys.LoadOrStore(keyID, &keyState{})
	return st.(*keyState)
}
