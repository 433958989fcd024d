package ratelimit

import (
	"sync"
	"time"
)

// window pairs a lookback duration with its request cap. A cap of 0
// disables the window.
type window struct {
	span  time.Duration
	limit int
}

// RateLimiter enforces sliding-window request limits on the mutation
// endpoints (scoring, generation, assignment). A single ordered
// timestamp log backs all windows; counts are taken per window span.
type RateLimiter struct {
	windows []window
	enabled bool

	mu  sync.Mutex
	log []time.Time
}

// NewRateLimiter creates a new rate limiter with the given limits
func NewRateLimiter(requestsPerMinute, requestsPerHour, requestsPerDay int, enabled bool) *RateLimiter {
	return &RateLimiter{
		windows: []window{
			{time.Minute, requestsPerMinute},
			{time.Hour, requestsPerHour},
			{24 * time.Hour, requestsPerDay},
		},
		enabled: enabled,
	}
}

// AllowRequest records the request when every window has headroom.
// Returns false when any limit is exceeded.
func (rl *RateLimiter) AllowRequest() bool {
	if !rl.enabled {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.prune(now)

	for _, w := range rl.windows {
		if w.limit > 0 && rl.countSince(now.Add(-w.span)) >= w.limit {
			return false
		}
	}

	rl.log = append(rl.log, now)
	return true
}

// prune drops timestamps older than the widest window. The log is
// append-only in time order, so the cut point is a linear scan from
// the front.
func (rl *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-rl.widestSpan())
	i := 0
	for i < len(rl.log) && !rl.log[i].After(cutoff) {
		i++
	}
	if i > 0 {
		rl.log = append(rl.log[:0], rl.log[i:]...)
	}
}

func (rl *RateLimiter) widestSpan() time.Duration {
	widest := time.Minute
	for _, w := range rl.windows {
		if w.span > widest {
			widest = w.span
		}
	}
	return widest
}

// countSince counts logged requests after the cutoff
func (rl *RateLimiter) countSince(cutoff time.Time) int {
	n := 0
	for i := len(rl.log) - 1; i >= 0; i-- {
		if !rl.log[i].After(cutoff) {
			break
		}
		n++
	}
	return n
}

// Stats contains rate limiter statistics
type Stats struct {
	Enabled             bool `json:"enabled"`
	RequestsLastMinute  int  `json:"requests_last_minute"`
	RequestsLastHour    int  `json:"requests_last_hour"`
	RequestsLastDay     int  `json:"requests_last_day"`
	LimitPerMinute      int  `json:"limit_per_minute"`
	LimitPerHour        int  `json:"limit_per_hour"`
	LimitPerDay         int  `json:"limit_per_day"`
	RemainingThisMinute int  `json:"remaining_this_minute"`
	RemainingThisHour   int  `json:"remaining_this_hour"`
	RemainingThisDay    int  `json:"remaining_this_day"`
}

// GetStats returns current rate limiter statistics
func (rl *RateLimiter) GetStats() Stats {
	if !rl.enabled {
		return Stats{Enabled: false}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.prune(now)

	minute := rl.countSince(now.Add(-time.Minute))
	hour := rl.countSince(now.Add(-time.Hour))
	day := rl.countSince(now.Add(-24 * time.Hour))

	return Stats{
		Enabled:             true,
		RequestsLastMinute:  minute,
		RequestsLastHour:    hour,
		RequestsLastDay:     day,
		LimitPerMinute:      rl.windows[0].limit,
		LimitPerHour:        rl.windows[1].limit,
		LimitPerDay:         rl.windows[2].limit,
		RemainingThisMinute: max(0, rl.windows[0].limit-minute),
		RemainingThisHour:   max(0, rl.windows[1].limit-hour),
		RemainingThisDay:    max(0, rl.windows[2].limit-day),
	}
}

// Reset clears all tracked requests (useful for testing)
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.log = nil
}
