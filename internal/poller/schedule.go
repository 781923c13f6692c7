package poller

import "time"

// Schedule describes a linearly growing polling interval with an attempt cap
type Schedule struct {
	Base        time.Duration
	Increment   time.Duration
	MaxAttempts int
}

// DefaultSchedule waits 3s before the first query, 1.5s longer before each
// following one, and gives up after 8 queries
func DefaultSchedule() Schedule {
	return Schedule{
		Base:        3 * time.Second,
		Increment:   1500 * time.Millisecond,
		MaxAttempts: 8,
	}
}

// Interval returns the wait before the query with 0-based index attempt
func (s Schedule) Interval(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return s.Base + time.Duration(attempt)*s.Increment
}

// Total returns the cumulative wait across all attempts
func (s Schedule) Total() time.Duration {
	var total time.Duration
	for i := 0; i < s.MaxAttempts; i++ {
		total += s.Interval(i)
	}
	return total
}
