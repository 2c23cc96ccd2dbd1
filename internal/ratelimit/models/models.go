// Package models holds the rate limiting result types.
package models

import "time"

// Result reports the outcome of one rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is the whole seconds until the window frees up. Zero when
	// the request was allowed.
	RetryAfter int
}
