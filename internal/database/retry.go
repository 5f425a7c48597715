package database

import (
	"errors"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// RetryPolicy bounds how often a transactional unit of work is re-run when
// another connection holds the database file locked.
type RetryPolicy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// Backoff returns how long to sleep before re-running attempt n (0-based).
	Backoff func(attempt int) time.Duration
}

// DefaultRetryPolicy retries 3 more times with 50ms * 2^attempt backoff,
// capping total wait under a second during rapid sync bursts.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 3,
	Backoff: func(attempt int) time.Duration {
		return 50 * time.Millisecond << attempt
	},
}

// WithRetry runs fn under DefaultRetryPolicy.
func WithRetry(fn func() error) error {
	return DefaultRetryPolicy.Run(fn)
}

// Run executes fn, re-running it on lock contention until the retry budget
// is spent. Any other error is returned immediately; the final contention
// error is propagated once the budget is exhausted.
func (p RetryPolicy) Run(fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || attempt >= p.MaxRetries || !IsLocked(err) {
			return err
		}
		time.Sleep(p.Backoff(attempt))
	}
}

// IsLocked reports whether err is sqlite's busy/locked condition.
func IsLocked(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
