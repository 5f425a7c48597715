// Package clock abstracts the wall clock so the reconciliation timestamps
// written by the storage engine are deterministic in tests.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the timestamps that order concurrent writes.
type Clock interface {
	Now() time.Time
}

// UTC is the real wall clock, always in UTC.
type UTC struct{}

func (UTC) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a settable clock for tests.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t.UTC()}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

// Set jumps the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = t.UTC()
}
