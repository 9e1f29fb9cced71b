// Package globaltime is the clock every pipeline stage reads instead of
// calling time.Now directly, so tests can pin the wall clock.
package globaltime

import (
	"sync"
	"time"
)

var (
	clockMu sync.RWMutex
	clock   = time.Now
)

// Now returns the current time from the active clock.
func Now() time.Time {
	clockMu.RLock()
	defer clockMu.RUnlock()
	return clock()
}

// UTC returns the current time normalized to UTC. Timestamps that reach
// the database or wire formats go through this.
func UTC() time.Time {
	return Now().UTC()
}

// SetMockTime freezes the clock at t until ResetTime is called.
func SetMockTime(t time.Time) {
	clockMu.Lock()
	defer clockMu.Unlock()
	clock = func() time.Time { return t }
}

// ResetTime restores the wall clock.
func ResetTime() {
	clockMu.Lock()
	defer clockMu.Unlock()
	clock = time.Now
}
