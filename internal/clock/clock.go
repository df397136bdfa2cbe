package clock

import (
	"sync"
	"time"
)

// Clock supplies wall-clock reads. Engine state stores times as milliseconds
// since the Unix epoch.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns the process wall clock.
func System() Clock { return systemClock{} }

// Millis converts t to milliseconds since epoch.
func Millis(t time.Time) int64 { return t.UnixMilli() }

// Time converts milliseconds since epoch back to a time in loc.
func Time(ms int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(ms).In(loc)
}

// Manual is a Clock that only moves when told to. Used by tests.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Set jumps the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}
