// Package clock is the single source of "now" for schedule decisions.
package clock

import (
	"sync"
	"time"
)

// FallbackOffset is the venue offset used when the zone database is unavailable.
const FallbackOffset = 8 * 60 * 60

// Clock reports the authoritative current instant.
type Clock interface {
	Now() time.Time
}

// Venue is the server clock pinned to the venue location with second precision.
type Venue struct {
	loc *time.Location
}

// NewVenue builds a clock for the named IANA zone, falling back to a fixed UTC+8 zone.
func NewVenue(zone string) *Venue {
	return &Venue{loc: LoadLocation(zone)}
}

// Now returns the current instant in the venue location, truncated to the second.
func (v *Venue) Now() time.Time {
	return time.Now().In(v.loc).Truncate(time.Second)
}

// Location exposes the venue time zone.
func (v *Venue) Location() *time.Location {
	return v.loc
}

// LoadLocation resolves zone, never returning nil.
func LoadLocation(zone string) *time.Location {
	if zone != "" {
		if loc, err := time.LoadLocation(zone); err == nil {
			return loc
		}
	}
	return time.FixedZone("UTC+8", FallbackOffset)
}

// Manual is a settable clock for tests and simulations.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual starts a manual clock at t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t.Truncate(time.Second)}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.Truncate(time.Second)
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d).Truncate(time.Second)
}
