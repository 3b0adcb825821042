package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLocationFallsBackToFixedOffset(t *testing.T) {
	loc := LoadLocation("Not/AZone")
	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, FallbackOffset, offset)

	loc = LoadLocation("")
	_, offset = time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, FallbackOffset, offset)
}

func TestVenueNowTruncatesToSecond(t *testing.T) {
	v := &Venue{loc: time.UTC}
	now := v.Now()
	assert.Zero(t, now.Nanosecond())
	assert.Equal(t, time.UTC, now.Location())
}

func TestManualClock(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 500, time.UTC)
	m := NewManual(start)
	require.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), m.Now())

	m.Advance(90 * time.Minute)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), m.Now())

	m.Set(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2, m.Now().Day())
}
