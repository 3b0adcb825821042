package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountdown(t *testing.T) {
	testCases := []struct {
		name string
		ms   int64
		want Countdown
		text string
	}{
		{name: "zero", ms: 0, want: Countdown{}, text: "0s"},
		{name: "negative clamps", ms: -500, want: Countdown{}, text: "0s"},
		{name: "sub second truncates", ms: 999, want: Countdown{}, text: "0s"},
		{name: "seconds", ms: 42_000, want: Countdown{Seconds: 42}, text: "42s"},
		{name: "hours keeps inner zeros", ms: (2*3600 + 5) * 1000, want: Countdown{Hours: 2, Seconds: 5}, text: "2h 0m 5s"},
		{name: "days", ms: (86400 + 3*3600 + 4*60 + 5) * 1000, want: Countdown{Days: 1, Hours: 3, Minutes: 4, Seconds: 5}, text: "1d 3h 4m 5s"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CountdownFrom(tc.ms)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.text, got.String())
			assert.Equal(t, tc.want == Countdown{}, got.Zero())
		})
	}
}
