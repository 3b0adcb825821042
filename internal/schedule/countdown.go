package schedule

import (
	"strconv"
	"strings"
)

// Countdown is a wait expressed in whole days, hours, minutes and seconds.
type Countdown struct {
	Days    int64
	Hours   int64
	Minutes int64
	Seconds int64
}

// CountdownFrom splits ms into units, largest first.
func CountdownFrom(ms int64) Countdown {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return Countdown{
		Days:    total / 86400,
		Hours:   (total % 86400) / 3600,
		Minutes: (total % 3600) / 60,
		Seconds: total % 60,
	}
}

// Zero reports whether the countdown has elapsed.
func (c Countdown) Zero() bool {
	return c.Days == 0 && c.Hours == 0 && c.Minutes == 0 && c.Seconds == 0
}

// String renders "1d 2h 3m 4s", omitting zero leading units.
func (c Countdown) String() string {
	units := []struct {
		value  int64
		suffix string
	}{
		{c.Days, "d"},
		{c.Hours, "h"},
		{c.Minutes, "m"},
		{c.Seconds, "s"},
	}

	parts := make([]string, 0, len(units))
	for _, u := range units {
		if len(parts) == 0 && u.value == 0 && u.suffix != "s" {
			continue
		}
		parts = append(parts, strconv.FormatInt(u.value, 10)+u.suffix)
	}
	return strings.Join(parts, " ")
}
