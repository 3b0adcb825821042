// Package schedule evaluates a branch's recurring daily operating window.
package schedule

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable reports that a branch schedule could not be fetched.
var ErrUnavailable = errors.New("schedule unavailable")

// ErrUnknownBranch reports that the branch no longer exists.
var ErrUnknownBranch = errors.New("branch not found")

// TimeOfDay is a wall-clock time that recurs every day.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// NewTimeOfDay validates and builds a TimeOfDay.
func NewTimeOfDay(hour, minute, second int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %02d:%02d:%02d", hour, minute, second)
	}
	return TimeOfDay{Hour: hour, Minute: minute, Second: second}, nil
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("invalid time of day %q", value)
}

// storedLayouts are the timestamp shapes admin clients send for opening/closing.
var storedLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseInput reads an opening/closing value given either as a time of day or as a
// full timestamp. Timestamps without an offset are read in loc. Empty means unset.
func ParseInput(value string, loc *time.Location) (*TimeOfDay, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := ParseTimeOfDay(value); err == nil {
		return &t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range storedLayouts {
		if ts, err := time.ParseInLocation(layout, value, loc); err == nil {
			t := TimeOfDayFrom(ts, loc)
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid schedule time %q", value)
}

// TimeOfDayFrom drops the date of a stored timestamp, keeping its wall clock in loc.
func TimeOfDayFrom(t time.Time, loc *time.Location) TimeOfDay {
	if loc != nil {
		t = t.In(loc)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// String renders HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// On returns the instant of t on the calendar day of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, t.Second, 0, day.Location())
}

// Decision is the derived open/closed state of a branch at one instant.
type Decision struct {
	IsOpen          bool
	NextOpening     *time.Time
	ClosesAt        *time.Time
	MillisUntilOpen int64
	Unset           bool
}

// Countdown decomposes the wait until the next opening; nil when none applies.
func (d Decision) Countdown() *Countdown {
	if d.IsOpen || d.NextOpening == nil {
		return nil
	}
	c := CountdownFrom(d.MillisUntilOpen)
	return &c
}

// Evaluate decides whether a daily window [opening, closing] contains now.
// A closing at or before the opening is an overnight window ending the next day.
// Equal opening and closing is a zero-width window that never opens.
func Evaluate(now time.Time, opening, closing *TimeOfDay) Decision {
	now = now.Truncate(time.Second)
	if opening == nil || closing == nil {
		return Decision{Unset: true}
	}
	if *opening == *closing {
		return Decision{}
	}

	openToday := opening.On(now)
	closeToday := closing.On(now)
	overnight := !closeToday.After(openToday)

	if overnight && !now.After(closeToday) {
		// still inside the window that opened yesterday
		return openDecision(now, openToday, closeToday)
	}
	if overnight {
		closeToday = closeToday.AddDate(0, 0, 1)
	}

	if !now.Before(openToday) && !now.After(closeToday) {
		return openDecision(now, openToday.AddDate(0, 0, 1), closeToday)
	}

	next := openToday
	if now.After(closeToday) {
		next = openToday.AddDate(0, 0, 1)
	}
	return Decision{
		NextOpening:     &next,
		MillisUntilOpen: untilMillis(now, next),
	}
}

func openDecision(now, nextOpening, closesAt time.Time) Decision {
	if !nextOpening.After(now) {
		nextOpening = nextOpening.AddDate(0, 0, 1)
	}
	return Decision{IsOpen: true, NextOpening: &nextOpening, ClosesAt: &closesAt}
}

func untilMillis(now, next time.Time) int64 {
	ms := next.Sub(now).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
