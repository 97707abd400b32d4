// Package timeutil holds the calendar arithmetic the scheduled jobs are
// armed with. Everything takes an explicit "now" so the math is testable
// without faking the clock.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock target within a day.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q (want HH:MM or HH:MM:SS)", s)
	}
	var tod TimeOfDay
	if _, err := fmt.Sscanf(parts[0], "%d", &tod.Hour); err != nil || tod.Hour < 0 || tod.Hour > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &tod.Minute); err != nil || tod.Minute < 0 || tod.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	if len(parts) == 3 {
		if _, err := fmt.Sscanf(parts[2], "%d", &tod.Second); err != nil || tod.Second < 0 || tod.Second > 59 {
			return TimeOfDay{}, fmt.Errorf("invalid second in %q", s)
		}
	}
	return tod, nil
}

// at pins the time of day onto now's date, keeping now's location.
func (t TimeOfDay) at(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, t.Second, 0, now.Location())
}

// UntilTime returns the delay from now until the next occurrence of the
// target time of day. A target that already passed today lands tomorrow.
// The result is never negative.
func UntilTime(now time.Time, target TimeOfDay) time.Duration {
	at := target.at(now)
	if at.Before(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at.Sub(now)
}

// UntilDayAndTime returns the delay from now until the next occurrence of
// the target weekday at the target time of day. When today is the target
// weekday but the time already passed, the result jumps a full week forward
// rather than firing later today.
func UntilDayAndTime(now time.Time, day time.Weekday, target TimeOfDay) time.Duration {
	days := int(day-now.Weekday()+7) % 7
	at := target.at(now)
	if days == 0 && at.Before(now) {
		days = 7
	}
	return at.AddDate(0, 0, days).Sub(now)
}

// Midnight truncates t to the start of its day, keeping the location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDate reports whether two instants fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// WeekDays is the calendar week order used for the selection keyboard and
// the per-trainee day sets.
var WeekDays = []time.Weekday{
	time.Sunday,
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
}

// ParseWeekday resolves an English weekday name, case-insensitively.
func ParseWeekday(name string) (time.Weekday, error) {
	for _, d := range WeekDays {
		if strings.EqualFold(d.String(), strings.TrimSpace(name)) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", name)
}
