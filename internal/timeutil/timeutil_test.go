package timeutil

import (
	"testing"
	"time"
)

// 2026-08-29 is a Saturday.
func at(hour, min, sec int) time.Time {
	return time.Date(2026, 8, 29, hour, min, sec, 0, time.UTC)
}

func TestUntilTime(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		now    time.Time
		target TimeOfDay
		want   time.Duration
	}{
		{name: "later today", now: at(9, 0, 0), target: TimeOfDay{Hour: 21}, want: 12 * time.Hour},
		{name: "already passed", now: at(21, 0, 1), target: TimeOfDay{Hour: 21}, want: 24*time.Hour - time.Second},
		{name: "exactly now fires now", now: at(21, 0, 0), target: TimeOfDay{Hour: 21}, want: 0},
		{name: "one second ahead", now: at(8, 59, 59), target: TimeOfDay{Hour: 9}, want: time.Second},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := UntilTime(tt.now, tt.target)
			if got != tt.want {
				t.Fatalf("UntilTime = %v, want %v", got, tt.want)
			}
			if got < 0 {
				t.Fatalf("UntilTime returned negative delay %v", got)
			}
		})
	}
}

func TestUntilDayAndTime(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		now    time.Time
		day    time.Weekday
		target TimeOfDay
		want   time.Duration
	}{
		{
			// Target weekday is today but the time passed one minute ago:
			// jumps a full week, not "almost zero".
			name:   "same day time passed jumps a week",
			now:    at(21, 31, 0),
			day:    time.Saturday,
			target: TimeOfDay{Hour: 21, Minute: 30},
			want:   7*24*time.Hour - time.Minute, // 604,740s
		},
		{
			name:   "same day time ahead fires today",
			now:    at(10, 0, 0),
			day:    time.Saturday,
			target: TimeOfDay{Hour: 21, Minute: 30},
			want:   11*time.Hour + 30*time.Minute,
		},
		{
			name:   "next day",
			now:    at(23, 0, 0),
			day:    time.Sunday,
			target: TimeOfDay{Hour: 9},
			want:   10 * time.Hour,
		},
		{
			name:   "weekday earlier in week wraps forward",
			now:    at(12, 0, 0), // Saturday
			day:    time.Friday,
			target: TimeOfDay{Hour: 12},
			want:   6 * 24 * time.Hour,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := UntilDayAndTime(tt.now, tt.day, tt.target)
			if got != tt.want {
				t.Fatalf("UntilDayAndTime = %v (%vs), want %v", got, got.Seconds(), tt.want)
			}
		})
	}
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()
	got, err := ParseTimeOfDay("21:30")
	if err != nil {
		t.Fatalf("ParseTimeOfDay error: %v", err)
	}
	if got.Hour != 21 || got.Minute != 30 || got.Second != 0 {
		t.Fatalf("unexpected result: %+v", got)
	}

	got, err = ParseTimeOfDay("23:55:30")
	if err != nil {
		t.Fatalf("ParseTimeOfDay error: %v", err)
	}
	if got.Second != 30 {
		t.Fatalf("seconds not parsed: %+v", got)
	}

	for _, bad := range []string{"24:00", "9", "09:60", "", "aa:bb"} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()
	d, err := ParseWeekday("saturday")
	if err != nil {
		t.Fatalf("ParseWeekday error: %v", err)
	}
	if d != time.Saturday {
		t.Fatalf("got %v, want Saturday", d)
	}
	if _, err := ParseWeekday("Caturday"); err == nil {
		t.Fatal("expected error for unknown weekday")
	}
}
