// Package models holds the persisted entities of the gym bot.
package models

import (
	"time"

	"gymbot/internal/timeutil"
)

// DefaultCreature is the label used in reply templates until the trainee
// picks their own with /set_creature.
const DefaultCreature = "absolute unit"

// Day is one weekday of a trainee's weekly commitment set.
type Day struct {
	Name     time.Weekday
	Selected bool
}

// WeekDays returns a fresh, unselected set of the seven days in calendar
// week order.
func WeekDays() []Day {
	days := make([]Day, 0, len(timeutil.WeekDays))
	for _, d := range timeutil.WeekDays {
		days = append(days, Day{Name: d})
	}
	return days
}

// Trainee is an individual tracked by the bot. The ID is the chat
// platform's stable user id.
type Trainee struct {
	ID        string
	FirstName string
	Creature  string
	Days      []Day // exactly one entry per weekday, week order
	Level     Level
}

// DayByName returns a pointer into Days for the given weekday, or nil if
// the day set is malformed.
func (t *Trainee) DayByName(day time.Weekday) *Day {
	for i := range t.Days {
		if t.Days[i].Name == day {
			return &t.Days[i]
		}
	}
	return nil
}

// IsTrainingOn reports whether the trainee committed to the given weekday.
func (t *Trainee) IsTrainingOn(day time.Weekday) bool {
	d := t.DayByName(day)
	return d != nil && d.Selected
}

// SelectedDays returns the weekdays the trainee committed to, in week order.
func (t *Trainee) SelectedDays() []time.Weekday {
	var out []time.Weekday
	for _, d := range t.Days {
		if d.Selected {
			out = append(out, d.Name)
		}
	}
	return out
}

// Group is a chat the bot broadcasts to. Deleted groups are kept for
// history but excluded from every broadcast and lookup.
type Group struct {
	ID      int64 // chat id
	Level   Level
	Deleted bool
}

// TrainingDayInfo is the immutable per-date record of whether a trainee
// actually trained. At most one exists per (trainee, date).
type TrainingDayInfo struct {
	TraineeID string
	Date      time.Time // midnight, in the bot's timezone
	Trained   bool
	EXPGained int
}

// EXPEvent is a time-bounded experience multiplier. Overlapping events
// compound multiplicatively. Never mutated after creation.
type EXPEvent struct {
	ID         string
	Multiplier float64
	Start      time.Time
	End        time.Time
}

// Active reports whether now falls inside the event window (inclusive).
func (e EXPEvent) Active(now time.Time) bool {
	return !now.Before(e.Start) && !now.After(e.End)
}

// Admin grants operator privileges by presence.
type Admin struct {
	ID string
}
