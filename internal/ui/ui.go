// Package ui renders the bot's inline keyboards and shared text fragments.
package ui

import (
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"gymbot/internal/callback"
	"gymbot/internal/models"
	"gymbot/internal/timeutil"
	"gymbot/pkg/tgui"
)

// WeightLifter marks a selected training day on keyboards.
const WeightLifter = "\U0001F3CB"

// SelectDaysKeyboard is the personal weekday toggle keyboard. Selected
// days carry the lifter emoji. Every button is addressed to the trainee,
// so nobody else can flip their days.
func SelectDaysKeyboard(t *models.Trainee) *tele.ReplyMarkup {
	kb := tgui.NewInline()
	for _, d := range t.Days {
		label := d.Name.String()
		if d.Selected {
			label += " " + WeightLifter
		}
		data := callback.SelectDays{TraineeID: t.ID, Day: d.Name}.Encode()
		kb.Row(tgui.Btn(label, data))
	}
	return kb.Markup()
}

// NewWeekKeyboard is the shared weekly selection keyboard posted to a
// group. Each day's label lists who already picked it.
func NewWeekKeyboard(namesByDay map[time.Weekday][]string) *tele.ReplyMarkup {
	kb := tgui.NewInline()
	for _, day := range timeutil.WeekDays {
		label := day.String()
		if names := namesByDay[day]; len(names) > 0 {
			label += ": " + strings.Join(names, ", ")
		}
		kb.Row(tgui.Btn(label, callback.NewWeek{Day: day}.Encode()))
	}
	return kb.Markup()
}

// YesNoKeyboard is the evening check-in keyboard for the given date.
func YesNoKeyboard(date time.Time) *tele.ReplyMarkup {
	yes := callback.WentToGym{Yes: true, Date: date}.Encode()
	no := callback.WentToGym{Yes: false, Date: date}.Encode()
	return tgui.NewInline().
		Row(tgui.Btn("yes "+WeightLifter, yes), tgui.Btn("no, I bailed", no)).
		Markup()
}

// JoinNames renders trainee first names as a comma-separated list.
func JoinNames(trainees []*models.Trainee) string {
	names := make([]string, 0, len(trainees))
	for _, t := range trainees {
		names = append(names, t.FirstName)
	}
	return strings.Join(names, ", ")
}

// Creature returns the trainee's chosen creature, falling back to the
// default.
func Creature(t *models.Trainee) string {
	if strings.TrimSpace(t.Creature) == "" {
		return models.DefaultCreature
	}
	return t.Creature
}
