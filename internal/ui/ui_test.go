package ui

import (
	"strings"
	"testing"
	"time"

	"gymbot/internal/models"
)

func TestSelectDaysKeyboard(t *testing.T) {
	t.Parallel()
	tr := &models.Trainee{ID: "42", FirstName: "Anna", Days: models.WeekDays()}
	tr.DayByName(time.Monday).Selected = true

	rm := SelectDaysKeyboard(tr)
	if len(rm.InlineKeyboard) != 7 {
		t.Fatalf("rows = %d, want 7", len(rm.InlineKeyboard))
	}

	// Week order starts on Sunday, so Monday is the second row.
	mon := rm.InlineKeyboard[1][0]
	if !strings.Contains(mon.Text, "Monday") || !strings.Contains(mon.Text, WeightLifter) {
		t.Fatalf("Monday button text = %q, want name with lifter emoji", mon.Text)
	}
	if mon.Data != "select_days 42 Monday" {
		t.Fatalf("Monday button data = %q", mon.Data)
	}

	sun := rm.InlineKeyboard[0][0]
	if strings.Contains(sun.Text, WeightLifter) {
		t.Fatalf("unselected Sunday must not carry the emoji: %q", sun.Text)
	}
}

func TestNewWeekKeyboard(t *testing.T) {
	t.Parallel()
	rm := NewWeekKeyboard(map[time.Weekday][]string{
		time.Monday: {"Anna", "Rotem"},
	})
	if len(rm.InlineKeyboard) != 7 {
		t.Fatalf("rows = %d, want 7", len(rm.InlineKeyboard))
	}
	mon := rm.InlineKeyboard[1][0]
	if mon.Text != "Monday: Anna, Rotem" {
		t.Fatalf("Monday label = %q", mon.Text)
	}
	if mon.Data != "new_week Monday" {
		t.Fatalf("Monday data = %q", mon.Data)
	}
	if got := rm.InlineKeyboard[2][0].Text; got != "Tuesday" {
		t.Fatalf("empty day label = %q, want bare name", got)
	}
}

func TestYesNoKeyboard(t *testing.T) {
	t.Parallel()
	date := time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)
	rm := YesNoKeyboard(date)
	if len(rm.InlineKeyboard) != 1 || len(rm.InlineKeyboard[0]) != 2 {
		t.Fatalf("want a single two-button row, got %v", rm.InlineKeyboard)
	}
	if got := rm.InlineKeyboard[0][0].Data; got != "went_to_gym yes 02/01/2026" {
		t.Fatalf("yes data = %q", got)
	}
	if got := rm.InlineKeyboard[0][1].Data; got != "went_to_gym no 02/01/2026" {
		t.Fatalf("no data = %q", got)
	}
}

func TestCreatureFallback(t *testing.T) {
	t.Parallel()
	if got := Creature(&models.Trainee{}); got != models.DefaultCreature {
		t.Fatalf("Creature = %q, want default", got)
	}
	if got := Creature(&models.Trainee{Creature: "gorilla"}); got != "gorilla" {
		t.Fatalf("Creature = %q, want gorilla", got)
	}
}
