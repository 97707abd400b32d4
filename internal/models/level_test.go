package models

import (
	"math/rand"
	"testing"
	"time"
)

func TestLevelGainSingle(t *testing.T) {
	t.Parallel()
	table := LevelTable{Requirements: []int{3, 4}, Ceiling: 1000}

	l := NewLevel()
	if leveled := l.Gain(2, table); leveled {
		t.Fatal("grant below the requirement must not level up")
	}
	if l.Number != 1 || l.EXP != 2 {
		t.Fatalf("level = %+v, want {1 2}", l)
	}
}

func TestLevelGainCrossesMultipleLevels(t *testing.T) {
	t.Parallel()
	// Requires 3 to reach level 2 and 4 more to reach level 3. A single
	// grant of 8 promotes straight to level 3 with 1 leftover.
	table := LevelTable{Requirements: []int{3, 4}, Ceiling: 1000}

	l := NewLevel()
	if leveled := l.Gain(8, table); !leveled {
		t.Fatal("expected at least one promotion")
	}
	if l.Number != 3 {
		t.Fatalf("Number = %d, want 3", l.Number)
	}
	if l.EXP != 1 {
		t.Fatalf("EXP = %d, want 1 (8 - 3 - 4)", l.EXP)
	}
}

func TestLevelGainZeroOrNegative(t *testing.T) {
	t.Parallel()
	l := Level{Number: 2, EXP: 5}
	if l.Gain(0, DefaultLevelTable) || l.Gain(-3, DefaultLevelTable) {
		t.Fatal("non-positive grants must be no-ops")
	}
	if l.Number != 2 || l.EXP != 5 {
		t.Fatalf("level mutated by no-op grant: %+v", l)
	}
}

// Invariant: for any grant sequence the level number never decreases and
// experience always stays below the next requirement.
func TestLevelGainInvariant(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	l := NewLevel()
	for i := 0; i < 1000; i++ {
		prev := l.Number
		l.Gain(rng.Intn(200), DefaultLevelTable)
		if l.Number < prev {
			t.Fatalf("level number decreased: %d -> %d", prev, l.Number)
		}
		if need := DefaultLevelTable.Requirement(l.Number); l.EXP >= need {
			t.Fatalf("EXP %d >= requirement %d at level %d", l.EXP, need, l.Number)
		}
		if l.EXP < 0 {
			t.Fatalf("negative EXP %d", l.EXP)
		}
	}
}

func TestLevelTableRequirement(t *testing.T) {
	t.Parallel()
	table := LevelTable{Requirements: []int{3, 4}, Ceiling: 99}
	if got := table.Requirement(1); got != 3 {
		t.Fatalf("Requirement(1) = %d, want 3", got)
	}
	if got := table.Requirement(2); got != 4 {
		t.Fatalf("Requirement(2) = %d, want 4", got)
	}
	if got := table.Requirement(3); got != 99 {
		t.Fatalf("Requirement(3) = %d, want ceiling 99", got)
	}
	// Defensive clamp for malformed persisted levels.
	if got := table.Requirement(0); got != 3 {
		t.Fatalf("Requirement(0) = %d, want 3", got)
	}
}

func TestTraineeDayHelpers(t *testing.T) {
	t.Parallel()
	tr := &Trainee{ID: "1", FirstName: "t", Days: WeekDays()}
	if len(tr.Days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(tr.Days))
	}
	if tr.IsTrainingOn(time.Monday) {
		t.Fatal("fresh trainee must have no selected days")
	}
	tr.DayByName(time.Monday).Selected = true
	tr.DayByName(time.Wednesday).Selected = true
	if !tr.IsTrainingOn(time.Monday) {
		t.Fatal("Monday should be selected")
	}
	got := tr.SelectedDays()
	if len(got) != 2 || got[0] != time.Monday || got[1] != time.Wednesday {
		t.Fatalf("SelectedDays = %v", got)
	}
}
