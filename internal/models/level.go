package models

// LevelTable maps a level number to the experience required to advance to
// the next level. Requirements must be monotonically increasing; once the
// table is exhausted a ceiling requirement effectively caps leveling.
type LevelTable struct {
	Requirements []int
	Ceiling      int
}

// DefaultLevelTable is the progression curve used in production.
var DefaultLevelTable = LevelTable{
	Requirements: []int{10, 25, 45, 70, 100, 140, 190, 250, 320, 400,
		500, 620, 760, 920, 1100},
	Ceiling: 1 << 30,
}

// Requirement returns the experience needed to advance from the given
// level to the next one.
func (t LevelTable) Requirement(level int) int {
	if level < 1 {
		level = 1
	}
	if level > len(t.Requirements) {
		return t.Ceiling
	}
	return t.Requirements[level-1]
}

// Level is the progression counter owned by a trainee or a group.
type Level struct {
	Number int
	EXP    int
}

// NewLevel is the starting point of every trainee and group.
func NewLevel() Level { return Level{Number: 1} }

// Gain adds an already multiplier-adjusted amount of experience and
// promotes the level while the next requirement is met, carrying the
// remainder forward. A single large grant may cross several levels; each
// crossing consumes exactly the threshold amount. Returns whether at
// least one promotion happened.
func (l *Level) Gain(amount int, table LevelTable) bool {
	if l.Number < 1 {
		l.Number = 1
	}
	if amount <= 0 {
		return false
	}
	l.EXP += amount
	leveled := false
	for {
		need := table.Requirement(l.Number)
		if l.EXP < need {
			break
		}
		l.EXP -= need
		l.Number++
		leveled = true
	}
	return leveled
}
