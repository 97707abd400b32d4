// Package jobs holds the bot's recurring tasks: the morning reminder, the
// evening check-in, the weekly selection reset and the nightly
// missed-training sweep. Each job owns its schedule and payload; the two
// that post keyboards also own the handlers for the replies those
// keyboards produce. Everything a job needs is passed in at construction.
package jobs

import (
	"time"

	"github.com/rs/zerolog"

	"gymbot/internal/broadcast"
	"gymbot/internal/progression"
	"gymbot/internal/scheduler"
	"gymbot/internal/storage"
	"gymbot/internal/timeutil"
	"gymbot/internal/training"
	"gymbot/internal/transport"
)

// Job names, also the keys for the admin run_task command.
const (
	NameGoToGym     = "go_to_gym"
	NameWentToGym   = "went_to_gym"
	NameNewWeek     = "new_week_select_days"
	NameDidNotTrain = "did_not_train_updater"
)

// Deps is everything the jobs share.
type Deps struct {
	Store    storage.Store
	Adapter  transport.Adapter
	Training *training.Service
	Prog     *progression.Service
	Cast     *broadcast.Broadcaster
	Log      zerolog.Logger
	Now      func() time.Time
}

// Times carries the configured firing times.
type Times struct {
	Morning     timeutil.TimeOfDay // go-to-gym reminder
	Evening     timeutil.TimeOfDay // went-to-gym check-in
	Sweep       timeutil.TimeOfDay // missed-training sweep
	NewWeekDay  time.Weekday       // weekly selection reset
	NewWeekTime timeutil.TimeOfDay
}

// DefaultTimes mirrors the long-standing schedule: reminder at 09:00,
// check-in at 21:00, sweep at 23:55, new week on Saturday 21:30.
func DefaultTimes() Times {
	return Times{
		Morning:     timeutil.TimeOfDay{Hour: 9},
		Evening:     timeutil.TimeOfDay{Hour: 21},
		Sweep:       timeutil.TimeOfDay{Hour: 23, Minute: 55},
		NewWeekDay:  time.Saturday,
		NewWeekTime: timeutil.TimeOfDay{Hour: 21, Minute: 30},
	}
}

// Set is the constructed job collection. The bot wires the reply handlers
// straight off the fields; there is no lookup by name outside the
// scheduler's admin surface.
type Set struct {
	GoToGym     *GoToGym
	WentToGym   *WentToGym
	NewWeek     *NewWeek
	DidNotTrain *DidNotTrain
}

func New(deps Deps, times Times) *Set {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Set{
		GoToGym:     &GoToGym{deps: deps, at: times.Morning},
		WentToGym:   &WentToGym{deps: deps, at: times.Evening},
		NewWeek:     &NewWeek{deps: deps, day: times.NewWeekDay, at: times.NewWeekTime},
		DidNotTrain: &DidNotTrain{deps: deps, at: times.Sweep},
	}
}

// SchedulerJobs returns the scheduler registrations for the whole set.
func (s *Set) SchedulerJobs() []*scheduler.Job {
	return []*scheduler.Job{
		s.GoToGym.Job(),
		s.WentToGym.Job(),
		s.NewWeek.Job(),
		s.DidNotTrain.Job(),
	}
}
