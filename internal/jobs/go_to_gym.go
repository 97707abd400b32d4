package jobs

import (
	"context"
	"fmt"
	"time"

	"gymbot/internal/models"
	"gymbot/internal/scheduler"
	"gymbot/internal/timeutil"
	"gymbot/internal/transport"
	"gymbot/internal/ui"
)

// GoToGym is the morning reminder: every group gets the list of members
// still expected at the gym today. Groups with nobody scheduled are
// skipped, not the whole run.
type GoToGym struct {
	deps Deps
	at   timeutil.TimeOfDay
}

func (j *GoToGym) Job() *scheduler.Job {
	return &scheduler.Job{
		Name:       NameGoToGym,
		StartDelay: func(now time.Time) time.Duration { return timeutil.UntilTime(now, j.at) },
		Every:      24 * time.Hour,
		Run:        j.run,
	}
}

func (j *GoToGym) run(ctx context.Context) error {
	now := j.deps.Now()
	return j.deps.Cast.ForEachGroup(ctx, NameGoToGym, func(ctx context.Context, g *models.Group) error {
		pending, err := j.deps.Training.PendingToday(ctx, g.ID, now)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		text := fmt.Sprintf("go to the gym today, %s", ui.JoinNames(pending))
		if len(pending) > 1 {
			text = fmt.Sprintf("go to the gym today, you bots: %s", ui.JoinNames(pending))
		}
		_, err = j.deps.Adapter.SendText(ctx, transport.ChatTarget{ChatID: g.ID}, text, nil)
		return err
	})
}
