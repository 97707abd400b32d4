package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gymbot/internal/models"
	"gymbot/internal/scheduler"
	"gymbot/internal/storage"
	"gymbot/internal/timeutil"
	"gymbot/internal/transport"
	"gymbot/internal/ui"
)

// DidNotTrain is the end-of-day sweep: everyone still pending gets a
// trained=false record and a public shaming message. The record is dated
// two hours back so a sweep firing just after midnight still lands on the
// day it closes out.
type DidNotTrain struct {
	deps Deps
	at   timeutil.TimeOfDay
}

func (j *DidNotTrain) Job() *scheduler.Job {
	return &scheduler.Job{
		Name:       NameDidNotTrain,
		StartDelay: func(now time.Time) time.Duration { return timeutil.UntilTime(now, j.at) },
		Every:      24 * time.Hour,
		Run:        j.run,
	}
}

func (j *DidNotTrain) run(ctx context.Context) error {
	now := j.deps.Now()
	recordDate := now.Add(-2 * time.Hour)
	log := j.deps.Log.With().Str("job", NameDidNotTrain).Logger()

	return j.deps.Cast.ForEachGroup(ctx, NameDidNotTrain, func(ctx context.Context, g *models.Group) error {
		pending, err := j.deps.Training.PendingToday(ctx, g.ID, now)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		for _, t := range pending {
			has, err := j.deps.Training.HasRecordFor(ctx, t.ID, recordDate)
			if err != nil {
				return err
			}
			if has {
				// Another group's sweep already wrote the miss record.
				continue
			}
			if _, err := j.deps.Training.RecordTraining(ctx, t, recordDate, false, now); err != nil {
				if errors.Is(err, storage.ErrAlreadyRecorded) {
					continue
				}
				return err
			}
			log.Info().Str("trainee", t.ID).Msg("missed training recorded by sweep")
		}

		text := fmt.Sprintf("a total zero, %s", ui.JoinNames(pending))
		if len(pending) > 1 {
			text = fmt.Sprintf("total zeroes, all of you: %s", ui.JoinNames(pending))
		}
		_, err = j.deps.Adapter.SendText(ctx, transport.ChatTarget{ChatID: g.ID}, text, nil)
		return err
	})
}
