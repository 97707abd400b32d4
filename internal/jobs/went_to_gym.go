package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gymbot/internal/callback"
	"gymbot/internal/models"
	"gymbot/internal/scheduler"
	"gymbot/internal/storage"
	"gymbot/internal/timeutil"
	"gymbot/internal/training"
	"gymbot/internal/transport"
	"gymbot/internal/ui"
)

// WentToGym is the evening check-in: the pending members of each group
// are asked whether they trained, through a yes/no keyboard stamped with
// today's date. HandleAnswer processes the replies whenever they arrive.
type WentToGym struct {
	deps Deps
	at   timeutil.TimeOfDay
}

func (j *WentToGym) Job() *scheduler.Job {
	return &scheduler.Job{
		Name:       NameWentToGym,
		StartDelay: func(now time.Time) time.Duration { return timeutil.UntilTime(now, j.at) },
		Every:      24 * time.Hour,
		Run:        j.run,
	}
}

func (j *WentToGym) run(ctx context.Context) error {
	now := j.deps.Now()
	kb := ui.YesNoKeyboard(now)
	return j.deps.Cast.ForEachGroup(ctx, NameWentToGym, func(ctx context.Context, g *models.Group) error {
		pending, err := j.deps.Training.PendingToday(ctx, g.ID, now)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		text := fmt.Sprintf("did you hit the gym today, %s?", ui.JoinNames(pending))
		if len(pending) > 1 {
			text = fmt.Sprintf("did you hit the gym today, you bots? %s", ui.JoinNames(pending))
		}
		opt := &transport.SendOptions{ReplyMarkupAdapter: kb}
		_, err = j.deps.Adapter.SendText(ctx, transport.ChatTarget{ChatID: g.ID}, text, opt)
		return err
	})
}

// HandleAnswer records a yes/no reply. Only trainees scheduled for the
// answered date may reply; a duplicate answer is acknowledged but changes
// nothing.
func (j *WentToGym) HandleAnswer(ctx context.Context, cb *transport.Callback, t *models.Trainee, p callback.WentToGym) error {
	log := j.deps.Log.With().Str("job", NameWentToGym).Str("trainee", t.ID).Logger()

	if !t.IsTrainingOn(p.Date.Weekday()) {
		return j.deps.Adapter.AnswerCallback(ctx, cb.ID, "today is not your training day, bot")
	}

	res, err := j.deps.Training.RecordTraining(ctx, t, p.Date, p.Yes, j.deps.Now())
	if errors.Is(err, storage.ErrAlreadyRecorded) {
		return j.deps.Adapter.AnswerCallback(ctx, cb.ID, "already recorded for that day")
	}
	if err != nil {
		return err
	}

	target := transport.ChatTarget{ChatID: cb.ChatID}
	if !p.Yes {
		log.Info().Msg("trainee reported a miss")
		if _, err := j.deps.Adapter.SendText(ctx, target, fmt.Sprintf("a total zero, %s", t.FirstName), nil); err != nil {
			return err
		}
		return j.deps.Adapter.AnswerCallback(ctx, cb.ID, "\U0001F44E")
	}

	log.Info().Int("exp", res.Record.EXPGained).Bool("leveled_up", res.LeveledUp).Msg("trainee reported trained")
	if err := j.announce(ctx, t, res); err != nil {
		log.Error().Err(err).Msg("confirmation broadcast incomplete")
	}
	return j.deps.Adapter.AnswerCallback(ctx, cb.ID, "\U0001F44D")
}

// announce confirms the training in every group the trainee belongs to,
// with level-up lines where a level changed.
func (j *WentToGym) announce(ctx context.Context, t *models.Trainee, res training.Result) error {
	praise := fmt.Sprintf("well done %s, champion!", t.FirstName)
	for _, g := range res.GroupGrants {
		target := transport.ChatTarget{ChatID: g.GroupID}
		if _, err := j.deps.Adapter.SendText(ctx, target, praise, nil); err != nil {
			return err
		}
		if res.LeveledUp {
			text := fmt.Sprintf("%s the %s advanced to level %d!", t.FirstName, ui.Creature(t), t.Level.Number)
			if _, err := j.deps.Adapter.SendText(ctx, target, text, nil); err != nil {
				return err
			}
		}
		if g.LeveledUp {
			text := fmt.Sprintf("the group reached level %d!", g.Level.Number)
			if _, err := j.deps.Adapter.SendText(ctx, target, text, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
