package jobs

import (
	"context"
	"time"

	"gymbot/internal/callback"
	"gymbot/internal/models"
	"gymbot/internal/scheduler"
	"gymbot/internal/timeutil"
	"gymbot/internal/transport"
	"gymbot/internal/ui"
)

const newWeekInvite = "everyone, pick your training days for the coming week " +
	"so you can start working on excuses not to show up"

// NewWeek fires once a week: it clears every member's selection and posts
// the shared day-picker keyboard to each group. HandleToggle serves the
// keyboard for the rest of the week.
type NewWeek struct {
	deps Deps
	day  time.Weekday
	at   timeutil.TimeOfDay
}

func (j *NewWeek) Job() *scheduler.Job {
	return &scheduler.Job{
		Name:       NameNewWeek,
		StartDelay: func(now time.Time) time.Duration { return timeutil.UntilDayAndTime(now, j.day, j.at) },
		Every:      7 * 24 * time.Hour,
		Run:        j.run,
	}
}

func (j *NewWeek) run(ctx context.Context) error {
	return j.deps.Cast.ForEachGroup(ctx, NameNewWeek, func(ctx context.Context, g *models.Group) error {
		if err := j.deps.Training.WeeklyReset(ctx, g.ID); err != nil {
			return err
		}
		kb, err := j.keyboardFor(ctx, g.ID)
		if err != nil {
			return err
		}
		opt := &transport.SendOptions{ReplyMarkupAdapter: kb}
		_, err = j.deps.Adapter.SendText(ctx, transport.ChatTarget{ChatID: g.ID}, newWeekInvite, opt)
		return err
	})
}

// HandleToggle flips one weekday for the responder and refreshes the
// shared keyboard in place. An edit that changes nothing means the
// trainee already flipped the day through another keyboard.
func (j *NewWeek) HandleToggle(ctx context.Context, cb *transport.Callback, t *models.Trainee, p callback.NewWeek) error {
	day := t.DayByName(p.Day)
	if day == nil {
		return j.deps.Adapter.AnswerCallback(ctx, cb.ID, "unknown day")
	}
	if err := j.deps.Store.SetDaySelected(ctx, t.ID, p.Day, !day.Selected); err != nil {
		return err
	}

	kb, err := j.keyboardFor(ctx, cb.ChatID)
	if err != nil {
		return err
	}
	ref := transport.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}
	if err := j.deps.Adapter.EditReplyMarkup(ctx, ref, kb); err != nil {
		if transport.IsNotModified(err) {
			return j.deps.Adapter.AnswerCallback(ctx, cb.ID, "you already changed that somewhere else, space bot")
		}
		return err
	}
	return j.deps.Adapter.AnswerCallback(ctx, cb.ID, "selected "+p.Day.String())
}

// keyboardFor renders the group's current per-day selection state.
func (j *NewWeek) keyboardFor(ctx context.Context, groupID int64) (any, error) {
	members, err := j.deps.Store.GroupMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	byDay := map[time.Weekday][]string{}
	for _, m := range members {
		for _, d := range m.SelectedDays() {
			byDay[d] = append(byDay[d], m.FirstName)
		}
	}
	return ui.NewWeekKeyboard(byDay), nil
}
