package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"

	"gymbot/internal/callback"
	"gymbot/internal/models"
	"gymbot/internal/storage"
	"gymbot/internal/timeutil"
	"gymbot/internal/transport"
	"gymbot/internal/ui"
)

func (a *App) cmdSelectDays(ctx context.Context, msg *transport.Message, t *models.Trainee) error {
	opt := &transport.SendOptions{ReplyMarkupAdapter: ui.SelectDaysKeyboard(t)}
	return a.reply(ctx, msg, "which days do you train, bot?", opt)
}

// cbSelectDays toggles one day on a personal selection keyboard. The
// token carries the addressed trainee, so someone else's tap is refused
// before anything is written.
func (a *App) cbSelectDays(ctx context.Context, cb *transport.Callback, t *models.Trainee, p callback.SelectDays) error {
	if err := p.Authorize(strconv.FormatInt(cb.FromID, 10)); err != nil {
		if errors.Is(err, callback.ErrNotAddressee) {
			return a.adapter.AnswerCallback(ctx, cb.ID, "you can't pick for others, bot")
		}
		return err
	}

	day := t.DayByName(p.Day)
	if day == nil {
		return a.adapter.AnswerCallback(ctx, cb.ID, "unknown day")
	}
	if err := a.store.SetDaySelected(ctx, t.ID, p.Day, !day.Selected); err != nil {
		return err
	}
	day.Selected = !day.Selected

	ref := transport.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}
	if err := a.adapter.EditReplyMarkup(ctx, ref, ui.SelectDaysKeyboard(t)); err != nil {
		if transport.IsNotModified(err) {
			return a.adapter.AnswerCallback(ctx, cb.ID, "you already changed that somewhere else, space bot")
		}
		return err
	}
	return a.adapter.AnswerCallback(ctx, cb.ID, "selected "+p.Day.String())
}

func (a *App) cmdTrained(ctx context.Context, msg *transport.Message, t *models.Trainee) error {
	now := a.now()
	reported, err := a.training.AlreadyReportedToday(ctx, t.ID, now)
	if err != nil {
		return err
	}
	if reported {
		return a.reply(ctx, msg, "you already said you trained today, bot", nil)
	}

	res, err := a.training.RecordTraining(ctx, t, now, true, now)
	if errors.Is(err, storage.ErrAlreadyRecorded) {
		return a.reply(ctx, msg, "you already said you trained today, bot", nil)
	}
	if err != nil {
		return err
	}

	if err := a.reply(ctx, msg, fmt.Sprintf("a true %s!", ui.Creature(t)), nil); err != nil {
		return err
	}
	if res.LeveledUp {
		for _, g := range res.GroupGrants {
			text := fmt.Sprintf("%s the %s advanced to level %d!", t.FirstName, ui.Creature(t), t.Level.Number)
			if _, err := a.adapter.SendText(ctx, transport.ChatTarget{ChatID: g.GroupID}, text, nil); err != nil {
				a.log.Error().Err(err).Int64("group", g.GroupID).Msg("level-up notice failed")
			}
		}
	}
	return nil
}

func (a *App) cmdMyDays(ctx context.Context, msg *transport.Message, t *models.Trainee) error {
	days := t.SelectedDays()
	if len(days) == 0 {
		opt := &transport.SendOptions{ReplyMarkupAdapter: ui.SelectDaysKeyboard(t)}
		return a.reply(ctx, msg, "you haven't picked training days, bot. treat yourself", opt)
	}
	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, d.String())
	}
	return a.reply(ctx, msg, strings.Join(names, ", "), nil)
}

func (a *App) cmdMyStatistics(ctx context.Context, msg *transport.Message, t *models.Trainee) error {
	st, err := a.training.StatisticsFor(ctx, t.ID)
	if err != nil {
		return err
	}
	total := st.Trained + st.Missed
	pct := 0
	if total > 0 {
		pct = 100 * st.Trained / total
	}
	text := fmt.Sprintf("days trained: %d\ndays you were a zero: %d\nox rate: %d%%",
		st.Trained, st.Missed, pct)
	return a.reply(ctx, msg, text, nil)
}

const rankingLimit = 5

func (a *App) cmdRanking(ctx context.Context, msg *transport.Message, g *models.Group) error {
	if g == nil {
		return a.reply(ctx, msg, "ranking only works in a group chat", nil)
	}
	members, err := a.store.GroupMembers(ctx, g.ID)
	if err != nil {
		return err
	}
	sort.SliceStable(members, func(i, j int) bool {
		li, lj := members[i].Level, members[j].Level
		if li.Number != lj.Number {
			return li.Number > lj.Number
		}
		return li.EXP > lj.EXP
	})
	if len(members) > rankingLimit {
		members = members[:rankingLimit]
	}

	var sb strings.Builder
	for i, m := range members {
		fmt.Fprintf(&sb, "%d. %s level %d (%d exp)\n", i+1, m.FirstName, m.Level.Number, m.Level.EXP)
	}
	return a.reply(ctx, msg, strings.TrimRight(sb.String(), "\n"), nil)
}

const monthRankingLimit = 10

func (a *App) cmdMonthRanking(ctx context.Context, msg *transport.Message, g *models.Group, args []string) error {
	if g == nil {
		return a.reply(ctx, msg, "month ranking only works in a group chat", nil)
	}
	now := a.now()
	month := now.Month()
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > 12 {
			return a.reply(ctx, msg, "that's not a real month, bot", nil)
		}
		month = time.Month(n)
	}

	ranks, err := a.training.MonthRanking(ctx, g.ID, now.Year(), month)
	if err != nil {
		return err
	}
	if len(ranks) > monthRankingLimit {
		ranks = ranks[:monthRankingLimit]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "ranking for %s %d:\n", month, now.Year())
	for i, r := range ranks {
		fmt.Fprintf(&sb, "%d. %s average %.2f (%d/%d)\n", i+1, r.Name, r.Average, r.Trained, r.DaysInMonth)
	}
	return a.reply(ctx, msg, strings.TrimRight(sb.String(), "\n"), nil)
}

// cmdAllTheBots is the group roster, each member with their creature.
func (a *App) cmdAllTheBots(ctx context.Context, msg *transport.Message, g *models.Group) error {
	if g == nil {
		return a.reply(ctx, msg, "that only works in a group chat", nil)
	}
	members, err := a.store.GroupMembers(ctx, g.ID)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return a.reply(ctx, msg, "no bots here yet", nil)
	}
	lines := make([]string, 0, len(members))
	for _, m := range members {
		lines = append(lines, fmt.Sprintf("%s the %s", m.FirstName, ui.Creature(m)))
	}
	return a.reply(ctx, msg, strings.Join(lines, "\n"), nil)
}

// nobodyTrainingMark fills a weekday line nobody picked.
const nobodyTrainingMark = "-"

func (a *App) cmdAllTrainingTrainees(ctx context.Context, msg *transport.Message, g *models.Group) error {
	if g == nil {
		return a.reply(ctx, msg, "that only works in a group chat", nil)
	}
	lines := make([]string, 0, len(timeutil.WeekDays))
	for _, day := range timeutil.WeekDays {
		scheduled, err := a.training.TraineesForWeekday(ctx, g.ID, day)
		if err != nil {
			return err
		}
		names := nobodyTrainingMark
		if len(scheduled) > 0 {
			names = ui.JoinNames(scheduled)
		}
		lines = append(lines, day.String()+": "+names)
	}
	return a.reply(ctx, msg, strings.Join(lines, "\n"), nil)
}

func (a *App) cmdBotStatistics(ctx context.Context, msg *transport.Message, g *models.Group) error {
	if g == nil {
		return a.reply(ctx, msg, "that only works in a group chat", nil)
	}
	text := fmt.Sprintf("the group is level %d (%d exp)", g.Level.Number, g.Level.EXP)
	return a.reply(ctx, msg, text, nil)
}

var motivationQuotes = []string{
	`"The last three or four reps is what makes the muscle grow. This area of pain divides a champion from someone who is not a champion.", Arnold Schwarzenegger`,
	`"Success usually comes to those who are too busy to be looking for it.", Henry David Thoreau`,
	`"All progress takes place outside the comfort zone.", Michael John Bobak`,
	`"If you think lifting is dangerous, try being weak. Being weak is dangerous.", Bret Contreras`,
	`"The only place where success comes before work is in the dictionary.", Vidal Sassoon`,
	`"The clock is ticking. Are you becoming the person you want to be?", Greg Plitt`,
	`"Whether you think you can, or you think you can't, you're right.", Henry Ford`,
	`"The successful warrior is the average man, with laser-like focus.", Bruce Lee`,
	`"You must expect great things of yourself before you can do them.", Michael Jordan`,
	`"Action is the foundational key to all success.", Pablo Picasso`,
	`"Everyone is a bot.", the gym bot`,
}

func (a *App) cmdMotivateMe(ctx context.Context, msg *transport.Message) error {
	return a.reply(ctx, msg, motivationQuotes[rand.IntN(len(motivationQuotes))], nil)
}

func (a *App) cmdSetCreature(ctx context.Context, msg *transport.Message, t *models.Trainee, args []string) error {
	creature := strings.TrimSpace(strings.Join(args, " "))
	if creature == "" {
		return a.reply(ctx, msg, "you didn't say which creature you want to be, bot", nil)
	}
	if err := a.store.SetCreature(ctx, t.ID, creature); err != nil {
		return err
	}
	return a.reply(ctx, msg, fmt.Sprintf("from now on you are a %s, and a bot <3", creature), nil)
}

// cmdAdmin is the operator surface. Argument mistakes go back to the
// operator; non-admins get a brush-off.
func (a *App) cmdAdmin(ctx context.Context, msg *transport.Message, t *models.Trainee, args []string) error {
	admin, err := a.store.IsAdmin(ctx, t.ID)
	if err != nil {
		return err
	}
	if !admin {
		return a.reply(ctx, msg, "hush", nil)
	}

	if len(args) == 0 {
		return a.reply(ctx, msg, "usage: /admin run_task <name> | delete_group <id> | exp_event <multiplier> <duration>", nil)
	}

	switch args[0] {
	case "run_task":
		if len(args) != 2 {
			return a.reply(ctx, msg, "usage: /admin run_task <name>", nil)
		}
		if err := a.runner.RunNow(ctx, args[1]); err != nil {
			return a.reply(ctx, msg, "failed: "+err.Error(), nil)
		}
		return a.reply(ctx, msg, "done", nil)

	case "delete_group":
		if len(args) != 2 {
			return a.reply(ctx, msg, "usage: /admin delete_group <id>", nil)
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return a.reply(ctx, msg, "failed: bad group id", nil)
		}
		if err := a.store.SoftDeleteGroup(ctx, id); err != nil {
			return a.reply(ctx, msg, "failed: "+err.Error(), nil)
		}
		return a.reply(ctx, msg, "done", nil)

	case "exp_event":
		if len(args) != 3 {
			return a.reply(ctx, msg, "usage: /admin exp_event <multiplier> <duration>", nil)
		}
		mult, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return a.reply(ctx, msg, "failed: bad multiplier", nil)
		}
		dur, err := time.ParseDuration(args[2])
		if err != nil || dur <= 0 {
			return a.reply(ctx, msg, "failed: bad duration", nil)
		}
		now := a.now()
		ev, err := a.prog.CreateEvent(ctx, mult, now, now.Add(dur))
		if err != nil {
			return a.reply(ctx, msg, "failed: "+err.Error(), nil)
		}
		text := fmt.Sprintf("done: %gx experience until %s", ev.Multiplier, ev.End.Format("02/01/2006 15:04"))
		return a.reply(ctx, msg, text, nil)
	}
	return a.reply(ctx, msg, "unknown admin action "+args[0], nil)
}
