// Package bot wires the transport updates to the command and keyboard
// handlers. All collaborators are passed in at construction; handlers
// receive the resolved trainee and group as explicit arguments.
package bot

import (
	"context"
	"errors"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gymbot/internal/callback"
	"gymbot/internal/jobs"
	"gymbot/internal/models"
	"gymbot/internal/progression"
	"gymbot/internal/scheduler"
	"gymbot/internal/storage"
	"gymbot/internal/training"
	"gymbot/internal/transport"
)

// Options carries every collaborator the app needs.
type Options struct {
	Store    storage.Store
	Adapter  transport.Adapter
	Training *training.Service
	Prog     *progression.Service
	Jobs     *jobs.Set
	Runner   *scheduler.Runner
	Log      zerolog.Logger
	Now      func() time.Time

	// UpdateBuffer sizes the inbound update channel. 0 means a default.
	UpdateBuffer int
}

type App struct {
	store    storage.Store
	adapter  transport.Adapter
	training *training.Service
	prog     *progression.Service
	jobs     *jobs.Set
	runner   *scheduler.Runner
	log      zerolog.Logger
	now      func() time.Time

	updates chan transport.Update
	wg      sync.WaitGroup
}

func New(opt Options) *App {
	if opt.Now == nil {
		opt.Now = time.Now
	}
	buf := opt.UpdateBuffer
	if buf <= 0 {
		buf = 128
	}
	return &App{
		store:    opt.Store,
		adapter:  opt.Adapter,
		training: opt.Training,
		prog:     opt.Prog,
		jobs:     opt.Jobs,
		runner:   opt.Runner,
		log:      opt.Log.With().Str("comp", "bot").Logger(),
		now:      opt.Now,
		updates:  make(chan transport.Update, buf),
	}
}

// Run starts the adapter and serves updates until ctx ends.
func (a *App) Run(ctx context.Context) error {
	if err := a.adapter.Start(ctx, a.updates); err != nil {
		return err
	}
	a.log.Info().Msg("bot serving updates")

	for {
		select {
		case <-ctx.Done():
			a.wg.Wait()
			return a.adapter.Stop(context.Background())
		case u := <-a.updates:
			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				a.handle(ctx, u)
			}()
		}
	}
}

func (a *App) handle(ctx context.Context, u transport.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			a.log.Error().
				Any("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("panic in update handler")
		}
	}()

	var err error
	switch u.Kind {
	case transport.UpdateMessage:
		err = a.handleMessage(ctx, u.Message)
	case transport.UpdateCallback:
		err = a.handleCallback(ctx, u.Callback)
	}
	if err != nil {
		a.log.Error().Err(err).Str("kind", string(u.Kind)).Msg("update handler failed")
	}
}

// resolveActors is the context middleware: it loads or lazily creates the
// sending trainee and, for group chats, the group and the membership.
func (a *App) resolveActors(ctx context.Context, chatID, fromID int64, fromName string, isGroup bool) (*models.Trainee, *models.Group, error) {
	id := strconv.FormatInt(fromID, 10)
	t, err := a.store.Trainee(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		t, err = a.store.CreateTrainee(ctx, id, fromName)
		if err == nil {
			a.log.Info().Str("trainee", id).Msg("new trainee registered")
		}
	}
	if err != nil {
		return nil, nil, err
	}

	if !isGroup {
		return t, nil, nil
	}

	g, err := a.store.Group(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		g, err = a.store.CreateGroup(ctx, chatID)
		if err == nil {
			a.log.Info().Int64("group", chatID).Msg("new group registered")
		}
	}
	if err != nil {
		return nil, nil, err
	}

	member, err := a.store.IsGroupMember(ctx, chatID, id)
	if err != nil {
		return nil, nil, err
	}
	if !member {
		if err := a.store.AddGroupMember(ctx, chatID, id); err != nil {
			return nil, nil, err
		}
	}
	return t, g, nil
}

func (a *App) handleMessage(ctx context.Context, msg *transport.Message) error {
	name, args, ok := parseCommand(msg.Text)
	if !ok {
		return nil
	}

	t, g, err := a.resolveActors(ctx, msg.ChatID, msg.FromID, msg.FromName, msg.IsGroup)
	if err != nil {
		return err
	}

	switch name {
	case "select_days":
		return a.cmdSelectDays(ctx, msg, t)
	case "trained":
		return a.cmdTrained(ctx, msg, t)
	case "my_days":
		return a.cmdMyDays(ctx, msg, t)
	case "my_statistics":
		return a.cmdMyStatistics(ctx, msg, t)
	case "ranking":
		return a.cmdRanking(ctx, msg, g)
	case "month_ranking":
		return a.cmdMonthRanking(ctx, msg, g, args)
	case "all_the_bots":
		return a.cmdAllTheBots(ctx, msg, g)
	case "all_training_trainees":
		return a.cmdAllTrainingTrainees(ctx, msg, g)
	case "bot_statistics":
		return a.cmdBotStatistics(ctx, msg, g)
	case "motivate_me":
		return a.cmdMotivateMe(ctx, msg)
	case "set_creature":
		return a.cmdSetCreature(ctx, msg, t, args)
	case "admin":
		return a.cmdAdmin(ctx, msg, t, args)
	}
	return nil
}

func (a *App) handleCallback(ctx context.Context, cb *transport.Callback) error {
	payload, err := callback.Decode(cb.Data)
	if err != nil {
		a.log.Warn().Err(err).Str("data", cb.Data).Msg("undecodable callback token")
		return a.adapter.AnswerCallback(ctx, cb.ID, "")
	}

	t, _, err := a.resolveActors(ctx, cb.ChatID, cb.FromID, cb.FromName, cb.IsGroup)
	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case callback.SelectDays:
		return a.cbSelectDays(ctx, cb, t, p)
	case callback.WentToGym:
		return a.jobs.WentToGym.HandleAnswer(ctx, cb, t, p)
	case callback.NewWeek:
		return a.jobs.NewWeek.HandleToggle(ctx, cb, t, p)
	}
	return nil
}

// parseCommand extracts "/name arg arg" from a message, tolerating the
// "/name@botname" form used in groups.
func parseCommand(text string) (name string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	name = strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return "", nil, false
	}
	return strings.ToLower(name), fields[1:], true
}

// reply quote-replies in the chat the message came from.
func (a *App) reply(ctx context.Context, msg *transport.Message, text string, opt *transport.SendOptions) error {
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	opt.ReplyTo = msg.ID
	_, err := a.adapter.SendText(ctx, transport.ChatTarget{ChatID: msg.ChatID}, text, opt)
	return err
}
