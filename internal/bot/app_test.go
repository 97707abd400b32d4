package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"gymbot/internal/broadcast"
	"gymbot/internal/jobs"
	"gymbot/internal/models"
	"gymbot/internal/progression"
	"gymbot/internal/scheduler"
	"gymbot/internal/storage"
	"gymbot/internal/training"
	"gymbot/internal/transport"
	"gymbot/pkg/logx"
)

type sentMsg struct {
	ChatID  int64
	Text    string
	ReplyTo int
	Markup  any
}

type fakeAdapter struct {
	mu      sync.Mutex
	sent    []sentMsg
	answers []string
	edits   []transport.MessageRef
	editErr error
}

func (f *fakeAdapter) Start(context.Context, chan<- transport.Update) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                           { return nil }

func (f *fakeAdapter) SendText(_ context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := sentMsg{ChatID: to.ChatID, Text: text}
	if opt != nil {
		m.ReplyTo = opt.ReplyTo
		m.Markup = opt.ReplyMarkupAdapter
	}
	f.sent = append(f.sent, m)
	return transport.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

func (f *fakeAdapter) EditReplyMarkup(_ context.Context, ref transport.MessageRef, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, ref)
	return f.editErr
}

func (f *fakeAdapter) AnswerCallback(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeAdapter) last(t *testing.T) sentMsg {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no message sent")
	}
	return f.sent[len(f.sent)-1]
}

// Monday in the test calendar.
var testNow = time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)

func newApp(t *testing.T) (*App, storage.Store, *fakeAdapter) {
	t.Helper()
	store := storage.NewMemory()
	prog := progression.New(store, models.DefaultLevelTable, logx.Nop())
	train := training.New(store, prog, logx.Nop())
	ad := &fakeAdapter{}
	now := func() time.Time { return testNow }

	set := jobs.New(jobs.Deps{
		Store:    store,
		Adapter:  ad,
		Training: train,
		Prog:     prog,
		Cast:     broadcast.New(store, logx.Nop(), 1000),
		Log:      logx.Nop(),
		Now:      now,
	}, jobs.DefaultTimes())

	runner := scheduler.New(logx.Nop())
	runner.Add(set.SchedulerJobs()...)

	app := New(Options{
		Store:    store,
		Adapter:  ad,
		Training: train,
		Prog:     prog,
		Jobs:     set,
		Runner:   runner,
		Log:      logx.Nop(),
		Now:      now,
	})
	return app, store, ad
}

func groupMsg(text string, fromID int64) *transport.Message {
	return &transport.Message{ID: 1, ChatID: 100, FromID: fromID, FromName: "Taylor", Text: text, IsGroup: true}
}

func TestParseCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text string
		name string
		args []string
		ok   bool
	}{
		{"/trained", "trained", nil, true},
		{"/select_days@gym_bot", "select_days", nil, true},
		{"/admin run_task go_to_gym", "admin", []string{"run_task", "go_to_gym"}, true},
		{"hello there", "", nil, false},
		{"", "", nil, false},
		{"/", "", nil, false},
	}
	for _, tc := range tests {
		name, args, ok := parseCommand(tc.text)
		if ok != tc.ok || name != tc.name || len(args) != len(tc.args) {
			t.Fatalf("parseCommand(%q) = %q %v %v", tc.text, name, args, ok)
		}
	}
}

func TestMessageRegistersActors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	app, store, ad := newApp(t)

	if err := app.handleMessage(ctx, groupMsg("/select_days", 7)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}

	tr, err := store.Trainee(ctx, "7")
	if err != nil {
		t.Fatalf("trainee not created: %v", err)
	}
	if tr.FirstName != "Taylor" {
		t.Fatalf("first name = %q", tr.FirstName)
	}
	if _, err := store.Group(ctx, 100); err != nil {
		t.Fatalf("group not created: %v", err)
	}
	member, err := store.IsGroupMember(ctx, 100, "7")
	if err != nil || !member {
		t.Fatalf("membership not created: %v %v", member, err)
	}

	msg := ad.last(t)
	if msg.Markup == nil || !strings.Contains(msg.Text, "which days") {
		t.Fatalf("reply = %+v, want day keyboard", msg)
	}
}

func TestTrainedCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	app, store, ad := newApp(t)

	if err := app.handleMessage(ctx, groupMsg("/trained", 7)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	// No creature set yet, so the default label shows up in the praise.
	if got := ad.last(t).Text; !strings.Contains(got, models.DefaultCreature) {
		t.Fatalf("reply = %q", got)
	}
	rec, err := store.TrainingInfo(ctx, "7", testNow)
	if err != nil {
		t.Fatalf("TrainingInfo: %v", err)
	}
	if !rec.Trained {
		t.Fatal("record should be trained=true")
	}

	// Second report the same day bounces.
	if err := app.handleMessage(ctx, groupMsg("/trained", 7)); err != nil {
		t.Fatalf("second handleMessage: %v", err)
	}
	if got := ad.last(t).Text; !strings.Contains(got, "already said") {
		t.Fatalf("second reply = %q", got)
	}
}

func TestSelectDaysCallbackAuthorization(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	app, store, ad := newApp(t)

	if _, err := store.CreateTrainee(ctx, "42", "Anna"); err != nil {
		t.Fatalf("CreateTrainee: %v", err)
	}

	// Trainee 43 taps a keyboard addressed to trainee 42.
	cb := &transport.Callback{ID: "cb1", ChatID: 100, FromID: 43, FromName: "Robin", MessageID: 9, IsGroup: true, Data: "select_days 42 Monday"}
	if err := app.handleCallback(ctx, cb); err != nil {
		t.Fatalf("handleCallback: %v", err)
	}
	if got := ad.answers[len(ad.answers)-1]; !strings.Contains(got, "others") {
		t.Fatalf("answer = %q", got)
	}
	anna, _ := store.Trainee(ctx, "42")
	if anna.IsTrainingOn(time.Monday) {
		t.Fatal("foreign tap must not flip the day")
	}

	// The addressee's own tap works.
	cb.FromID = 42
	cb.FromName = "Anna"
	if err := app.handleCallback(ctx, cb); err != nil {
		t.Fatalf("handleCallback: %v", err)
	}
	anna, _ = store.Trainee(ctx, "42")
	if !anna.IsTrainingOn(time.Monday) {
		t.Fatal("day should be selected now")
	}
	if len(ad.edits) != 1 || ad.edits[0].MessageID != 9 {
		t.Fatalf("edits = %v", ad.edits)
	}
}

func TestRankingCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	app, store, ad := newApp(t)

	if _, err := store.CreateGroup(ctx, 100); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	levels := map[string]models.Level{
		"1": {Number: 3, EXP: 2},
		"2": {Number: 5, EXP: 0},
		"3": {Number: 3, EXP: 7},
	}
	for id, lvl := range levels {
		if _, err := store.CreateTrainee(ctx, id, "T"+id); err != nil {
			t.Fatalf("CreateTrainee: %v", err)
		}
		if err := store.AddGroupMember(ctx, 100, id); err != nil {
			t.Fatalf("AddGroupMember: %v", err)
		}
		if err := store.SaveTraineeLevel(ctx, id, lvl); err != nil {
			t.Fatalf("SaveTraineeLevel: %v", err)
		}
	}

	if err := app.handleMessage(ctx, groupMsg("/ranking", 7)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	lines := strings.Split(ad.last(t).Text, "\n")
	if len(lines) != 4 {
		t.Fatalf("ranking lines = %v", lines)
	}
	// Highest level first; equal levels settled by exp.
	if !strings.HasPrefix(lines[0], "1. T2") || !strings.HasPrefix(lines[1], "2. T3") || !strings.HasPrefix(lines[2], "3. T1") {
		t.Fatalf("ranking order wrong: %v", lines)
	}
}

func TestMonthRankingCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	app, store, ad := newApp(t)

	if _, err := store.CreateGroup(ctx, 100); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	for id, name := range map[string]string{"1": "Anna", "2": "Robin"} {
		if _, err := store.CreateTrainee(ctx, id, name); err != nil {
			t.Fatalf("CreateTrainee: %v", err)
		}
		if err := store.AddGroupMember(ctx, 100, id); err != nil {
			t.Fatalf("AddGroupMember: %v", err)
		}
	}
	record := func(id string, day int) {
		t.Helper()
		err := store.CreateTrainingInfo(ctx, models.TrainingDayInfo{
			TraineeID: id,
			Date:      time.Date(2026, time.August, day, 0, 0, 0, 0, time.UTC),
			Trained:   true,
		})
		if err != nil {
			t.Fatalf("CreateTrainingInfo: %v", err)
		}
	}
	record("1", 3)
	record("1", 10)
	record("2", 4)

	if err := app.handleMessage(ctx, groupMsg("/month_ranking", 7)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	lines := strings.Split(ad.last(t).Text, "\n")
	if lines[0] != "ranking for August 2026:" {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "1. Anna") || !strings.Contains(lines[1], "(2/31)") {
		t.Fatalf("top line = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "2. Robin") || !strings.Contains(lines[2], "(1/31)") {
		t.Fatalf("second line = %q", lines[2])
	}

	// A month that is not a month bounces.
	if err := app.handleMessage(ctx, groupMsg("/month_ranking 13", 7)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	if got := ad.last(t).Text; !strings.Contains(got, "not a real month") {
		t.Fatalf("bad month reply = %q", got)
	}

	// An explicit month only counts that month's records.
	if err := app.handleMessage(ctx, groupMsg("/month_ranking 7", 7)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	out := ad.last(t).Text
	if !strings.HasPrefix(out, "ranking for July 2026:") || !strings.Contains(out, "(0/31)") {
		t.Fatalf("july ranking = %q", out)
	}
}

func TestAllTrainingTraineesCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	app, store, ad := newApp(t)

	if _, err := store.CreateGroup(ctx, 100); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	for _, m := range []struct{ id, name string }{{"1", "Anna"}, {"2", "Robin"}} {
		if _, err := store.CreateTrainee(ctx, m.id, m.name); err != nil {
			t.Fatalf("CreateTrainee: %v", err)
		}
		if err := store.AddGroupMember(ctx, 100, m.id); err != nil {
			t.Fatalf("AddGroupMember: %v", err)
		}
	}
	for _, d := range []time.Weekday{time.Monday, time.Thursday} {
		if err := store.SetDaySelected(ctx, "1", d, true); err != nil {
			t.Fatalf("SetDaySelected: %v", err)
		}
	}
	if err := store.SetDaySelected(ctx, "2", time.Monday, true); err != nil {
		t.Fatalf("SetDaySelected: %v", err)
	}

	if err := app.handleMessage(ctx, groupMsg("/all_training_trainees", 7)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	lines := strings.Split(ad.last(t).Text, "\n")
	if len(lines) != 7 {
		t.Fatalf("lines = %v, want one per weekday", lines)
	}
	// Sunday-first week order; empty days carry the dash mark.
	if lines[0] != "Sunday: -" {
		t.Fatalf("sunday line = %q", lines[0])
	}
	if lines[1] != "Monday: Anna, Robin" {
		t.Fatalf("monday line = %q", lines[1])
	}
	if lines[4] != "Thursday: Anna" {
		t.Fatalf("thursday line = %q", lines[4])
	}
}

func TestAllTheBotsCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	app, store, ad := newApp(t)

	if _, err := store.CreateGroup(ctx, 100); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := store.CreateTrainee(ctx, "1", "Anna"); err != nil {
		t.Fatalf("CreateTrainee: %v", err)
	}
	if err := store.AddGroupMember(ctx, 100, "1"); err != nil {
		t.Fatalf("AddGroupMember: %v", err)
	}
	if err := store.SetCreature(ctx, "1", "sea otter"); err != nil {
		t.Fatalf("SetCreature: %v", err)
	}

	if err := app.handleMessage(ctx, groupMsg("/all_the_bots", 7)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	out := ad.last(t).Text
	if !strings.Contains(out, "Anna the sea otter") {
		t.Fatalf("roster = %q", out)
	}
	// The sender registered without a creature and shows the default.
	if !strings.Contains(out, "Taylor the "+models.DefaultCreature) {
		t.Fatalf("roster = %q", out)
	}
}

func TestBotStatisticsCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	app, store, ad := newApp(t)

	if _, err := store.CreateGroup(ctx, 100); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if err := store.SaveGroupLevel(ctx, 100, models.Level{Number: 4, EXP: 7}); err != nil {
		t.Fatalf("SaveGroupLevel: %v", err)
	}

	if err := app.handleMessage(ctx, groupMsg("/bot_statistics", 7)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	if got := ad.last(t).Text; got != "the group is level 4 (7 exp)" {
		t.Fatalf("reply = %q", got)
	}
}

func TestMotivateMeCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	app, _, ad := newApp(t)

	if err := app.handleMessage(ctx, groupMsg("/motivate_me", 7)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	got := ad.last(t).Text
	found := false
	for _, q := range motivationQuotes {
		if got == q {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("reply %q is not one of the quotes", got)
	}
}

func TestSetCreature(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	app, store, ad := newApp(t)

	if err := app.handleMessage(ctx, groupMsg("/set_creature", 7)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	if got := ad.last(t).Text; !strings.Contains(got, "didn't say") {
		t.Fatalf("reply = %q", got)
	}

	if err := app.handleMessage(ctx, groupMsg("/set_creature sea otter", 7)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	tr, _ := store.Trainee(ctx, "7")
	if tr.Creature != "sea otter" {
		t.Fatalf("creature = %q", tr.Creature)
	}
}

func TestAdminCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	app, store, ad := newApp(t)

	// Not an admin yet.
	if err := app.handleMessage(ctx, groupMsg("/admin run_task go_to_gym", 7)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	if got := ad.last(t).Text; got != "hush" {
		t.Fatalf("non-admin reply = %q", got)
	}

	if err := store.CreateAdmin(ctx, "7"); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	// run_task fires the job payload immediately.
	if err := app.handleMessage(ctx, groupMsg("/admin run_task go_to_gym", 7)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	if got := ad.last(t).Text; got != "done" {
		t.Fatalf("run_task reply = %q", got)
	}

	// Unknown task name goes back to the operator.
	if err := app.handleMessage(ctx, groupMsg("/admin run_task nope", 7)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	if got := ad.last(t).Text; !strings.HasPrefix(got, "failed") {
		t.Fatalf("bad task reply = %q", got)
	}

	// exp_event opens a window starting now.
	if err := app.handleMessage(ctx, groupMsg("/admin exp_event 2 48h", 7)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	events, err := store.ActiveEXPEvents(ctx, testNow.Add(time.Hour))
	if err != nil || len(events) != 1 || events[0].Multiplier != 2 {
		t.Fatalf("events = %v, %v", events, err)
	}

	// delete_group drops the group from future broadcasts.
	if _, err := store.CreateGroup(ctx, 555); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if err := app.handleMessage(ctx, groupMsg("/admin delete_group 555", 7)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	g, err := store.Group(ctx, 555)
	if err != nil || !g.Deleted {
		t.Fatalf("group = %+v, %v; want soft-deleted", g, err)
	}
}
