package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"gymbot/internal/bot"
	"gymbot/internal/broadcast"
	"gymbot/internal/config"
	"gymbot/internal/jobs"
	"gymbot/internal/models"
	"gymbot/internal/progression"
	"gymbot/internal/scheduler"
	"gymbot/internal/storage"
	"gymbot/internal/timeutil"
	"gymbot/internal/training"
	"gymbot/internal/transport/telegram"
	"gymbot/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml/json")
	flag.Parse()

	if err := run(cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	// .env is optional; it only feeds the token override below.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	manager := config.NewManager(cfgPath, logx.Nop())
	cfg, err := manager.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if tok := strings.TrimSpace(os.Getenv("GYMBOT_TELEGRAM_TOKEN")); tok != "" {
		cfg.Telegram.Token = tok
	}

	log, err := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	now := func() time.Time { return time.Now().In(loc) }

	busyTimeout, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("storage close failed")
		}
	}()

	for _, id := range cfg.AdminIDs {
		if err := store.CreateAdmin(ctx, id); err != nil {
			return fmt.Errorf("seed admin %s: %w", id, err)
		}
	}

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	prog := progression.New(store, models.DefaultLevelTable, log)
	train := training.New(store, prog, log)
	cast := broadcast.New(store, log, cfg.Broadcast.RatePerSec)

	times, err := resolveTimes(cfg.Jobs)
	if err != nil {
		return err
	}
	set := jobs.New(jobs.Deps{
		Store:    store,
		Adapter:  adapter,
		Training: train,
		Prog:     prog,
		Cast:     cast,
		Log:      log,
		Now:      now,
	}, times)

	runner := scheduler.New(log)
	runner.SetClock(now)
	runner.Add(set.SchedulerJobs()...)
	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	defer runner.Stop()

	go func() {
		if err := manager.Watch(ctx); err != nil {
			log.Error().Err(err).Msg("config watch stopped")
		}
	}()
	go watchLogLevel(ctx, manager, log)

	app := bot.New(bot.Options{
		Store:    store,
		Adapter:  adapter,
		Training: train,
		Prog:     prog,
		Jobs:     set,
		Runner:   runner,
		Log:      log,
		Now:      now,
	})

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Debug().Err(err).Msg("sd_notify skipped")
	}
	log.Info().Str("config", cfgPath).Msg("gymbot started")

	err = app.Run(ctx)
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	log.Info().Msg("gymbot stopped")
	return err
}

// resolveTimes turns the config's time strings into the job schedule,
// keeping the defaults for anything left empty.
func resolveTimes(jc config.JobsConfig) (jobs.Times, error) {
	times := jobs.DefaultTimes()
	set := func(raw string, dst *timeutil.TimeOfDay) error {
		if raw == "" {
			return nil
		}
		t, err := timeutil.ParseTimeOfDay(raw)
		if err != nil {
			return err
		}
		*dst = t
		return nil
	}
	if err := set(jc.GoToGymAt, &times.Morning); err != nil {
		return times, fmt.Errorf("jobs.go_to_gym_at: %w", err)
	}
	if err := set(jc.WentToGymAt, &times.Evening); err != nil {
		return times, fmt.Errorf("jobs.went_to_gym_at: %w", err)
	}
	if err := set(jc.DidNotTrainAt, &times.Sweep); err != nil {
		return times, fmt.Errorf("jobs.did_not_train_at: %w", err)
	}
	if err := set(jc.NewWeekAt, &times.NewWeekTime); err != nil {
		return times, fmt.Errorf("jobs.new_week_at: %w", err)
	}
	if jc.NewWeekDay != "" {
		day, err := timeutil.ParseWeekday(jc.NewWeekDay)
		if err != nil {
			return times, fmt.Errorf("jobs.new_week_day: %w", err)
		}
		times.NewWeekDay = day
	}
	return times, nil
}

// watchLogLevel applies logging.level changes from config reloads.
func watchLogLevel(ctx context.Context, manager *config.Manager, log zerolog.Logger) {
	sub := manager.Subscribe(1)
	defer manager.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			lvl := logx.ParseLevel(cfg.Logging.Level, zerolog.InfoLevel)
			if zerolog.GlobalLevel() != lvl {
				zerolog.SetGlobalLevel(lvl)
				log.Info().Str("level", lvl.String()).Msg("log level changed")
			}
		}
	}
}
