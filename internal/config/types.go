// Package config loads the bot configuration from YAML or JSON and
// watches the file for changes. Unknown keys are rejected so typos are
// caught at load time, not discovered in production as silently-ignored
// settings.
package config

import (
	"fmt"
	"strings"
	"time"

	"gymbot/internal/timeutil"
)

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Jobs      JobsConfig      `json:"jobs"`
	Broadcast BroadcastConfig `json:"broadcast"`

	// Timezone for job schedules and training dates (IANA name).
	// Empty means the system local zone.
	Timezone string `json:"timezone,omitempty"`

	// AdminIDs are seeded into storage at startup.
	AdminIDs []string `json:"admin_ids,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// JobsConfig carries the firing times as "HH:MM" or "HH:MM:SS" strings.
// Changes picked up through a reload apply from the next process start;
// armed timers are not re-computed mid-flight.
type JobsConfig struct {
	GoToGymAt     string `json:"go_to_gym_at,omitempty"`
	WentToGymAt   string `json:"went_to_gym_at,omitempty"`
	DidNotTrainAt string `json:"did_not_train_at,omitempty"`
	NewWeekDay    string `json:"new_week_day,omitempty"`
	NewWeekAt     string `json:"new_week_at,omitempty"`
}

type BroadcastConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

// Validate checks everything that can be checked without hitting the
// network. It is also the reload validator, so a broken edit never
// replaces a good running config.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}
	for path, raw := range map[string]string{
		"jobs.go_to_gym_at":     c.Jobs.GoToGymAt,
		"jobs.went_to_gym_at":   c.Jobs.WentToGymAt,
		"jobs.did_not_train_at": c.Jobs.DidNotTrainAt,
		"jobs.new_week_at":      c.Jobs.NewWeekAt,
	} {
		if raw == "" {
			continue
		}
		if _, err := timeutil.ParseTimeOfDay(raw); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if c.Jobs.NewWeekDay != "" {
		if _, err := timeutil.ParseWeekday(c.Jobs.NewWeekDay); err != nil {
			return fmt.Errorf("jobs.new_week_day: %w", err)
		}
	}
	if c.Broadcast.RatePerSec < 0 {
		return fmt.Errorf("broadcast.rate_per_sec must be >= 0")
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
