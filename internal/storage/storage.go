// Package storage persists trainees, groups, training records, experience
// events and admins. Two backends: SQLite for production and an in-memory
// map store for tests.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gymbot/internal/models"
)

var (
	// ErrNotFound is returned for lookups of entities that do not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrAlreadyRecorded is returned when a training record already exists
	// for the same (trainee, date). The backends enforce this with a unique
	// key so a racing duplicate insert is rejected rather than overwriting.
	ErrAlreadyRecorded = errors.New("storage: training already recorded for this date")
)

// Store is the persistence API used by the services. Every mutation is a
// single-entity statement so two features racing on the same flag stay
// atomic at the storage layer.
type Store interface {
	Trainee(ctx context.Context, id string) (*models.Trainee, error)
	CreateTrainee(ctx context.Context, id, firstName string) (*models.Trainee, error)
	SetDaySelected(ctx context.Context, traineeID string, day time.Weekday, selected bool) error
	UnselectAllDays(ctx context.Context, traineeID string) error
	SetCreature(ctx context.Context, traineeID, creature string) error
	SaveTraineeLevel(ctx context.Context, traineeID string, lvl models.Level) error

	Group(ctx context.Context, id int64) (*models.Group, error)
	CreateGroup(ctx context.Context, id int64) (*models.Group, error)
	ActiveGroups(ctx context.Context) ([]*models.Group, error)
	GroupMembers(ctx context.Context, groupID int64) ([]*models.Trainee, error)
	AddGroupMember(ctx context.Context, groupID int64, traineeID string) error
	IsGroupMember(ctx context.Context, groupID int64, traineeID string) (bool, error)
	GroupsWithTrainee(ctx context.Context, traineeID string) ([]*models.Group, error)
	SoftDeleteGroup(ctx context.Context, id int64) error
	SaveGroupLevel(ctx context.Context, id int64, lvl models.Level) error

	TrainingInfo(ctx context.Context, traineeID string, date time.Time) (*models.TrainingDayInfo, error)
	CreateTrainingInfo(ctx context.Context, info models.TrainingDayInfo) error
	TrainingInfos(ctx context.Context, traineeID string) ([]models.TrainingDayInfo, error)

	ActiveEXPEvents(ctx context.Context, now time.Time) ([]models.EXPEvent, error)
	CreateEXPEvent(ctx context.Context, ev models.EXPEvent) error

	IsAdmin(ctx context.Context, id string) (bool, error)
	CreateAdmin(ctx context.Context, id string) error

	Close() error
}

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file
//   - "memory": in-process map store (tests, throwaway runs)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Open initializes the configured store.
func Open(cfg Config, log zerolog.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}

// dateKey is the canonical per-date key used by both backends.
func dateKey(t time.Time) string { return t.Format("2006-01-02") }

func parseDateKey(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
