// Package progression is the experience and leveling engine: it turns a
// base grant into a multiplier-adjusted amount and applies it to trainee
// and group levels through the store.
package progression

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gymbot/internal/models"
	"gymbot/internal/storage"
)

type Service struct {
	store storage.Store
	table models.LevelTable
	log   zerolog.Logger
}

func New(store storage.Store, table models.LevelTable, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		table: table,
		log:   log.With().Str("comp", "progression").Logger(),
	}
}

func (s *Service) Table() models.LevelTable { return s.table }

// ComputeGrant multiplies the base amount by the product of every
// experience event active at now; with none active the multiplier is 1.
// The returned value is what gets persisted and applied, not the base.
func (s *Service) ComputeGrant(ctx context.Context, base int, now time.Time) (int, error) {
	events, err := s.store.ActiveEXPEvents(ctx, now)
	if err != nil {
		return 0, err
	}
	mult := 1.0
	for _, ev := range events {
		mult *= ev.Multiplier
	}
	granted := int(math.Round(float64(base) * mult))
	if len(events) > 0 {
		s.log.Debug().
			Int("base", base).
			Float64("multiplier", mult).
			Int("granted", granted).
			Int("events", len(events)).
			Msg("experience multiplier applied")
	}
	return granted, nil
}

// GrantToTrainee applies an already-adjusted amount to the trainee's
// level and persists it. The trainee's Level field is updated in place so
// callers can render the fresh value. Returns whether a level-up occurred.
func (s *Service) GrantToTrainee(ctx context.Context, t *models.Trainee, amount int) (bool, error) {
	leveled := t.Level.Gain(amount, s.table)
	if err := s.store.SaveTraineeLevel(ctx, t.ID, t.Level); err != nil {
		return false, err
	}
	if leveled {
		s.log.Info().
			Str("trainee", t.ID).
			Int("level", t.Level.Number).
			Msg("trainee leveled up")
	}
	return leveled, nil
}

// GroupGrant reports the outcome of one group's share of a grant.
type GroupGrant struct {
	GroupID   int64
	Level     models.Level
	LeveledUp bool
}

// GrantToGroups applies the same adjusted amount to every active group
// the trainee belongs to.
func (s *Service) GrantToGroups(ctx context.Context, traineeID string, amount int) ([]GroupGrant, error) {
	groups, err := s.store.GroupsWithTrainee(ctx, traineeID)
	if err != nil {
		return nil, err
	}
	out := make([]GroupGrant, 0, len(groups))
	for _, g := range groups {
		leveled := g.Level.Gain(amount, s.table)
		if err := s.store.SaveGroupLevel(ctx, g.ID, g.Level); err != nil {
			return out, err
		}
		out = append(out, GroupGrant{GroupID: g.ID, Level: g.Level, LeveledUp: leveled})
	}
	return out, nil
}

// CreateEvent records a new time-bounded experience multiplier. Events
// are immutable once created.
func (s *Service) CreateEvent(ctx context.Context, multiplier float64, start, end time.Time) (models.EXPEvent, error) {
	if multiplier <= 0 {
		return models.EXPEvent{}, fmt.Errorf("progression: multiplier must be positive, got %v", multiplier)
	}
	if !end.After(start) {
		return models.EXPEvent{}, fmt.Errorf("progression: event end %v is not after start %v", end, start)
	}
	ev := models.EXPEvent{
		ID:         uuid.NewString(),
		Multiplier: multiplier,
		Start:      start,
		End:        end,
	}
	if err := s.store.CreateEXPEvent(ctx, ev); err != nil {
		return models.EXPEvent{}, err
	}
	s.log.Info().
		Float64("multiplier", multiplier).
		Time("start", start).
		Time("end", end).
		Msg("experience event created")
	return ev, nil
}
