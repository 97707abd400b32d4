// Package training tracks who committed to which weekday, who already
// reported today and the per-date training records. Records are immutable
// and unique per (trainee, date); the store's unique key settles racing
// duplicate reports.
package training

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"gymbot/internal/models"
	"gymbot/internal/progression"
	"gymbot/internal/storage"
	"gymbot/internal/timeutil"
)

// BaseEXP is the unadjusted experience for one confirmed training. Active
// experience events multiply it.
const BaseEXP = 2

type Service struct {
	store storage.Store
	prog  *progression.Service
	log   zerolog.Logger
}

func New(store storage.Store, prog *progression.Service, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		prog:  prog,
		log:   log.With().Str("comp", "training").Logger(),
	}
}

// Result is the outcome of one recorded training.
type Result struct {
	Record      models.TrainingDayInfo
	LeveledUp   bool
	GroupGrants []progression.GroupGrant
}

// RecordTraining writes the per-date record and, when trained is true,
// credits the multiplier-adjusted experience to the trainee and all their
// groups. The record insert happens first so a duplicate report fails with
// storage.ErrAlreadyRecorded before any experience moves.
func (s *Service) RecordTraining(ctx context.Context, t *models.Trainee, date time.Time, trained bool, now time.Time) (Result, error) {
	granted := 0
	if trained {
		var err error
		granted, err = s.prog.ComputeGrant(ctx, BaseEXP, now)
		if err != nil {
			return Result{}, err
		}
	}

	rec := models.TrainingDayInfo{
		TraineeID: t.ID,
		Date:      timeutil.Midnight(date),
		Trained:   trained,
		EXPGained: granted,
	}
	if err := s.store.CreateTrainingInfo(ctx, rec); err != nil {
		return Result{}, err
	}

	res := Result{Record: rec}
	if !trained {
		s.log.Info().Str("trainee", t.ID).Time("date", rec.Date).Msg("missed training recorded")
		return res, nil
	}

	leveled, err := s.prog.GrantToTrainee(ctx, t, granted)
	if err != nil {
		return res, err
	}
	res.LeveledUp = leveled

	grants, err := s.prog.GrantToGroups(ctx, t.ID, granted)
	if err != nil {
		return res, err
	}
	res.GroupGrants = grants

	s.log.Info().
		Str("trainee", t.ID).
		Time("date", rec.Date).
		Int("exp", granted).
		Bool("leveled_up", leveled).
		Int("groups", len(grants)).
		Msg("training recorded")
	return res, nil
}

// AlreadyReportedToday reports whether a trained=true record exists for
// the trainee on the given date. A trained=false record does not count:
// it is written by the nightly sweep, never by the trainee.
func (s *Service) AlreadyReportedToday(ctx context.Context, traineeID string, date time.Time) (bool, error) {
	info, err := s.store.TrainingInfo(ctx, traineeID, date)
	if err != nil {
		if err == storage.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return info.Trained, nil
}

// HasRecordFor reports whether any record exists for the date, trained
// or not.
func (s *Service) HasRecordFor(ctx context.Context, traineeID string, date time.Time) (bool, error) {
	_, err := s.store.TrainingInfo(ctx, traineeID, date)
	if err != nil {
		if err == storage.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// WeeklyReset clears all seven selected flags for every member of the
// group. Running it twice is a no-op the second time.
func (s *Service) WeeklyReset(ctx context.Context, groupID int64) error {
	members, err := s.store.GroupMembers(ctx, groupID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if err := s.store.UnselectAllDays(ctx, m.ID); err != nil {
			return err
		}
	}
	s.log.Info().Int64("group", groupID).Int("members", len(members)).Msg("weekly selection reset")
	return nil
}

// TraineesForWeekday returns the group members committed to the given
// weekday, in membership order.
func (s *Service) TraineesForWeekday(ctx context.Context, groupID int64, day time.Weekday) ([]*models.Trainee, error) {
	members, err := s.store.GroupMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	var out []*models.Trainee
	for _, m := range members {
		if m.IsTrainingOn(day) {
			out = append(out, m)
		}
	}
	return out, nil
}

// PendingToday is today's selection list minus everyone who already
// reported trained. The membership read happens per call, so a
// confirmation that lands between two calls is reflected in the second.
func (s *Service) PendingToday(ctx context.Context, groupID int64, now time.Time) ([]*models.Trainee, error) {
	scheduled, err := s.TraineesForWeekday(ctx, groupID, now.Weekday())
	if err != nil {
		return nil, err
	}
	var out []*models.Trainee
	for _, t := range scheduled {
		reported, err := s.AlreadyReportedToday(ctx, t.ID, now)
		if err != nil {
			return nil, err
		}
		if !reported {
			out = append(out, t)
		}
	}
	return out, nil
}

// MonthRank is one group member's training tally for a calendar month.
// Average is trained days over days in the month, so months of different
// lengths compare fairly.
type MonthRank struct {
	TraineeID   string
	Name        string
	Trained     int
	DaysInMonth int
	Average     float64
}

// MonthRanking tallies every group member's trained days in the given
// month of the given year, best average first. Ties keep membership
// order.
func (s *Service) MonthRanking(ctx context.Context, groupID int64, year int, month time.Month) ([]MonthRank, error) {
	members, err := s.store.GroupMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	days := daysInMonth(year, month)

	ranks := make([]MonthRank, 0, len(members))
	for _, m := range members {
		infos, err := s.store.TrainingInfos(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		trained := 0
		for _, info := range infos {
			if info.Trained && info.Date.Year() == year && info.Date.Month() == month {
				trained++
			}
		}
		ranks = append(ranks, MonthRank{
			TraineeID:   m.ID,
			Name:        m.FirstName,
			Trained:     trained,
			DaysInMonth: days,
			Average:     float64(trained) / float64(days),
		})
	}
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].Trained > ranks[j].Trained })
	return ranks, nil
}

// daysInMonth counts the days via the zeroth day of the next month.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Statistics summarizes a trainee's full history.
type Statistics struct {
	Trained int
	Missed  int
	EXP     int
}

// StatisticsFor aggregates every record of the trainee.
func (s *Service) StatisticsFor(ctx context.Context, traineeID string) (Statistics, error) {
	infos, err := s.store.TrainingInfos(ctx, traineeID)
	if err != nil {
		return Statistics{}, err
	}
	var st Statistics
	for _, info := range infos {
		if info.Trained {
			st.Trained++
		} else {
			st.Missed++
		}
		st.EXP += info.EXPGained
	}
	return st, nil
}
