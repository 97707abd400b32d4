package storage

import (
	"context"
	"sync"
	"time"

	"gymbot/internal/models"
)

// Memory is a map-backed Store. It backs unit tests and throwaway runs;
// semantics (not-found, duplicate training records, soft-delete) match the
// SQLite backend.
type Memory struct {
	mu       sync.Mutex
	trainees map[string]*models.Trainee
	groups   map[int64]*models.Group
	members  map[int64][]string
	training map[string]models.TrainingDayInfo // traineeID + "|" + dateKey
	events   []models.EXPEvent
	admins   map[string]struct{}
	order    []int64 // group insertion order
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		trainees: map[string]*models.Trainee{},
		groups:   map[int64]*models.Group{},
		members:  map[int64][]string{},
		training: map[string]models.TrainingDayInfo{},
		admins:   map[string]struct{}{},
	}
}

func trainingKey(traineeID string, date time.Time) string {
	return traineeID + "|" + dateKey(date)
}

func cloneTrainee(t *models.Trainee) *models.Trainee {
	cp := *t
	cp.Days = append([]models.Day(nil), t.Days...)
	return &cp
}

func (m *Memory) Close() error { return nil }

// ---- trainees ----

func (m *Memory) Trainee(_ context.Context, id string) (*models.Trainee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trainees[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTrainee(t), nil
}

func (m *Memory) CreateTrainee(_ context.Context, id, firstName string) (*models.Trainee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.trainees[id]; ok {
		return cloneTrainee(t), nil
	}
	t := &models.Trainee{
		ID:        id,
		FirstName: firstName,
		Creature:  models.DefaultCreature,
		Days:      models.WeekDays(),
		Level:     models.NewLevel(),
	}
	m.trainees[id] = t
	return cloneTrainee(t), nil
}

func (m *Memory) SetDaySelected(_ context.Context, traineeID string, day time.Weekday, selected bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trainees[traineeID]
	if !ok {
		return ErrNotFound
	}
	d := t.DayByName(day)
	if d == nil {
		return ErrNotFound
	}
	d.Selected = selected
	return nil
}

func (m *Memory) UnselectAllDays(_ context.Context, traineeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trainees[traineeID]
	if !ok {
		return ErrNotFound
	}
	for i := range t.Days {
		t.Days[i].Selected = false
	}
	return nil
}

func (m *Memory) SetCreature(_ context.Context, traineeID, creature string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trainees[traineeID]
	if !ok {
		return ErrNotFound
	}
	t.Creature = creature
	return nil
}

func (m *Memory) SaveTraineeLevel(_ context.Context, traineeID string, lvl models.Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trainees[traineeID]
	if !ok {
		return ErrNotFound
	}
	t.Level = lvl
	return nil
}

// ---- groups ----

func (m *Memory) Group(_ context.Context, id int64) (*models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *Memory) CreateGroup(_ context.Context, id int64) (*models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.groups[id]; ok {
		cp := *g
		return &cp, nil
	}
	g := &models.Group{ID: id, Level: models.NewLevel()}
	m.groups[id] = g
	m.order = append(m.order, id)
	cp := *g
	return &cp, nil
}

func (m *Memory) ActiveGroups(context.Context) ([]*models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Group
	for _, id := range m.order {
		g := m.groups[id]
		if g == nil || g.Deleted {
			continue
		}
		cp := *g
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) GroupMembers(_ context.Context, groupID int64) ([]*models.Trainee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Trainee
	for _, id := range m.members[groupID] {
		if t, ok := m.trainees[id]; ok {
			out = append(out, cloneTrainee(t))
		}
	}
	return out, nil
}

func (m *Memory) AddGroupMember(_ context.Context, groupID int64, traineeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.members[groupID] {
		if id == traineeID {
			return nil
		}
	}
	m.members[groupID] = append(m.members[groupID], traineeID)
	return nil
}

func (m *Memory) IsGroupMember(_ context.Context, groupID int64, traineeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.members[groupID] {
		if id == traineeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) GroupsWithTrainee(_ context.Context, traineeID string) ([]*models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Group
	for _, gid := range m.order {
		g := m.groups[gid]
		if g == nil || g.Deleted {
			continue
		}
		for _, id := range m.members[gid] {
			if id == traineeID {
				cp := *g
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) SoftDeleteGroup(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.groups[id]; ok {
		g.Deleted = true
	}
	return nil
}

func (m *Memory) SaveGroupLevel(_ context.Context, id int64, lvl models.Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return ErrNotFound
	}
	g.Level = lvl
	return nil
}

// ---- training records ----

func (m *Memory) TrainingInfo(_ context.Context, traineeID string, date time.Time) (*models.TrainingDayInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.training[trainingKey(traineeID, date)]
	if !ok {
		return nil, ErrNotFound
	}
	return &info, nil
}

func (m *Memory) CreateTrainingInfo(_ context.Context, info models.TrainingDayInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := trainingKey(info.TraineeID, info.Date)
	if _, ok := m.training[key]; ok {
		return ErrAlreadyRecorded
	}
	m.training[key] = info
	return nil
}

func (m *Memory) TrainingInfos(_ context.Context, traineeID string) ([]models.TrainingDayInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TrainingDayInfo
	for _, info := range m.training {
		if info.TraineeID == traineeID {
			out = append(out, info)
		}
	}
	return out, nil
}

// ---- experience events ----

func (m *Memory) ActiveEXPEvents(_ context.Context, now time.Time) ([]models.EXPEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.EXPEvent
	for _, ev := range m.events {
		if ev.Active(now) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *Memory) CreateEXPEvent(_ context.Context, ev models.EXPEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

// ---- admins ----

func (m *Memory) IsAdmin(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.admins[id]
	return ok, nil
}

func (m *Memory) CreateAdmin(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admins[id] = struct{}{}
	return nil
}
