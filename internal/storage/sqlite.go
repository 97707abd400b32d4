package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"gymbot/internal/models"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

func openSQLite(cfg Config, log zerolog.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	s := &sqliteStore{db: db, log: log.With().Str("comp", "storage.sqlite").Logger()}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.log.Debug().Str("path", cfg.Path).Msg("sqlite store opened")
	return s, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ---- trainees ----

func (s *sqliteStore) Trainee(ctx context.Context, id string) (*models.Trainee, error) {
	t := &models.Trainee{ID: id}
	var creature string
	err := s.db.QueryRowContext(ctx,
		`SELECT first_name, creature, level, exp FROM trainees WHERE id = ?`, id).
		Scan(&t.FirstName, &creature, &t.Level.Number, &t.Level.EXP)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Creature = creature
	if t.Creature == "" {
		t.Creature = models.DefaultCreature
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT day, selected FROM trainee_days WHERE trainee_id = ? ORDER BY day`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDay := map[time.Weekday]bool{}
	for rows.Next() {
		var day int
		var selected bool
		if err := rows.Scan(&day, &selected); err != nil {
			return nil, err
		}
		byDay[time.Weekday(day)] = selected
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Materialize in week order regardless of what the table holds.
	t.Days = models.WeekDays()
	for i := range t.Days {
		t.Days[i].Selected = byDay[t.Days[i].Name]
	}
	return t, nil
}

func (s *sqliteStore) CreateTrainee(ctx context.Context, id, firstName string) (*models.Trainee, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO trainees(id, first_name) VALUES(?, ?)
		 ON CONFLICT(id) DO NOTHING`, id, firstName); err != nil {
		return nil, err
	}
	for _, d := range models.WeekDays() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trainee_days(trainee_id, day, selected) VALUES(?, ?, 0)
			 ON CONFLICT(trainee_id, day) DO NOTHING`, id, int(d.Name)); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.Trainee(ctx, id)
}

func (s *sqliteStore) SetDaySelected(ctx context.Context, traineeID string, day time.Weekday, selected bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE trainee_days SET selected = ? WHERE trainee_id = ? AND day = ?`,
		selected, traineeID, int(day))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqliteStore) UnselectAllDays(ctx context.Context, traineeID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE trainee_days SET selected = 0 WHERE trainee_id = ?`, traineeID)
	return err
}

func (s *sqliteStore) SetCreature(ctx context.Context, traineeID, creature string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE trainees SET creature = ? WHERE id = ?`, creature, traineeID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqliteStore) SaveTraineeLevel(ctx context.Context, traineeID string, lvl models.Level) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE trainees SET level = ?, exp = ? WHERE id = ?`,
		lvl.Number, lvl.EXP, traineeID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- groups ----

func (s *sqliteStore) Group(ctx context.Context, id int64) (*models.Group, error) {
	g := &models.Group{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT level, exp, deleted FROM groups WHERE id = ?`, id).
		Scan(&g.Level.Number, &g.Level.EXP, &g.Deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (s *sqliteStore) CreateGroup(ctx context.Context, id int64) (*models.Group, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO groups(id) VALUES(?) ON CONFLICT(id) DO NOTHING`, id); err != nil {
		return nil, err
	}
	return s.Group(ctx, id)
}

func (s *sqliteStore) ActiveGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, level, exp FROM groups WHERE deleted = 0 ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Group
	for rows.Next() {
		g := &models.Group{}
		if err := rows.Scan(&g.ID, &g.Level.Number, &g.Level.EXP); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *sqliteStore) GroupMembers(ctx context.Context, groupID int64) ([]*models.Trainee, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT trainee_id FROM group_members WHERE group_id = ? ORDER BY rowid`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*models.Trainee, 0, len(ids))
	for _, id := range ids {
		t, err := s.Trainee(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *sqliteStore) AddGroupMember(ctx context.Context, groupID int64, traineeID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO group_members(group_id, trainee_id) VALUES(?, ?)
		 ON CONFLICT(group_id, trainee_id) DO NOTHING`, groupID, traineeID)
	return err
}

func (s *sqliteStore) IsGroupMember(ctx context.Context, groupID int64, traineeID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM group_members WHERE group_id = ? AND trainee_id = ?`,
		groupID, traineeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *sqliteStore) GroupsWithTrainee(ctx context.Context, traineeID string) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.level, g.exp FROM groups g
		 JOIN group_members m ON m.group_id = g.id
		 WHERE m.trainee_id = ? AND g.deleted = 0
		 ORDER BY g.rowid`, traineeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Group
	for rows.Next() {
		g := &models.Group{}
		if err := rows.Scan(&g.ID, &g.Level.Number, &g.Level.EXP); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SoftDeleteGroup(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE groups SET deleted = 1 WHERE id = ?`, id)
	return err
}

func (s *sqliteStore) SaveGroupLevel(ctx context.Context, id int64, lvl models.Level) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE groups SET level = ?, exp = ? WHERE id = ?`, lvl.Number, lvl.EXP, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- training records ----

func (s *sqliteStore) TrainingInfo(ctx context.Context, traineeID string, date time.Time) (*models.TrainingDayInfo, error) {
	info := &models.TrainingDayInfo{TraineeID: traineeID}
	var key string
	err := s.db.QueryRowContext(ctx,
		`SELECT date, trained, exp_gained FROM training_day_info
		 WHERE trainee_id = ? AND date = ?`, traineeID, dateKey(date)).
		Scan(&key, &info.Trained, &info.EXPGained)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if info.Date, err = parseDateKey(key); err != nil {
		return nil, err
	}
	return info, nil
}

func (s *sqliteStore) CreateTrainingInfo(ctx context.Context, info models.TrainingDayInfo) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO training_day_info(trainee_id, date, trained, exp_gained)
		 VALUES(?, ?, ?, ?)`,
		info.TraineeID, dateKey(info.Date), info.Trained, info.EXPGained)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrAlreadyRecorded
	}
	return err
}

func (s *sqliteStore) TrainingInfos(ctx context.Context, traineeID string) ([]models.TrainingDayInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, trained, exp_gained FROM training_day_info
		 WHERE trainee_id = ? ORDER BY date`, traineeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TrainingDayInfo
	for rows.Next() {
		info := models.TrainingDayInfo{TraineeID: traineeID}
		var key string
		if err := rows.Scan(&key, &info.Trained, &info.EXPGained); err != nil {
			return nil, err
		}
		if info.Date, err = parseDateKey(key); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// ---- experience events ----

func (s *sqliteStore) ActiveEXPEvents(ctx context.Context, now time.Time) ([]models.EXPEvent, error) {
	ms := now.UnixMilli()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, multiplier, start_at, end_at FROM exp_events
		 WHERE start_at <= ? AND end_at >= ?`, ms, ms)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.EXPEvent
	for rows.Next() {
		var ev models.EXPEvent
		var start, end int64
		if err := rows.Scan(&ev.ID, &ev.Multiplier, &start, &end); err != nil {
			return nil, err
		}
		ev.Start = time.UnixMilli(start)
		ev.End = time.UnixMilli(end)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *sqliteStore) CreateEXPEvent(ctx context.Context, ev models.EXPEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exp_events(id, multiplier, start_at, end_at) VALUES(?, ?, ?, ?)`,
		ev.ID, ev.Multiplier, ev.Start.UnixMilli(), ev.End.UnixMilli())
	return err
}

// ---- admins ----

func (s *sqliteStore) IsAdmin(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM admins WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *sqliteStore) CreateAdmin(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admins(id) VALUES(?) ON CONFLICT(id) DO NOTHING`, id)
	return err
}
