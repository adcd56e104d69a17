package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/storage"
	"github.com/julianstephens/tally/internal/utils"
)

const habitColumns = "id, user_id, name, unit, default_quantity, weekly_limit, active, created_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHabit(row rowScanner) (models.Habit, error) {
	var h models.Habit
	var defaultQty, weeklyLimit sql.NullFloat64
	var createdAt timestamp
	if err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Unit, &defaultQty, &weeklyLimit, &h.Active, &createdAt); err != nil {
		return models.Habit{}, err
	}
	h.DefaultQuantity = nullFloat(defaultQty)
	h.WeeklyLimit = nullFloat(weeklyLimit)
	h.CreatedAt = createdAt.Time
	return h, nil
}

func (s *Store) ListHabits(ctx context.Context, session models.Session) ([]models.Habit, error) {
	user, err := s.authorize(ctx, session)
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, s.db,
		"SELECT "+habitColumns+" FROM habits WHERE user_id = ? ORDER BY created_at, id", user.ID)
	if err != nil {
		return nil, s.classify(err, "")
	}
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, s.classify(err, "")
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify(err, "")
	}
	return habits, nil
}

func (s *Store) GetHabit(ctx context.Context, session models.Session, id string) (models.Habit, error) {
	user, err := s.authorize(ctx, session)
	if err != nil {
		return models.Habit{}, err
	}
	return s.getHabit(ctx, s.db, user.ID, id)
}

func (s *Store) getHabit(ctx context.Context, q querier, userID, id string) (models.Habit, error) {
	h, err := scanHabit(s.queryRow(ctx, q,
		"SELECT "+habitColumns+" FROM habits WHERE id = ? AND user_id = ?", id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Habit{}, storage.NewError(storage.KindNotFound, storage.MsgHabitNotFound, err)
	}
	if err != nil {
		return models.Habit{}, s.classify(err, "")
	}
	return h, nil
}

func (s *Store) InsertHabit(ctx context.Context, session models.Session, habit models.NewHabit) (models.Habit, error) {
	user, err := s.authorize(ctx, session)
	if err != nil {
		return models.Habit{}, err
	}
	if habit.UserID != "" && habit.UserID != user.ID {
		return models.Habit{}, storage.NewError(storage.KindUnauthorized, storage.MsgRowLevelSecurity, nil)
	}
	name := strings.TrimSpace(habit.Name)
	unit := strings.TrimSpace(habit.Unit)
	if name == "" || unit == "" {
		return models.Habit{}, storage.NewError(storage.KindInvalid, "name and unit must not be empty", nil)
	}

	h := models.Habit{
		ID:              uuid.NewString(),
		UserID:          user.ID,
		Name:            name,
		Unit:            unit,
		DefaultQuantity: habit.DefaultQuantity,
		WeeklyLimit:     habit.WeeklyLimit,
		Active:          habit.Active,
		CreatedAt:       s.now(),
	}
	_, err = s.exec(ctx, s.db,
		"INSERT INTO habits ("+habitColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		h.ID, h.UserID, h.Name, h.Unit, h.DefaultQuantity, h.WeeklyLimit, h.Active, timeArg(h.CreatedAt))
	if err != nil {
		return models.Habit{}, s.classify(err, storage.MsgHabitNameTaken)
	}
	return h, nil
}

func (s *Store) UpdateHabit(ctx context.Context, session models.Session, id string, update models.HabitUpdate) (models.Habit, error) {
	user, err := s.authorize(ctx, session)
	if err != nil {
		return models.Habit{}, err
	}
	name := strings.TrimSpace(update.Name)
	if name == "" {
		return models.Habit{}, storage.NewError(storage.KindInvalid, "name must not be empty", nil)
	}

	res, err := s.exec(ctx, s.db,
		"UPDATE habits SET name = ?, default_quantity = ?, weekly_limit = ?, active = ? WHERE id = ? AND user_id = ?",
		name, update.DefaultQuantity, update.WeeklyLimit, update.Active, id, user.ID)
	if err != nil {
		return models.Habit{}, s.classify(err, storage.MsgHabitNameTaken)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Habit{}, storage.NewError(storage.KindNotFound, storage.MsgHabitNotFound, nil)
	}
	return s.getHabit(ctx, s.db, user.ID, id)
}

func (s *Store) DeleteHabit(ctx context.Context, session models.Session, id string) error {
	user, err := s.authorize(ctx, session)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.exec(ctx, tx, "DELETE FROM habit_logs WHERE habit_id = ? AND user_id = ?", id, user.ID); err != nil {
			return s.classify(err, "")
		}
		res, err := s.exec(ctx, tx, "DELETE FROM habits WHERE id = ? AND user_id = ?", id, user.ID)
		if err != nil {
			return s.classify(err, "")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return storage.NewError(storage.KindNotFound, storage.MsgHabitNotFound, nil)
		}
		return nil
	})
}

func (s *Store) UpsertProfile(ctx context.Context, session models.Session, profile models.Profile) error {
	user, err := s.authorize(ctx, session)
	if err != nil {
		return err
	}
	if profile.ID == "" {
		profile.ID = user.ID
	}
	if profile.ID != user.ID {
		return storage.NewError(storage.KindUnauthorized, storage.MsgRowLevelSecurity, nil)
	}
	if profile.Timezone == "" || profile.Timezone == "Local" || !utils.ValidateTimezone(profile.Timezone) {
		return storage.NewError(storage.KindInvalid, storage.MsgInvalidTimezone, nil)
	}
	_, err = s.exec(ctx, s.db, `
		INSERT INTO profiles (id, timezone, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET timezone = excluded.timezone, updated_at = excluded.updated_at`,
		profile.ID, profile.Timezone, timeArg(s.now()))
	return s.classify(err, "")
}

func (s *Store) InsertHabitLog(ctx context.Context, session models.Session, log models.NewHabitLog) (models.HabitLog, error) {
	user, err := s.authorize(ctx, session)
	if err != nil {
		return models.HabitLog{}, err
	}
	if !(log.Quantity > 0) {
		return models.HabitLog{}, storage.NewError(storage.KindInvalid, storage.MsgQuantityPositive, nil)
	}

	entry := models.HabitLog{
		ID:       uuid.NewString(),
		HabitID:  log.HabitID,
		UserID:   user.ID,
		Quantity: log.Quantity,
		LoggedAt: log.LoggedAt.UTC().Truncate(time.Microsecond),
	}
	if log.LoggedAt.IsZero() {
		entry.LoggedAt = s.now()
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		habit, err := s.getHabit(ctx, tx, user.ID, log.HabitID)
		if err != nil {
			return err
		}
		if !habit.Active {
			return storage.NewError(storage.KindInvalid, storage.MsgHabitArchived, nil)
		}
		_, err = s.exec(ctx, tx,
			"INSERT INTO habit_logs (id, habit_id, user_id, quantity, logged_at) VALUES (?, ?, ?, ?, ?)",
			entry.ID, entry.HabitID, entry.UserID, entry.Quantity, timeArg(entry.LoggedAt))
		return s.classify(err, "")
	})
	if err != nil {
		return models.HabitLog{}, err
	}
	return entry, nil
}

func (s *Store) ListHabitLogs(ctx context.Context, session models.Session, since time.Time) ([]models.HabitLog, error) {
	user, err := s.authorize(ctx, session)
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, s.db, `
		SELECT id, habit_id, user_id, quantity, logged_at FROM habit_logs
		WHERE user_id = ? AND logged_at >= ? ORDER BY logged_at, id`, user.ID, timeArg(since))
	if err != nil {
		return nil, s.classify(err, "")
	}
	defer rows.Close()

	logs := []models.HabitLog{}
	for rows.Next() {
		var l models.HabitLog
		var loggedAt timestamp
		if err := rows.Scan(&l.ID, &l.HabitID, &l.UserID, &l.Quantity, &loggedAt); err != nil {
			return nil, s.classify(err, "")
		}
		l.LoggedAt = loggedAt.Time
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify(err, "")
	}
	return logs, nil
}
