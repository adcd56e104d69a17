// Package habits implements the habit screens' behavior on top of a
// session provider and a habit store.
package habits

import (
	"context"
	"errors"
	"time"

	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/logger"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/storage"
	"github.com/julianstephens/tally/internal/validation"
)

// Sessions yields the current session, or nil when signed out.
type Sessions interface {
	Current(ctx context.Context) (*models.Session, error)
}

// Service runs habit operations for the signed-in user.
type Service struct {
	sessions Sessions
	store    storage.HabitStore
	now      func() time.Time
}

// NewService returns a Service.
func NewService(sessions Sessions, store storage.HabitStore) *Service {
	return &Service{sessions: sessions, store: store, now: time.Now}
}

// SaveRequest is a submitted habit form. An empty ID creates a habit.
type SaveRequest struct {
	ID    string
	Input validation.HabitInput
	// Archived is the local archive toggle; ignored on create.
	Archived bool
}

func (s *Service) session(ctx context.Context) (models.Session, error) {
	sess, err := s.sessions.Current(ctx)
	if err != nil {
		logger.Warn("Session lookup failed", "error", err)
		return models.Session{}, formError(constants.MsgLoginRequired, err)
	}
	if sess == nil {
		return models.Session{}, formError(constants.MsgLoginRequired, nil)
	}
	return *sess, nil
}

// List returns every habit of the user, oldest first.
func (s *Service) List(ctx context.Context) ([]models.Habit, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	habits, err := s.store.ListHabits(ctx, sess)
	if err != nil {
		logger.Warn("Failed to list habits", "error", err)
		return nil, formError(constants.MsgLoadHabitsFailed, err)
	}
	return habits, nil
}

// Get loads one habit for editing.
func (s *Service) Get(ctx context.Context, id string) (models.Habit, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return models.Habit{}, err
	}
	h, err := s.store.GetHabit(ctx, sess, id)
	if err != nil {
		logger.Warn("Failed to load habit", "id", id, "error", err)
		return models.Habit{}, formError(constants.MsgLoadHabitFailed, err)
	}
	return h, nil
}

// Save validates req and creates or updates the habit. Input problems and
// duplicate names are reported before any write is attempted.
func (s *Service) Save(ctx context.Context, req SaveRequest) (models.Habit, error) {
	in, err := validation.ValidateHabit(req.Input)
	if err != nil {
		var p *validation.Problem
		if errors.As(err, &p) {
			return models.Habit{}, &FormError{Field: p.Field, Message: p.Message}
		}
		return models.Habit{}, err
	}

	sess, err := s.session(ctx)
	if err != nil {
		return models.Habit{}, err
	}

	existing, err := s.store.ListHabits(ctx, sess)
	if err != nil {
		logger.Warn("Duplicate check failed", "error", err)
		return models.Habit{}, formError(constants.MsgSaveHabitFailed, err)
	}
	if validation.HasDuplicateName(existing, in.Name, req.ID) {
		return models.Habit{}, &FormError{Field: validation.FieldName, Message: constants.MsgDuplicateName}
	}

	if req.ID == "" {
		h, err := s.store.InsertHabit(ctx, sess, models.NewHabit{
			UserID:          sess.User.ID,
			Name:            in.Name,
			Unit:            in.Unit,
			DefaultQuantity: in.DefaultQuantity,
			WeeklyLimit:     in.WeeklyLimit,
			Active:          true,
		})
		if err != nil {
			return models.Habit{}, writeError(err, constants.MsgSaveHabitFailed)
		}
		logger.Info("Habit created", "id", h.ID)
		return h, nil
	}

	h, err := s.store.UpdateHabit(ctx, sess, req.ID, models.HabitUpdate{
		Name:            in.Name,
		DefaultQuantity: in.DefaultQuantity,
		WeeklyLimit:     in.WeeklyLimit,
		Active:          !req.Archived,
	})
	if err != nil {
		return models.Habit{}, writeError(err, constants.MsgSaveChangesFailed)
	}
	logger.Info("Habit updated", "id", h.ID, "active", h.Active)
	return h, nil
}

func writeError(err error, fallback string) error {
	if storage.IsDuplicate(err) {
		return &FormError{Field: validation.FieldName, Message: constants.MsgDuplicateName, Err: err}
	}
	logger.Warn("Habit write failed", "error", err)
	return formError(fallback, err)
}

// SetActive archives or restores a habit without touching its other fields.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (models.Habit, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return models.Habit{}, err
	}
	h, err := s.store.GetHabit(ctx, sess, id)
	if err != nil {
		return models.Habit{}, formError(constants.MsgLoadHabitFailed, err)
	}
	h, err = s.store.UpdateHabit(ctx, sess, id, models.HabitUpdate{
		Name:            h.Name,
		DefaultQuantity: h.DefaultQuantity,
		WeeklyLimit:     h.WeeklyLimit,
		Active:          active,
	})
	if err != nil {
		return models.Habit{}, writeError(err, constants.MsgSaveChangesFailed)
	}
	return h, nil
}

// Delete removes the habit and its logs.
func (s *Service) Delete(ctx context.Context, id string) error {
	sess, err := s.session(ctx)
	if err != nil {
		return err
	}
	if err := s.store.DeleteHabit(ctx, sess, id); err != nil {
		logger.Warn("Failed to delete habit", "id", id, "error", err)
		return formError(constants.MsgDeleteHabitFailed, err)
	}
	logger.Info("Habit deleted", "id", id)
	return nil
}

// LogQuantity is the amount recorded when none is given.
func LogQuantity(h models.Habit) float64 {
	if h.DefaultQuantity != nil && *h.DefaultQuantity > 0 {
		return *h.DefaultQuantity
	}
	return constants.DefaultLogQuantity
}

// Log records one occurrence of h. A nil quantity uses LogQuantity.
func (s *Service) Log(ctx context.Context, h models.Habit, quantity *float64) (models.HabitLog, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return models.HabitLog{}, err
	}
	q := LogQuantity(h)
	if quantity != nil {
		q = *quantity
	}
	entry, err := s.store.InsertHabitLog(ctx, sess, models.NewHabitLog{
		HabitID:  h.ID,
		Quantity: q,
		LoggedAt: s.now(),
	})
	if err != nil {
		logger.Warn("Failed to log habit", "id", h.ID, "error", err)
		msg := constants.MsgLogHabitFailed
		var se *storage.Error
		if (storage.IsInvalid(err) || storage.IsNotFound(err)) && errors.As(err, &se) {
			msg = se.UserMessage()
		}
		return models.HabitLog{}, formError(msg, err)
	}
	return entry, nil
}

// SyncProfile records the client's timezone for the session user.
func (s *Service) SyncProfile(ctx context.Context, sess models.Session, timezone string) error {
	return s.store.UpsertProfile(ctx, sess, models.Profile{ID: sess.User.ID, Timezone: timezone})
}
