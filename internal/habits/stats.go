package habits

import (
	"context"
	"time"

	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/logger"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/utils"
)

// WeeklyTotal is the logged amount of one habit in the current week.
type WeeklyTotal struct {
	Habit models.Habit
	Total float64
	Count int
}

// Over reports whether the weekly limit has been exceeded.
func (w WeeklyTotal) Over() bool {
	return w.Habit.WeeklyLimit != nil && w.Total > *w.Habit.WeeklyLimit
}

// Summary covers the ISO week starting at WeekStart.
type Summary struct {
	WeekStart time.Time
	WeekEnd   time.Time
	Totals    []WeeklyTotal
}

// WeeklySummary totals this week's logs per active habit. Weeks start on
// Monday in loc.
func (s *Service) WeeklySummary(ctx context.Context, loc *time.Location) (Summary, error) {
	if loc == nil {
		loc = time.Local
	}
	sess, err := s.session(ctx)
	if err != nil {
		return Summary{}, err
	}

	start, end := utils.WeekBounds(s.now().In(loc))
	habits, err := s.store.ListHabits(ctx, sess)
	if err != nil {
		logger.Warn("Failed to list habits for stats", "error", err)
		return Summary{}, formError(constants.MsgLoadStatsFailed, err)
	}
	logs, err := s.store.ListHabitLogs(ctx, sess, start)
	if err != nil {
		logger.Warn("Failed to list habit logs", "error", err)
		return Summary{}, formError(constants.MsgLoadStatsFailed, err)
	}

	return Summary{WeekStart: start, WeekEnd: end, Totals: Totals(habits, logs, start, end)}, nil
}

// Totals sums logs in [start, end) for each active habit, in habit order.
func Totals(habits []models.Habit, logs []models.HabitLog, start, end time.Time) []WeeklyTotal {
	index := make(map[string]int, len(habits))
	totals := make([]WeeklyTotal, 0, len(habits))
	for _, h := range habits {
		if !h.Active {
			continue
		}
		index[h.ID] = len(totals)
		totals = append(totals, WeeklyTotal{Habit: h})
	}
	for _, l := range logs {
		if l.LoggedAt.Before(start) || !l.LoggedAt.Before(end) {
			continue
		}
		i, ok := index[l.HabitID]
		if !ok {
			continue
		}
		totals[i].Total += l.Quantity
		totals[i].Count++
	}
	return totals
}
