package habits

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/storage"
	"github.com/julianstephens/tally/internal/validation"
)

type staticSessions struct {
	session *models.Session
	err     error
}

func (s staticSessions) Current(ctx context.Context) (*models.Session, error) {
	return s.session, s.err
}

var testSession = &models.Session{AccessToken: "token", User: models.User{ID: "user-1", Email: "ada@example.com"}}

// memStore is a HabitStore that records calls and can be told to fail.
type memStore struct {
	mu       sync.Mutex
	calls    int
	habits   []models.Habit
	logs     []models.HabitLog
	profiles map[string]models.Profile
	seq      int

	listErr   error
	insertErr error
	updateErr error
	deleteErr error
	logErr    error
}

func newMemStore() *memStore {
	return &memStore{profiles: map[string]models.Profile{}}
}

func (m *memStore) call() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *memStore) ListHabits(ctx context.Context, s models.Session) ([]models.Habit, error) {
	m.call()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]models.Habit(nil), m.habits...), nil
}

func (m *memStore) GetHabit(ctx context.Context, s models.Session, id string) (models.Habit, error) {
	m.call()
	for _, h := range m.habits {
		if h.ID == id {
			return h, nil
		}
	}
	return models.Habit{}, storage.NewError(storage.KindNotFound, storage.MsgHabitNotFound, nil)
}

func (m *memStore) InsertHabit(ctx context.Context, s models.Session, h models.NewHabit) (models.Habit, error) {
	m.call()
	if m.insertErr != nil {
		return models.Habit{}, m.insertErr
	}
	m.seq++
	out := models.Habit{
		ID:              fmt.Sprintf("h%d", m.seq),
		UserID:          h.UserID,
		Name:            h.Name,
		Unit:            h.Unit,
		DefaultQuantity: h.DefaultQuantity,
		WeeklyLimit:     h.WeeklyLimit,
		Active:          h.Active,
		CreatedAt:       time.Unix(int64(m.seq), 0),
	}
	m.habits = append(m.habits, out)
	return out, nil
}

func (m *memStore) UpdateHabit(ctx context.Context, s models.Session, id string, u models.HabitUpdate) (models.Habit, error) {
	m.call()
	if m.updateErr != nil {
		return models.Habit{}, m.updateErr
	}
	for i, h := range m.habits {
		if h.ID == id {
			h.Name, h.DefaultQuantity, h.WeeklyLimit, h.Active = u.Name, u.DefaultQuantity, u.WeeklyLimit, u.Active
			m.habits[i] = h
			return h, nil
		}
	}
	return models.Habit{}, storage.NewError(storage.KindNotFound, storage.MsgHabitNotFound, nil)
}

func (m *memStore) DeleteHabit(ctx context.Context, s models.Session, id string) error {
	m.call()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for i, h := range m.habits {
		if h.ID == id {
			m.habits = append(m.habits[:i], m.habits[i+1:]...)
			return nil
		}
	}
	return storage.NewError(storage.KindNotFound, storage.MsgHabitNotFound, nil)
}

func (m *memStore) UpsertProfile(ctx context.Context, s models.Session, p models.Profile) error {
	m.call()
	m.profiles[p.ID] = p
	return nil
}

func (m *memStore) InsertHabitLog(ctx context.Context, s models.Session, l models.NewHabitLog) (models.HabitLog, error) {
	m.call()
	if m.logErr != nil {
		return models.HabitLog{}, m.logErr
	}
	m.seq++
	out := models.HabitLog{ID: fmt.Sprintf("l%d", m.seq), HabitID: l.HabitID, UserID: s.User.ID, Quantity: l.Quantity, LoggedAt: l.LoggedAt}
	m.logs = append(m.logs, out)
	return out, nil
}

func (m *memStore) ListHabitLogs(ctx context.Context, s models.Session, since time.Time) ([]models.HabitLog, error) {
	m.call()
	var out []models.HabitLog
	for _, l := range m.logs {
		if !l.LoggedAt.Before(since) {
			out = append(out, l)
		}
	}
	return out, nil
}

func newTestService(store *memStore) *Service {
	return NewService(staticSessions{session: testSession}, store)
}

func wantFormError(t *testing.T, err error, msg string) *FormError {
	t.Helper()
	var fe *FormError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FormError", err)
	}
	if fe.Message != msg {
		t.Fatalf("message = %q, want %q", fe.Message, msg)
	}
	return fe
}

func TestSaveValidationMakesNoBackendCalls(t *testing.T) {
	inputs := []struct {
		in  validation.HabitInput
		msg string
	}{
		{in: validation.HabitInput{Name: "   ", Unit: "cups"}, msg: constants.MsgNameAndUnitRequired},
		{in: validation.HabitInput{Name: "Coffee", Unit: " "}, msg: constants.MsgNameAndUnitRequired},
		{in: validation.HabitInput{Name: "Coffee", Unit: "cups", DefaultQuantity: "lots"}, msg: constants.MsgDefaultQuantityNumeric},
		{in: validation.HabitInput{Name: "Coffee", Unit: "cups", WeeklyLimit: "some"}, msg: constants.MsgWeeklyLimitNumeric},
	}

	for _, tt := range inputs {
		store := newMemStore()
		svc := newTestService(store)
		_, err := svc.Save(context.Background(), SaveRequest{Input: tt.in})
		wantFormError(t, err, tt.msg)
		if store.calls != 0 {
			t.Errorf("Save(%+v) made %d backend calls, want 0", tt.in, store.calls)
		}
	}
}

func TestSaveRequiresSession(t *testing.T) {
	store := newMemStore()
	svc := NewService(staticSessions{}, store)
	_, err := svc.Save(context.Background(), SaveRequest{Input: validation.HabitInput{Name: "Coffee", Unit: "cups"}})
	wantFormError(t, err, constants.MsgLoginRequired)
	if store.calls != 0 {
		t.Errorf("made %d backend calls without a session", store.calls)
	}

	svc = NewService(staticSessions{err: errors.New("keyring locked")}, store)
	_, err = svc.Save(context.Background(), SaveRequest{Input: validation.HabitInput{Name: "Coffee", Unit: "cups"}})
	wantFormError(t, err, constants.MsgLoginRequired)
}

func TestSaveCreatesAndRejectsDuplicate(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	h, err := svc.Save(ctx, SaveRequest{Input: validation.HabitInput{Name: "Coffee", Unit: "cups", DefaultQuantity: "1"}})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !h.Active || h.UserID != "user-1" || h.Name != "Coffee" || *h.DefaultQuantity != 1 {
		t.Errorf("Save() = %+v", h)
	}

	_, err = svc.Save(ctx, SaveRequest{Input: validation.HabitInput{Name: "coffee ", Unit: "cups"}})
	fe := wantFormError(t, err, constants.MsgDuplicateName)
	if fe.Field != validation.FieldName {
		t.Errorf("Field = %q, want name", fe.Field)
	}
	if len(store.habits) != 1 {
		t.Errorf("store has %d habits, want 1", len(store.habits))
	}
}

func TestSaveEdit(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	coffee, _ := svc.Save(ctx, SaveRequest{Input: validation.HabitInput{Name: "Coffee", Unit: "cups"}})
	if _, err := svc.Save(ctx, SaveRequest{Input: validation.HabitInput{Name: "Running", Unit: "km"}}); err != nil {
		t.Fatalf("Save(Running) error = %v", err)
	}

	// Own name with different case is fine.
	h, err := svc.Save(ctx, SaveRequest{ID: coffee.ID, Input: validation.HabitInput{Name: "COFFEE", Unit: "ignored", WeeklyLimit: "14"}})
	if err != nil {
		t.Fatalf("Save(edit own name) error = %v", err)
	}
	if h.Name != "COFFEE" || h.Unit != "cups" || *h.WeeklyLimit != 14 {
		t.Errorf("edited habit = %+v", h)
	}

	_, err = svc.Save(ctx, SaveRequest{ID: coffee.ID, Input: validation.HabitInput{Name: " running", Unit: "cups"}})
	wantFormError(t, err, constants.MsgDuplicateName)
}

func TestSaveArchiveAndRestore(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	h, _ := svc.Save(ctx, SaveRequest{Input: validation.HabitInput{Name: "Coffee", Unit: "cups"}})
	h, err := svc.Save(ctx, SaveRequest{ID: h.ID, Input: validation.HabitInput{Name: h.Name, Unit: h.Unit}, Archived: true})
	if err != nil || h.Active {
		t.Fatalf("archive = %+v, %v", h, err)
	}

	habits, _ := svc.List(ctx)
	if items := ListItems(habits, false); len(items) != 1 || items[0].Kind != ItemAdd {
		t.Errorf("normal list = %+v, want only the add row", items)
	}
	if items := ListItems(habits, true); len(items) != 2 || items[0].Tag != TagArchived {
		t.Errorf("manage list = %+v, want archived row", items)
	}

	h, err = svc.SetActive(ctx, h.ID, true)
	if err != nil || !h.Active {
		t.Fatalf("SetActive(true) = %+v, %v", h, err)
	}
	habits, _ = svc.List(ctx)
	if items := ListItems(habits, false); len(items) != 2 || items[0].Habit.ID != h.ID {
		t.Errorf("normal list after restore = %+v", items)
	}
}

func TestSaveBackendErrors(t *testing.T) {
	dup := storage.NewError(storage.KindDuplicate, storage.MsgHabitNameTaken, nil)
	boom := storage.NewError(storage.KindInternal, "disk full", nil)

	tests := []struct {
		name   string
		setup  func(*memStore)
		editID bool
		want   string
	}{
		{name: "scan fails", setup: func(m *memStore) { m.listErr = boom }, want: constants.MsgSaveHabitFailed},
		{name: "insert duplicate", setup: func(m *memStore) { m.insertErr = dup }, want: constants.MsgDuplicateName},
		{name: "insert fails", setup: func(m *memStore) { m.insertErr = boom }, want: constants.MsgSaveHabitFailed},
		{name: "update duplicate", setup: func(m *memStore) { m.updateErr = dup }, editID: true, want: constants.MsgDuplicateName},
		{name: "update fails", setup: func(m *memStore) { m.updateErr = boom }, editID: true, want: constants.MsgSaveChangesFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.habits = []models.Habit{{ID: "h0", Name: "Tea", Unit: "cups", Active: true}}
			tt.setup(store)
			req := SaveRequest{Input: validation.HabitInput{Name: "Coffee", Unit: "cups"}}
			if tt.editID {
				req.ID = "h0"
			}
			_, err := newTestService(store).Save(context.Background(), req)
			fe := wantFormError(t, err, tt.want)
			if fe.Err == nil {
				t.Error("FormError lost the backend cause")
			}
		})
	}
}

func TestListFailure(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("connection refused")
	_, err := newTestService(store).List(context.Background())
	wantFormError(t, err, constants.MsgLoadHabitsFailed)
}

func TestGetFailure(t *testing.T) {
	_, err := newTestService(newMemStore()).Get(context.Background(), "missing")
	fe := wantFormError(t, err, constants.MsgLoadHabitFailed)
	if !storage.IsNotFound(fe) {
		t.Errorf("cause kind = %q, want not_found", storage.KindOf(fe))
	}
}

func TestDelete(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()
	h, _ := svc.Save(ctx, SaveRequest{Input: validation.HabitInput{Name: "Coffee", Unit: "cups"}})

	if err := svc.Delete(ctx, h.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(store.habits) != 0 {
		t.Errorf("habit still stored after delete")
	}

	store.deleteErr = errors.New("boom")
	wantFormError(t, svc.Delete(ctx, "h1"), constants.MsgDeleteHabitFailed)

	err := NewService(staticSessions{}, store).Delete(ctx, "h1")
	wantFormError(t, err, constants.MsgLoginRequired)
}

func TestLog(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	two := 2.0
	h := models.Habit{ID: "h1", Active: true, DefaultQuantity: &two}
	entry, err := svc.Log(ctx, h, nil)
	if err != nil || entry.Quantity != 2 {
		t.Fatalf("Log() = %+v, %v; want quantity 2", entry, err)
	}

	entry, err = svc.Log(ctx, models.Habit{ID: "h2", Active: true}, nil)
	if err != nil || entry.Quantity != constants.DefaultLogQuantity {
		t.Fatalf("Log() without default = %+v, %v", entry, err)
	}

	half := 0.5
	entry, _ = svc.Log(ctx, h, &half)
	if entry.Quantity != 0.5 {
		t.Errorf("Log() explicit quantity = %v, want 0.5", entry.Quantity)
	}

	store.logErr = storage.NewError(storage.KindInvalid, storage.MsgHabitArchived, nil)
	_, err = svc.Log(ctx, h, nil)
	wantFormError(t, err, storage.MsgHabitArchived)

	store.logErr = errors.New("timeout")
	_, err = svc.Log(ctx, h, nil)
	wantFormError(t, err, constants.MsgLogHabitFailed)
}

func TestSyncProfile(t *testing.T) {
	store := newMemStore()
	if err := newTestService(store).SyncProfile(context.Background(), *testSession, "Europe/Berlin"); err != nil {
		t.Fatalf("SyncProfile() error = %v", err)
	}
	if p := store.profiles["user-1"]; p.Timezone != "Europe/Berlin" {
		t.Errorf("profile = %+v", p)
	}
}

func TestWeeklySummary(t *testing.T) {
	loc := time.UTC
	// Wednesday
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, loc)
	limit := 3.0
	store := newMemStore()
	store.habits = []models.Habit{
		{ID: "coffee", Name: "Coffee", Active: true, WeeklyLimit: &limit},
		{ID: "run", Name: "Running", Active: true},
		{ID: "old", Name: "Old", Active: false},
	}
	store.logs = []models.HabitLog{
		{HabitID: "coffee", Quantity: 2, LoggedAt: time.Date(2026, 10, 12, 0, 0, 0, 0, loc)},
		{HabitID: "coffee", Quantity: 2, LoggedAt: time.Date(2026, 10, 14, 8, 0, 0, 0, loc)},
		{HabitID: "coffee", Quantity: 9, LoggedAt: time.Date(2026, 10, 11, 23, 59, 0, 0, loc)},
		{HabitID: "run", Quantity: 5, LoggedAt: time.Date(2026, 10, 13, 7, 0, 0, 0, loc)},
		{HabitID: "old", Quantity: 1, LoggedAt: time.Date(2026, 10, 13, 7, 0, 0, 0, loc)},
	}
	svc := newTestService(store)
	svc.now = func() time.Time { return now }

	sum, err := svc.WeeklySummary(context.Background(), loc)
	if err != nil {
		t.Fatalf("WeeklySummary() error = %v", err)
	}
	if !sum.WeekStart.Equal(time.Date(2026, 10, 12, 0, 0, 0, 0, loc)) {
		t.Errorf("WeekStart = %v", sum.WeekStart)
	}
	if len(sum.Totals) != 2 {
		t.Fatalf("got %d totals, want 2 active habits", len(sum.Totals))
	}
	coffee, run := sum.Totals[0], sum.Totals[1]
	if coffee.Total != 4 || coffee.Count != 2 || !coffee.Over() {
		t.Errorf("coffee = %+v over=%v, want 4 over limit", coffee, coffee.Over())
	}
	if run.Total != 5 || run.Over() {
		t.Errorf("running = %+v over=%v, want 5 with no limit", run, run.Over())
	}
}

func TestDeleteGuard(t *testing.T) {
	var g DeleteGuard
	if g.Label() != LabelDelete {
		t.Fatalf("initial label = %q", g.Label())
	}
	if g.Press() {
		t.Fatal("first press deleted")
	}
	if !g.Armed() || g.Label() != LabelConfirmDelete {
		t.Fatalf("armed = %v label = %q after first press", g.Armed(), g.Label())
	}
	g.Cancel()
	if g.Armed() || g.Label() != LabelDelete {
		t.Fatal("cancel did not restore the label")
	}
	if g.Press() {
		t.Fatal("press after cancel deleted")
	}
	if !g.Press() {
		t.Fatal("second consecutive press did not delete")
	}
	if g.Armed() {
		t.Error("guard still armed after firing")
	}
}

func TestListItemsNormalMode(t *testing.T) {
	habits := []models.Habit{
		{ID: "1", Name: "Coffee", Active: true},
		{ID: "2", Name: "Old", Active: false},
		{ID: "3", Name: "Running", Active: true},
	}
	items := ListItems(habits, false)
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	for _, it := range items[:2] {
		if it.Navigable || it.Tag != "" {
			t.Errorf("habit row %q navigable=%v tag=%q in normal mode", it.Title(), it.Navigable, it.Tag)
		}
	}
	if last := items[2]; last.Kind != ItemAdd || !last.Navigable || last.Title() != LabelAdd {
		t.Errorf("last row = %+v, want add row", last)
	}

	items = ListItems(habits, true)
	want := []string{"Coffee:Edit", "Running:Edit", "Old:Archived", "Add Habit:"}
	for i, it := range items {
		if got := it.Title() + ":" + it.Tag; got != want[i] || !it.Navigable {
			t.Errorf("manage row %d = %s navigable=%v, want %s", i, got, it.Navigable, want[i])
		}
	}
	if ManageLabel(true) != "Done" || ManageLabel(false) != "Edit" {
		t.Error("unexpected manage toggle labels")
	}
}

func TestPresetApply(t *testing.T) {
	in := Presets[0].Apply(validation.HabitInput{WeeklyLimit: "7"})
	if in.Name != "Weed" || in.Unit != "grams" || in.DefaultQuantity != "0.1" || in.WeeklyLimit != "7" {
		t.Errorf("Apply() = %+v", in)
	}
	if len(Presets) != 6 || Presets[5].DefaultQuantity != 100 {
		t.Errorf("unexpected presets %+v", Presets)
	}
}
