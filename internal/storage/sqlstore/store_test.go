package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/storage"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name     string
		numbered bool
		in       string
		want     string
	}{
		{name: "question marks kept", in: "SELECT * FROM habits WHERE id = ? AND user_id = ?", want: "SELECT * FROM habits WHERE id = ? AND user_id = ?"},
		{name: "numbered", numbered: true, in: "SELECT * FROM habits WHERE id = ? AND user_id = ?", want: "SELECT * FROM habits WHERE id = $1 AND user_id = $2"},
		{name: "no placeholders", numbered: true, in: "SELECT 1", want: "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rebind(Dialect{Numbered: tt.numbered}, tt.in); got != tt.want {
				t.Errorf("rebind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTimestampScan(t *testing.T) {
	want := time.Date(2026, 10, 14, 9, 30, 0, 123000000, time.UTC)
	tests := []struct {
		name    string
		src     interface{}
		want    time.Time
		wantErr bool
	}{
		{name: "native time", src: want.In(time.FixedZone("EST", -5*3600)), want: want},
		{name: "fixed width text", src: timeArg(want), want: want},
		{name: "bytes", src: []byte(timeArg(want)), want: want},
		{name: "plain RFC3339", src: "2026-10-14T09:30:00Z", want: want.Truncate(time.Second)},
		{name: "null", src: nil, want: time.Time{}},
		{name: "garbage", src: "yesterday", wantErr: true},
		{name: "wrong type", src: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts timestamp
			err := ts.Scan(tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Scan() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !ts.Time.Equal(tt.want) {
				t.Errorf("Scan() = %v, want %v", ts.Time, tt.want)
			}
		})
	}
}

func TestTimeArgSortsChronologically(t *testing.T) {
	base := time.Date(2026, 10, 14, 9, 30, 5, 0, time.UTC)
	times := []time.Time{
		base.Add(100 * time.Millisecond),
		base,
		base.Add(time.Nanosecond),
		base.Add(-time.Second),
	}
	encoded := make([]string, len(times))
	for i, tm := range times {
		encoded[i] = timeArg(tm)
	}
	sort.Strings(encoded)
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	for i := range times {
		if encoded[i] != timeArg(times[i]) {
			t.Errorf("sorted text[%d] = %q, want %q", i, encoded[i], timeArg(times[i]))
		}
	}
}

func TestClassify(t *testing.T) {
	dup := errors.New("constraint")
	s := New(Dialect{IsUniqueViolation: func(err error) bool { return errors.Is(err, dup) }}, Options{})

	tests := []struct {
		name string
		err  error
		want storage.Kind
	}{
		{name: "unique violation", err: fmt.Errorf("exec: %w", dup), want: storage.KindDuplicate},
		{name: "no rows", err: sql.ErrNoRows, want: storage.KindNotFound},
		{name: "canceled", err: context.Canceled, want: storage.KindUnavailable},
		{name: "conn done", err: sql.ErrConnDone, want: storage.KindUnavailable},
		{name: "other", err: errors.New("syntax error"), want: storage.KindInternal},
		{name: "already structured", err: storage.NewError(storage.KindInvalid, "x", nil), want: storage.KindInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := storage.KindOf(s.classify(tt.err, "")); got != tt.want {
				t.Errorf("classify(%v) kind = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
	if s.classify(nil, "") != nil {
		t.Error("classify(nil) != nil")
	}
}

func TestUnattachedStore(t *testing.T) {
	s := New(Dialect{}, Options{})
	ctx := context.Background()
	if _, err := s.SignUp(ctx, "a@example.com", "secret1"); !storage.IsUnavailable(err) {
		t.Errorf("SignUp() before Attach error = %v, want unavailable", err)
	}
	if _, err := s.ListHabits(ctx, models.Session{AccessToken: "x"}); !storage.IsUnavailable(err) {
		t.Errorf("ListHabits() before Attach error = %v, want unavailable", err)
	}
}
