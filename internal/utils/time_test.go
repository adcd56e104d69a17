package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadLocation(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		wantErr  bool
	}{
		{name: "empty string returns local", timezone: ""},
		{name: "Local returns local", timezone: "Local"},
		{name: "valid timezone UTC", timezone: "UTC"},
		{name: "valid timezone America/New_York", timezone: "America/New_York"},
		{name: "valid timezone Asia/Tokyo", timezone: "Asia/Tokyo"},
		{name: "invalid timezone", timezone: "Invalid/Timezone", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := LoadLocation(tt.timezone)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadLocation() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && loc == nil {
				t.Errorf("LoadLocation() returned nil location without error")
			}
		})
	}
}

func TestNowInTimezone(t *testing.T) {
	now, err := NowInTimezone("Europe/London")
	if err != nil {
		t.Fatalf("NowInTimezone() error = %v", err)
	}
	if now.Location().String() != "Europe/London" {
		t.Errorf("NowInTimezone() location = %v, want Europe/London", now.Location())
	}
	if _, err := NowInTimezone("Invalid/Timezone"); err == nil {
		t.Error("NowInTimezone() with invalid timezone should return an error")
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "monday stays put",
			in:   time.Date(2026, 10, 12, 9, 30, 0, 0, time.UTC),
			want: time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "wednesday rolls back",
			in:   time.Date(2026, 10, 14, 23, 59, 0, 0, time.UTC),
			want: time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday belongs to the previous monday",
			in:   time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
			want: time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "crosses a month boundary",
			in:   time.Date(2026, 11, 1, 8, 0, 0, 0, time.UTC),
			want: time.Date(2026, 10, 26, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekStart(tt.in); !got.Equal(tt.want) {
				t.Errorf("WeekStart(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWeekBounds(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	// The week containing the end of DST is 169 hours long.
	start, end := WeekBounds(time.Date(2026, 10, 29, 15, 0, 0, 0, loc))
	if start.Hour() != 0 || end.Hour() != 0 {
		t.Errorf("WeekBounds() = %v, %v; want midnight bounds", start, end)
	}
	if end.Weekday() != time.Monday || start.Weekday() != time.Monday {
		t.Errorf("WeekBounds() weekdays = %v, %v; want Monday, Monday", start.Weekday(), end.Weekday())
	}
	if got := end.Sub(start); got != 169*time.Hour {
		t.Errorf("WeekBounds() span = %v, want %v", got, 169*time.Hour)
	}
}

func TestLocalTimezoneFromTZ(t *testing.T) {
	t.Setenv("TZ", "Asia/Tokyo")
	if got := LocalTimezone(); got != "Asia/Tokyo" {
		t.Errorf("LocalTimezone() = %q, want %q", got, "Asia/Tokyo")
	}
}

func TestLocalTimezoneFromSymlink(t *testing.T) {
	t.Setenv("TZ", "")
	zoneinfo := filepath.Join(t.TempDir(), "zoneinfo", "Europe")
	if err := os.MkdirAll(zoneinfo, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	target := filepath.Join(zoneinfo, "London")
	if err := os.WriteFile(target, []byte("TZif"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	link := filepath.Join(t.TempDir(), "localtime")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	old := localtimePath
	localtimePath = link
	t.Cleanup(func() { localtimePath = old })

	if got := LocalTimezone(); got != "Europe/London" {
		t.Errorf("LocalTimezone() = %q, want %q", got, "Europe/London")
	}
}

func TestValidateTimezone(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		want     bool
	}{
		{name: "empty string is valid", timezone: "", want: true},
		{name: "Local is valid", timezone: "Local", want: true},
		{name: "UTC is valid", timezone: "UTC", want: true},
		{name: "Europe/London is valid", timezone: "Europe/London", want: true},
		{name: "Invalid/Timezone is invalid", timezone: "Invalid/Timezone", want: false},
		{name: "random string is invalid", timezone: "not-a-timezone", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateTimezone(tt.timezone); got != tt.want {
				t.Errorf("ValidateTimezone() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)); got != "2026-03-07" {
		t.Errorf("FormatDate() = %q, want %q", got, "2026-03-07")
	}
}
