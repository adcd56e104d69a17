package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/julianstephens/tally/internal/constants"
)

// localtimePath is a var so tests can point it at a fixture.
var localtimePath = "/etc/localtime"

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// NowInTimezone returns the current time in the specified timezone.
func NowInTimezone(timezone string) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return time.Now().In(loc), nil
}

// LocalTimezone reports the IANA name of the machine's timezone.
// It checks $TZ, then the /etc/localtime symlink target, and falls back to "UTC".
func LocalTimezone() string {
	if tz := strings.TrimPrefix(os.Getenv("TZ"), ":"); tz != "" && ValidateTimezone(tz) && tz != "Local" {
		return tz
	}
	if target, err := filepath.EvalSymlinks(localtimePath); err == nil {
		if i := strings.Index(target, "zoneinfo/"); i >= 0 {
			name := target[i+len("zoneinfo/"):]
			if ValidateTimezone(name) {
				return name
			}
		}
	}
	if name := time.Local.String(); name != "Local" && name != "" && ValidateTimezone(name) {
		return name
	}
	return "UTC"
}

// WeekStart returns midnight on the Monday of t's ISO week, in t's location.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// WeekBounds returns the [start, end) range of t's ISO week.
func WeekBounds(t time.Time) (time.Time, time.Time) {
	start := WeekStart(t)
	y, m, d := start.Date()
	return start, time.Date(y, m, d+7, 0, 0, 0, 0, start.Location())
}

// FormatDate formats t using the application's date format.
func FormatDate(t time.Time) string {
	return t.Format(constants.DateFormat)
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	if timezone == "" || timezone == "Local" {
		return true
	}
	_, err := time.LoadLocation(timezone)
	return err == nil
}
