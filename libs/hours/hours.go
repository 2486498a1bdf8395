// Package hours holds the weekly working-hours model shared by tenants and staff.
package hours

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Day is one weekday entry. Start and End are "HH:MM" and only meaningful when open.
type Day struct {
	Closed bool   `json:"closed" yaml:"closed"`
	Start  string `json:"start,omitempty" yaml:"start,omitempty"`
	End    string `json:"end,omitempty" yaml:"end,omitempty"`
}

// Week maps lowercase weekday names to their hours. A missing day is closed.
type Week map[string]Day

// Days lists the canonical weekday names in display order.
var Days = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

var weekdayNames = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// DayName maps time.Weekday (0 = Sunday) to its canonical name.
func DayName(wd time.Weekday) string {
	if wd < 0 || int(wd) >= len(weekdayNames) {
		return ""
	}
	return weekdayNames[wd]
}

// Title returns the name with its first letter upper-cased, for user-facing messages.
func Title(name string) string {
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

var ErrInvalidClock = errors.New("time must be HH:MM")

// ParseClock parses "HH:MM" (a trailing ":SS" is ignored) into minutes after midnight.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 || len(parts[0]) == 0 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, ErrInvalidClock
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, ErrInvalidClock
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, ErrInvalidClock
	}
	return h*60 + m, nil
}

// FormatClock renders minutes after midnight as zero-padded "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Truncate normalizes a stored time such as "09:30:00" to "09:30".
// Unparsable input is returned unchanged.
func Truncate(s string) string {
	m, err := ParseClock(s)
	if err != nil {
		return s
	}
	return FormatClock(m)
}

func (d Day) Validate() error {
	if d.Closed {
		return nil
	}
	start, err := ParseClock(d.Start)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	end, err := ParseClock(d.End)
	if err != nil {
		return fmt.Errorf("end: %w", err)
	}
	if start >= end {
		return errors.New("start must be before end")
	}
	return nil
}

// Validate rejects unknown day names and open days with bad bounds.
func (w Week) Validate() error {
	for name, day := range w {
		if !isDayName(name) {
			return fmt.Errorf("unknown day %q", name)
		}
		if err := day.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Normalize returns a copy with lowercase keys and HH:MM times.
func (w Week) Normalize() Week {
	if w == nil {
		return nil
	}
	out := make(Week, len(w))
	for name, day := range w {
		if day.Closed {
			out[strings.ToLower(name)] = Day{Closed: true}
			continue
		}
		out[strings.ToLower(name)] = Day{Start: Truncate(day.Start), End: Truncate(day.End)}
	}
	return out
}

func isDayName(name string) bool {
	for _, d := range Days {
		if d == name {
			return true
		}
	}
	return false
}

//go:embed default_week.yaml
var defaultWeekYAML []byte

// DefaultWeek returns the built-in week: Monday to Saturday 09:00-18:00, Sunday closed.
func DefaultWeek() Week {
	w, err := ParseWeekYAML(defaultWeekYAML)
	if err != nil {
		panic(fmt.Sprintf("hours: embedded default week: %v", err))
	}
	return w
}

// LoadWeek reads a YAML week from path, or returns DefaultWeek when path is empty.
func LoadWeek(path string) (Week, error) {
	if path == "" {
		return DefaultWeek(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseWeekYAML(b)
}

func ParseWeekYAML(b []byte) (Week, error) {
	var w Week
	if err := yaml.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	w = w.Normalize()
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}
