package attendance

import (
	"fmt"
	"strings"
	"time"

	"absensi/internal/config"
)

const (
	lateGrace   = 60
	overtimeLen = 9 * 60
)

// Window is the working day in minutes since midnight, local civil time.
type Window struct {
	Start int
	End   int
}

// ParseWindow reads the "HH:MM|HH:MM" form stored under the times key.
func ParseWindow(s string) (Window, error) {
	start, end, ok := strings.Cut(s, "|")
	if !ok {
		return Window{}, fmt.Errorf("%w: window %q", ErrInvalidInput, s)
	}
	return NewWindow(start, end)
}

// NewWindow builds a Window from two "HH:MM" strings.
func NewWindow(start, end string) (Window, error) {
	s, err := config.ParseClock(start)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	e, err := config.ParseClock(end)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return Window{Start: s, End: e}, nil
}

func (w Window) String() string {
	return fmt.Sprintf("%02d:%02d|%02d:%02d", w.Start/60, w.Start%60, w.End/60, w.End%60)
}

// Classify maps a clock-in minute onto a status. The first matching rule wins:
// before the window is on time, up to an hour after start is late, up to nine
// hours after end is overtime, and anything else is outside the window.
//
// The last rule also covers the stretch between the late threshold and the
// window end. There is no day wrap: 02:00 is compared as minute 120.
func Classify(now int, w Window) Status {
	lateThreshold := w.Start + lateGrace
	overtimeEnd := w.End + overtimeLen

	switch {
	case now < w.Start:
		return StatusOnTime
	case now <= lateThreshold:
		return StatusLate
	case now >= w.End && now <= overtimeEnd:
		return StatusOvertime
	default:
		return StatusOutsideWindow
	}
}

// MinuteOfDay returns minutes since midnight of t in its own location.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Timestamp renders t as "YYYY-MM-DD HH:MM GMT+7", the form stored in records.
func Timestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04") + " " + gmtLabel(t)
}

func gmtLabel(t time.Time) string {
	_, offset := t.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	h, m := offset/3600, (offset%3600)/60
	if m == 0 {
		return fmt.Sprintf("GMT%s%d", sign, h)
	}
	return fmt.Sprintf("GMT%s%d:%02d", sign, h, m)
}
