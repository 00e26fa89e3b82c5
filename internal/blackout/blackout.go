// Package blackout implements the venue-local trading blackout calendar.
package blackout

import (
	"fmt"
	"sort"
	"time"
)

var tokyo = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}()

// Window is a recurring local-time interval, expressed as minutes since
// midnight, during which trading is suppressed.
type Window struct {
	StartMinute int
	EndMinute   int
}

func newWindow(startHour, startMin, endHour, endMin int) Window {
	return Window{StartMinute: startHour*60 + startMin, EndMinute: endHour*60 + endMin}
}

// DefaultWindows mirrors the venue's default blackout calendar.
var DefaultWindows = []Window{
	newWindow(4, 0, 9, 15),
	newWindow(21, 20, 21, 45),
	newWindow(22, 25, 23, 10),
}

// Calendar is process-wide configuration owned by the pipeline root and
// passed by reference to components that need to gate on it (SignalEngine,
// LiveTradingController), per the design note against hidden globals.
type Calendar struct {
	windows []Window
}

// NewCalendar builds a Calendar with the venue's default windows.
func NewCalendar() *Calendar {
	c := &Calendar{}
	c.Set(DefaultWindows)
	return c
}

// Set validates start < end for every window and stores them sorted by
// start time.
func (c *Calendar) Set(windows []Window) error {
	sorted := append([]Window(nil), windows...)
	for _, w := range sorted {
		if w.StartMinute >= w.EndMinute {
			return fmt.Errorf("blackout start must be before end: %s >= %s", formatMinute(w.StartMinute), formatMinute(w.EndMinute))
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartMinute < sorted[j].StartMinute })
	c.windows = sorted
	return nil
}

// Windows returns the current windows, sorted by start.
func (c *Calendar) Windows() []Window {
	return append([]Window(nil), c.windows...)
}

// IsBlackout reports whether now (converted to the venue's local zone)
// falls within any configured window. A zero now defaults to the current
// time.
func (c *Calendar) IsBlackout(now time.Time) bool {
	if now.IsZero() {
		now = time.Now()
	}
	local := now.In(tokyo)
	minute := local.Hour()*60 + local.Minute()
	for _, w := range c.windows {
		if minute >= w.StartMinute && minute < w.EndMinute {
			return true
		}
	}
	return false
}

// SerializedWindow is the "HH:MM" wire representation of a Window.
type SerializedWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Serialize renders the current windows as HH:MM strings.
func (c *Calendar) Serialize() []SerializedWindow {
	out := make([]SerializedWindow, 0, len(c.windows))
	for _, w := range c.windows {
		out = append(out, SerializedWindow{Start: formatMinute(w.StartMinute), End: formatMinute(w.EndMinute)})
	}
	return out
}

// ParseWindows parses "HH:MM" pairs into Windows, validating start < end.
func ParseWindows(items []SerializedWindow) ([]Window, error) {
	out := make([]Window, 0, len(items))
	for _, item := range items {
		startMin, err := parseMinute(item.Start)
		if err != nil {
			return nil, fmt.Errorf("invalid blackout window entry %+v: %w", item, err)
		}
		endMin, err := parseMinute(item.End)
		if err != nil {
			return nil, fmt.Errorf("invalid blackout window entry %+v: %w", item, err)
		}
		if startMin >= endMin {
			return nil, fmt.Errorf("blackout start must be before end: %s >= %s", item.Start, item.End)
		}
		out = append(out, Window{StartMinute: startMin, EndMinute: endMin})
	}
	return out, nil
}

func formatMinute(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

func parseMinute(value string) (int, error) {
	var hour, min int
	if _, err := fmt.Sscanf(value, "%d:%d", &hour, &min); err != nil {
		return 0, fmt.Errorf("invalid time format %q, expected HH:MM", value)
	}
	return hour*60 + min, nil
}
