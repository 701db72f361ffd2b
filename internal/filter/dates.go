package filter

import (
	"time"

	"github.com/nhle/pmsterm/internal/model"
)

// DateRange is an inclusive range of calendar days. A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Contains reports whether t's calendar day lies within the range.
func (r DateRange) Contains(t time.Time) bool {
	d := model.Day(t)
	if !r.From.IsZero() && d.Before(model.Day(r.From)) {
		return false
	}
	if !r.To.IsZero() && d.After(model.Day(r.To)) {
		return false
	}
	return true
}

// Preset names offered by the reports view.
const (
	PresetToday      = "Today"
	PresetYesterday  = "Yesterday"
	PresetLast7Days  = "Last 7 Days"
	PresetLast30Days = "Last 30 Days"
)

// Presets lists the preset names in display order.
var Presets = []string{PresetToday, PresetYesterday, PresetLast7Days, PresetLast30Days}

// PresetRange resolves a preset name relative to now.
func PresetRange(name string, now time.Time) (DateRange, bool) {
	today := model.Day(now)
	switch name {
	case PresetToday:
		return DateRange{From: today, To: today}, true
	case PresetYesterday:
		y := today.AddDate(0, 0, -1)
		return DateRange{From: y, To: y}, true
	case PresetLast7Days:
		return DateRange{From: today.AddDate(0, 0, -7), To: today}, true
	case PresetLast30Days:
		return DateRange{From: today.AddDate(0, 0, -30), To: today}, true
	}
	return DateRange{}, false
}
