package srs

import "time"

const dayLayout = "2006-01-02"

// HeatmapDays lists the calendar days of the trailing window ending today in
// loc, oldest first. A non-positive window uses DefaultHeatmapDays.
func HeatmapDays(now time.Time, windowDays int, loc *time.Location) []string {
	if windowDays <= 0 {
		windowDays = DefaultHeatmapDays
	}
	if loc == nil {
		loc = time.UTC
	}
	today := DayStart(now, loc)
	days := make([]string, windowDays)
	for i := range days {
		days[i] = today.AddDate(0, 0, i-windowDays+1).Format(dayLayout)
	}
	return days
}

// Heatmap counts reviews per calendar day over the trailing window. Every
// day of the window is present, with zero when nothing was reviewed.
func Heatmap(reviews []time.Time, now time.Time, windowDays int, loc *time.Location) map[string]int {
	if loc == nil {
		loc = time.UTC
	}
	days := HeatmapDays(now, windowDays, loc)
	counts := make(map[string]int, len(days))
	for _, d := range days {
		counts[d] = 0
	}
	for _, r := range reviews {
		key := r.In(loc).Format(dayLayout)
		if _, ok := counts[key]; ok {
			counts[key]++
		}
	}
	return counts
}

// DayStart returns midnight of t's calendar day in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
