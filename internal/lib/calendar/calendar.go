// Package calendar holds the contribution calendar model scraped from a
// profile page and the two shapes it is served in.
//
// A calendar is a list of years, each carrying its day cells. The API
// emits it either as a flat list of days (newest first) or as a
// year -> month -> day tree.
package calendar

import (
	"strconv"
	"strings"
)

// Intensity is the shading level of a day cell, 0 (none) to 4 (most).
type Intensity int

// MaxIntensity is the darkest shading level the calendar uses.
const MaxIntensity Intensity = 4

// palette maps each intensity to the color the profile page renders.
var palette = [...]string{
	"#ebedf0",
	"#9be9a8",
	"#40c463",
	"#30a14e",
	"#216e39",
}

// ParseIntensity reads a data-level attribute.
// Missing or unrecognised values fall back to 0.
func ParseIntensity(s string) Intensity {
	switch s {
	case "0", "1", "2", "3", "4":
		return Intensity(s[0] - '0')
	default:
		return 0
	}
}

// Color returns the hex color for the level.
func (i Intensity) Color() string {
	if i < 0 || i > MaxIntensity {
		return palette[0]
	}
	return palette[i]
}

func (i Intensity) String() string {
	if i < 0 || i > MaxIntensity {
		return "0"
	}
	return strconv.Itoa(int(i))
}

// Day is a single calendar cell.
type Day struct {
	Date      string `json:"date"`
	Count     int    `json:"count"`
	Color     string `json:"color"`
	Intensity string `json:"intensity"`
}

// NewDay builds a Day with the color and intensity label derived from level.
func NewDay(date string, count int, level Intensity) Day {
	return Day{
		Date:      date,
		Count:     count,
		Color:     level.Color(),
		Intensity: level.String(),
	}
}

// Range is the first and last date covered by a year's calendar.
type Range struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Year is one year of scraped calendar data.
type Year struct {
	// Year is the label of the year link, e.g. "2024".
	Year  string `json:"year"`
	Total int    `json:"total"`
	Range Range  `json:"range"`
	Days  []Day  `json:"days"`
}

// NewYear builds a Year and computes its range from the days' dates.
func NewYear(label string, total int, days []Day) Year {
	return Year{
		Year:  label,
		Total: total,
		Range: dateRange(days),
		Days:  days,
	}
}

// dateRange returns the earliest and latest date among days.
// The calendar grid is laid out weekday by weekday, so document order
// is not chronological and first/last cell cannot be used directly.
func dateRange(days []Day) Range {
	var r Range
	for _, d := range days {
		if d.Date == "" {
			continue
		}
		if r.Start == "" || d.Date < r.Start {
			r.Start = d.Date
		}
		if r.End == "" || d.Date > r.End {
			r.End = d.Date
		}
	}
	return r
}

// ParseDate splits an ISO date (YYYY-MM-DD) into its numeric parts.
func ParseDate(date string) (year, month, day int, ok bool) {
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, 0, 0, false
		}
		nums[i] = n
	}

	return nums[0], nums[1], nums[2], true
}
