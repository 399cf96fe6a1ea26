package calendar

import (
	"slices"
	"strings"
)

// Format selects the response shape.
type Format string

const (
	// FormatDefault is the flat list shape.
	FormatDefault Format = "default"
	// FormatFlat is an explicit alias of FormatDefault.
	FormatFlat Format = "flat"
	// FormatNested is the year -> month -> day tree shape.
	FormatNested Format = "nested"
)

// ParseFormat reads a format query value. Anything other than "nested"
// or "flat" selects the default shape.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatFlat:
		return FormatFlat
	case FormatNested:
		return FormatNested
	default:
		return FormatDefault
	}
}

// Summary is a year without its days.
type Summary struct {
	Year  string `json:"year"`
	Total int    `json:"total"`
	Range Range  `json:"range"`
}

// Summary drops the days from y.
func (y Year) Summary() Summary {
	return Summary{Year: y.Year, Total: y.Total, Range: y.Range}
}

// Tree indexes days by year, month and day of month.
type Tree map[int]map[int]map[int]Day

// Nest builds a Tree from days. Days with an unparseable date are skipped.
func Nest(days []Day) Tree {
	tree := make(Tree)
	for _, d := range days {
		y, m, dd, ok := ParseDate(d.Date)
		if !ok {
			continue
		}
		tree.put(y, m, dd, d)
	}
	return tree
}

func (t Tree) put(y, m, d int, day Day) {
	months, ok := t[y]
	if !ok {
		months = make(map[int]map[int]Day)
		t[y] = months
	}
	days, ok := months[m]
	if !ok {
		days = make(map[int]Day)
		months[m] = days
	}
	days[d] = day
}

// Merge folds trees into a new Tree. Later trees win on the same day.
func Merge(trees ...Tree) Tree {
	out := make(Tree)
	for _, t := range trees {
		for y, months := range t {
			for m, days := range months {
				for d, day := range days {
					out.put(y, m, d, day)
				}
			}
		}
	}
	return out
}

// Flatten returns every day of every year, newest first.
// Days sharing a date keep their input order.
func Flatten(years []Year) []Day {
	n := 0
	for _, y := range years {
		n += len(y.Days)
	}

	days := make([]Day, 0, n)
	for _, y := range years {
		days = append(days, y.Days...)
	}

	slices.SortStableFunc(days, func(a, b Day) int {
		return strings.Compare(b.Date, a.Date)
	})
	return days
}

// FlatResponse is the default response shape.
type FlatResponse struct {
	Years         []Summary `json:"years"`
	Contributions []Day     `json:"contributions"`
}

// NestedYear is a year summary with its own tree.
type NestedYear struct {
	Summary
	Contributions Tree `json:"contributions"`
}

// NestedResponse is the nested response shape.
type NestedResponse struct {
	Years         map[string]NestedYear `json:"years"`
	Contributions Tree                  `json:"contributions"`
}

// Build shapes years into the response for format.
func Build(years []Year, format Format) any {
	if format == FormatNested {
		return BuildNested(years)
	}
	return BuildFlat(years)
}

// BuildFlat produces the flat shape: year summaries in input order and
// all days sorted newest first.
func BuildFlat(years []Year) FlatResponse {
	summaries := make([]Summary, 0, len(years))
	for _, y := range years {
		summaries = append(summaries, y.Summary())
	}
	return FlatResponse{
		Years:         summaries,
		Contributions: Flatten(years),
	}
}

// BuildNested produces the nested shape: years keyed by label, each with
// its tree, and one merged tree across all years.
func BuildNested(years []Year) NestedResponse {
	resp := NestedResponse{
		Years: make(map[string]NestedYear, len(years)),
	}

	trees := make([]Tree, 0, len(years))
	for _, y := range years {
		tree := Nest(y.Days)
		trees = append(trees, tree)
		resp.Years[y.Year] = NestedYear{
			Summary:       y.Summary(),
			Contributions: tree,
		}
	}
	resp.Contributions = Merge(trees...)

	return resp
}
