package github

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/deppfellow/contributions-api/internal/lib/calendar"
)

// Selectors for the profile page markup. The markup is undocumented and
// changes without notice; these match the calendar fragment served to
// XMLHttpRequest callers.
const (
	yearLinkSelector = ".js-year-link"
	daySelector      = "table.ContributionCalendar-grid td.ContributionCalendar-day"
	totalSelector    = ".js-yearly-contributions h2"
	tooltipSelector  = "tool-tip"
)

var (
	// "1,234 contributions in 2023" / "1,234 contributions in the last year"
	totalPattern = regexp.MustCompile(`^([0-9,]+)\s`)

	// "5 contributions on March 3rd." / "No contributions on March 4th."
	tooltipPattern = regexp.MustCompile(`^([0-9,]+)\s+contributions?\b`)
)

// YearLink is one entry of the year selector.
type YearLink struct {
	// Href is a path and query relative to the base URL.
	Href string
	// Label is the link text, e.g. "2024".
	Label string
}

// ParseYearLinks extracts the year selector from a profile page.
//
// Each href is resolved against base and rewritten to carry
// tab=contributions. Only the path and query are kept so every follow-up
// request goes to base's host.
func ParseYearLinks(r io.Reader, base *url.URL) ([]YearLink, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse profile page: %w", err)
	}

	var links []YearLink
	var parseErr error
	doc.Find(yearLinkSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}

		u, err := base.Parse(href)
		if err != nil {
			parseErr = fmt.Errorf("parse year link %q: %w", href, err)
			return false
		}

		q := u.Query()
		q.Set("tab", "contributions")
		u.RawQuery = q.Encode()

		links = append(links, YearLink{
			Href:  u.RequestURI(),
			Label: strings.TrimSpace(s.Text()),
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return links, nil
}

// ParseCalendar extracts one year's calendar from a year fragment.
func ParseCalendar(r io.Reader, label string) (calendar.Year, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return calendar.Year{}, fmt.Errorf("parse calendar fragment: %w", err)
	}

	total := parseTotal(doc.Find(totalSelector).Text())
	counts := parseTooltips(doc)

	cells := doc.Find(daySelector)
	days := make([]calendar.Day, 0, cells.Length())
	cells.Each(func(_ int, s *goquery.Selection) {
		date, _ := s.Attr("data-date")
		level, _ := s.Attr("data-level")

		count := 0
		if id, ok := s.Attr("id"); ok {
			count = counts[id]
		}

		days = append(days, calendar.NewDay(date, count, calendar.ParseIntensity(level)))
	})

	return calendar.NewYear(label, total, days), nil
}

// parseTotal reads the leading number of the yearly heading.
func parseTotal(heading string) int {
	m := totalPattern.FindStringSubmatch(strings.TrimSpace(heading))
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// parseTooltips maps day cell ids to the count stated in their tooltip.
func parseTooltips(doc *goquery.Document) map[string]int {
	counts := make(map[string]int)
	doc.Find(tooltipSelector).Each(func(_ int, s *goquery.Selection) {
		id, ok := s.Attr("for")
		if !ok {
			return
		}
		counts[id] = parseTooltipCount(s.Text())
	})
	return counts
}

func parseTooltipCount(text string) int {
	m := tooltipPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0
	}
	return n
}
