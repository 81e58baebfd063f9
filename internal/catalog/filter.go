// ABOUTME: Attribute filters over catalog books: genre, minimum rating, and year range.
// ABOUTME: Malformed filter input is ignored rather than rejected.
package catalog

import (
	"strconv"
	"strings"

	"github.com/2389-research/bookrec/internal/models"
)

// YearRange is an inclusive publication year range.
type YearRange struct {
	Start int
	End   int
}

// Filter restricts books by structured attributes. Zero values mean "not applied".
type Filter struct {
	Genre     string
	MinRating *float64
	Years     *YearRange
}

// Empty reports whether the filter applies no restriction.
func (f Filter) Empty() bool {
	return f.Genre == "" && f.MinRating == nil && f.Years == nil
}

// Match reports whether b satisfies every set criterion.
func (f Filter) Match(b models.Book) bool {
	if f.Genre != "" && !strings.EqualFold(b.Genre, f.Genre) {
		return false
	}
	if f.MinRating != nil && b.Rating < *f.MinRating {
		return false
	}
	if f.Years != nil && (b.Year < f.Years.Start || b.Year > f.Years.End) {
		return false
	}
	return true
}

// ParseYearRange parses "start-end". ok is false for malformed input.
func ParseYearRange(s string) (YearRange, bool) {
	start, end, found := strings.Cut(strings.TrimSpace(s), "-")
	if !found {
		return YearRange{}, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(start))
	if err != nil {
		return YearRange{}, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(end))
	if err != nil {
		return YearRange{}, false
	}
	return YearRange{Start: a, End: b}, true
}

// ParseFilter builds a Filter from raw string parameters as received from a
// query string or CLI flags. Unparseable min rating or year range is dropped.
func ParseFilter(genre, minRating, yearRange string) Filter {
	f := Filter{Genre: strings.TrimSpace(genre)}
	if minRating != "" {
		if v, err := strconv.ParseFloat(strings.TrimSpace(minRating), 64); err == nil {
			f.MinRating = &v
		}
	}
	if yearRange != "" {
		if yr, ok := ParseYearRange(yearRange); ok {
			f.Years = &yr
		}
	}
	return f
}
