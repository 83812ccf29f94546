// Package normalize converts heterogeneous user input into the canonical
// forms the registration wire format expects. Every function here is total:
// unrecoverable input yields an empty string, never a panic or an error, and
// the caller's validation decides whether an empty value is fatal.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/verihire/onboard/internal/domain"
)

// Calendar bounds accepted by date normalization. The day bound is a format
// check, not a calendar check; repair logic uses real calendar validity.
const (
	minYear = 1900
	maxYear = 2100
)

var canonicalDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Date normalizes a date string to strict YYYY-MM-DD, or returns "" when
// the input cannot be resolved. Accepted inputs:
//
//	YYYY-MM-DD (canonical, idempotent)
//	MM/DD/YYYY and MM-DD-YYYY (month-first locales)
//	DD/MM/YYYY and DD-MM-YYYY (day-first locales)
//
// The country decides whether the first component reads as month or day
// (US is month-first, everyone else day-first). Two repairs are attempted
// before giving up: a locale reading whose month is impossible is swapped
// with the day, and a year mis-placed in the middle component is accepted
// only when exactly one of the two remaining readings is a real calendar
// date.
func Date(input string, country domain.Country) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}

	if canonicalDateRe.MatchString(s) {
		y, _ := strconv.Atoi(s[0:4])
		m, _ := strconv.Atoi(s[5:7])
		d, _ := strconv.Atoi(s[8:10])
		return format(y, m, d)
	}

	parts, ok := splitDate(s)
	if !ok {
		return ""
	}

	yearIdx := findYear(parts)
	if yearIdx < 0 {
		return ""
	}
	year, _ := strconv.Atoi(parts[yearIdx])

	a, b := otherTwo(parts, yearIdx)
	if a < 0 || b < 0 {
		return ""
	}

	switch yearIdx {
	case 0:
		// Year-first input with slash delimiters, e.g. 2020/02/13.
		return format(year, a, b)
	case 2:
		month, day := a, b
		if !country.MonthFirst() {
			month, day = b, a
		}
		if out := format(year, month, day); out != "" {
			return out
		}
		// The locale reading is impossible; the user likely entered the
		// other order. Swap only when that rescues the date.
		return format(year, day, month)
	default:
		// Year in the middle (e.g. 02/2020/13) has no defined reading.
		// Accept it only when the two candidate interpretations do not
		// both form real calendar dates.
		first := calendarValid(year, a, b)
		second := calendarValid(year, b, a)
		if first && !second {
			return format(year, a, b)
		}
		if second && !first {
			return format(year, b, a)
		}
		return ""
	}
}

// splitDate breaks the input on a single consistent delimiter.
func splitDate(s string) ([]string, bool) {
	var sep string
	switch {
	case strings.Contains(s, "/") && !strings.Contains(s, "-"):
		sep = "/"
	case strings.Contains(s, "-") && !strings.Contains(s, "/"):
		sep = "-"
	default:
		return nil, false
	}
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return nil, false
	}
	for _, p := range parts {
		if p == "" {
			return nil, false
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return nil, false
			}
		}
	}
	return parts, true
}

// findYear returns the index of the unique 4-digit component, or -1.
func findYear(parts []string) int {
	idx := -1
	for i, p := range parts {
		if len(p) == 4 {
			if idx >= 0 {
				return -1
			}
			idx = i
		}
	}
	return idx
}

// otherTwo returns the two non-year components as ints, in input order.
func otherTwo(parts []string, yearIdx int) (int, int) {
	vals := make([]int, 0, 2)
	for i, p := range parts {
		if i == yearIdx {
			continue
		}
		if len(p) > 2 {
			return -1, -1
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return -1, -1
		}
		vals = append(vals, n)
	}
	return vals[0], vals[1]
}

// format range-checks and renders the canonical form, or returns "".
func format(year, month, day int) string {
	if year < minYear || year > maxYear {
		return ""
	}
	if month < 1 || month > 12 {
		return ""
	}
	if day < 1 || day > 31 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// calendarValid reports whether year/month/day is a real calendar date
// within the accepted year range.
func calendarValid(year, month, day int) bool {
	if year < minYear || year > maxYear || month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}
