// internal/domain/harvest/yearmon.go
package harvest

import (
	"time"

	"github.com/cockroachdb/errors"
)

const yearMonLayout = "2006-01"

// PreviousMonth returns the year-month string of the calendar month before now.
func PreviousMonth(now time.Time) string {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return first.AddDate(0, -1, 0).Format(yearMonLayout)
}

// ParseYearMon validates a "YYYY-MM" string.
func ParseYearMon(ym string) (time.Time, error) {
	t, err := time.Parse(yearMonLayout, ym)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid year-month %q", ym)
	}
	return t, nil
}

// MonthBounds returns the first and last calendar day of ym as
// "YYYY-MM-DD" strings.
func MonthBounds(ym string) (begin, end string, err error) {
	first, err := ParseYearMon(ym)
	if err != nil {
		return "", "", err
	}
	last := first.AddDate(0, 1, -1)
	return first.Format("2006-01-02"), last.Format("2006-01-02"), nil
}

// YearMonBefore reports whether a is an earlier month than b. Both must be
// valid "YYYY-MM" strings, which sort lexically.
func YearMonBefore(a, b string) bool {
	return a < b
}
