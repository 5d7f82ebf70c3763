package news

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02.01.2006 15:04",
	"02.01.2006, 15:04",
	time.RFC1123Z,
	time.RFC1123,
}

var russianMonths = map[string]time.Month{
	"января":   time.January,
	"февраля":  time.February,
	"марта":    time.March,
	"апреля":   time.April,
	"мая":      time.May,
	"июня":     time.June,
	"июля":     time.July,
	"августа":  time.August,
	"сентября": time.September,
	"октября":  time.October,
	"ноября":   time.November,
	"декабря":  time.December,
}

// ParseDate normalizes the date formats scraped from source pages.
// now supplies the year for day-month dates without one. Unknown formats return nil.
func ParseDate(raw string, now time.Time) *time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}

	return parseRussianDate(trimmed, now)
}

func parseRussianDate(raw string, now time.Time) *time.Time {
	fields := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	if len(fields) < 2 {
		return nil
	}

	day, err := strconv.Atoi(fields[0])
	if err != nil || day < 1 || day > 31 {
		return nil
	}
	month, ok := russianMonths[strings.TrimFunc(fields[1], func(r rune) bool { return !unicode.IsLetter(r) })]
	if !ok {
		return nil
	}

	year := now.Year()
	if len(fields) >= 3 {
		if parsedYear, err := strconv.Atoi(strings.TrimSuffix(fields[2], "г.")); err == nil && parsedYear > 1900 {
			year = parsedYear
		}
	}

	parsed := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if parsed.Day() != day {
		return nil
	}
	return &parsed
}
