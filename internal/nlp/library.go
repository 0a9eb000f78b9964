package nlp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateRule pairs a recognizer with a resolver producing a calendar date.
// Rules are tried in declaration order and the first successful match wins,
// so more specific patterns must be registered before general ones.
type DateRule struct {
	ID      string
	Pattern *regexp.Regexp
	Resolve func(now time.Time, match []string) (time.Time, error)
}

// TimeRule pairs a recognizer with a resolver producing an HH:MM string.
type TimeRule struct {
	ID      string
	Pattern *regexp.Regexp
	Resolve func(match []string) (string, error)
}

// Library is the ordered set of date and time rules. It is immutable after
// construction and safe for concurrent use.
type Library struct {
	dateRules []DateRule
	timeRules []TimeRule
}

// Month names accepted by the date rules. Full names first, then common
// variants ("sept", and the "augus" typo seen in real traffic), then the
// 3-letter forms.
var monthTable = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
	"sept": time.September, "augus": time.August,
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "jun": time.June, "jul": time.July,
	"aug": time.August, "sep": time.September, "oct": time.October,
	"nov": time.November, "dec": time.December,
}

const monthAlt = `january|february|march|april|may|june|july|august|september|october|november|december|sept|augus|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec`

var weekdayTable = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	"sunday": time.Sunday,
	"mon":    time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday, "sun": time.Sunday,
}

const weekdayAlt = `monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tue|wed|thu|fri|sat|sun`

// Named time-of-day periods and the times they resolve to.
var periodTable = map[string]string{
	"morning":   "09:00",
	"afternoon": "15:00",
	"evening":   "18:00",
	"night":     "20:00",
	"noon":      "12:00",
	"midnight":  "00:00",
}

// NewLibrary builds the rule tables. Order is load-bearing: each table is
// tried top to bottom and the first match wins.
func NewLibrary() *Library {
	lib := &Library{}

	lib.dateRules = []DateRule{
		{
			ID:      "day_month",
			Pattern: regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(` + monthAlt + `)\b`),
			Resolve: resolveDayMonth,
		},
		{
			ID:      "month_day",
			Pattern: regexp.MustCompile(`\b(` + monthAlt + `)\s+(\d{1,2})(?:st|nd|rd|th)?\b`),
			Resolve: func(now time.Time, m []string) (time.Time, error) {
				return resolveDayMonth(now, []string{m[0], m[2], m[1]})
			},
		},
		{
			// Leading context class keeps this rule off the middle of ISO
			// dates like 2025-07-05.
			ID:      "numeric_date",
			Pattern: regexp.MustCompile(`(?:^|[^0-9/-])(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?\b`),
			Resolve: resolveNumericDate,
		},
		{
			ID:      "iso_date",
			Pattern: regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`),
			Resolve: resolveISODate,
		},
		{
			ID:      "relative_day",
			Pattern: regexp.MustCompile(`\b(today|tomorrow|yesterday)\b`),
			Resolve: func(now time.Time, m []string) (time.Time, error) {
				switch m[1] {
				case "today":
					return now, nil
				case "tomorrow":
					return now.AddDate(0, 0, 1), nil
				default:
					return now.AddDate(0, 0, -1), nil
				}
			},
		},
		{
			ID:      "next_week",
			Pattern: regexp.MustCompile(`\bnext week\b`),
			Resolve: func(now time.Time, _ []string) (time.Time, error) {
				return now.AddDate(0, 0, 7), nil
			},
		},
		{
			// "this week" resolves to the upcoming Monday.
			ID:      "this_week",
			Pattern: regexp.MustCompile(`\bthis week\b`),
			Resolve: func(now time.Time, _ []string) (time.Time, error) {
				days := int(time.Monday-now.Weekday()+7) % 7
				if days == 0 {
					days = 7
				}
				return now.AddDate(0, 0, days), nil
			},
		},
		{
			ID:      "next_month",
			Pattern: regexp.MustCompile(`\bnext month\b`),
			Resolve: func(now time.Time, _ []string) (time.Time, error) {
				return now.AddDate(0, 1, 0), nil
			},
		},
		{
			ID:      "in_days",
			Pattern: regexp.MustCompile(`\bin (\d+) days?\b`),
			Resolve: func(now time.Time, m []string) (time.Time, error) {
				n, err := strconv.Atoi(m[1])
				if err != nil {
					return time.Time{}, err
				}
				return now.AddDate(0, 0, n), nil
			},
		},
		{
			ID:      "in_weeks",
			Pattern: regexp.MustCompile(`\bin (\d+) weeks?\b`),
			Resolve: func(now time.Time, m []string) (time.Time, error) {
				n, err := strconv.Atoi(m[1])
				if err != nil {
					return time.Time{}, err
				}
				return now.AddDate(0, 0, 7*n), nil
			},
		},
		{
			ID:      "in_months",
			Pattern: regexp.MustCompile(`\bin (\d+) months?\b`),
			Resolve: func(now time.Time, m []string) (time.Time, error) {
				n, err := strconv.Atoi(m[1])
				if err != nil {
					return time.Time{}, err
				}
				return now.AddDate(0, n, 0), nil
			},
		},
		{
			ID:      "next_weekday",
			Pattern: regexp.MustCompile(`\bnext (` + weekdayAlt + `)\b`),
			Resolve: func(now time.Time, m []string) (time.Time, error) {
				return resolveWeekday(now, m[1], false)
			},
		},
		{
			// "this friday" on a Friday resolves to today; "next friday"
			// always skips ahead.
			ID:      "this_weekday",
			Pattern: regexp.MustCompile(`\bthis (` + weekdayAlt + `)\b`),
			Resolve: func(now time.Time, m []string) (time.Time, error) {
				return resolveWeekday(now, m[1], true)
			},
		},
		{
			ID:      "bare_weekday",
			Pattern: regexp.MustCompile(`\b(` + weekdayAlt + `)\b`),
			Resolve: func(now time.Time, m []string) (time.Time, error) {
				return resolveWeekday(now, m[1], false)
			},
		},
	}

	lib.timeRules = []TimeRule{
		{
			ID:      "twelve_hour",
			Pattern: regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm)\b`),
			Resolve: func(m []string) (string, error) {
				return resolveTwelveHour(m[1], m[2], m[3])
			},
		},
		{
			ID:      "twelve_hour_simple",
			Pattern: regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`),
			Resolve: func(m []string) (string, error) {
				return resolveTwelveHour(m[1], "00", m[2])
			},
		},
		{
			ID:      "twenty_four_hour",
			Pattern: regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`),
			Resolve: func(m []string) (string, error) {
				return formatClock(atoi(m[1]), atoi(m[2]))
			},
		},
		{
			// 4-digit military time. The delimiter classes keep years inside
			// dates like 2025-07-05 from reading as 20:25.
			ID:      "military_time",
			Pattern: regexp.MustCompile(`(?:^|[\s,.;(])([01][0-9]|2[0-3])([0-5][0-9])(?:\s*(?:hours?|hrs?))?(?:[\s,.;!?)]|$)`),
			Resolve: func(m []string) (string, error) {
				return formatClock(atoi(m[1]), atoi(m[2]))
			},
		},
		{
			ID:      "named_period",
			Pattern: regexp.MustCompile(`\b(morning|afternoon|evening|night|noon|midnight)\b`),
			Resolve: func(m []string) (string, error) {
				t, ok := periodTable[m[1]]
				if !ok {
					return "", fmt.Errorf("nlp: unknown period %q", m[1])
				}
				return t, nil
			},
		},
		{
			ID:      "half_past",
			Pattern: regexp.MustCompile(`\bhalf past (\d{1,2})\b`),
			Resolve: func(m []string) (string, error) {
				return formatClock(atoi(m[1]), 30)
			},
		},
		{
			ID:      "quarter_past",
			Pattern: regexp.MustCompile(`\bquarter past (\d{1,2})\b`),
			Resolve: func(m []string) (string, error) {
				return formatClock(atoi(m[1]), 15)
			},
		},
		{
			ID:      "quarter_to",
			Pattern: regexp.MustCompile(`\bquarter to (\d{1,2})\b`),
			Resolve: func(m []string) (string, error) {
				h := atoi(m[1]) - 1
				if h < 0 {
					h = 23
				}
				return formatClock(h, 45)
			},
		},
	}

	return lib
}

// DateRules returns the ordered date rule table.
func (l *Library) DateRules() []DateRule { return l.dateRules }

// TimeRules returns the ordered time rule table.
func (l *Library) TimeRules() []TimeRule { return l.timeRules }

// resolveDayMonth handles "5th july" (and, with arguments swapped by the
// caller, "july 5th"). Dates without a year that already passed this year
// roll forward to next year; invalid day/month combinations retry with next
// year before failing.
func resolveDayMonth(now time.Time, m []string) (time.Time, error) {
	day := atoi(m[1])
	month, ok := monthTable[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, fmt.Errorf("nlp: unknown month %q", m[2])
	}
	return rollForward(now, now.Year(), month, day)
}

func resolveNumericDate(now time.Time, m []string) (time.Time, error) {
	first, second := atoi(m[1]), atoi(m[2])
	year := now.Year()
	explicitYear := false
	if m[3] != "" {
		explicitYear = true
		year = atoi(m[3])
		if year < 100 {
			if year < 50 {
				year += 2000
			} else {
				year += 1900
			}
		}
	}

	// Prefer day/month order; fall back to month/day only when day/month is
	// impossible.
	if second >= 1 && second <= 12 {
		if d, err := buildDate(now, year, time.Month(second), first, explicitYear); err == nil {
			return d, nil
		}
	}
	if first >= 1 && first <= 12 {
		if d, err := buildDate(now, year, time.Month(first), second, explicitYear); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("nlp: invalid numeric date %s/%s", m[1], m[2])
}

func resolveISODate(_ time.Time, m []string) (time.Time, error) {
	year, month, day := atoi(m[1]), atoi(m[2]), atoi(m[3])
	if !validDate(year, time.Month(month), day) {
		return time.Time{}, fmt.Errorf("nlp: invalid date %s-%s-%s", m[1], m[2], m[3])
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

func resolveWeekday(now time.Time, name string, includeToday bool) (time.Time, error) {
	wd, ok := weekdayTable[strings.ToLower(name)]
	if !ok {
		return time.Time{}, fmt.Errorf("nlp: unknown weekday %q", name)
	}
	days := int(wd-now.Weekday()+7) % 7
	if days == 0 && !includeToday {
		days = 7
	}
	return now.AddDate(0, 0, days), nil
}

// rollForward builds year/month/day, advancing to the following year when the
// date already passed or does not exist in the given year (e.g. Feb 30).
func rollForward(now time.Time, year int, month time.Month, day int) (time.Time, error) {
	if validDate(year, month, day) {
		d := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
		if !dateBefore(d, now) {
			return d, nil
		}
	}
	if validDate(year+1, month, day) {
		return time.Date(year+1, month, day, 0, 0, 0, 0, now.Location()), nil
	}
	return time.Time{}, fmt.Errorf("nlp: invalid date: day %d of %s", day, month)
}

// buildDate validates a numeric date and applies year rollover when no year
// was given explicitly.
func buildDate(now time.Time, year int, month time.Month, day int, explicitYear bool) (time.Time, error) {
	if !validDate(year, month, day) {
		return time.Time{}, fmt.Errorf("nlp: invalid date")
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	if !explicitYear && dateBefore(d, now) {
		return time.Date(year+1, month, day, 0, 0, 0, 0, now.Location()), nil
	}
	return d, nil
}

func validDate(year int, month time.Month, day int) bool {
	if month < time.January || month > time.December || day < 1 {
		return false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return d.Month() == month && d.Day() == day
}

// dateBefore compares calendar dates, ignoring time of day.
func dateBefore(d, now time.Time) bool {
	dy, dm, dd := d.Date()
	ny, nm, nd := now.In(d.Location()).Date()
	if dy != ny {
		return dy < ny
	}
	if dm != nm {
		return dm < nm
	}
	return dd < nd
}

func resolveTwelveHour(hourStr, minStr, period string) (string, error) {
	hour, minute := atoi(hourStr), atoi(minStr)
	if hour < 1 || hour > 12 {
		return "", fmt.Errorf("nlp: invalid 12-hour time %s:%s", hourStr, minStr)
	}
	if period == "pm" && hour != 12 {
		hour += 12
	} else if period == "am" && hour == 12 {
		hour = 0
	}
	return formatClock(hour, minute)
}

func formatClock(hour, minute int) (string, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", fmt.Errorf("nlp: invalid time %d:%d", hour, minute)
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
