package nlp

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const (
	// ruleConfidence is assigned to every rule-based match.
	ruleConfidence = 0.9
	// fuzzyConfidence is assigned to fuzzy-fallback dates, deliberately
	// lower than any rule-based match.
	fuzzyConfidence = 0.65
	// maxDaysAhead is how far in the future a date may be before it is
	// rejected as an error.
	maxDaysAhead = 365
)

// fillerWords are stripped before the fuzzy fallback so scheduling verbs
// don't confuse the general-purpose parser.
var fillerWords = regexp.MustCompile(`\b(book|appointment|meeting|schedule|please|on|at|for|the|a|an)\b`)

// Extractor turns free text into a ParseResult using the rule tables, with a
// fuzzy general-purpose fallback for dates no rule recognizes.
type Extractor struct {
	lib *Library

	// Business-hours window in minutes since midnight. Times outside the
	// window produce a suggestion, never an error.
	businessStart int
	businessEnd   int
}

// ExtractorOptions configures validation behavior.
type ExtractorOptions struct {
	// BusinessHoursStart and BusinessHoursEnd are HH:MM strings. Defaults
	// are 09:00 and 18:00.
	BusinessHoursStart string
	BusinessHoursEnd   string
}

// NewExtractor builds an Extractor over the given library.
func NewExtractor(lib *Library, opts ExtractorOptions) *Extractor {
	if lib == nil {
		lib = NewLibrary()
	}
	start := clockToMinutes(opts.BusinessHoursStart, 9*60)
	end := clockToMinutes(opts.BusinessHoursEnd, 18*60)
	return &Extractor{lib: lib, businessStart: start, businessEnd: end}
}

// Extract parses text relative to now. It never panics on malformed input: a
// completely unparseable string yields a result with both components absent
// and populated suggestions. Repeated calls with the same (text, now) return
// identical results.
func (e *Extractor) Extract(text string, now time.Time) *ParseResult {
	normalized := strings.ToLower(strings.TrimSpace(text))
	result := &ParseResult{}

	if d := e.extractDate(normalized, now); d != nil {
		result.Date = d
	}
	if t := e.extractTime(normalized); t != nil {
		result.Time = t
	}

	e.validate(result, now)

	switch {
	case result.Date != nil && result.Time != nil:
		result.Confidence = (result.Date.Confidence + result.Time.Confidence) / 2
	case result.Date != nil:
		result.Confidence = result.Date.Confidence
	case result.Time != nil:
		result.Confidence = result.Time.Confidence
	default:
		result.Confidence = 0
		result.Suggestions = append(result.Suggestions,
			"Try a date like '5th July', 'tomorrow', or 'next Monday'",
			"Include a time like '3:30pm', '15:00', or 'afternoon'",
		)
	}
	if result.Date != nil && result.Time == nil {
		result.Suggestions = append(result.Suggestions,
			"No time specified. Try adding a time like '3:30pm', '15:00', or 'afternoon'")
	}

	return result
}

// extractDate tries the date rules in order, then the fuzzy fallback.
func (e *Extractor) extractDate(text string, now time.Time) *ParsedDate {
	for _, rule := range e.lib.DateRules() {
		m := rule.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		resolved, err := applyDateRule(rule, now, m)
		if err != nil {
			continue
		}
		return &ParsedDate{
			Date:        resolved.Format("2006-01-02"),
			MatchedText: trimMatch(m[0]),
			Confidence:  ruleConfidence,
			RuleID:      rule.ID,
		}
	}
	return e.fuzzyDate(text, now)
}

// applyDateRule isolates resolver panics so one misbehaving rule never takes
// down the whole extraction.
func applyDateRule(rule DateRule, now time.Time, m []string) (resolved time.Time, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("nlp: rule %s panicked: %v", rule.ID, r)
		}
	}()
	return rule.Resolve(now, m)
}

// fuzzyDate runs the general-purpose parser over the cleaned text. The result
// is accepted only when it differs from today's date, which filters out the
// parser's habit of returning "now" for non-date text.
func (e *Extractor) fuzzyDate(text string, now time.Time) *ParsedDate {
	clean := strings.TrimSpace(fillerWords.ReplaceAllString(text, " "))
	clean = strings.Join(strings.Fields(clean), " ")
	if clean == "" {
		return nil
	}

	parsed, err := safeFuzzyParse(clean, now.Location())
	if err != nil {
		return nil
	}
	if parsed.Format("2006-01-02") == now.Format("2006-01-02") {
		return nil
	}
	return &ParsedDate{
		Date:        parsed.Format("2006-01-02"),
		MatchedText: clean,
		Confidence:  fuzzyConfidence,
		RuleID:      "fuzzy",
	}
}

// safeFuzzyParse shields against panics inside the third-party parser.
func safeFuzzyParse(text string, loc *time.Location) (parsed time.Time, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("nlp: fuzzy parse panicked: %v", r)
		}
	}()
	return dateparse.ParseIn(text, loc)
}

func (e *Extractor) extractTime(text string) *ParsedTime {
	for _, rule := range e.lib.TimeRules() {
		m := rule.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		resolved, err := applyTimeRule(rule, m)
		if err != nil {
			continue
		}
		return &ParsedTime{
			Time:        resolved,
			MatchedText: trimMatch(m[0]),
			Confidence:  ruleConfidence,
			RuleID:      rule.ID,
		}
	}
	return nil
}

func applyTimeRule(rule TimeRule, m []string) (resolved string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("nlp: rule %s panicked: %v", rule.ID, r)
		}
	}()
	return rule.Resolve(m)
}

// validate applies semantic checks. Past and far-future dates are errors;
// weekends and out-of-hours times are suggestions only.
func (e *Extractor) validate(result *ParseResult, now time.Time) {
	if result.Date != nil {
		d, err := time.ParseInLocation("2006-01-02", result.Date.Date, now.Location())
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("invalid date %q", result.Date.Date))
			return
		}
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		switch {
		case d.Before(today):
			result.Errors = append(result.Errors,
				fmt.Sprintf("date %s is in the past", d.Format("January 2, 2006")))
			result.Suggestions = append(result.Suggestions, "Please choose a future date")
		case d.After(today.AddDate(0, 0, maxDaysAhead)):
			result.Errors = append(result.Errors, "date is more than a year in the future")
			result.Suggestions = append(result.Suggestions, "Please choose a date within the next year")
		}
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			result.Suggestions = append(result.Suggestions,
				fmt.Sprintf("Note: %s is a weekend", wd))
		}
	}

	if result.Time != nil {
		mins := clockToMinutes(result.Time.Time, -1)
		if mins < 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("invalid time %q", result.Time.Time))
			return
		}
		if mins < e.businessStart || mins >= e.businessEnd {
			result.Suggestions = append(result.Suggestions,
				fmt.Sprintf("Note: time is outside business hours (%s - %s)",
					minutesToClock(e.businessStart), minutesToClock(e.businessEnd)))
		}
	}
}

// trimMatch strips the context characters some patterns consume around the
// matched fragment.
func trimMatch(s string) string {
	return strings.Trim(s, " \t,.;!?()")
}

// clockToMinutes converts HH:MM to minutes since midnight, returning fallback
// on malformed input.
func clockToMinutes(clock string, fallback int) int {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return fallback
	}
	h, m := atoi(parts[0]), atoi(parts[1])
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return fallback
	}
	return h*60 + m
}

func minutesToClock(mins int) string {
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}
