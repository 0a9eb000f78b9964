package nlp

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor() *Extractor {
	return NewExtractor(NewLibrary(), ExtractorOptions{})
}

func TestExtractFullRequest(t *testing.T) {
	e := newTestExtractor()

	res := e.Extract("Book a meeting for 5th July at 3:30pm", testNow)

	require.NotNil(t, res.Date)
	assert.Equal(t, "2025-07-05", res.Date.Date)
	assert.Equal(t, "day_month", res.Date.RuleID)
	assert.InDelta(t, 0.9, res.Date.Confidence, 1e-9)

	require.NotNil(t, res.Time)
	assert.Equal(t, "15:30", res.Time.Time)
	assert.Equal(t, "twelve_hour", res.Time.RuleID)

	assert.Empty(t, res.Errors)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
}

func TestExtractToleratesMonthTypo(t *testing.T) {
	e := newTestExtractor()

	res := e.Extract("4th Augus 3:30pm", testNow)

	require.NotNil(t, res.Date)
	assert.Equal(t, "2025-08-04", res.Date.Date)
	require.NotNil(t, res.Time)
	assert.Equal(t, "15:30", res.Time.Time)
	assert.Empty(t, res.Errors)
}

func TestExtractDateOnly(t *testing.T) {
	e := newTestExtractor()

	res := e.Extract("tomorrow", testNow)

	require.NotNil(t, res.Date)
	assert.Equal(t, "2025-06-28", res.Date.Date)
	assert.Nil(t, res.Time)
	assert.Empty(t, res.Errors)

	// 2025-06-28 is a Saturday, and no time was given.
	assert.True(t, hasSuggestion(res, "weekend"), "expected a weekend note, got %v", res.Suggestions)
	assert.True(t, hasSuggestion(res, "No time specified"), "expected a missing-time note, got %v", res.Suggestions)
}

func TestExtractTimeOnly(t *testing.T) {
	e := newTestExtractor()

	res := e.Extract("quarter to 5", testNow)

	assert.Nil(t, res.Date)
	require.NotNil(t, res.Time)
	assert.Equal(t, "04:45", res.Time.Time)
	assert.Equal(t, "quarter_to", res.Time.RuleID)

	// 04:45 is before opening.
	assert.True(t, hasSuggestion(res, "business hours"), "expected a business-hours note, got %v", res.Suggestions)
}

func TestExtractPastDateIsError(t *testing.T) {
	e := newTestExtractor()

	res := e.Extract("2025-01-15 at 3pm", testNow)

	require.NotNil(t, res.Date)
	assert.Equal(t, "2025-01-15", res.Date.Date)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0], "in the past")
	assert.False(t, res.Valid())
}

func TestExtractFarFutureDateIsError(t *testing.T) {
	e := newTestExtractor()

	res := e.Extract("2026-12-31", testNow)

	require.NotNil(t, res.Date)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0], "more than a year")
}

func TestExtractUnparseableText(t *testing.T) {
	e := newTestExtractor()

	for _, text := range []string{"", "asdfghjkl", "what is the weather"} {
		res := e.Extract(text, testNow)
		assert.Nil(t, res.Date, "text %q", text)
		assert.Nil(t, res.Time, "text %q", text)
		assert.Zero(t, res.Confidence, "text %q", text)
		assert.NotEmpty(t, res.Suggestions, "text %q", text)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	e := newTestExtractor()

	first := e.Extract("next friday at 2pm", testNow)
	for i := 0; i < 10; i++ {
		again := e.Extract("next friday at 2pm", testNow)
		assert.Equal(t, first, again)
	}
}

func TestExtractConfidenceBounds(t *testing.T) {
	e := newTestExtractor()

	texts := []string{
		"", "tomorrow", "3:30pm", "5th july at 3pm", "maybe sometime",
		"next monday morning", "15/8 1430", "quarter past 9",
	}
	for _, text := range texts {
		res := e.Extract(text, testNow)
		assert.GreaterOrEqual(t, res.Confidence, 0.0, "text %q", text)
		assert.LessOrEqual(t, res.Confidence, 1.0, "text %q", text)
	}
}

func TestExtractRulesBeatFuzzyFallback(t *testing.T) {
	e := newTestExtractor()

	res := e.Extract("5th july", testNow)
	require.NotNil(t, res.Date)
	assert.Equal(t, "day_month", res.Date.RuleID)
	assert.InDelta(t, 0.9, res.Date.Confidence, 1e-9)
}

func TestExtractBusinessHoursSuggestions(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		text   string
		inside bool
	}{
		{"9am", true},
		{"5:30pm", true},
		{"8:59am", false},
		{"6pm", false},
		{"8pm", false},
	}
	for _, tc := range tests {
		res := e.Extract(tc.text, testNow)
		require.NotNil(t, res.Time, "text %q", tc.text)
		got := hasSuggestion(res, "business hours")
		assert.Equal(t, !tc.inside, got, "text %q suggestions %v", tc.text, res.Suggestions)
	}
}

func TestExtractCustomBusinessHours(t *testing.T) {
	e := NewExtractor(NewLibrary(), ExtractorOptions{
		BusinessHoursStart: "08:00",
		BusinessHoursEnd:   "20:00",
	})

	res := e.Extract("6pm", testNow)
	require.NotNil(t, res.Time)
	assert.False(t, hasSuggestion(res, "business hours"))
}

func TestTwelveHourRoundTrip(t *testing.T) {
	e := newTestExtractor()

	// A 12-hour parse, rendered back to 12-hour form, must re-parse to the
	// same clock value.
	for _, text := range []string{"12:00am", "12:45pm", "1:05pm", "9:30 am", "11:59pm"} {
		first := e.Extract(text, testNow)
		require.NotNil(t, first.Time, "text %q", text)

		clock, err := time.Parse("15:04", first.Time.Time)
		require.NoError(t, err)
		rendered := strings.ToLower(clock.Format("3:04PM"))

		second := e.Extract(rendered, testNow)
		require.NotNil(t, second.Time, "rendered %q", rendered)
		assert.Equal(t, first.Time.Time, second.Time.Time, "text %q rendered %q", text, rendered)
	}
}

func hasSuggestion(res *ParseResult, fragment string) bool {
	for _, s := range res.Suggestions {
		if strings.Contains(strings.ToLower(s), strings.ToLower(fragment)) {
			return true
		}
	}
	return false
}
