package nlp

// ParsedDate is a calendar date extracted from free text.
type ParsedDate struct {
	// Date is the resolved date in YYYY-MM-DD form.
	Date string `json:"date"`
	// MatchedText is the fragment of input the rule matched.
	MatchedText string `json:"matched_text"`
	// Confidence is the extractor's certainty in [0,1].
	Confidence float64 `json:"confidence"`
	// RuleID identifies the rule that produced this date.
	RuleID string `json:"rule_id"`
}

// ParsedTime is a time of day extracted from free text.
type ParsedTime struct {
	// Time is the resolved time in 24-hour HH:MM form.
	Time        string  `json:"time"`
	MatchedText string  `json:"matched_text"`
	Confidence  float64 `json:"confidence"`
	RuleID      string  `json:"rule_id"`
}

// ParseResult aggregates at most one date and one time extracted from a
// single message, along with validation errors and non-blocking suggestions.
type ParseResult struct {
	Date        *ParsedDate `json:"date,omitempty"`
	Time        *ParsedTime `json:"time,omitempty"`
	Errors      []string    `json:"errors,omitempty"`
	Suggestions []string    `json:"suggestions,omitempty"`
	// Confidence is the mean of the present components' confidences,
	// 0 when neither a date nor a time was found.
	Confidence float64 `json:"confidence"`
}

// HasDate reports whether a date was extracted.
func (r *ParseResult) HasDate() bool { return r.Date != nil }

// HasTime reports whether a time was extracted.
func (r *ParseResult) HasTime() bool { return r.Time != nil }

// Valid reports whether the result carries no blocking errors.
func (r *ParseResult) Valid() bool { return len(r.Errors) == 0 }
