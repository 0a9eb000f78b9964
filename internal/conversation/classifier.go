package conversation

import (
	"regexp"
	"strings"
)

// Classifier scores inbound messages against fixed per-intent keyword sets,
// with step-aware shortcuts that take priority over general scoring. It is
// read-only after construction and safe for concurrent use.
type Classifier struct {
	keywords map[Intent][]string
}

// NewClassifier builds the keyword tables.
func NewClassifier() *Classifier {
	return &Classifier{
		keywords: map[Intent][]string{
			IntentBookingRequest: {"book", "schedule", "appointment", "meeting", "call", "reserve"},
			IntentAvailability:   {"available", "free", "slots", "when"},
			IntentConfirmation:   {"yes", "confirm", "ok"},
			IntentCancel:         {"cancel", "delete", "remove"},
			IntentModify:         {"change", "reschedule", "move"},
			IntentHelp:           {"help", "how", "commands"},
			IntentGreeting:       {"hello", "hi", "hey"},
		},
	}
}

// Tokens that satisfy the step-aware shortcuts.
var (
	meridiemRE = regexp.MustCompile(`\b\d{1,2}(:\d{2})?\s*(am|pm)\b`)
	periodRE   = regexp.MustCompile(`\b(morning|afternoon|evening|night|noon|midnight)\b`)
	dateWordRE = regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday|` +
		`mon|tue|wed|thu|fri|sat|sun|` +
		`january|february|march|april|may|june|july|august|september|october|november|december|` +
		`jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec|` +
		`today|tomorrow)\b`)
)

var affirmations = []string{"yes", "confirm", "ok", "okay", "sure", "go ahead", "book it"}

// Classify returns the intent of text given the active dialogue step.
func (c *Classifier) Classify(text string, step Step) Intent {
	msg := strings.ToLower(strings.TrimSpace(text))
	if msg == "" {
		return IntentGeneral
	}

	// Shortcuts: when a specific slot is awaited, slot-shaped answers win
	// without running the scorer.
	switch step {
	case StepAwaitingTime:
		if strings.Contains(msg, ":") || meridiemRE.MatchString(msg) || periodRE.MatchString(msg) {
			return IntentTimeSelection
		}
	case StepAwaitingDate:
		if dateWordRE.MatchString(msg) {
			return IntentDateSelection
		}
	case StepAwaitingConfirmation:
		for _, word := range affirmations {
			if containsPhrase(msg, word) {
				return IntentConfirmation
			}
		}
	}

	best := IntentGeneral
	bestScore := 0
	for _, intent := range intentOrder {
		score := 0
		for _, kw := range c.keywords[intent] {
			if containsPhrase(msg, kw) {
				score++
			}
		}
		if score > bestScore {
			best = intent
			bestScore = score
		}
	}
	return best
}

// containsPhrase matches kw on word boundaries so that "ok" never fires
// inside "book".
func containsPhrase(msg, kw string) bool {
	idx := 0
	for {
		i := strings.Index(msg[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		beforeOK := start == 0 || !isWordChar(msg[start-1])
		afterOK := end == len(msg) || !isWordChar(msg[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}
