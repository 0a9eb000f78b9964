package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/tailortalk-ai/booking-assistant/internal/nlp"
)

// Intent is the classified purpose of an inbound message. Declaration order
// doubles as the tie-break order when keyword scores are equal.
type Intent string

const (
	IntentBookingRequest Intent = "booking_request"
	IntentDateSelection  Intent = "date_selection"
	IntentTimeSelection  Intent = "time_selection"
	IntentConfirmation   Intent = "confirmation"
	IntentAvailability   Intent = "availability_check"
	IntentModify         Intent = "modify"
	IntentCancel         Intent = "cancel"
	IntentHelp           Intent = "help"
	IntentGreeting       Intent = "greeting"
	IntentGeneral        Intent = "general"
)

// intentOrder fixes the tie-break sequence for keyword scoring.
var intentOrder = []Intent{
	IntentBookingRequest,
	IntentDateSelection,
	IntentTimeSelection,
	IntentConfirmation,
	IntentAvailability,
	IntentModify,
	IntentCancel,
	IntentHelp,
	IntentGreeting,
	IntentGeneral,
}

// Step is the dialogue state indicating which slots are still required.
type Step string

const (
	StepStart                Step = "start"
	StepAwaitingDate         Step = "awaiting_date"
	StepAwaitingTime         Step = "awaiting_time"
	StepAwaitingConfirmation Step = "awaiting_confirmation"
	StepCompleted            Step = "completed"
	StepError                Step = "error"

	// Terminal branches for flows this assistant acknowledges but does not
	// drive to completion.
	StepAwaitingModification       Step = "awaiting_modification"
	StepAwaitingCancelConfirmation Step = "awaiting_cancel_confirmation"
)

// Chat roles for history entries.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is a single history entry.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SlotState is the per-user record of booking information gathered so far.
// Confidences arbitrate conflicting multi-turn updates: a field set with high
// confidence is never overwritten by a lower-confidence parse.
type SlotState struct {
	Date            string  `json:"date,omitempty"`
	Time            string  `json:"time,omitempty"`
	DateConfidence  float64 `json:"date_confidence,omitempty"`
	TimeConfidence  float64 `json:"time_confidence,omitempty"`
	DurationMinutes int     `json:"duration_minutes"`
	MeetingType     string  `json:"meeting_type"`
	Step            Step    `json:"step"`
	LastIntent      Intent  `json:"last_intent,omitempty"`
}

// MergeDate folds a parsed date into the state. Returns a *SlotConflictError
// when the existing value is held with higher confidence; the existing value
// is retained in that case.
func (s *SlotState) MergeDate(d *nlp.ParsedDate) error {
	if d == nil || d.Date == "" {
		return nil
	}
	if s.Date != "" && d.Confidence < s.DateConfidence {
		return &SlotConflictError{Field: "date", Existing: s.DateConfidence, Incoming: d.Confidence}
	}
	s.Date = d.Date
	s.DateConfidence = d.Confidence
	return nil
}

// MergeTime folds a parsed time into the state, with the same monotonic
// confidence rule as MergeDate.
func (s *SlotState) MergeTime(t *nlp.ParsedTime) error {
	if t == nil || t.Time == "" {
		return nil
	}
	if s.Time != "" && t.Confidence < s.TimeConfidence {
		return &SlotConflictError{Field: "time", Existing: s.TimeConfidence, Incoming: t.Confidence}
	}
	s.Time = t.Time
	s.TimeConfidence = t.Confidence
	return nil
}

// ClearSchedule drops the date/time slots, keeping duration and meeting type.
func (s *SlotState) ClearSchedule() {
	s.Date = ""
	s.Time = ""
	s.DateConfidence = 0
	s.TimeConfidence = 0
}

// SlotConflictError reports a rejected attempt to overwrite a slot value with
// a lower-confidence one.
type SlotConflictError struct {
	Field    string
	Existing float64
	Incoming float64
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("conversation: refusing to overwrite %s slot (confidence %.2f) with lower-confidence value (%.2f)",
		e.Field, e.Existing, e.Incoming)
}

// CollaboratorError wraps a failure from an external collaborator (calendar,
// booking backend). It is the only error kind that crosses the engine
// boundary; parsing and validation problems degrade to clarification replies.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("conversation: %s collaborator failed: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// AvailabilityProvider exposes open slots for a date as HH:MM strings.
type AvailabilityProvider interface {
	Slots(ctx context.Context, date string) ([]string, error)
}

// BookingRequest is what the engine hands to the booking collaborator.
type BookingRequest struct {
	UserID          string `json:"user_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	MeetingType     string `json:"meeting_type"`
}

// BookingConfirmation is the collaborator's receipt for a committed booking.
type BookingConfirmation struct {
	EventID string `json:"event_id"`
}

// BookingCommitter commits a fully-specified booking.
type BookingCommitter interface {
	Create(ctx context.Context, req BookingRequest) (*BookingConfirmation, error)
}

// Directive is the structured outcome of one conversational turn. The caller
// (HTTP layer, webchat) renders Reply verbatim; Intent, Step, and Slots
// expose the engine's decisions for clients and tests.
type Directive struct {
	Reply   string           `json:"reply"`
	Intent  Intent           `json:"intent"`
	Step    Step             `json:"step"`
	Slots   SlotState        `json:"slot_state"`
	Parse   *nlp.ParseResult `json:"parse_result,omitempty"`
	EventID string           `json:"event_id,omitempty"`
}
