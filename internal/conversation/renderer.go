package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/tailortalk-ai/booking-assistant/internal/nlp"
)

// Renderer produces the user-facing text for each structured outcome. The
// engine only decides which outcome occurred; prose is the renderer's
// business, so alternative implementations (an LLM-backed one, say) can be
// swapped in without touching dialogue logic.
type Renderer interface {
	Greeting(now time.Time) string
	Help() string
	General() string
	ClarifyDate(res *nlp.ParseResult) string
	ClarifyTime(res *nlp.ParseResult) string
	ConfirmPrompt(slots SlotState) string
	Booked(slots SlotState, eventID string) string
	BookingFailed() string
	AvailabilityList(date string, slots []string) string
	AvailabilityFailed() string
	SlotTaken(slots SlotState, alternatives []string) string
	ModifyAck() string
	CancelAck() string
}

// maxListedSlots caps the numbered availability list in replies.
const maxListedSlots = 6

// TemplateRenderer is the default fixed-text renderer.
type TemplateRenderer struct{}

// NewTemplateRenderer returns the default renderer.
func NewTemplateRenderer() *TemplateRenderer { return &TemplateRenderer{} }

func (r *TemplateRenderer) Greeting(now time.Time) string {
	return fmt.Sprintf(
		"Hello! I'm your appointment booking assistant. The current time is %s.\n"+
			"You can say things like 'Book an appointment on 5th July at 3:30pm' or "+
			"'Show me available times for tomorrow'.",
		now.Format("3:04 PM on Monday, January 2, 2006"))
}

func (r *TemplateRenderer) Help() string {
	return "Here's what I understand:\n" +
		"- Booking: 'Book appointment on 5th July at 3:30pm'\n" +
		"- Dates: '5th July', 'July 5th', 'tomorrow', 'next Monday', '2025-07-05'\n" +
		"- Times: '3:30pm', '15:00', 'afternoon', 'half past 3'\n" +
		"- Availability: 'What slots are free tomorrow?'\n" +
		"Just tell me when you'd like to meet."
}

func (r *TemplateRenderer) General() string {
	return "I help with booking appointments. Try 'Book an appointment on 5th July at 3:30pm', " +
		"or say 'help' to see what I understand."
}

func (r *TemplateRenderer) ClarifyDate(res *nlp.ParseResult) string {
	var sb strings.Builder
	if res != nil && len(res.Errors) > 0 {
		sb.WriteString(strings.Join(res.Errors, ". "))
		sb.WriteString(". ")
	}
	sb.WriteString("Which date would you like? You can say '5th July', 'tomorrow', or 'next Monday'.")
	return sb.String()
}

func (r *TemplateRenderer) ClarifyTime(res *nlp.ParseResult) string {
	var sb strings.Builder
	if res != nil && len(res.Errors) > 0 {
		sb.WriteString(strings.Join(res.Errors, ". "))
		sb.WriteString(". ")
	}
	sb.WriteString("What time works for you? You can say '3:30pm', '15:00', or 'afternoon'.")
	return sb.String()
}

func (r *TemplateRenderer) ConfirmPrompt(slots SlotState) string {
	return fmt.Sprintf("I have you down for a %d-minute %s on %s at %s. Shall I book it?",
		slots.DurationMinutes, strings.ToLower(slots.MeetingType),
		formatDate(slots.Date), formatTime(slots.Time))
}

func (r *TemplateRenderer) Booked(slots SlotState, eventID string) string {
	return fmt.Sprintf("Done! Your %s is booked for %s at %s (confirmation %s).",
		strings.ToLower(slots.MeetingType), formatDate(slots.Date), formatTime(slots.Time), eventID)
}

func (r *TemplateRenderer) BookingFailed() string {
	return "I couldn't reach the calendar to complete the booking. Your date and time are saved - " +
		"say 'confirm' to try again."
}

func (r *TemplateRenderer) AvailabilityList(date string, slots []string) string {
	if len(slots) == 0 {
		return fmt.Sprintf("No open slots on %s. Would you like to try another date?", formatDate(date))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Available times on %s:\n", formatDate(date))
	for i, s := range slots {
		if i >= maxListedSlots {
			fmt.Fprintf(&sb, "...and %d more\n", len(slots)-maxListedSlots)
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, formatTime(s))
	}
	sb.WriteString("To book one, tell me the time.")
	return sb.String()
}

func (r *TemplateRenderer) AvailabilityFailed() string {
	return "I couldn't reach the calendar to check availability. Please try again in a moment."
}

func (r *TemplateRenderer) SlotTaken(slots SlotState, alternatives []string) string {
	if len(alternatives) == 0 {
		return fmt.Sprintf("Sorry, %s on %s was just taken and nothing else is open that day. "+
			"Would you like to try another date?", formatTime(slots.Time), formatDate(slots.Date))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Sorry, %s on %s was just taken. Still open:\n", formatTime(slots.Time), formatDate(slots.Date))
	for i, s := range alternatives {
		if i >= maxListedSlots {
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, formatTime(s))
	}
	sb.WriteString("Which time would you like instead?")
	return sb.String()
}

func (r *TemplateRenderer) ModifyAck() string {
	return "I hear you'd like to change an existing booking. Tell me the new date and time and " +
		"I'll take it from there."
}

func (r *TemplateRenderer) CancelAck() string {
	return "I hear you'd like to cancel. Reply 'yes' to confirm the cancellation."
}

// formatDate renders YYYY-MM-DD as a friendly date, falling back to the raw
// string for anything unparseable.
func formatDate(date string) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return d.Format("Monday, January 2, 2006")
}

// formatTime renders HH:MM as 12-hour clock text.
func formatTime(clock string) string {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return clock
	}
	return t.Format("3:04 PM")
}
