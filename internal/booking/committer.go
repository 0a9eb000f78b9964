package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tailortalk-ai/booking-assistant/internal/availability"
	"github.com/tailortalk-ai/booking-assistant/internal/conversation"
	"github.com/tailortalk-ai/booking-assistant/pkg/logging"
)

var tracer = otel.Tracer("booking.internal.booking")

// Event is a committed booking as stored by the committer.
type Event struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	DurationMinutes int       `json:"duration_minutes"`
	MeetingType     string    `json:"meeting_type"`
	CreatedAt       time.Time `json:"created_at"`
}

// MemoryCommitter reserves the slot on a Schedule and records the event in
// memory. It is the in-process stand-in for a calendar backend.
type MemoryCommitter struct {
	schedule *availability.Schedule
	logger   *logging.Logger
	now      func() time.Time

	mu     sync.Mutex
	events []Event

	// failWith, when set, makes Create fail. Used to exercise error paths.
	failWith error
}

// NewMemoryCommitter builds a committer backed by schedule.
func NewMemoryCommitter(schedule *availability.Schedule, logger *logging.Logger) *MemoryCommitter {
	if logger == nil {
		logger = logging.Default()
	}
	return &MemoryCommitter{
		schedule: schedule,
		logger:   logger.Named("booking"),
		now:      time.Now,
	}
}

// Create reserves the requested slot and records the event, returning the
// event id for the confirmation message.
func (c *MemoryCommitter) Create(ctx context.Context, req conversation.BookingRequest) (*conversation.BookingConfirmation, error) {
	ctx, span := tracer.Start(ctx, "booking.create",
		trace.WithAttributes(
			attribute.String("booking.date", req.Date),
			attribute.String("booking.time", req.Time),
		))
	defer span.End()

	if req.Date == "" || req.Time == "" {
		return nil, fmt.Errorf("booking: request is missing date or time")
	}

	c.mu.Lock()
	fail := c.failWith
	c.mu.Unlock()
	if fail != nil {
		return nil, fmt.Errorf("booking: create event: %w", fail)
	}

	if err := c.schedule.Reserve(ctx, req.Date, req.Time); err != nil {
		return nil, fmt.Errorf("booking: reserve slot: %w", err)
	}

	ev := Event{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		Date:            req.Date,
		Time:            req.Time,
		DurationMinutes: req.DurationMinutes,
		MeetingType:     req.MeetingType,
		CreatedAt:       c.now().UTC(),
	}

	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()

	c.logger.Info("event created",
		"event_id", ev.ID,
		"user_id", ev.UserID,
		"date", ev.Date,
		"time", ev.Time,
	)
	return &conversation.BookingConfirmation{EventID: ev.ID}, nil
}

// Events returns a copy of all committed events, oldest first.
func (c *MemoryCommitter) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// FailWith forces subsequent Create calls to fail with err. Pass nil to
// restore normal operation.
func (c *MemoryCommitter) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWith = err
}
