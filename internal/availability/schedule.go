package availability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("booking.internal.availability")

// Options configures a Schedule's working day.
type Options struct {
	// OpensAt and ClosesAt are HH:MM clock strings bounding the working
	// day. Slots start at OpensAt and the last slot begins strictly before
	// ClosesAt.
	OpensAt  string
	ClosesAt string
	// SlotInterval is the gap between consecutive slot starts.
	SlotInterval time.Duration
	// MaxSlots caps how many slots a single day can offer, zero for no cap.
	MaxSlots int
}

func (o Options) normalize() Options {
	if o.OpensAt == "" {
		o.OpensAt = "09:00"
	}
	if o.ClosesAt == "" {
		o.ClosesAt = "18:00"
	}
	if o.SlotInterval <= 0 {
		o.SlotInterval = time.Hour
	}
	return o
}

// Schedule generates the day's bookable slots on demand and tracks
// reservations in memory. It is the in-process stand-in for an external
// calendar and is safe for concurrent use.
type Schedule struct {
	opts Options

	mu       sync.Mutex
	reserved map[string]map[string]struct{} // date -> set of HH:MM starts
}

// NewSchedule builds a Schedule from opts, applying defaults for any zero
// field.
func NewSchedule(opts Options) (*Schedule, error) {
	opts = opts.normalize()
	open, err := clockMinutes(opts.OpensAt)
	if err != nil {
		return nil, fmt.Errorf("availability: opens at: %w", err)
	}
	closes, err := clockMinutes(opts.ClosesAt)
	if err != nil {
		return nil, fmt.Errorf("availability: closes at: %w", err)
	}
	if closes <= open {
		return nil, fmt.Errorf("availability: closing time %s is not after opening time %s", opts.ClosesAt, opts.OpensAt)
	}
	return &Schedule{
		opts:     opts,
		reserved: make(map[string]map[string]struct{}),
	}, nil
}

// Slots returns the open HH:MM slot starts for date (YYYY-MM-DD), in
// ascending order, excluding anything already reserved.
func (s *Schedule) Slots(ctx context.Context, date string) ([]string, error) {
	_, span := tracer.Start(ctx, "availability.slots",
		trace.WithAttributes(attribute.String("availability.date", date)))
	defer span.End()

	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("availability: invalid date %q: %w", date, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	taken := s.reserved[date]
	open, _ := clockMinutes(s.opts.OpensAt)
	closes, _ := clockMinutes(s.opts.ClosesAt)
	step := int(s.opts.SlotInterval / time.Minute)

	var out []string
	for m := open; m < closes; m += step {
		if s.opts.MaxSlots > 0 && len(out) >= s.opts.MaxSlots {
			break
		}
		slot := fmt.Sprintf("%02d:%02d", m/60, m%60)
		if _, ok := taken[slot]; ok {
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}

// Reserve marks a slot as taken. It fails when the slot does not exist on
// the day's grid or is already reserved. The check and the write happen
// under one lock so concurrent bookings cannot both win the same slot.
func (s *Schedule) Reserve(ctx context.Context, date, slot string) error {
	_, span := tracer.Start(ctx, "availability.reserve",
		trace.WithAttributes(
			attribute.String("availability.date", date),
			attribute.String("availability.slot", slot),
		))
	defer span.End()

	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("availability: invalid date %q: %w", date, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.onGrid(slot) {
		return fmt.Errorf("availability: slot %s on %s is not open", slot, date)
	}
	if _, taken := s.reserved[date][slot]; taken {
		return fmt.Errorf("availability: slot %s on %s is already reserved", slot, date)
	}
	if s.reserved[date] == nil {
		s.reserved[date] = make(map[string]struct{})
	}
	s.reserved[date][slot] = struct{}{}
	return nil
}

// onGrid reports whether slot is one of the day's generated starts. Caller
// holds s.mu.
func (s *Schedule) onGrid(slot string) bool {
	want, err := clockMinutes(slot)
	if err != nil {
		return false
	}
	open, _ := clockMinutes(s.opts.OpensAt)
	closes, _ := clockMinutes(s.opts.ClosesAt)
	step := int(s.opts.SlotInterval / time.Minute)
	for n, m := 0, open; m < closes; n, m = n+1, m+step {
		if s.opts.MaxSlots > 0 && n >= s.opts.MaxSlots {
			break
		}
		if m == want {
			return true
		}
	}
	return false
}

// Release frees a previously reserved slot. Releasing an unreserved slot is
// a no-op.
func (s *Schedule) Release(date, slot string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reserved[date], slot)
}

func clockMinutes(clock string) (int, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", clock, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
