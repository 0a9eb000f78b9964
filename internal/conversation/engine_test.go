package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var engineNow = time.Date(2025, 6, 27, 10, 0, 0, 0, time.FixedZone("IST", 5*3600+30*60))

type fakeAvailability struct {
	slots     []string
	err       error
	lastDate  string
	callCount int
}

func (f *fakeAvailability) Slots(_ context.Context, date string) ([]string, error) {
	f.lastDate = date
	f.callCount++
	if f.err != nil {
		return nil, f.err
	}
	return f.slots, nil
}

type fakeCommitter struct {
	eventID  string
	err      error
	requests []BookingRequest
}

func (f *fakeCommitter) Create(_ context.Context, req BookingRequest) (*BookingConfirmation, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &BookingConfirmation{EventID: f.eventID}, nil
}

func newTestEngine(t *testing.T, avail *fakeAvailability, commit *fakeCommitter) *Engine {
	t.Helper()
	if avail == nil {
		avail = &fakeAvailability{slots: []string{"09:00", "15:30", "16:00"}}
	}
	if commit == nil {
		commit = &fakeCommitter{eventID: "evt-123"}
	}
	eng, err := NewEngine(EngineConfig{
		Sessions:     NewMemorySessionStore(SessionDefaults{}),
		Availability: avail,
		Booking:      commit,
	})
	require.NoError(t, err)
	return eng
}

func send(t *testing.T, eng *Engine, user, text string) *Directive {
	t.Helper()
	d, err := eng.HandleMessage(context.Background(), user, text, engineNow)
	require.NoError(t, err)
	require.NotNil(t, d)
	return d
}

func TestNewEngineRequiresCollaborators(t *testing.T) {
	_, err := NewEngine(EngineConfig{})
	assert.Error(t, err)

	_, err = NewEngine(EngineConfig{Sessions: NewMemorySessionStore(SessionDefaults{})})
	assert.Error(t, err)
}

func TestEngineFullBookingFlow(t *testing.T) {
	commit := &fakeCommitter{eventID: "evt-123"}
	eng := newTestEngine(t, nil, commit)

	d := send(t, eng, "u1", "I want to book a meeting")
	assert.Equal(t, IntentBookingRequest, d.Intent)
	assert.Equal(t, StepAwaitingDate, d.Step)

	d = send(t, eng, "u1", "5th July")
	assert.Equal(t, IntentDateSelection, d.Intent)
	assert.Equal(t, StepAwaitingTime, d.Step)
	assert.Equal(t, "2025-07-05", d.Slots.Date)

	d = send(t, eng, "u1", "3:30pm")
	assert.Equal(t, IntentTimeSelection, d.Intent)
	assert.Equal(t, StepAwaitingConfirmation, d.Step)
	assert.Equal(t, "15:30", d.Slots.Time)

	d = send(t, eng, "u1", "yes")
	assert.Equal(t, IntentConfirmation, d.Intent)
	assert.Equal(t, StepCompleted, d.Step)
	assert.Equal(t, "evt-123", d.EventID)

	require.Len(t, commit.requests, 1)
	req := commit.requests[0]
	assert.Equal(t, "u1", req.UserID)
	assert.Equal(t, "2025-07-05", req.Date)
	assert.Equal(t, "15:30", req.Time)
	assert.Equal(t, 60, req.DurationMinutes)
	assert.Equal(t, "Meeting", req.MeetingType)
}

func TestEngineTwentyFourHourTimeWhileAwaiting(t *testing.T) {
	avail := &fakeAvailability{slots: []string{"10:00"}}
	eng := newTestEngine(t, avail, nil)

	send(t, eng, "u1", "book a meeting")
	send(t, eng, "u1", "5th July")
	d := send(t, eng, "u1", "10:00")

	assert.Equal(t, IntentTimeSelection, d.Intent)
	assert.Equal(t, StepAwaitingConfirmation, d.Step)
	assert.Equal(t, "10:00", d.Slots.Time)
}

func TestEngineOneShotBooking(t *testing.T) {
	eng := newTestEngine(t, nil, nil)

	d := send(t, eng, "u1", "Book a meeting for 5th July at 3:30pm")
	assert.Equal(t, StepAwaitingConfirmation, d.Step)
	assert.Equal(t, "2025-07-05", d.Slots.Date)
	assert.Equal(t, "15:30", d.Slots.Time)
}

func TestEngineUnusableDateKeepsStep(t *testing.T) {
	eng := newTestEngine(t, nil, nil)

	send(t, eng, "u1", "book a meeting")
	d := send(t, eng, "u1", "february 30th")

	assert.Equal(t, StepAwaitingDate, d.Step)
	assert.Empty(t, d.Slots.Date)
}

func TestEngineSlotTakenClearsOnlyTime(t *testing.T) {
	avail := &fakeAvailability{slots: []string{"09:00", "10:00"}}
	commit := &fakeCommitter{eventID: "evt-123"}
	eng := newTestEngine(t, avail, commit)

	send(t, eng, "u1", "book 5th july at 3:30pm")
	d := send(t, eng, "u1", "yes")

	assert.Equal(t, StepAwaitingTime, d.Step)
	assert.Equal(t, "2025-07-05", d.Slots.Date)
	assert.Empty(t, d.Slots.Time)
	assert.Empty(t, commit.requests, "nothing should be committed")
	assert.Contains(t, d.Reply, "9:00 AM")
}

func TestEngineBookingFailurePreservesSlots(t *testing.T) {
	commit := &fakeCommitter{err: errors.New("calendar unreachable")}
	eng := newTestEngine(t, nil, commit)

	send(t, eng, "u1", "book 5th july at 3:30pm")

	d, err := eng.HandleMessage(context.Background(), "u1", "yes", engineNow)
	require.NotNil(t, d)

	var collab *CollaboratorError
	require.ErrorAs(t, err, &collab)
	assert.Equal(t, "booking", collab.Op)

	assert.Equal(t, StepError, d.Step)
	assert.Equal(t, "2025-07-05", d.Slots.Date)
	assert.Equal(t, "15:30", d.Slots.Time)
	assert.Empty(t, d.EventID)
}

func TestEngineAvailabilityCheckDefaultsToTomorrow(t *testing.T) {
	avail := &fakeAvailability{slots: []string{"09:00", "10:00"}}
	eng := newTestEngine(t, avail, nil)

	d := send(t, eng, "u1", "when are you free?")
	assert.Equal(t, IntentAvailability, d.Intent)
	assert.Equal(t, "2025-06-28", avail.lastDate)
	assert.Equal(t, StepStart, d.Step, "availability checks never move the dialogue")
	assert.Contains(t, d.Reply, "9:00 AM")
}

func TestEngineAvailabilityCheckUsesParsedDate(t *testing.T) {
	avail := &fakeAvailability{slots: []string{"11:00"}}
	eng := newTestEngine(t, avail, nil)

	send(t, eng, "u1", "what slots are free on 5th july?")
	assert.Equal(t, "2025-07-05", avail.lastDate)
}

func TestEngineAvailabilityFailureLeavesStep(t *testing.T) {
	avail := &fakeAvailability{err: errors.New("calendar unreachable")}
	eng := newTestEngine(t, avail, nil)

	d, err := eng.HandleMessage(context.Background(), "u1", "when are you free?", engineNow)
	require.NotNil(t, d)

	var collab *CollaboratorError
	require.ErrorAs(t, err, &collab)
	assert.Equal(t, "availability", collab.Op)
	assert.Equal(t, StepStart, d.Step)
}

func TestEngineRestartsAfterCompletion(t *testing.T) {
	eng := newTestEngine(t, nil, nil)

	send(t, eng, "u1", "book 5th july at 3:30pm")
	d := send(t, eng, "u1", "yes")
	require.Equal(t, StepCompleted, d.Step)

	d = send(t, eng, "u1", "book another meeting")
	assert.Equal(t, StepAwaitingDate, d.Step)
	assert.Empty(t, d.Slots.Date)
	assert.Empty(t, d.Slots.Time)
}

func TestEngineStaticIntents(t *testing.T) {
	eng := newTestEngine(t, nil, nil)

	d := send(t, eng, "u1", "hello")
	assert.Equal(t, IntentGreeting, d.Intent)
	assert.NotEmpty(t, d.Reply)
	assert.Equal(t, StepStart, d.Step)

	d = send(t, eng, "u1", "help")
	assert.Equal(t, IntentHelp, d.Intent)
	assert.NotEmpty(t, d.Reply)

	d = send(t, eng, "u1", "what is the weather")
	assert.Equal(t, IntentGeneral, d.Intent)
	assert.NotEmpty(t, d.Reply)
}

func TestEngineModifyAndCancel(t *testing.T) {
	eng := newTestEngine(t, nil, nil)

	send(t, eng, "u1", "book 5th july at 3:30pm")

	d := send(t, eng, "u1", "actually, change the time")
	assert.Equal(t, IntentModify, d.Intent)
	assert.Equal(t, StepAwaitingModification, d.Step)

	d = send(t, eng, "u2", "cancel everything")
	assert.Equal(t, IntentCancel, d.Intent)
	assert.Equal(t, StepAwaitingCancelConfirmation, d.Step)
}

func TestEngineRecordsHistory(t *testing.T) {
	store := NewMemorySessionStore(SessionDefaults{})
	eng, err := NewEngine(EngineConfig{
		Sessions:     store,
		Availability: &fakeAvailability{},
		Booking:      &fakeCommitter{eventID: "e"},
	})
	require.NoError(t, err)

	_, err = eng.HandleMessage(context.Background(), "u1", "hello", engineNow)
	require.NoError(t, err)

	require.NoError(t, store.WithSession(context.Background(), "u1", func(sess *Session) error {
		require.Len(t, sess.History, 2)
		assert.Equal(t, ChatRoleUser, sess.History[0].Role)
		assert.Equal(t, "hello", sess.History[0].Content)
		assert.Equal(t, ChatRoleAssistant, sess.History[1].Role)
		return nil
	}))
}

func TestEngineParseDateTime(t *testing.T) {
	eng := newTestEngine(t, nil, nil)

	res := eng.ParseDateTime("5th july at 3:30pm", engineNow)
	require.NotNil(t, res.Date)
	assert.Equal(t, "2025-07-05", res.Date.Date)
	require.NotNil(t, res.Time)
	assert.Equal(t, "15:30", res.Time.Time)
}
