package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/tailortalk-ai/booking-assistant/internal/nlp"
	"github.com/tailortalk-ai/booking-assistant/internal/observability/metrics"
	"github.com/tailortalk-ai/booking-assistant/pkg/logging"
)

// Engine drives the slot-filling dialogue: it classifies each inbound
// message, routes it to an intent handler, consults the extractor and the
// user's session, and returns a structured Directive. All parsing and
// validation problems degrade to clarification replies; only collaborator
// failures surface as errors.
type Engine struct {
	extractor    *nlp.Extractor
	classifier   *Classifier
	sessions     SessionStore
	availability AvailabilityProvider
	booking      BookingCommitter
	renderer     Renderer
	metrics      *metrics.ConversationMetrics
	logger       *logging.Logger
}

// EngineConfig wires the engine's collaborators. Sessions, Availability, and
// Booking are required; the rest default sensibly.
type EngineConfig struct {
	Extractor    *nlp.Extractor
	Classifier   *Classifier
	Sessions     SessionStore
	Availability AvailabilityProvider
	Booking      BookingCommitter
	Renderer     Renderer
	Metrics      *metrics.ConversationMetrics
	Logger       *logging.Logger
}

// NewEngine validates the config and builds an Engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("conversation: session store is required")
	}
	if cfg.Availability == nil {
		return nil, errors.New("conversation: availability provider is required")
	}
	if cfg.Booking == nil {
		return nil, errors.New("conversation: booking committer is required")
	}
	if cfg.Extractor == nil {
		cfg.Extractor = nlp.NewExtractor(nlp.NewLibrary(), nlp.ExtractorOptions{})
	}
	if cfg.Classifier == nil {
		cfg.Classifier = NewClassifier()
	}
	if cfg.Renderer == nil {
		cfg.Renderer = NewTemplateRenderer()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Engine{
		extractor:    cfg.Extractor,
		classifier:   cfg.Classifier,
		sessions:     cfg.Sessions,
		availability: cfg.Availability,
		booking:      cfg.Booking,
		renderer:     cfg.Renderer,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger.Named("engine"),
	}, nil
}

// ParseDateTime exposes the extractor alone, for diagnostics and testing.
func (e *Engine) ParseDateTime(text string, now time.Time) *nlp.ParseResult {
	res := e.extractor.Extract(text, now)
	e.metrics.ObserveParse(res.HasDate(), res.HasTime())
	return res
}

// HandleMessage processes one inbound message for userID. The returned error
// is non-nil only for collaborator or store failures; the Directive is still
// populated in the collaborator case so the caller can render the reply.
func (e *Engine) HandleMessage(ctx context.Context, userID, text string, now time.Time) (*Directive, error) {
	var directive *Directive
	var collabErr error

	err := e.sessions.WithSession(ctx, userID, func(sess *Session) error {
		intent := e.classifier.Classify(text, sess.Slots.Step)
		sess.Append(ChatRoleUser, text, now)

		d, err := e.route(ctx, intent, text, now, sess)
		sess.Slots.LastIntent = intent
		sess.Append(ChatRoleAssistant, d.Reply, now)

		d.Intent = intent
		d.Step = sess.Slots.Step
		d.Slots = sess.Slots
		directive = d
		collabErr = err

		e.metrics.ObserveMessage(string(intent), string(sess.Slots.Step))
		e.logger.Debug("handled message",
			"user_id", userID,
			"intent", intent,
			"step", sess.Slots.Step,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return directive, collabErr
}

// route dispatches to the intent handler. Every handler returns a directive;
// the error is reserved for collaborator failures.
func (e *Engine) route(ctx context.Context, intent Intent, text string, now time.Time, sess *Session) (*Directive, error) {
	switch intent {
	case IntentBookingRequest:
		return e.handleBooking(text, now, sess), nil
	case IntentDateSelection:
		return e.handleDateSelection(text, now, sess), nil
	case IntentTimeSelection:
		return e.handleTimeSelection(text, now, sess), nil
	case IntentConfirmation:
		return e.handleConfirmation(ctx, sess)
	case IntentAvailability:
		return e.handleAvailability(ctx, text, now, sess)
	case IntentModify:
		sess.Slots.Step = NextStep(sess.Slots.Step, intent, false, false)
		return &Directive{Reply: e.renderer.ModifyAck()}, nil
	case IntentCancel:
		sess.Slots.Step = NextStep(sess.Slots.Step, intent, false, false)
		return &Directive{Reply: e.renderer.CancelAck()}, nil
	case IntentHelp:
		return &Directive{Reply: e.renderer.Help()}, nil
	case IntentGreeting:
		return &Directive{Reply: e.renderer.Greeting(now)}, nil
	default:
		return &Directive{Reply: e.renderer.General()}, nil
	}
}

// handleBooking starts (or restarts) a booking from a free-form request.
func (e *Engine) handleBooking(text string, now time.Time, sess *Session) *Directive {
	// A fresh booking request restarts the machine from a terminal state.
	if sess.Slots.Step == StepCompleted || sess.Slots.Step == StepError {
		sess.Slots.ClearSchedule()
		sess.Slots.Step = StepStart
	}

	res := e.extractor.Extract(text, now)
	e.metrics.ObserveParse(res.HasDate(), res.HasTime())

	if res.Valid() {
		e.mergeDate(sess, res.Date)
		e.mergeTime(sess, res.Time)
	}

	slots := &sess.Slots
	slots.Step = NextStep(slots.Step, IntentBookingRequest, slots.Date != "", slots.Time != "")

	var reply string
	switch slots.Step {
	case StepAwaitingConfirmation:
		reply = e.renderer.ConfirmPrompt(*slots)
	case StepAwaitingTime:
		reply = e.renderer.ClarifyTime(res)
	default:
		reply = e.renderer.ClarifyDate(res)
	}
	return &Directive{Reply: reply, Parse: res}
}

// handleDateSelection fills the date slot while the dialogue waits for one.
func (e *Engine) handleDateSelection(text string, now time.Time, sess *Session) *Directive {
	res := e.extractor.Extract(text, now)
	e.metrics.ObserveParse(res.HasDate(), res.HasTime())

	dateUsable := res.HasDate() && res.Valid()
	if dateUsable {
		e.mergeDate(sess, res.Date)
		// Messages like "tomorrow at 3pm" may carry both slots.
		e.mergeTime(sess, res.Time)
	}

	slots := &sess.Slots
	slots.Step = NextStep(slots.Step, IntentDateSelection, slots.Date != "" && dateUsable, slots.Time != "")

	var reply string
	switch {
	case !dateUsable:
		reply = e.renderer.ClarifyDate(res)
	case slots.Step == StepAwaitingConfirmation:
		reply = e.renderer.ConfirmPrompt(*slots)
	default:
		reply = e.renderer.ClarifyTime(nil)
	}
	return &Directive{Reply: reply, Parse: res}
}

// handleTimeSelection is the mirror image for the time slot.
func (e *Engine) handleTimeSelection(text string, now time.Time, sess *Session) *Directive {
	res := e.extractor.Extract(text, now)
	e.metrics.ObserveParse(res.HasDate(), res.HasTime())

	timeUsable := res.HasTime() && res.Valid()
	if timeUsable {
		e.mergeTime(sess, res.Time)
		e.mergeDate(sess, res.Date)
	}

	slots := &sess.Slots
	slots.Step = NextStep(slots.Step, IntentTimeSelection, slots.Date != "", slots.Time != "" && timeUsable)

	var reply string
	switch {
	case !timeUsable:
		reply = e.renderer.ClarifyTime(res)
	case slots.Step == StepAwaitingConfirmation:
		reply = e.renderer.ConfirmPrompt(*slots)
	default:
		reply = e.renderer.ClarifyDate(nil)
	}
	return &Directive{Reply: reply, Parse: res}
}

// handleConfirmation re-validates availability and commits the booking.
// Collaborator failures leave the confirmed slots untouched so the user never
// starts over for a transient outage.
func (e *Engine) handleConfirmation(ctx context.Context, sess *Session) (*Directive, error) {
	slots := &sess.Slots
	if slots.Step != StepAwaitingConfirmation || slots.Date == "" || slots.Time == "" {
		return &Directive{Reply: e.renderer.General()}, nil
	}

	open, err := e.availability.Slots(ctx, slots.Date)
	if err != nil {
		slots.Step = StepError
		e.metrics.ObserveBooking("availability_error")
		return &Directive{Reply: e.renderer.BookingFailed()},
			&CollaboratorError{Op: "availability", Err: err}
	}
	if !containsSlot(open, slots.Time) {
		// The chosen time was taken since it was offered: drop only the
		// time slot and ask again.
		taken := *slots
		slots.Time = ""
		slots.TimeConfidence = 0
		slots.Step = StepAwaitingTime
		return &Directive{Reply: e.renderer.SlotTaken(taken, open)}, nil
	}

	conf, err := e.booking.Create(ctx, BookingRequest{
		UserID:          sess.UserID,
		Date:            slots.Date,
		Time:            slots.Time,
		DurationMinutes: slots.DurationMinutes,
		MeetingType:     slots.MeetingType,
	})
	if err != nil {
		slots.Step = StepError
		e.metrics.ObserveBooking("failure")
		return &Directive{Reply: e.renderer.BookingFailed()},
			&CollaboratorError{Op: "booking", Err: err}
	}

	slots.Step = NextStep(slots.Step, IntentConfirmation, true, true)
	e.metrics.ObserveBooking("success")
	e.logger.Info("booking committed",
		"user_id", sess.UserID,
		"date", slots.Date,
		"time", slots.Time,
		"event_id", conf.EventID,
	)
	return &Directive{Reply: e.renderer.Booked(*slots, conf.EventID), EventID: conf.EventID}, nil
}

// handleAvailability lists open slots for the requested date, defaulting to
// tomorrow. The dialogue step never changes here.
func (e *Engine) handleAvailability(ctx context.Context, text string, now time.Time, sess *Session) (*Directive, error) {
	res := e.extractor.Extract(text, now)

	date := now.AddDate(0, 0, 1).Format("2006-01-02")
	if res.HasDate() && res.Valid() {
		date = res.Date.Date
	}

	open, err := e.availability.Slots(ctx, date)
	if err != nil {
		return &Directive{Reply: e.renderer.AvailabilityFailed(), Parse: res},
			&CollaboratorError{Op: "availability", Err: err}
	}
	return &Directive{Reply: e.renderer.AvailabilityList(date, open), Parse: res}, nil
}

// mergeDate applies the monotonic-confidence merge, logging rejected
// overwrites instead of surfacing them to the user.
func (e *Engine) mergeDate(sess *Session, d *nlp.ParsedDate) {
	if err := sess.Slots.MergeDate(d); err != nil {
		e.logger.Debug("kept higher-confidence date slot", "user_id", sess.UserID, "error", err)
	}
}

func (e *Engine) mergeTime(sess *Session, t *nlp.ParsedTime) {
	if err := sess.Slots.MergeTime(t); err != nil {
		e.logger.Debug("kept higher-confidence time slot", "user_id", sess.UserID, "error", err)
	}
}

func containsSlot(slots []string, want string) bool {
	for _, s := range slots {
		if s == want {
			return true
		}
	}
	return false
}
