package conversation

// NextStep is the single source of truth for dialogue transitions: given the
// current step, the classified intent, and which slots are known after the
// turn's merge, it returns the step the dialogue moves to on the success
// path. The engine overrides the result to StepError when a collaborator
// fails.
func NextStep(current Step, intent Intent, dateKnown, timeKnown bool) Step {
	switch intent {
	case IntentBookingRequest:
		switch {
		case dateKnown && timeKnown:
			return StepAwaitingConfirmation
		case dateKnown:
			return StepAwaitingTime
		default:
			// Only a time, or nothing at all: ask for the date first.
			return StepAwaitingDate
		}

	case IntentDateSelection:
		if !dateKnown {
			// Unusable answer: re-emit the same step with a clarification
			// rather than advancing; a required slot is never dropped.
			return current
		}
		if timeKnown {
			return StepAwaitingConfirmation
		}
		return StepAwaitingTime

	case IntentTimeSelection:
		if !timeKnown {
			return current
		}
		if dateKnown {
			return StepAwaitingConfirmation
		}
		return StepAwaitingDate

	case IntentConfirmation:
		if current == StepAwaitingConfirmation && dateKnown && timeKnown {
			return StepCompleted
		}
		return current

	case IntentModify:
		return StepAwaitingModification

	case IntentCancel:
		return StepAwaitingCancelConfirmation

	default:
		// Availability checks, help, greetings, and general chatter never
		// move the dialogue.
		return current
	}
}
