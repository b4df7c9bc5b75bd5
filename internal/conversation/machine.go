package conversation

import (
	"strings"

	"clinic-bot/internal/booking"
)

const (
	// ResetKeyword restarts the dialogue from any step.
	ResetKeyword = "hi"
	// MenuOptionBook is the only implemented menu entry. "2" and "3" are
	// shown in the menu but fall through to the fallback reply.
	MenuOptionBook = "1"
)

// Action is what the engine must do for one inbound message.
type Action int

const (
	ActionGreet Action = iota
	ActionListSlots
	ActionBook
	ActionFallback
	// ActionLoadState marks failures that happen before any decision is made.
	ActionLoadState
)

func (a Action) String() string {
	switch a {
	case ActionGreet:
		return "greet"
	case ActionListSlots:
		return "list_slots"
	case ActionBook:
		return "book"
	case ActionFallback:
		return "fallback"
	case ActionLoadState:
		return "load_state"
	default:
		return "unknown"
	}
}

// Decision is the pure outcome of Decide.
type Decision struct {
	Action Action
	// Next is the step to persist when the action succeeds.
	Next booking.Step
	// Slot is the requested label for ActionBook.
	Slot string
}

// Normalize trims and lowercases raw message text. Interior whitespace is kept.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Decide maps (current step, normalized message) to a Decision.
// It has no side effects; slot availability is resolved by the engine.
func Decide(step booking.Step, message string) Decision {
	switch {
	case message == ResetKeyword || step == booking.StepNone:
		return Decision{Action: ActionGreet, Next: booking.StepGreeting}
	case step == booking.StepGreeting && message == MenuOptionBook:
		return Decision{Action: ActionListSlots, Next: booking.StepChoosingSlot}
	case step == booking.StepChoosingSlot:
		// Catalog labels are canonical upper case ("10:00 AM"); only the input is folded.
		return Decision{Action: ActionBook, Next: booking.StepNone, Slot: strings.ToUpper(message)}
	default:
		return Decision{Action: ActionFallback, Next: step}
	}
}
