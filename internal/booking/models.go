package booking

import "time"

// Step is the caller's progress marker through the booking dialogue.
// StepNone is never persisted: it means "no conversation_state row".
type Step string

const (
	StepNone         Step = ""
	StepGreeting     Step = "greeting"
	StepChoosingSlot Step = "choosing_slot"
)

func (s Step) String() string {
	switch s {
	case StepNone:
		return "NONE"
	case StepGreeting:
		return "GREETING"
	case StepChoosingSlot:
		return "CHOOSING_SLOT"
	default:
		return string(s)
	}
}

// ConversationState is the one live dialogue row per caller.
type ConversationState struct {
	Phone    string `json:"phone" db:"phone"`
	LastStep Step   `json:"last_step" db:"last_step"`

	// SelectedSlot is optional; empty maps to NULL.
	SelectedSlot string `json:"selected_slot,omitempty" db:"selected_slot"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultPatientName is stored on every appointment until names are collected.
const DefaultPatientName = "Patient"

// Appointment is immutable once created.
type Appointment struct {
	ID        string    `json:"id" db:"id"`
	Phone     string    `json:"phone" db:"phone"`
	Name      string    `json:"name" db:"name"`
	Slot      string    `json:"slot" db:"slot"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type FollowupStatus string

const FollowupStatusPending FollowupStatus = "pending"

// Followup is a pending reminder for a past appointment.
// At most one exists per appointment. SentAt is stamped when the row is
// scheduled.
type Followup struct {
	ID            string         `json:"id" db:"id"`
	AppointmentID string         `json:"appointment_id" db:"appointment_id"`
	SentAt        time.Time      `json:"reminder_sent" db:"reminder_sent"`
	Status        FollowupStatus `json:"status" db:"status"`
}
