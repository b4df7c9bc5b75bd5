package conversation

import (
	"fmt"
	"strings"
)

const (
	DefaultClinicName = "ABC Clinic"

	ReplyInvalidSlot = "Slot not available or invalid. Please choose a valid slot."
	ReplyFallback    = "Sorry, I didn't understand that. Please type 'hi' to start again."
)

// GreetingReply is the main menu.
func GreetingReply(clinicName string) string {
	if clinicName == "" {
		clinicName = DefaultClinicName
	}
	return fmt.Sprintf("Hello! Welcome to %s. Please choose:\n1. Book Appointment\n2. Reschedule\n3. Follow-up Reminder", clinicName)
}

// SlotListReply lists slots one per line, in the order given.
func SlotListReply(available []string) string {
	return "Please choose a slot:\n" + strings.Join(available, "\n")
}

func BookedReply(slot string) string {
	return fmt.Sprintf("Appointment booked at %s. Thank you!", slot)
}
