package booking

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned by point lookups that match no row.
	ErrNotFound = errors.New("booking: not found")
	// ErrStore wraps every failed read or write against the backing store.
	ErrStore = errors.New("booking: store operation failed")
)

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// ConversationStore is what the conversation engine needs.
//
// Reads happen outside a transaction under the caller's lock; every write for
// one inbound message goes through a single InTx call so it commits or rolls
// back as a unit.
type ConversationStore interface {
	GetState(ctx context.Context, phone string) (ConversationState, error)
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the write surface available inside InTx.
type Tx interface {
	UpsertState(ctx context.Context, s ConversationState) error
	DeleteState(ctx context.Context, phone string) error
	InsertAppointment(ctx context.Context, a Appointment) error
}

// FollowupStore is what the follow-up scheduler needs.
type FollowupStore interface {
	// ListAppointmentsCreatedBefore returns appointments with created_at <= cutoff,
	// oldest first.
	ListAppointmentsCreatedBefore(ctx context.Context, cutoff time.Time) ([]Appointment, error)
	// InsertFollowupIfAbsent reports false when the appointment already has a follow-up.
	InsertFollowupIfAbsent(ctx context.Context, f Followup) (bool, error)
}

// Repository is implemented by both the Postgres and the in-memory store.
type Repository interface {
	ConversationStore
	FollowupStore
}
