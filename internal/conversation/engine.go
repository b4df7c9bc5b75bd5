package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"clinic-bot/internal/booking"
	"clinic-bot/internal/slots"
	"clinic-bot/pkg/logger"

	"github.com/google/uuid"
)

var ErrCallerRequired = errors.New("conversation: caller id required")

// Outcome labels recorded per handled message.
const (
	OutcomeOK          = "ok"
	OutcomeInvalidSlot = "invalid_slot"
	OutcomeError       = "error"
)

// Recorder receives one observation per handled message.
type Recorder interface {
	ObserveMessage(action, outcome string)
}

// TransitionError carries the context needed to diagnose a failed message
// without exposing it to the caller.
type TransitionError struct {
	CallerID string
	Step     booking.Step
	Action   Action
	Err      error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("conversation: %s from %s failed: %v", e.Action, e.Step, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }

// Options configures an Engine. Zero values get defaults.
type Options struct {
	ClinicName string
	Locker     Locker
	Recorder   Recorder
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() string
}

// Engine runs the booking dialogue for one clinic.
type Engine struct {
	store      booking.ConversationStore
	pool       *slots.Pool
	locker     Locker
	recorder   Recorder
	log        *slog.Logger
	clinicName string
	now        func() time.Time
	newID      func() string
}

func NewEngine(store booking.ConversationStore, pool *slots.Pool, opts Options) *Engine {
	e := &Engine{
		store:      store,
		pool:       pool,
		locker:     opts.Locker,
		recorder:   opts.Recorder,
		log:        opts.Logger,
		clinicName: opts.ClinicName,
		now:        opts.Now,
		newID:      opts.NewID,
	}
	if e.locker == nil {
		e.locker = NewLocalLocker()
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.clinicName == "" {
		e.clinicName = DefaultClinicName
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e
}

// HandleMessage advances callerID's conversation by one inbound message and
// returns the reply text. Messages from one caller are handled one at a time.
//
// A non-nil error means nothing was committed: the caller's previous state and
// the slot pool are unchanged.
func (e *Engine) HandleMessage(ctx context.Context, callerID, rawText string) (string, error) {
	if callerID == "" {
		return "", ErrCallerRequired
	}
	unlock, err := e.locker.Lock(ctx, callerID)
	if err != nil {
		return "", fmt.Errorf("conversation: lock caller: %w", err)
	}
	defer unlock()

	message := Normalize(rawText)

	step := booking.StepNone
	st, err := e.store.GetState(ctx, callerID)
	switch {
	case err == nil:
		step = st.LastStep
	case errors.Is(err, booking.ErrNotFound):
	default:
		e.observe(ActionLoadState, OutcomeError)
		return "", &TransitionError{CallerID: callerID, Step: step, Action: ActionLoadState, Err: err}
	}

	d := Decide(step, message)
	reply, outcome, err := e.apply(ctx, callerID, d)
	if err != nil {
		e.observe(d.Action, OutcomeError)
		return "", &TransitionError{CallerID: callerID, Step: step, Action: d.Action, Err: err}
	}
	e.observe(d.Action, outcome)

	logger.From(ctx).Debug("conversation advanced",
		"caller", logger.MaskPhone(callerID),
		"from", step.String(),
		"action", d.Action.String(),
		"outcome", outcome,
	)
	return reply, nil
}

func (e *Engine) apply(ctx context.Context, callerID string, d Decision) (string, string, error) {
	now := e.now().UTC()

	switch d.Action {
	case ActionGreet:
		err := e.store.InTx(ctx, func(ctx context.Context, tx booking.Tx) error {
			return tx.UpsertState(ctx, booking.ConversationState{Phone: callerID, LastStep: d.Next, UpdatedAt: now})
		})
		if err != nil {
			return "", "", err
		}
		return GreetingReply(e.clinicName), OutcomeOK, nil

	case ActionListSlots:
		err := e.store.InTx(ctx, func(ctx context.Context, tx booking.Tx) error {
			return tx.UpsertState(ctx, booking.ConversationState{Phone: callerID, LastStep: d.Next, UpdatedAt: now})
		})
		if err != nil {
			return "", "", err
		}
		return SlotListReply(e.pool.Available()), OutcomeOK, nil

	case ActionBook:
		return e.book(ctx, callerID, d.Slot, now)

	default:
		return ReplyFallback, OutcomeOK, nil
	}
}

// book holds the slot while the appointment and the state deletion commit,
// and gives it back if they do not.
func (e *Engine) book(ctx context.Context, callerID, label string, now time.Time) (string, string, error) {
	res, ok := e.pool.Reserve(label)
	if !ok {
		return ReplyInvalidSlot, OutcomeInvalidSlot, nil
	}

	appt := booking.Appointment{
		ID:        e.newID(),
		Phone:     callerID,
		Name:      booking.DefaultPatientName,
		Slot:      label,
		CreatedAt: now,
	}
	err := e.store.InTx(ctx, func(ctx context.Context, tx booking.Tx) error {
		if err := tx.InsertAppointment(ctx, appt); err != nil {
			return err
		}
		return tx.DeleteState(ctx, callerID)
	})
	if err != nil {
		res.Cancel()
		return "", "", err
	}
	res.Commit()

	e.log.Info("appointment booked",
		"appointment_id", appt.ID,
		"caller", logger.MaskPhone(callerID),
		"slot", label,
	)
	return BookedReply(label), OutcomeOK, nil
}

func (e *Engine) observe(a Action, outcome string) {
	if e.recorder != nil {
		e.recorder.ObserveMessage(a.String(), outcome)
	}
}

// AvailableSlots exposes the pool's current free slots.
func (e *Engine) AvailableSlots() []string {
	return e.pool.Available()
}
