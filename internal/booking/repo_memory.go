package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and local runs.
// InTx stages writes and applies them only when fn succeeds.
type MemoryRepo struct {
	mu sync.Mutex

	states       map[string]ConversationState
	appointments []Appointment
	followups    []Followup

	// Fail, when set, is consulted before every operation; a non-nil
	// return fails that operation. Ops: get_state, upsert_state,
	// delete_state, insert_appointment, commit, list_appointments,
	// insert_followup.
	Fail func(op string) error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{states: map[string]ConversationState{}}
}

var _ Repository = (*MemoryRepo)(nil)

func (r *MemoryRepo) check(op string) error {
	if r.Fail == nil {
		return nil
	}
	if err := r.Fail(op); err != nil {
		return storeErr(op, err)
	}
	return nil
}

func (r *MemoryRepo) GetState(ctx context.Context, phone string) (ConversationState, error) {
	if err := r.check("get_state"); err != nil {
		return ConversationState{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[phone]
	if !ok {
		return ConversationState{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memTx{repo: r}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := r.check("commit"); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.states == nil {
		r.states = map[string]ConversationState{}
	}
	for _, apply := range tx.ops {
		apply()
	}
	return nil
}

type memTx struct {
	repo *MemoryRepo
	ops  []func()
}

func (t *memTx) UpsertState(ctx context.Context, s ConversationState) error {
	if err := t.repo.check("upsert_state"); err != nil {
		return err
	}
	t.ops = append(t.ops, func() { t.repo.states[s.Phone] = s })
	return nil
}

func (t *memTx) DeleteState(ctx context.Context, phone string) error {
	if err := t.repo.check("delete_state"); err != nil {
		return err
	}
	t.ops = append(t.ops, func() { delete(t.repo.states, phone) })
	return nil
}

func (t *memTx) InsertAppointment(ctx context.Context, a Appointment) error {
	if err := t.repo.check("insert_appointment"); err != nil {
		return err
	}
	if a.ID == "" {
		return storeErr("insert_appointment", errors.New("id required"))
	}
	t.ops = append(t.ops, func() { t.repo.appointments = append(t.repo.appointments, a) })
	return nil
}

func (r *MemoryRepo) ListAppointmentsCreatedBefore(ctx context.Context, cutoff time.Time) ([]Appointment, error) {
	if err := r.check("list_appointments"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Appointment, 0)
	for _, a := range r.appointments {
		if a.CreatedAt.After(cutoff) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) InsertFollowupIfAbsent(ctx context.Context, f Followup) (bool, error) {
	if err := r.check("insert_followup"); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.followups {
		if existing.AppointmentID == f.AppointmentID {
			return false, nil
		}
	}
	if f.Status == "" {
		f.Status = FollowupStatusPending
	}
	r.followups = append(r.followups, f)
	return true, nil
}

// AddAppointment seeds an appointment directly, bypassing the engine.
func (r *MemoryRepo) AddAppointment(a Appointment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appointments = append(r.appointments, a)
}

// Appointments returns a copy of all stored appointments.
func (r *MemoryRepo) Appointments() []Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Appointment, len(r.appointments))
	copy(out, r.appointments)
	return out
}

// Followups returns a copy of all stored follow-ups.
func (r *MemoryRepo) Followups() []Followup {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Followup, len(r.followups))
	copy(out, r.followups)
	return out
}
