package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"clinic-bot/pkg/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// PostgresRepo persists conversation state, appointments and follow-ups.
//
// Tables are created by the embedded migrations:
// - conversation_state (phone primary key)
// - appointments (append-only)
// - followups (UNIQUE appointment_id)
type PostgresRepo struct {
	db     *sql.DB
	tracer trace.Tracer
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, tracer: otel.Tracer("clinic-bot/internal/booking")}
}

var _ Repository = (*PostgresRepo)(nil)

func (r *PostgresRepo) GetState(ctx context.Context, phone string) (ConversationState, error) {
	ctx, span := r.tracer.Start(ctx, "booking.get_state")
	defer span.End()

	const q = `
SELECT phone, last_step, selected_slot, updated_at
FROM conversation_state
WHERE phone = $1
`
	var (
		s        ConversationState
		step     string
		selected sql.NullString
	)
	if err := r.db.QueryRowContext(ctx, q, phone).Scan(&s.Phone, &step, &selected, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ConversationState{}, ErrNotFound
		}
		span.RecordError(err)
		return ConversationState{}, storeErr("get_state", err)
	}
	s.LastStep = Step(step)
	s.SelectedSlot = selected.String
	return s, nil
}

func (r *PostgresRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, span := r.tracer.Start(ctx, "booking.tx")
	defer span.End()

	var fnErr error
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		fnErr = fn(ctx, pgTx{tx: tx})
		return fnErr
	})
	if err == nil {
		return nil
	}
	span.RecordError(err)
	if fnErr != nil {
		// Already classified by pgTx or the caller.
		return fnErr
	}
	return storeErr("commit", err)
}

type pgTx struct {
	tx *sql.Tx
}

func (t pgTx) UpsertState(ctx context.Context, s ConversationState) error {
	const q = `
INSERT INTO conversation_state (phone, last_step, selected_slot, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (phone)
DO UPDATE SET last_step = EXCLUDED.last_step,
              selected_slot = EXCLUDED.selected_slot,
              updated_at = EXCLUDED.updated_at
`
	if _, err := t.tx.ExecContext(ctx, q, s.Phone, string(s.LastStep), nullString(s.SelectedSlot), s.UpdatedAt); err != nil {
		return storeErr("upsert_state", err)
	}
	return nil
}

func (t pgTx) DeleteState(ctx context.Context, phone string) error {
	const q = `DELETE FROM conversation_state WHERE phone = $1`
	if _, err := t.tx.ExecContext(ctx, q, phone); err != nil {
		return storeErr("delete_state", err)
	}
	return nil
}

func (t pgTx) InsertAppointment(ctx context.Context, a Appointment) error {
	const q = `
INSERT INTO appointments (id, phone, name, slot, created_at)
VALUES ($1, $2, $3, $4, $5)
`
	if _, err := t.tx.ExecContext(ctx, q, a.ID, a.Phone, a.Name, a.Slot, a.CreatedAt); err != nil {
		return storeErr("insert_appointment", err)
	}
	return nil
}

func (r *PostgresRepo) ListAppointmentsCreatedBefore(ctx context.Context, cutoff time.Time) ([]Appointment, error) {
	ctx, span := r.tracer.Start(ctx, "booking.list_appointments")
	defer span.End()

	const q = `
SELECT id, phone, name, slot, created_at
FROM appointments
WHERE created_at <= $1
ORDER BY created_at, id
`
	rows, err := r.db.QueryContext(ctx, q, cutoff)
	if err != nil {
		span.RecordError(err)
		return nil, storeErr("list_appointments", err)
	}
	defer rows.Close()

	out := make([]Appointment, 0)
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.Phone, &a.Name, &a.Slot, &a.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, storeErr("list_appointments", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, storeErr("list_appointments", err)
	}
	return out, nil
}

func (r *PostgresRepo) InsertFollowupIfAbsent(ctx context.Context, f Followup) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "booking.insert_followup")
	defer span.End()

	if f.Status == "" {
		f.Status = FollowupStatusPending
	}
	const q = `
INSERT INTO followups (id, appointment_id, reminder_sent, status)
VALUES ($1, $2, $3, $4)
ON CONFLICT (appointment_id) DO NOTHING
`
	res, err := r.db.ExecContext(ctx, q, f.ID, f.AppointmentID, f.SentAt, string(f.Status))
	if err != nil {
		span.RecordError(err)
		return false, storeErr("insert_followup", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("insert_followup", err)
	}
	return n == 1, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
