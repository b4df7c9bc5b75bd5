// Package followup records a pending follow-up for every appointment that has
// aged past a threshold.
package followup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"clinic-bot/internal/booking"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultThreshold = 24 * time.Hour

var ErrRunFailed = errors.New("followup: run failed")

// Result summarizes one pass.
type Result struct {
	Eligible  int `json:"eligible"`
	Scheduled int `json:"scheduled"`
}

type Recorder interface {
	ObserveFollowupRun(outcome string, scheduled int)
}

type Options struct {
	Threshold time.Duration
	Recorder  Recorder
	Logger    *slog.Logger
	Now       func() time.Time
	NewID     func() string
}

// Scheduler inserts follow-ups for eligible appointments. An appointment never
// gets more than one follow-up no matter how often the scheduler runs.
type Scheduler struct {
	store     booking.FollowupStore
	threshold time.Duration
	recorder  Recorder
	log       *slog.Logger
	now       func() time.Time
	newID     func() string
}

func NewScheduler(store booking.FollowupStore, opts Options) *Scheduler {
	s := &Scheduler{
		store:     store,
		threshold: opts.Threshold,
		recorder:  opts.Recorder,
		log:       opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if s.threshold <= 0 {
		s.threshold = DefaultThreshold
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

func (s *Scheduler) Threshold() time.Duration { return s.threshold }

// RunOnce schedules follow-ups for appointments created at or before
// now minus the threshold. Inserts are not rolled back on failure; the
// returned Result counts what was written before the error.
func (s *Scheduler) RunOnce(ctx context.Context) (Result, error) {
	ctx, span := otel.Tracer("clinic-bot/internal/followup").Start(ctx, "followup.RunOnce")
	defer span.End()

	now := s.now().UTC()
	cutoff := now.Add(-s.threshold)
	span.SetAttributes(attribute.String("followup.cutoff", cutoff.Format(time.RFC3339)))

	var res Result
	appts, err := s.store.ListAppointmentsCreatedBefore(ctx, cutoff)
	if err != nil {
		return res, s.fail(span, res, fmt.Errorf("%w: list appointments: %w", ErrRunFailed, err))
	}
	res.Eligible = len(appts)

	for _, a := range appts {
		created, err := s.store.InsertFollowupIfAbsent(ctx, booking.Followup{
			ID:            s.newID(),
			AppointmentID: a.ID,
			SentAt:        now,
			Status:        booking.FollowupStatusPending,
		})
		if err != nil {
			return res, s.fail(span, res, fmt.Errorf("%w: appointment %s after %d scheduled: %w", ErrRunFailed, a.ID, res.Scheduled, err))
		}
		if created {
			res.Scheduled++
		}
	}

	span.SetAttributes(
		attribute.Int("followup.eligible", res.Eligible),
		attribute.Int("followup.scheduled", res.Scheduled),
	)
	if s.recorder != nil {
		s.recorder.ObserveFollowupRun("ok", res.Scheduled)
	}
	s.log.Info("follow-ups scheduled", "eligible", res.Eligible, "scheduled", res.Scheduled)
	return res, nil
}

func (s *Scheduler) fail(span trace.Span, res Result, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "followup run failed")
	if s.recorder != nil {
		s.recorder.ObserveFollowupRun("error", res.Scheduled)
	}
	s.log.Error("follow-up run failed", "scheduled", res.Scheduled, "err", err)
	return err
}
