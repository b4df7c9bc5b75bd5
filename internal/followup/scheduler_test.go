package followup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"clinic-bot/internal/booking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type runs struct {
	mu       sync.Mutex
	outcomes []string
	total    int
}

func (r *runs) ObserveFollowupRun(outcome string, scheduled int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
	r.total += scheduled
}

func (r *runs) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outcomes)
}

func seed(repo *booking.MemoryRepo, id string, age time.Duration) {
	repo.AddAppointment(booking.Appointment{
		ID:        id,
		Phone:     "+1555" + id,
		Name:      booking.DefaultPatientName,
		Slot:      "10:00 AM",
		CreatedAt: now.Add(-age),
	})
}

func newScheduler(repo *booking.MemoryRepo, rec Recorder) *Scheduler {
	var n int
	return NewScheduler(repo, Options{
		Recorder: rec,
		Now:      func() time.Time { return now },
		NewID: func() string {
			n++
			return fmt.Sprintf("fu-%d", n)
		},
	})
}

func TestRunOnce_SchedulesOnlyAgedAppointments(t *testing.T) {
	repo := booking.NewMemoryRepo()
	seed(repo, "old-1", 48*time.Hour)
	seed(repo, "old-2", 25*time.Hour)
	seed(repo, "edge", 24*time.Hour)
	seed(repo, "new-1", time.Hour)
	seed(repo, "new-2", 23*time.Hour+59*time.Minute)

	rec := &runs{}
	res, err := newScheduler(repo, rec).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Eligible: 3, Scheduled: 3}, res)

	var ids []string
	for _, f := range repo.Followups() {
		ids = append(ids, f.AppointmentID)
		assert.Equal(t, booking.FollowupStatusPending, f.Status)
		assert.Equal(t, now, f.SentAt)
	}
	assert.ElementsMatch(t, []string{"old-1", "old-2", "edge"}, ids)
	assert.Equal(t, []string{"ok"}, rec.outcomes)
	assert.Equal(t, 3, rec.total)
}

func TestRunOnce_RepeatedRunsDoNotDuplicate(t *testing.T) {
	repo := booking.NewMemoryRepo()
	seed(repo, "a", 30*time.Hour)
	seed(repo, "b", 40*time.Hour)
	s := newScheduler(repo, nil)

	first, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Scheduled)

	second, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Eligible: 2, Scheduled: 0}, second)
	assert.Len(t, repo.Followups(), 2)

	seed(repo, "c", 26*time.Hour)
	third, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, third.Scheduled)
	assert.Len(t, repo.Followups(), 3)
}

func TestRunOnce_NothingEligible(t *testing.T) {
	repo := booking.NewMemoryRepo()
	seed(repo, "fresh", time.Minute)

	res, err := newScheduler(repo, nil).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Empty(t, repo.Followups())
}

func TestRunOnce_ListFailure(t *testing.T) {
	repo := booking.NewMemoryRepo()
	seed(repo, "a", 30*time.Hour)
	repo.Fail = func(op string) error {
		if op == "list_appointments" {
			return errors.New("db down")
		}
		return nil
	}
	rec := &runs{}
	_, err := newScheduler(repo, rec).RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrRunFailed)
	assert.ErrorIs(t, err, booking.ErrStore)
	assert.Equal(t, []string{"error"}, rec.outcomes)
}

func TestRunOnce_PartialFailureKeepsEarlierInserts(t *testing.T) {
	repo := booking.NewMemoryRepo()
	seed(repo, "a", 50*time.Hour)
	seed(repo, "b", 40*time.Hour)
	seed(repo, "c", 30*time.Hour)

	calls := 0
	repo.Fail = func(op string) error {
		if op != "insert_followup" {
			return nil
		}
		calls++
		if calls == 2 {
			return errors.New("connection reset")
		}
		return nil
	}

	s := newScheduler(repo, nil)
	res, err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunFailed)
	assert.Contains(t, err.Error(), "after 1 scheduled")
	assert.Equal(t, Result{Eligible: 3, Scheduled: 1}, res)
	require.Len(t, repo.Followups(), 1)
	assert.Equal(t, "a", repo.Followups()[0].AppointmentID)

	// The next run picks up the rest without duplicating "a".
	repo.Fail = nil
	res, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scheduled)
	assert.Len(t, repo.Followups(), 3)
}

func TestNewScheduler_Defaults(t *testing.T) {
	s := NewScheduler(booking.NewMemoryRepo(), Options{})
	assert.Equal(t, DefaultThreshold, s.Threshold())

	s = NewScheduler(booking.NewMemoryRepo(), Options{Threshold: time.Hour})
	assert.Equal(t, time.Hour, s.Threshold())
}

func TestRunner_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	repo := booking.NewMemoryRepo()
	seed(repo, "a", 30*time.Hour)
	rec := &runs{}
	r := NewRunner(newScheduler(repo, rec), time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return rec.count() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after cancel")
	}
	assert.Len(t, repo.Followups(), 1)
}
