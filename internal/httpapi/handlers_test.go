package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"clinic-bot/internal/auth"
	"clinic-bot/internal/followup"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	res followup.Result
	err error
}

func (s stubRunner) RunOnce(ctx context.Context) (followup.Result, error) { return s.res, s.err }

type stubSlots []string

func (s stubSlots) AvailableSlots() []string { return s }

func do(t *testing.T, method, path string, h gin.HandlerFunc, pre ...gin.HandlerFunc) (int, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Handle(method, path, append(pre, h)...)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestScheduleFollowups_Success(t *testing.T) {
	h := Handlers{Followups: stubRunner{res: followup.Result{Eligible: 5, Scheduled: 3}}}
	code, body := do(t, http.MethodGet, "/schedule_followups", h.ScheduleFollowups)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Scheduled 3 follow-ups.", body["message"])
	assert.Equal(t, float64(3), body["count"])
}

func TestScheduleFollowups_ZeroIsStillSuccess(t *testing.T) {
	h := Handlers{Followups: stubRunner{}}
	code, body := do(t, http.MethodGet, "/schedule_followups", h.ScheduleFollowups)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Scheduled 0 follow-ups.", body["message"])
}

func TestScheduleFollowups_Failure(t *testing.T) {
	h := Handlers{Followups: stubRunner{
		res: followup.Result{Eligible: 2, Scheduled: 1},
		err: errors.New("followup: run failed: appointment a2 after 1 scheduled: pq: connection reset"),
	}}
	code, body := do(t, http.MethodGet, "/schedule_followups", h.ScheduleFollowups)

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "failed to schedule follow-ups (1 scheduled before failure)", body["message"])
	assert.NotContains(t, body["message"], "a2")
	assert.NotContains(t, body["message"], "connection reset")
}

func TestListSlots(t *testing.T) {
	h := Handlers{Slots: stubSlots{"10:00 AM", "04:00 PM"}}
	code, body := do(t, http.MethodGet, "/v1/slots", h.ListSlots)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"10:00 AM", "04:00 PM"}, body["available"])
	assert.Equal(t, float64(2), body["count"])
}

func TestMe(t *testing.T) {
	withIdentity := func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), "cron", "operator"))
		c.Next()
	}
	code, body := do(t, http.MethodGet, "/v1/me", Handlers{}.Me, withIdentity)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cron", body["user_id"])
	assert.Equal(t, "operator", body["role"])
}

func TestReadyz(t *testing.T) {
	ok := ReadinessCheck{Name: "postgres", Check: func(context.Context) error { return nil }}
	bad := ReadinessCheck{Name: "redis", Check: func(context.Context) error { return errors.New("dial tcp: refused") }}

	code, body := do(t, http.MethodGet, "/readyz", Handlers{Readiness: []ReadinessCheck{ok}}.Readyz)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, body = do(t, http.MethodGet, "/readyz", Handlers{Readiness: []ReadinessCheck{ok, bad}}.Readyz)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, map[string]any{"postgres": "ok", "redis": "unavailable"}, body["checks"])
}

func TestHealthz(t *testing.T) {
	code, body := do(t, http.MethodGet, "/healthz", Handlers{}.Healthz)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}
