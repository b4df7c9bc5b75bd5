package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"clinic-bot/internal/auth"
	"clinic-bot/internal/followup"
	"clinic-bot/pkg/logger"

	"github.com/gin-gonic/gin"
)

type FollowupRunner interface {
	RunOnce(ctx context.Context) (followup.Result, error)
}

type SlotLister interface {
	AvailableSlots() []string
}

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Followups FollowupRunner
	Slots     SlotLister
	Readiness []ReadinessCheck
}

// ScheduleFollowups runs one follow-up pass. Response shape is relied on by
// existing cron callers.
func (h Handlers) ScheduleFollowups(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Followups == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "follow-up scheduler not configured"})
		return
	}
	res, err := h.Followups.RunOnce(c.Request.Context())
	if err != nil {
		log.Error("follow-up scheduling failed", "scheduled", res.Scheduled, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": fmt.Sprintf("failed to schedule follow-ups (%d scheduled before failure)", res.Scheduled),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("Scheduled %d follow-ups.", res.Scheduled),
		"count":   res.Scheduled,
	})
}

func (h Handlers) ListSlots(c *gin.Context) {
	if h.Slots == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "slots not configured"})
		return
	}
	available := h.Slots.AvailableSlots()
	c.JSON(http.StatusOK, gin.H{"available": available, "count": len(available)})
}

func (h Handlers) Me(c *gin.Context) {
	uid, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"user_id": uid, "role": role})
}

func (h Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports 503 naming every failing dependency.
func (h Handlers) Readyz(c *gin.Context) {
	log := logger.FromGin(c)

	checks := gin.H{}
	ready := true
	for _, rc := range h.Readiness {
		if err := rc.Check(c.Request.Context()); err != nil {
			log.Warn("readiness check failed", "check", rc.Name, "err", err)
			checks[rc.Name] = "unavailable"
			ready = false
			continue
		}
		checks[rc.Name] = "ok"
	}
	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
}
