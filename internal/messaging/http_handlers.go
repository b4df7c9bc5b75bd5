package messaging

import (
	"context"
	"errors"
	"net/http"
	"time"

	"clinic-bot/internal/conversation"
	"clinic-bot/pkg/logger"

	"github.com/gin-gonic/gin"
)

// MessageHandler turns one inbound message into reply text.
type MessageHandler interface {
	HandleMessage(ctx context.Context, callerID, text string) (string, error)
}

type LatencyObserver interface {
	ObserveWebhookLatency(provider string, seconds float64)
}

// WebhookHandler converts a provider webhook to an InboundMessage, hands it
// to the conversation engine and writes the provider's reply format.
//
// No business logic here.
type WebhookHandler struct {
	Provider Provider
	Engine   MessageHandler
	Latency  LatencyObserver
	Now      func() time.Time
}

func (h WebhookHandler) HandleInboundMessage(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Now == nil {
		h.Now = time.Now
	}
	if h.Provider == nil || h.Engine == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "messaging not configured"})
		return
	}
	start := h.Now()
	if h.Latency != nil {
		defer func() {
			h.Latency.ObserveWebhookLatency(h.Provider.Name(), h.Now().Sub(start).Seconds())
		}()
	}

	in, err := h.Provider.ParseInbound(c.Request, start.UTC())
	if errors.Is(err, ErrMissingSender) {
		log.Warn("inbound message without sender", "provider", h.Provider.Name())
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "From required"})
		return
	}
	if err != nil {
		log.Warn("inbound message parse failed", "provider", h.Provider.Name(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	reply, err := h.Engine.HandleMessage(c.Request.Context(), in.From, in.Body)
	if err != nil {
		attrs := []any{"caller", logger.MaskPhone(in.From), "message_id", in.ProviderMessageID, "err", err}
		var te *conversation.TransitionError
		if errors.As(err, &te) {
			attrs = append(attrs, "step", te.Step.String(), "action", te.Action.String())
		}
		log.Error("inbound message handling failed", attrs...)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	contentType, body, err := h.Provider.RenderReply(reply)
	if err != nil {
		log.Error("reply render failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Header("Content-Type", contentType)
	c.String(http.StatusOK, body)
}
