package messaging

import (
	"errors"
	"net/http"
	"time"
)

var ErrMissingSender = errors.New("messaging: sender required")

// Provider adapts one chat provider's webhook format.
//
// Rules:
// - No business logic in adapters.
// - Keep InboundMessage provider-agnostic; raw fields go in RawPayload.
type Provider interface {
	Name() string

	// ParseInbound reads an inbound webhook request. A request without a
	// sender returns ErrMissingSender.
	ParseInbound(r *http.Request, receivedAt time.Time) (InboundMessage, error)

	// RenderReply returns the content type and body answering the webhook
	// with reply as the outbound message.
	RenderReply(reply string) (contentType string, body string, err error)
}

// InboundMessage is one chat message received from a provider.
type InboundMessage struct {
	ProviderMessageID string `json:"provider_message_id"`

	// From is the caller identity with any channel prefix removed
	// ("whatsapp:+1555..." becomes "+1555...").
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`

	ReceivedAt time.Time `json:"received_at"`
	RawPayload string    `json:"raw_payload,omitempty"`
}
