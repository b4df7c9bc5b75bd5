package messaging

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// TwilioInboundForm captures the subset of messaging webhook fields we use.
// Twilio posts application/x-www-form-urlencoded for SMS and WhatsApp alike.
type TwilioInboundForm struct {
	MessageSid  string
	AccountSid  string
	From        string
	To          string
	Body        string
	NumMedia    string
	ProfileName string
	WaID        string
}

func ParseTwilioInboundMessage(r *http.Request) (TwilioInboundForm, error) {
	if err := r.ParseForm(); err != nil {
		return TwilioInboundForm{}, err
	}
	return TwilioInboundForm{
		MessageSid:  r.PostFormValue("MessageSid"),
		AccountSid:  r.PostFormValue("AccountSid"),
		From:        NormalizeSender(r.PostFormValue("From")),
		To:          NormalizeSender(r.PostFormValue("To")),
		Body:        r.PostFormValue("Body"),
		NumMedia:    r.PostFormValue("NumMedia"),
		ProfileName: r.PostFormValue("ProfileName"),
		WaID:        r.PostFormValue("WaId"),
	}, nil
}

// NormalizeSender keeps the text after the last ':' so channel prefixes
// like "whatsapp:" or "sms:" drop off. Values without ':' are only trimmed.
func NormalizeSender(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

func (f TwilioInboundForm) ToInboundMessage(receivedAt time.Time) InboundMessage {
	raw, _ := json.Marshal(f)
	return InboundMessage{
		ProviderMessageID: f.MessageSid,
		From:              f.From,
		To:                f.To,
		Body:              f.Body,
		ReceivedAt:        receivedAt,
		RawPayload:        string(raw),
	}
}

// TwilioProvider answers Twilio webhooks inline with TwiML.
type TwilioProvider struct{}

func NewTwilioProvider() *TwilioProvider { return &TwilioProvider{} }

func (p *TwilioProvider) Name() string { return "twilio" }

func (p *TwilioProvider) ParseInbound(r *http.Request, receivedAt time.Time) (InboundMessage, error) {
	form, err := ParseTwilioInboundMessage(r)
	if err != nil {
		return InboundMessage{}, err
	}
	if form.From == "" {
		return InboundMessage{}, ErrMissingSender
	}
	return form.ToInboundMessage(receivedAt), nil
}

func (p *TwilioProvider) RenderReply(reply string) (string, string, error) {
	body, err := RenderMessageTwiML(reply)
	if err != nil {
		return "", "", err
	}
	return "application/xml", body, nil
}
