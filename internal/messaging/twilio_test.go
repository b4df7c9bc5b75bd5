package messaging

import (
	"encoding/xml"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func formRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/whatsapp_webhook", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestParseTwilioInboundMessage(t *testing.T) {
	r := formRequest("MessageSid=SM123&From=whatsapp%3A%2B15551234567&To=whatsapp%3A%2B14155238886&Body=Hi&WaId=15551234567")

	form, err := ParseTwilioInboundMessage(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if form.MessageSid != "SM123" {
		t.Fatalf("expected MessageSid, got %q", form.MessageSid)
	}
	if form.From != "+15551234567" || form.To != "+14155238886" {
		t.Fatalf("unexpected from/to: %q %q", form.From, form.To)
	}

	in := form.ToInboundMessage(time.Unix(1700000000, 0).UTC())
	if in.ProviderMessageID != "SM123" || in.Body != "Hi" {
		t.Fatalf("unexpected message: %+v", in)
	}
	if !strings.Contains(in.RawPayload, "SM123") {
		t.Fatalf("expected raw payload, got %q", in.RawPayload)
	}
}

func TestNormalizeSender(t *testing.T) {
	cases := map[string]string{
		"whatsapp:+15551234567": "+15551234567",
		" +15551234567 ":        "+15551234567",
		"a:b:c":                 "c",
		"whatsapp:":             "",
		"":                      "",
	}
	for in, want := range cases {
		if got := NormalizeSender(in); got != want {
			t.Fatalf("NormalizeSender(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTwilioProvider_MissingSender(t *testing.T) {
	p := NewTwilioProvider()
	for _, body := range []string{"Body=hi", "From=whatsapp%3A&Body=hi"} {
		_, err := p.ParseInbound(formRequest(body), time.Now())
		if !errors.Is(err, ErrMissingSender) {
			t.Fatalf("body %q: expected ErrMissingSender, got %v", body, err)
		}
	}
}

func TestRenderMessageTwiML(t *testing.T) {
	reply := "Please choose a slot:\n10:00 AM\n<11:00 AM> & more"
	out, err := RenderMessageTwiML(reply)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.HasPrefix(out, xml.Header) {
		t.Fatalf("expected xml header: %s", out)
	}
	if strings.Contains(out, "<11:00 AM>") {
		t.Fatalf("expected reply text to be escaped: %s", out)
	}

	var parsed struct {
		XMLName xml.Name `xml:"Response"`
		Message string   `xml:"Message"`
	}
	if err := xml.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Message != reply {
		t.Fatalf("round trip mismatch: %q", parsed.Message)
	}
}

func TestTwilioProvider_RenderReplyContentType(t *testing.T) {
	ct, body, err := NewTwilioProvider().RenderReply("ok")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ct != "application/xml" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(body, "<Message>ok</Message>") {
		t.Fatalf("unexpected body %s", body)
	}
}
