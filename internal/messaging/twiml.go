package messaging

import (
	"bytes"
	"encoding/xml"
)

type twimlResponse struct {
	XMLName xml.Name      `xml:"Response"`
	Message *twimlMessage `xml:"Message,omitempty"`
}

type twimlMessage struct {
	Body string `xml:",chardata"`
}

// RenderMessageTwiML wraps reply in a single <Message> verb. Text is
// XML-escaped; newlines are kept.
func RenderMessageTwiML(reply string) (string, error) {
	r := twimlResponse{Message: &twimlMessage{Body: reply}}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
