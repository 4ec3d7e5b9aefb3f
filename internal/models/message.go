package models

import "time"

// InboundMessage is one delivery from the device queue. The body is opaque.
type InboundMessage struct {
	Queue       string
	Body        []byte
	ContentType string
	MessageID   string
	ReceivedAt  time.Time
}

// Text decodes the body as text.
func (m InboundMessage) Text() string {
	return string(m.Body)
}
