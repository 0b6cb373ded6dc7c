package models

import "time"

const (
	KindMessage      = "MSG"
	KindNotification = "NOTI"
)

// Envelope is the unit carried on the event bus. Payload holds the
// nested-serialized domain message; Kind discriminates its shape.
type Envelope struct {
	Kind      string `json:"type"`
	Channel   string `json:"channel"`
	Payload   string `json:"payload"`
	EmittedAt int64  `json:"ts"`
}

func NewEnvelope(kind, channel string, payload []byte) Envelope {
	return Envelope{
		Kind:      kind,
		Channel:   channel,
		Payload:   string(payload),
		EmittedAt: time.Now().UnixMilli(),
	}
}
