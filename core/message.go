package core

import "time"

// Message is a text message received from the messaging backend.
type Message struct {
	ChatID     int64
	Seq        int64
	Text       string
	ReceivedAt time.Time
}
