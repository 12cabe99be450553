package model

import "time"

type MessageID string

const (
	DefaultSender    = "Unknown"
	DefaultRecipient = "Unknown"
	DefaultSubject   = "No Subject"
)

// Envelope is a parsed-but-not-yet-stored message as it arrives from the
// SMTP receiver or the ingest endpoint.
type Envelope struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (e *Envelope) Valid() bool {
	return e.To != "" && e.From != "" && e.Subject != "" && e.Body != ""
}

// Message is a stored message. Messages are immutable once stored; Read is
// always false here and only ever flipped client-side.
type Message struct {
	ID      MessageID `json:"id"`
	To      string    `json:"to"`
	From    string    `json:"from"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Time    time.Time `json:"time"`
	Read    bool      `json:"read"`
}
