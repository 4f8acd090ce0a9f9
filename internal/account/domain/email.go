package domain

import (
	"errors"
	"time"
)

const EmailStatusSent = "sent"

// EmailLogEntry records an outbound message. Nothing is actually delivered.
type EmailLogEntry struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

func (e EmailLogEntry) Validate() error {
	if e.ID == "" || e.To == "" {
		return errors.New("email: missing id or recipient")
	}
	return nil
}
