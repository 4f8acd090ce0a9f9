package domain

import (
	"errors"
	"time"
)

// ResetTicket is the single outstanding password reset. Issuing a new one
// replaces it.
type ResetTicket struct {
	Email    string    `json:"email"`
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"timestamp"`
	Verified bool      `json:"verified,omitempty"`
}

// Expired reports whether the ticket is older than ttl at now.
func (t ResetTicket) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(t.IssuedAt) > ttl
}

func (t ResetTicket) Validate() error {
	if t.Email == "" || len(t.Code) != 6 || t.IssuedAt.IsZero() {
		return errors.New("reset ticket: incomplete")
	}
	return nil
}
