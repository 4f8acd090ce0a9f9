package domain

import (
	"errors"
	"time"
)

// Session is the denormalized snapshot of the signed-in account held in a
// session slot. Profile edits must re-sync it.
type Session struct {
	ID          string     `json:"id"`
	Account     Public     `json:"account"`
	Streak      int        `json:"streak"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (s Session) AccountID() string { return s.Account.ID }
func (s Session) IsAdmin() bool     { return s.Account.Role == RoleAdmin }

func (s Session) Validate() error {
	switch {
	case s.ID == "":
		return errors.New("session: missing id")
	case s.Account.ID == "":
		return errors.New("session: missing account")
	case !s.Account.Role.Valid():
		return errors.New("session: unknown role")
	}
	return nil
}

// NewSession snapshots a for session id.
func NewSession(id string, a Account, now time.Time) Session {
	return Session{
		ID:          id,
		Account:     a.Public(),
		Streak:      a.Streak,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   now,
	}
}
