package domain

import (
	"errors"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

type SubscriptionStatus string

const (
	SubscriptionFree    SubscriptionStatus = "free"
	SubscriptionTrial   SubscriptionStatus = "trial"
	SubscriptionPremium SubscriptionStatus = "premium"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionFree, SubscriptionTrial, SubscriptionPremium:
		return true
	}
	return false
}

// Account is a registered user record. A soft-deleted account always has
// IsActive false.
type Account struct {
	ID                 string             `json:"id"`
	Email              string             `json:"email"`
	Name               string             `json:"name"`
	PasswordHash       string             `json:"passwordHash"` // argon2id PHC
	Role               Role               `json:"role"`
	CreatedAt          time.Time          `json:"createdAt"`
	IsActive           bool               `json:"isActive"`
	DeletedAt          *time.Time         `json:"deletedAt,omitempty"`
	SubscriptionStatus SubscriptionStatus `json:"subscriptionStatus"`
	SubscribedAt       *time.Time         `json:"subscribedAt,omitempty"`
	Streak             int                `json:"streak"`
	LastLoginAt        *time.Time         `json:"lastLoginAt,omitempty"`

	// Protected marks the seeded administrator. It cannot be deactivated,
	// deleted or password-reset.
	Protected bool `json:"protected,omitempty"`
}

// IsDeleted reports whether the account is soft-deleted.
func (a Account) IsDeleted() bool { return a.DeletedAt != nil }

func (a Account) IsAdmin() bool { return a.Role == RoleAdmin }

// Validate checks the shape of a decoded record.
func (a Account) Validate() error {
	switch {
	case a.ID == "":
		return errors.New("account: missing id")
	case a.Email == "":
		return errors.New("account: missing email")
	case !a.Role.Valid():
		return errors.New("account: unknown role")
	case a.DeletedAt != nil && a.IsActive:
		return errors.New("account: deleted but active")
	}
	return nil
}

// Public is the account without its password hash.
type Public struct {
	ID                 string             `json:"id"`
	Email              string             `json:"email"`
	Name               string             `json:"name"`
	Role               Role               `json:"role"`
	CreatedAt          time.Time          `json:"createdAt"`
	IsActive           bool               `json:"isActive"`
	DeletedAt          *time.Time         `json:"deletedAt,omitempty"`
	SubscriptionStatus SubscriptionStatus `json:"subscriptionStatus"`
	SubscribedAt       *time.Time         `json:"subscribedAt,omitempty"`
	Streak             int                `json:"streak"`
	LastLoginAt        *time.Time         `json:"lastLoginAt,omitempty"`
}

func (a Account) Public() Public {
	return Public{
		ID:                 a.ID,
		Email:              a.Email,
		Name:               a.Name,
		Role:               a.Role,
		CreatedAt:          a.CreatedAt,
		IsActive:           a.IsActive,
		DeletedAt:          a.DeletedAt,
		SubscriptionStatus: a.SubscriptionStatus,
		SubscribedAt:       a.SubscribedAt,
		Streak:             a.Streak,
		LastLoginAt:        a.LastLoginAt,
	}
}
