package domain

import (
	"errors"
	"time"
)

type NotificationType string

const (
	NotificationNewAccount          NotificationType = "new_account"
	NotificationLectureCreated      NotificationType = "lecture_created"
	NotificationCommentAdded        NotificationType = "comment_added"
	NotificationStreakAchieved      NotificationType = "streak_achieved"
	NotificationSubscriptionChanged NotificationType = "subscription_changed"
	NotificationUserActivated       NotificationType = "user_activated"
	NotificationUserDeactivated     NotificationType = "user_deactivated"
	NotificationAnalysisCompleted   NotificationType = "analysis_completed"
)

var notificationTypes = map[NotificationType]struct{}{
	NotificationNewAccount:          {},
	NotificationLectureCreated:      {},
	NotificationCommentAdded:        {},
	NotificationStreakAchieved:      {},
	NotificationSubscriptionChanged: {},
	NotificationUserActivated:       {},
	NotificationUserDeactivated:     {},
	NotificationAnalysisCompleted:   {},
}

func (t NotificationType) Valid() bool {
	_, ok := notificationTypes[t]
	return ok
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Notification is one entry in an audience queue. Queues are stored newest
// first.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	UserID    string           `json:"userId,omitempty"`
	UserName  string           `json:"userName,omitempty"`
	UserEmail string           `json:"userEmail,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Read      bool             `json:"read"`
	Priority  Priority         `json:"priority"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
}

func (n Notification) Validate() error {
	switch {
	case n.ID == "":
		return errors.New("notification: missing id")
	case !n.Type.Valid():
		return errors.New("notification: unknown type")
	case !n.Priority.Valid():
		return errors.New("notification: unknown priority")
	}
	return nil
}

// NewNotification is the caller-supplied part of a notification.
type NewNotification struct {
	Type      NotificationType `json:"type" validate:"required"`
	Title     string           `json:"title" validate:"required,max=200"`
	Message   string           `json:"message" validate:"max=2000"`
	UserID    string           `json:"userId,omitempty"`
	UserName  string           `json:"userName,omitempty"`
	UserEmail string           `json:"userEmail,omitempty"`
	Priority  Priority         `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
}

// Audience identifies a notification queue: the admin queue or one user's.
type Audience struct {
	Admin     bool
	AccountID string
}

// AdminAudience is the shared administrator queue.
var AdminAudience = Audience{Admin: true}

// UserAudience is the queue of a single account.
func UserAudience(accountID string) Audience {
	return Audience{AccountID: accountID}
}

// AudienceOf picks the queue a session reads and writes.
func AudienceOf(s Session) Audience {
	if s.IsAdmin() {
		return AdminAudience
	}
	return UserAudience(s.AccountID())
}

func (a Audience) String() string {
	if a.Admin {
		return "admin"
	}
	return "user:" + a.AccountID
}
