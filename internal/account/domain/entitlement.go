package domain

import (
	"errors"
	"time"
)

// Entitlement tracks question quota, trial and subscription for one account.
// Subscribed is terminal.
type Entitlement struct {
	AccountID      string     `json:"accountId"`
	TrialStartedAt *time.Time `json:"trialStartDate,omitempty"`
	QuestionsAsked int        `json:"questionsAsked"`
	Subscribed     bool       `json:"subscribed"`
	SubscribedAt   *time.Time `json:"subscribedDate,omitempty"`
	TrialsStarted  int        `json:"trialsStarted,omitempty"`
}

func (e Entitlement) Validate() error {
	switch {
	case e.AccountID == "":
		return errors.New("entitlement: missing account")
	case e.QuestionsAsked < 0:
		return errors.New("entitlement: negative question count")
	}
	return nil
}

// DecisionReason explains why a gated action was allowed or denied.
type DecisionReason string

const (
	ReasonUnauthenticated DecisionReason = "unauthenticated"
	ReasonSubscribed      DecisionReason = "subscribed"
	ReasonTrial           DecisionReason = "trial"
	ReasonFreeQuota       DecisionReason = "free_quota"
	ReasonExhausted       DecisionReason = "exhausted"
)

// Decision is the outcome of one gated question attempt.
type Decision struct {
	Allowed            bool           `json:"allowed"`
	Reason             DecisionReason `json:"reason"`
	QuestionsAsked     int            `json:"questionsAsked"`
	QuestionsRemaining int            `json:"questionsRemaining"` // -1 unlimited
}

// EntitlementStatus is the read-only view of an account's entitlement.
type EntitlementStatus struct {
	Authenticated      bool `json:"authenticated"`
	Subscribed         bool `json:"subscribed"`
	TrialActive        bool `json:"trialActive"`
	TrialDaysRemaining int  `json:"trialDaysRemaining"`
	QuestionsAsked     int  `json:"questionsAsked"`
	QuestionsRemaining int  `json:"questionsRemaining"` // -1 unlimited
	QuestionsAllowed   int  `json:"questionsAllowed"`
}
