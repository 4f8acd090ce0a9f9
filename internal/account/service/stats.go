package service

import (
	"context"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/store"
)

// Stats are the admin dashboard counters.
type Stats struct {
	TotalAccounts     int `json:"totalAccounts"`
	ActiveAccounts    int `json:"activeAccounts"`
	PendingAccounts   int `json:"pendingAccounts"`
	DeletedAccounts   int `json:"deletedAccounts"`
	PremiumAccounts   int `json:"premiumAccounts"`
	TrialAccounts     int `json:"trialAccounts"`
	UnreadAdminAlerts int `json:"unreadAdminNotifications"`
	EmailsSent        int `json:"emailsSent"`
}

type StatsService struct {
	Store store.Store
}

func (s *StatsService) Compute(ctx context.Context) (Stats, error) {
	var out Stats

	accounts, err := s.Store.Accounts().List(ctx)
	if err != nil {
		return out, err
	}
	for _, a := range accounts {
		if a.Role == domain.RoleAdmin {
			continue
		}
		out.TotalAccounts++
		switch {
		case a.IsDeleted():
			out.DeletedAccounts++
		case a.IsActive:
			out.ActiveAccounts++
		default:
			out.PendingAccounts++
		}
		switch a.SubscriptionStatus {
		case domain.SubscriptionPremium:
			out.PremiumAccounts++
		case domain.SubscriptionTrial:
			out.TrialAccounts++
		}
	}

	queue, err := s.Store.Notifications().List(ctx, domain.AdminAudience)
	if err != nil {
		return out, err
	}
	out.UnreadAdminAlerts = unread(queue)

	emails, err := s.Store.EmailLog().List(ctx)
	if err != nil {
		return out, err
	}
	out.EmailsSent = len(emails)

	return out, nil
}
