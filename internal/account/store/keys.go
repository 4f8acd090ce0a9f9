package store

import "github.com/aussiebroadwan/biblenation/internal/account/domain"

const (
	KeyAccounts           = "accounts"
	KeyAdminNotifications = "admin_notifications"
	KeyEmailLog           = "email_log"
	KeyResetTicket        = "reset_ticket"
	KeySettings           = "app_settings"

	PrefixSession           = "current_session:"
	PrefixUserNotifications = "user_notifications:"
	PrefixEntitlement       = "entitlement:"
)

func SessionKey(id string) string { return PrefixSession + id }

func EntitlementKey(accountID string) string { return PrefixEntitlement + accountID }

// NotificationsKey maps an audience to its queue key.
func NotificationsKey(a domain.Audience) string {
	if a.Admin {
		return KeyAdminNotifications
	}
	return PrefixUserNotifications + a.AccountID
}
