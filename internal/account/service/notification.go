package service

import (
	"context"
	"log/slog"
	"slices"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/events"
	"github.com/aussiebroadwan/biblenation/internal/account/metrics"
	"github.com/aussiebroadwan/biblenation/internal/account/store"
	"github.com/aussiebroadwan/biblenation/pkg/idx"
	"github.com/aussiebroadwan/biblenation/pkg/slogx"
)

// NotificationService owns the admin queue, the per-user queues and the
// mocked outbound mail log.
type NotificationService struct {
	Store   store.Store
	Events  events.Publisher
	Metrics *metrics.Metrics
	Clock   Clock

	// AdminEmail receives a mail log entry for every high priority admin
	// notification.
	AdminEmail string
}

// Add queues n for the caller's own audience. A nil session is
// unauthenticated.
func (s *NotificationService) Add(ctx context.Context, sess *domain.Session, n domain.NewNotification) (domain.Notification, error) {
	if sess == nil {
		return domain.Notification{}, ErrUnauthenticated
	}
	if err := validateNewNotification(n); err != nil {
		return domain.Notification{}, err
	}

	to := s.AdminEmail
	if sess.IsAdmin() {
		to = sess.Account.Email
	}
	return s.notify(ctx, domain.AudienceOf(*sess), n, to)
}

// Notify queues a system-originated notification for audience.
func (s *NotificationService) Notify(ctx context.Context, audience domain.Audience, n domain.NewNotification) (domain.Notification, error) {
	if err := validateNewNotification(n); err != nil {
		return domain.Notification{}, err
	}
	return s.notify(ctx, audience, n, s.AdminEmail)
}

func (s *NotificationService) notify(ctx context.Context, audience domain.Audience, n domain.NewNotification, mailTo string) (domain.Notification, error) {
	var out outbox
	var created domain.Notification

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		created, err = s.enqueue(ctx, tx, audience, n, mailTo, &out)
		return err
	})
	if err != nil {
		return domain.Notification{}, err
	}

	out.flush(s.Events)
	return created, nil
}

// enqueue prepends a notification to audience's queue inside st. Admin
// notifications of high priority also append a mail log entry to mailTo.
func (s *NotificationService) enqueue(
	ctx context.Context,
	st store.Store,
	audience domain.Audience,
	n domain.NewNotification,
	mailTo string,
	out *outbox,
) (domain.Notification, error) {
	l := slogx.FromContext(ctx)

	// 1. Build the record
	note := domain.Notification{
		ID:        idx.New().String(),
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		UserID:    n.UserID,
		UserName:  n.UserName,
		UserEmail: n.UserEmail,
		Timestamp: s.Clock.now(),
		Read:      false,
		Priority:  n.Priority,
		Metadata:  n.Metadata,
	}
	if note.Priority == "" {
		note.Priority = domain.PriorityMedium
	}

	// 2. Prepend to the queue, newest first
	queue, err := st.Notifications().List(ctx, audience)
	if err != nil {
		l.Error("failed to load notification queue", slog.String("audience", audience.String()), slog.Any("error", err))
		return domain.Notification{}, err
	}
	queue = append([]domain.Notification{note}, queue...)
	if err := st.Notifications().Replace(ctx, audience, queue); err != nil {
		l.Error("failed to save notification queue", slog.String("audience", audience.String()), slog.Any("error", err))
		return domain.Notification{}, err
	}

	// 3. High priority admin notifications are mailed
	if audience.Admin && note.Priority == domain.PriorityHigh && mailTo != "" {
		if _, err := s.appendEmail(ctx, st, mailTo, note.Title, note.Message); err != nil {
			return domain.Notification{}, err
		}
	}

	s.Metrics.Notification(audienceKind(audience), string(note.Type))

	e := events.New(events.KindNotificationAdded, audience)
	e.Notification = &note
	e.Unread = ptr(unread(queue))
	out.add(e)

	l.Debug("notification queued",
		slog.String("audience", audience.String()),
		slog.String("type", string(note.Type)),
		slog.String("notification_id", note.ID),
	)
	return note, nil
}

// List returns the caller's queue, newest first.
func (s *NotificationService) List(ctx context.Context, sess *domain.Session) ([]domain.Notification, error) {
	if sess == nil {
		return nil, ErrUnauthenticated
	}
	return s.Store.Notifications().List(ctx, domain.AudienceOf(*sess))
}

// UnreadCount counts unread entries in the caller's queue.
func (s *NotificationService) UnreadCount(ctx context.Context, sess *domain.Session) (int, error) {
	queue, err := s.List(ctx, sess)
	if err != nil {
		return 0, err
	}
	return unread(queue), nil
}

// MarkAsRead is a no-op for unknown or already read ids.
func (s *NotificationService) MarkAsRead(ctx context.Context, sess *domain.Session, id string) error {
	return s.mutate(ctx, sess, events.KindNotificationRead, id, func(q []domain.Notification) ([]domain.Notification, bool) {
		i := slices.IndexFunc(q, func(n domain.Notification) bool { return n.ID == id })
		if i < 0 || q[i].Read {
			return q, false
		}
		q[i].Read = true
		return q, true
	})
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, sess *domain.Session) error {
	return s.mutate(ctx, sess, events.KindNotificationRead, "", func(q []domain.Notification) ([]domain.Notification, bool) {
		changed := false
		for i := range q {
			if !q[i].Read {
				q[i].Read = true
				changed = true
			}
		}
		return q, changed
	})
}

// Delete is a no-op for unknown ids.
func (s *NotificationService) Delete(ctx context.Context, sess *domain.Session, id string) error {
	return s.mutate(ctx, sess, events.KindNotificationDeleted, id, func(q []domain.Notification) ([]domain.Notification, bool) {
		i := slices.IndexFunc(q, func(n domain.Notification) bool { return n.ID == id })
		if i < 0 {
			return q, false
		}
		return slices.Delete(q, i, i+1), true
	})
}

func (s *NotificationService) ClearAll(ctx context.Context, sess *domain.Session) error {
	return s.mutate(ctx, sess, events.KindNotificationsClear, "", func(q []domain.Notification) ([]domain.Notification, bool) {
		return []domain.Notification{}, len(q) > 0
	})
}

func (s *NotificationService) mutate(
	ctx context.Context,
	sess *domain.Session,
	kind events.Kind,
	id string,
	fn func([]domain.Notification) ([]domain.Notification, bool),
) error {
	if sess == nil {
		return ErrUnauthenticated
	}
	audience := domain.AudienceOf(*sess)

	var queue []domain.Notification
	changed := false
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		q, err := tx.Notifications().List(ctx, audience)
		if err != nil {
			return err
		}
		queue, changed = fn(q)
		if !changed {
			return nil
		}
		return tx.Notifications().Replace(ctx, audience, queue)
	})
	if err != nil {
		slogx.FromContext(ctx).Error("failed to update notifications",
			slog.String("audience", audience.String()),
			slog.Any("error", err),
		)
		return err
	}

	if changed && s.Events != nil {
		e := events.New(kind, audience)
		if id != "" {
			e.Data = map[string]any{"id": id}
		}
		e.Unread = ptr(unread(queue))
		s.Events.Publish(e)
	}
	return nil
}

// SendEmail appends a mocked outbound message to the mail log.
func (s *NotificationService) SendEmail(ctx context.Context, to, subject, body string) (domain.EmailLogEntry, error) {
	v := validation{}
	v.check(to != "", "to", "is required")
	v.check(subject != "", "subject", "is required")
	if err := v.err(); err != nil {
		return domain.EmailLogEntry{}, err
	}
	return s.appendEmail(ctx, s.Store, to, subject, body)
}

func (s *NotificationService) appendEmail(ctx context.Context, st store.Store, to, subject, body string) (domain.EmailLogEntry, error) {
	entry := domain.EmailLogEntry{
		ID:        idx.New().String(),
		To:        to,
		Subject:   subject,
		Body:      body,
		Timestamp: s.Clock.now(),
		Status:    domain.EmailStatusSent,
	}
	if err := st.EmailLog().Append(ctx, entry); err != nil {
		slogx.FromContext(ctx).Error("failed to append email log", slog.Any("error", err))
		return domain.EmailLogEntry{}, err
	}

	s.Metrics.EmailLogged()
	slogx.FromContext(ctx).Info("email logged",
		slog.String("to", to),
		slog.String("subject", subject),
	)
	return entry, nil
}

// EmailLog lists every logged message, oldest first.
func (s *NotificationService) EmailLog(ctx context.Context) ([]domain.EmailLogEntry, error) {
	return s.Store.EmailLog().List(ctx)
}

func validateNewNotification(n domain.NewNotification) error {
	v := validation{}
	v.check(n.Type.Valid(), "type", "is not a known notification type")
	v.check(n.Title != "", "title", "is required")
	v.check(n.Priority == "" || n.Priority.Valid(), "priority", "must be one of: low medium high")
	return v.err()
}

func unread(q []domain.Notification) int {
	n := 0
	for _, x := range q {
		if !x.Read {
			n++
		}
	}
	return n
}

func audienceKind(a domain.Audience) string {
	if a.Admin {
		return "admin"
	}
	return "user"
}

func ptr[T any](v T) *T { return &v }

// SendTestEmail logs the admin dashboard test message to to, or to the
// admin address when to is empty.
func (s *NotificationService) SendTestEmail(ctx context.Context, to string) (domain.EmailLogEntry, error) {
	if to == "" {
		to = s.AdminEmail
	}
	return s.SendEmail(ctx, to, "Test Email Notification", "This is a test email from Bible Nation Admin Dashboard")
}
