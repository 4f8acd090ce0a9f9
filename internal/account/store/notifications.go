package store

import (
	"context"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
)

type notificationsRepo struct {
	kv KV
}

func (r *notificationsRepo) List(ctx context.Context, a domain.Audience) ([]domain.Notification, error) {
	return readList[domain.Notification](ctx, r.kv, NotificationsKey(a))
}

func (r *notificationsRepo) Replace(ctx context.Context, a domain.Audience, queue []domain.Notification) error {
	if queue == nil {
		queue = []domain.Notification{}
	}
	return write(ctx, r.kv, NotificationsKey(a), queue)
}

func (r *notificationsRepo) Clear(ctx context.Context, a domain.Audience) error {
	return r.kv.Delete(ctx, NotificationsKey(a))
}
