package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
)

type sessionsRepo struct {
	kv KV
}

func (r *sessionsRepo) Get(ctx context.Context, id string) (domain.Session, error) {
	return readOne[domain.Session](ctx, r.kv, SessionKey(id))
}

func (r *sessionsRepo) Put(ctx context.Context, s domain.Session) error {
	return write(ctx, r.kv, SessionKey(s.ID), s)
}

func (r *sessionsRepo) Delete(ctx context.Context, id string) error {
	return r.kv.Delete(ctx, SessionKey(id))
}

func (r *sessionsRepo) List(ctx context.Context) ([]domain.Session, error) {
	keys, err := r.kv.Keys(ctx, PrefixSession)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Session, 0, len(keys))
	for _, key := range keys {
		s, err := readOne[domain.Session](ctx, r.kv, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
