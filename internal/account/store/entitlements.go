package store

import (
	"context"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
)

type entitlementsRepo struct {
	kv KV
}

func (r *entitlementsRepo) Get(ctx context.Context, accountID string) (domain.Entitlement, error) {
	e, err := readOne[domain.Entitlement](ctx, r.kv, EntitlementKey(accountID))
	if err != nil {
		return domain.Entitlement{}, err
	}
	if e.AccountID != accountID {
		discard(ctx, EntitlementKey(accountID), errMismatchedOwner)
		return domain.Entitlement{}, ErrNotFound
	}
	return e, nil
}

func (r *entitlementsRepo) Put(ctx context.Context, e domain.Entitlement) error {
	return write(ctx, r.kv, EntitlementKey(e.AccountID), e)
}

func (r *entitlementsRepo) Delete(ctx context.Context, accountID string) error {
	return r.kv.Delete(ctx, EntitlementKey(accountID))
}
