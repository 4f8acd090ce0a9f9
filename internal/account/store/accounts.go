package store

import (
	"context"
	"slices"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
)

// accountsRepo keeps every account in one ordered document under
// KeyAccounts. Each mutation rewrites the whole list.
type accountsRepo struct {
	kv KV
}

func (r *accountsRepo) List(ctx context.Context) ([]domain.Account, error) {
	return readList[domain.Account](ctx, r.kv, KeyAccounts)
}

func (r *accountsRepo) Get(ctx context.Context, id string) (domain.Account, error) {
	return r.find(ctx, func(a domain.Account) bool { return a.ID == id })
}

func (r *accountsRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return r.find(ctx, func(a domain.Account) bool { return a.Email == email })
}

func (r *accountsRepo) Create(ctx context.Context, a domain.Account) error {
	all, err := r.List(ctx)
	if err != nil {
		return err
	}
	if slices.ContainsFunc(all, func(x domain.Account) bool { return x.ID == a.ID || x.Email == a.Email }) {
		return ErrAlreadyExists
	}
	return write(ctx, r.kv, KeyAccounts, append(all, a))
}

func (r *accountsRepo) Update(ctx context.Context, a domain.Account) error {
	all, err := r.List(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(all, func(x domain.Account) bool { return x.ID == a.ID })
	if i < 0 {
		return ErrNotFound
	}
	if slices.ContainsFunc(all, func(x domain.Account) bool { return x.ID != a.ID && x.Email == a.Email }) {
		return ErrAlreadyExists
	}
	all[i] = a
	return write(ctx, r.kv, KeyAccounts, all)
}

func (r *accountsRepo) Delete(ctx context.Context, id string) error {
	all, err := r.List(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(all, func(x domain.Account) bool { return x.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	return write(ctx, r.kv, KeyAccounts, slices.Delete(all, i, i+1))
}

func (r *accountsRepo) find(ctx context.Context, match func(domain.Account) bool) (domain.Account, error) {
	all, err := r.List(ctx)
	if err != nil {
		return domain.Account{}, err
	}
	i := slices.IndexFunc(all, match)
	if i < 0 {
		return domain.Account{}, ErrNotFound
	}
	return all[i], nil
}
