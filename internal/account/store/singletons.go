package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
)

var errMismatchedOwner = errors.New("record does not belong to key")

type emailLogRepo struct {
	kv KV
}

func (r *emailLogRepo) List(ctx context.Context) ([]domain.EmailLogEntry, error) {
	return readList[domain.EmailLogEntry](ctx, r.kv, KeyEmailLog)
}

func (r *emailLogRepo) Append(ctx context.Context, e domain.EmailLogEntry) error {
	all, err := r.List(ctx)
	if err != nil {
		return err
	}
	return write(ctx, r.kv, KeyEmailLog, append(all, e))
}

type resetTicketsRepo struct {
	kv KV
}

func (r *resetTicketsRepo) Get(ctx context.Context) (domain.ResetTicket, error) {
	return readOne[domain.ResetTicket](ctx, r.kv, KeyResetTicket)
}

func (r *resetTicketsRepo) Put(ctx context.Context, t domain.ResetTicket) error {
	return write(ctx, r.kv, KeyResetTicket, t)
}

func (r *resetTicketsRepo) Clear(ctx context.Context) error {
	return r.kv.Delete(ctx, KeyResetTicket)
}

type settingsRepo struct {
	kv KV
}

func (r *settingsRepo) Get(ctx context.Context) (domain.Settings, error) {
	return readOne[domain.Settings](ctx, r.kv, KeySettings)
}

func (r *settingsRepo) Put(ctx context.Context, s domain.Settings) error {
	return write(ctx, r.kv, KeySettings, s)
}
