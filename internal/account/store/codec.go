package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/biblenation/pkg/slogx"
)

type validatable interface {
	Validate() error
}

// readOne loads key into a T. Missing, unparsable and shape-invalid values
// all come back as ErrNotFound; the latter two are logged.
func readOne[T validatable](ctx context.Context, kv KV, key string) (T, error) {
	var zero T

	raw, err := kv.Get(ctx, key)
	if err != nil {
		return zero, err
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		discard(ctx, key, err)
		return zero, ErrNotFound
	}
	if err := v.Validate(); err != nil {
		discard(ctx, key, err)
		return zero, ErrNotFound
	}
	return v, nil
}

// readList loads a JSON array at key. An absent or unparsable document is
// an empty list; individual shape-invalid elements are dropped.
func readList[T validatable](ctx context.Context, kv KV, key string) ([]T, error) {
	raw, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		discard(ctx, key, err)
		return nil, nil
	}

	out := make([]T, 0, len(items))
	for i, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			discard(ctx, fmt.Sprintf("%s[%d]", key, i), err)
			continue
		}
		if err := v.Validate(); err != nil {
			discard(ctx, fmt.Sprintf("%s[%d]", key, i), err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func write(ctx context.Context, kv KV, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.Set(ctx, key, raw)
}

func discard(ctx context.Context, key string, err error) {
	slogx.FromContext(ctx).Warn("discarding malformed stored value",
		slog.String("key", key),
		slog.Any("err", err),
	)
}
