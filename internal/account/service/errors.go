package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalidCredentials   = errors.New("invalid_credentials")
	ErrPendingActivation    = errors.New("pending_activation")
	ErrDeletedAccount       = errors.New("deleted_account")
	ErrDuplicateEmail       = errors.New("duplicate_email")
	ErrValidation           = errors.New("validation_failed")
	ErrExpiredResetCode     = errors.New("expired_reset_code")
	ErrInvalidResetCode     = errors.New("invalid_reset_code")
	ErrEntitlementExhausted = errors.New("entitlement_exhausted")
	ErrTrialAlreadyUsed     = errors.New("trial_already_used")
	ErrAccountNotFound      = errors.New("account_not_found")
	ErrReservedAccount      = errors.New("reserved_account")
	ErrUnauthenticated      = errors.New("unauthenticated")
)

// ValidationError lists per-field problems. It matches ErrValidation with
// errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// validation accumulates field errors.
type validation map[string]string

func (v validation) check(ok bool, field, msg string) {
	if !ok {
		if _, seen := v[field]; !seen {
			v[field] = msg
		}
	}
}

func (v validation) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Fields: v}
}

// MinPasswordLength applies to signup, password change and reset.
const MinPasswordLength = 6
