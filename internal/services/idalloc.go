package services

import (
	"context"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

// IdAllocator decides transaction ids for materialized occurrences. The
// caller controls the policy; the engine only checks uniqueness within
// the documents it touches.
type IdAllocator interface {
	Allocate(ctx context.Context, date core.Date, month core.MonthKey) (string, error)
}

// AllocatorFunc adapts a function to the IdAllocator interface.
type AllocatorFunc func(ctx context.Context, date core.Date, month core.MonthKey) (string, error)

func (f AllocatorFunc) Allocate(ctx context.Context, date core.Date, month core.MonthKey) (string, error) {
	return f(ctx, date, month)
}

// UUIDAllocator issues random UUIDv4 ids.
type UUIDAllocator struct{}

func (UUIDAllocator) Allocate(context.Context, core.Date, core.MonthKey) (string, error) {
	return uuid.NewString(), nil
}
