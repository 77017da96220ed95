package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

type stagedDoc struct {
	body    json.RawMessage // nil when the key is staged for deletion
	deleted bool
}

// UnitOfWork stages document mutations in memory so a multi-document
// operation (installment create, cascading parent update, group delete)
// can validate everything before touching the store. Commit writes
// sequentially and restores pre-images on a partial failure.
//
// A UnitOfWork is single-use and not safe for concurrent use; the ledger
// service serializes writers.
type UnitOfWork struct {
	store     Store
	preImages map[string]json.RawMessage // nil value = key was absent
	staged    map[string]*stagedDoc
	order     []string
}

// NewUnitOfWork wraps a store with a staging layer.
func NewUnitOfWork(s Store) *UnitOfWork {
	return &UnitOfWork{
		store:     s,
		preImages: make(map[string]json.RawMessage),
		staged:    make(map[string]*stagedDoc),
	}
}

// Get reads through staged mutations first, then the underlying store.
// The first touch of a key records its pre-image for compensation.
func (u *UnitOfWork) Get(ctx context.Context, key string, doc any) error {
	if staged, ok := u.staged[key]; ok {
		if staged.deleted {
			return ErrNotFound
		}
		return json.Unmarshal(staged.body, doc)
	}
	if err := u.capturePreImage(ctx, key); err != nil {
		return err
	}
	pre := u.preImages[key]
	if pre == nil {
		return ErrNotFound
	}
	return json.Unmarshal(pre, doc)
}

// Put stages a document write. Nothing reaches the store until Commit.
func (u *UnitOfWork) Put(ctx context.Context, key string, doc any) error {
	if err := u.capturePreImage(ctx, key); err != nil {
		return err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %q: %w", key, err)
	}
	u.stage(key, &stagedDoc{body: body})
	return nil
}

// Delete stages a document removal.
func (u *UnitOfWork) Delete(ctx context.Context, key string) error {
	if err := u.capturePreImage(ctx, key); err != nil {
		return err
	}
	u.stage(key, &stagedDoc{deleted: true})
	return nil
}

// Keys passes through to the store. Staged-only keys are not visible;
// the engine enumerates months before staging new ones.
func (u *UnitOfWork) Keys(ctx context.Context, prefix string) ([]string, error) {
	return u.store.Keys(ctx, prefix)
}

// Commit writes every staged mutation in staging order. If a write fails
// partway, already-written keys are restored from their pre-images; a
// compensation failure is logged and reported alongside the original
// error.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	var written []string
	for _, key := range u.order {
		staged := u.staged[key]
		var err error
		if staged.deleted {
			err = u.store.Delete(ctx, key)
		} else {
			err = u.store.Put(ctx, key, staged.body)
		}
		if err != nil {
			u.rollback(ctx, written)
			return fmt.Errorf("commit %q: %w", key, err)
		}
		written = append(written, key)
	}
	return nil
}

func (u *UnitOfWork) stage(key string, doc *stagedDoc) {
	if _, ok := u.staged[key]; !ok {
		u.order = append(u.order, key)
	}
	u.staged[key] = doc
}

func (u *UnitOfWork) capturePreImage(ctx context.Context, key string) error {
	if _, ok := u.preImages[key]; ok {
		return nil
	}
	var raw json.RawMessage
	err := u.store.Get(ctx, key, &raw)
	switch {
	case err == nil:
		u.preImages[key] = raw
	case errors.Is(err, ErrNotFound):
		u.preImages[key] = nil
	default:
		return fmt.Errorf("read pre-image of %q: %w", key, err)
	}
	return nil
}

func (u *UnitOfWork) rollback(ctx context.Context, written []string) {
	for _, key := range written {
		pre := u.preImages[key]
		var err error
		if pre == nil {
			err = u.store.Delete(ctx, key)
		} else {
			err = u.store.Put(ctx, key, pre)
		}
		if err != nil {
			slog.ErrorContext(ctx, "Compensation write failed, document left inconsistent",
				"key", key, "error", err)
		}
	}
}
