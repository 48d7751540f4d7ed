package mutation

import (
	"context"
	"fmt"
	"slices"

	"github.com/sandeepkv93/tasktree/internal/apperr"
)

// Target binds the generic operations to one collection.
type Target[T any] struct {
	Key    string
	Entity string
	Lens   Lens[T]
	ID     func(T) string
	// Merge folds an authoritative record into the local one. Nil means the
	// remote record replaces the local one outright.
	Merge func(local, remote T) T
}

func (t Target[T]) index(items []T, id string) int {
	return slices.IndexFunc(items, func(item T) bool { return t.ID(item) == id })
}

func (t Target[T]) merge(local, remote T) T {
	if t.Merge == nil {
		return remote
	}
	return t.Merge(local, remote)
}

// replace swaps the record with the given id for rec. Missing ids leave the
// collection unchanged.
func (t Target[T]) replace(items []T, id string, rec func(local T) T) []T {
	idx := t.index(items, id)
	if idx < 0 {
		return items
	}
	out := slices.Clone(items)
	out[idx] = rec(items[idx])
	return out
}

func (t Target[T]) missing(verb, id string) error {
	return apperr.NotFound(verb+" "+t.Entity, fmt.Sprintf("%s %s not found", t.Entity, id))
}

// Create inserts tentative (carrying a temporary id) and swaps it for the
// backend's record on success.
func Create[T any](t Target[T], tentative T, name string, call func(context.Context) (T, error)) Op[T] {
	tempID := t.ID(tentative)
	return Op[T]{
		Verb:   "create",
		Entity: t.Entity,
		Name:   name,
		Key:    t.Key,
		Lens:   t.Lens,
		Apply: func(current []T) ([]T, error) {
			return append(slices.Clone(current), tentative), nil
		},
		Call: func(ctx context.Context) (T, bool, error) {
			rec, err := call(ctx)
			return rec, err == nil, err
		},
		Reconcile: func(current []T, record T) []T {
			return t.replace(current, tempID, func(T) T { return record })
		},
	}
}

// Update merges a change into the record with id. change must return a new
// value rather than modify shared slices of its argument.
func Update[T any](t Target[T], id, name string, change func(T) T, call func(context.Context) (T, error)) Op[T] {
	return Op[T]{
		Verb:   "update",
		Entity: t.Entity,
		Name:   name,
		Key:    t.Key,
		Lens:   t.Lens,
		Apply: func(current []T) ([]T, error) {
			if t.index(current, id) < 0 {
				return nil, t.missing("update", id)
			}
			return t.replace(current, id, change), nil
		},
		Call: func(ctx context.Context) (T, bool, error) {
			rec, err := call(ctx)
			return rec, err == nil, err
		},
		Reconcile: func(current []T, record T) []T {
			return t.replace(current, id, func(local T) T { return t.merge(local, record) })
		},
	}
}

// Toggle is Update where the remote call needs the flipped value, which is
// only known once the change is applied inside the lane.
func Toggle[T any](t Target[T], id, name string, flip func(T) T, call func(ctx context.Context, flipped T) (T, error)) Op[T] {
	var flipped T
	op := Update(t, id, name, func(local T) T {
		flipped = flip(local)
		return flipped
	}, func(ctx context.Context) (T, error) {
		return call(ctx, flipped)
	})
	op.Verb = "toggle"
	return op
}

// Delete removes the record with id; there is nothing to reconcile.
func Delete[T any](t Target[T], id, name string, call func(context.Context) error) Op[T] {
	return Op[T]{
		Verb:   "delete",
		Entity: t.Entity,
		Name:   name,
		Key:    t.Key,
		Lens:   t.Lens,
		Apply: func(current []T) ([]T, error) {
			idx := t.index(current, id)
			if idx < 0 {
				return nil, t.missing("delete", id)
			}
			return slices.Delete(slices.Clone(current), idx, idx+1), nil
		},
		Call: func(ctx context.Context) (T, bool, error) {
			var zero T
			return zero, false, call(ctx)
		},
	}
}
