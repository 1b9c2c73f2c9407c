// Package document maps the marketplace records onto paths of a
// domain.TreeStore.
package document

import (
	"context"
	"fmt"

	"go-freelance-backend/internal/domain"
	"go-freelance-backend/pkg/metrics"
)

// decodeChildren decodes every child of snap into a T, passing the child key
// to keyed so the record can learn its id.
func decodeChildren[T any](snap domain.Snapshot, keyed func(*T, string)) ([]T, error) {
	children, err := snap.Children()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", snap.Path, err)
	}

	out := make([]T, 0, len(children))
	for _, child := range children {
		var item T
		if err := child.Decode(&item); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", child.Path, err)
		}
		if keyed != nil {
			keyed(&item, child.Key())
		}
		out = append(out, item)
	}
	return out, nil
}

// childKeys lists the keys under path.
func childKeys(ctx context.Context, store domain.TreeStore, path string) ([]string, error) {
	snap, err := get(ctx, store, path)
	if err != nil {
		return nil, err
	}
	children, err := snap.Children()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(children))
	for _, c := range children {
		keys = append(keys, c.Key())
	}
	return keys, nil
}

// get reads path and records the store latency.
func get(ctx context.Context, store domain.TreeStore, path string) (domain.Snapshot, error) {
	defer metrics.ObserveStoreOp("get")()
	return store.Get(ctx, path)
}

func set(ctx context.Context, store domain.TreeStore, path string, value any) error {
	defer metrics.ObserveStoreOp("set")()
	return store.Set(ctx, path, value)
}

func update(ctx context.Context, store domain.TreeStore, path string, fields map[string]any) error {
	defer metrics.ObserveStoreOp("update")()
	return store.Update(ctx, path, fields)
}

func swap(ctx context.Context, store domain.TreeStore, path string, old, value any) (bool, error) {
	defer metrics.ObserveStoreOp("swap")()
	return store.CompareAndSwap(ctx, path, old, value)
}

func remove(ctx context.Context, store domain.TreeStore, path string) error {
	defer metrics.ObserveStoreOp("remove")()
	return store.Remove(ctx, path)
}
