// Package memory provides in-process implementations of the store
// interfaces, used by the development server and by tests.
package memory

import (
	"bytes"
	"context"
	"sync"

	"go-freelance-backend/internal/domain"
	"go-freelance-backend/internal/repository/tree"

	"github.com/google/uuid"
)

type TreeStore struct {
	mu       sync.RWMutex
	root     map[string]any
	watchers *tree.Watchers
}

func NewTreeStore() *TreeStore {
	return &TreeStore{
		root:     map[string]any{},
		watchers: tree.NewWatchers(),
	}
}

func (s *TreeStore) Get(_ context.Context, path string) (domain.Snapshot, error) {
	if err := tree.CheckPath(path); err != nil {
		return domain.Snapshot{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := domain.Snapshot{Path: domain.JoinPath(path)}
	node, ok := tree.Lookup(s.root, domain.SplitPath(path))
	if !ok {
		return snap, nil
	}
	raw, err := tree.Encode(node)
	if err != nil {
		return snap, err
	}
	snap.Value = raw
	return snap, nil
}

func (s *TreeStore) Set(ctx context.Context, path string, value any) error {
	if err := tree.CheckPath(path); err != nil {
		return err
	}
	node, err := tree.Normalize(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.put(path, node)
	s.mu.Unlock()

	s.watchers.Notify(ctx, path, s.Get)
	return nil
}

func (s *TreeStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := tree.CheckPath(path); err != nil {
		return err
	}

	nodes := make(map[string]any, len(fields))
	for key, value := range fields {
		if err := tree.CheckPath(key); err != nil {
			return err
		}
		node, err := tree.Normalize(value)
		if err != nil {
			return err
		}
		nodes[domain.JoinPath(path, key)] = node
	}

	s.mu.Lock()
	for p, node := range nodes {
		s.put(p, node)
	}
	s.mu.Unlock()

	s.watchers.Notify(ctx, path, s.Get)
	return nil
}

func (s *TreeStore) CompareAndSwap(ctx context.Context, path string, old, value any) (bool, error) {
	if err := tree.CheckPath(path); err != nil {
		return false, err
	}
	want, err := tree.Normalize(old)
	if err != nil {
		return false, err
	}
	wantRaw, err := tree.Encode(want)
	if err != nil {
		return false, err
	}
	node, err := tree.Normalize(value)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	current, _ := tree.Lookup(s.root, domain.SplitPath(path))
	currentRaw, err := tree.Encode(current)
	if err != nil || !bytes.Equal(currentRaw, wantRaw) {
		s.mu.Unlock()
		return false, err
	}
	s.put(path, node)
	s.mu.Unlock()

	s.watchers.Notify(ctx, path, s.Get)
	return true, nil
}

func (s *TreeStore) Remove(ctx context.Context, path string) error {
	return s.Set(ctx, path, nil)
}

func (s *TreeStore) Push(ctx context.Context, path string, value any) (string, error) {
	key, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	if err := s.Set(ctx, domain.JoinPath(path, key.String()), value); err != nil {
		return "", err
	}
	return key.String(), nil
}

func (s *TreeStore) Subscribe(ctx context.Context, path string, fn domain.SnapshotFunc) (domain.Unsubscribe, error) {
	if err := tree.CheckPath(path); err != nil {
		return nil, err
	}
	return s.watchers.Subscribe(ctx, path, fn, s.Get)
}

func (s *TreeStore) Ping(context.Context) error {
	return nil
}

// put must be called with mu held.
func (s *TreeStore) put(path string, node any) {
	segs := domain.SplitPath(path)
	if len(segs) == 0 {
		if m, ok := node.(map[string]any); ok {
			s.root = m
		} else {
			s.root = map[string]any{}
		}
		return
	}
	tree.Put(s.root, segs, node)
}
