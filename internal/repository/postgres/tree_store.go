package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go-freelance-backend/internal/domain"
	"go-freelance-backend/internal/repository/tree"
	"go-freelance-backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS tree_nodes (
	path       TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS tree_nodes_path_prefix_idx ON tree_nodes (path text_pattern_ops);
`

// TreeStore persists the document tree as one row per leaf. Changes are
// announced through a tree.Notifier so every instance sharing the database
// can refresh its subscribers.
type TreeStore struct {
	db       *pgxpool.Pool
	notifier tree.Notifier
	watchers *tree.Watchers
}

// NewTreeStore starts listening on notifier until ctx ends. A nil notifier
// limits change delivery to this process.
func NewTreeStore(ctx context.Context, db *pgxpool.Pool, notifier tree.Notifier) (*TreeStore, error) {
	if notifier == nil {
		notifier = tree.NewLocalNotifier()
	}
	s := &TreeStore{
		db:       db,
		notifier: notifier,
		watchers: tree.NewWatchers(),
	}

	err := notifier.Listen(ctx, func(path string) {
		s.watchers.Notify(context.Background(), path, s.Get)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to listen for tree changes: %w", err)
	}
	return s, nil
}

// EnsureSchema creates the tree_nodes table when missing.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schema)
	return err
}

// likePrefix matches every descendant of path.
func likePrefix(path string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	if path == "" {
		return "%"
	}
	return r.Replace(path) + "/%"
}

func (s *TreeStore) Get(ctx context.Context, path string) (domain.Snapshot, error) {
	if err := tree.CheckPath(path); err != nil {
		return domain.Snapshot{}, err
	}
	path = domain.JoinPath(path)
	snap := domain.Snapshot{Path: path}

	query := `SELECT path, value::text FROM tree_nodes WHERE path = $1 OR path LIKE $2 ESCAPE '\'`
	rows, err := s.db.Query(ctx, query, path, likePrefix(path))
	if err != nil {
		return snap, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer rows.Close()

	leaves := map[string]json.RawMessage{}
	for rows.Next() {
		var p, value string
		if err := rows.Scan(&p, &value); err != nil {
			return snap, err
		}
		leaves[p] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	node, err := tree.Assemble(path, leaves)
	if err != nil {
		return snap, err
	}
	snap.Value, err = tree.Encode(node)
	return snap, err
}

func (s *TreeStore) Set(ctx context.Context, path string, value any) error {
	return s.Update(ctx, path, map[string]any{"": value})
}

func (s *TreeStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := tree.CheckPath(path); err != nil {
		return err
	}
	path = domain.JoinPath(path)

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

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for target, node := range nodes {
		if err := replaceSubtree(ctx, tx, target, node); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if err := s.notifier.Publish(ctx, path); err != nil {
		logger.Log.Warn("Failed to publish tree change", "path", path, "error", err)
	}
	return nil
}

// replaceSubtree drops every leaf at or below target, and any ancestor leaf
// that would shadow it, then inserts the leaves of node.
func replaceSubtree(ctx context.Context, tx pgx.Tx, target string, node any) error {
	_, err := tx.Exec(ctx, `DELETE FROM tree_nodes WHERE path = $1 OR path LIKE $2 ESCAPE '\'`, target, likePrefix(target))
	if err != nil {
		return err
	}
	if node == nil {
		return nil
	}

	if ancestors := tree.Ancestors(target); len(ancestors) > 0 {
		_, err = tx.Exec(ctx, `DELETE FROM tree_nodes WHERE path = ANY($1)`, pq.Array(ancestors))
		if err != nil {
			return err
		}
	}

	leaves, err := tree.Flatten(target, node)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for p, raw := range leaves {
		batch.Queue(`INSERT INTO tree_nodes (path, value, updated_at) VALUES ($1, $2::jsonb, NOW())
			ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, p, string(raw))
	}
	return tx.SendBatch(ctx, batch).Close()
}

// CompareAndSwap only handles leaves: the whole check and write is a single
// conditional UPDATE of one row.
func (s *TreeStore) CompareAndSwap(ctx context.Context, path string, old, value any) (bool, error) {
	if err := tree.CheckPath(path); err != nil {
		return false, err
	}
	path = domain.JoinPath(path)

	oldRaw, err := json.Marshal(old)
	if err != nil {
		return false, err
	}
	newRaw, err := json.Marshal(value)
	if err != nil {
		return false, err
	}

	tag, err := s.db.Exec(ctx, `UPDATE tree_nodes SET value = $2::jsonb, updated_at = NOW() WHERE path = $1 AND value = $3::jsonb`,
		path, string(newRaw), string(oldRaw))
	if err != nil {
		return false, fmt.Errorf("failed to swap %s: %w", path, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := s.notifier.Publish(ctx, path); err != nil {
		logger.Log.Warn("Failed to publish tree change", "path", path, "error", err)
	}
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
	return s.watchers.Subscribe(ctx, domain.JoinPath(path), fn, s.Get)
}

func (s *TreeStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
