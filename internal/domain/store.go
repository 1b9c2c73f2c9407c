package domain

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Snapshot is the value found at a path of the tree store. An absent path
// yields a snapshot whose Value is nil.
type Snapshot struct {
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Exists reports whether anything is stored at the snapshot path.
func (s Snapshot) Exists() bool {
	return len(s.Value) > 0 && string(s.Value) != "null"
}

// Key returns the last segment of the snapshot path.
func (s Snapshot) Key() string {
	if i := strings.LastIndex(s.Path, "/"); i >= 0 {
		return s.Path[i+1:]
	}
	return s.Path
}

// Decode unmarshals the snapshot value into dest. It returns ErrNotFound
// when the snapshot does not exist.
func (s Snapshot) Decode(dest any) error {
	if !s.Exists() {
		return ErrNotFound
	}
	return json.Unmarshal(s.Value, dest)
}

// Children splits an object (or array) snapshot into one snapshot per child,
// ordered by key. Scalars and missing snapshots have no children.
func (s Snapshot) Children() ([]Snapshot, error) {
	if !s.Exists() {
		return nil, nil
	}

	switch s.Value[0] {
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(s.Value, &fields); err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		children := make([]Snapshot, 0, len(keys))
		for _, k := range keys {
			children = append(children, Snapshot{Path: JoinPath(s.Path, k), Value: fields[k]})
		}
		return children, nil

	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(s.Value, &items); err != nil {
			return nil, err
		}
		children := make([]Snapshot, 0, len(items))
		for i, item := range items {
			if string(item) == "null" {
				continue
			}
			children = append(children, Snapshot{Path: JoinPath(s.Path, strconv.Itoa(i)), Value: item})
		}
		return children, nil
	}

	return nil, nil
}

// SnapshotFunc receives the full snapshot at a subscribed path.
type SnapshotFunc func(Snapshot)

// Unsubscribe stops a subscription. It is safe to call more than once.
type Unsubscribe func()

// TreeStore is the hierarchical document database the marketplace keeps its
// shared records in. Paths are slash separated ("jobs/{jobId}").
type TreeStore interface {
	// Get reads the subtree at path. A missing path is not an error.
	Get(ctx context.Context, path string) (Snapshot, error)
	// Set overwrites the subtree at path with value.
	Set(ctx context.Context, path string, value any) error
	// Update merges fields into path. Keys may be relative sub-paths and
	// the whole update is applied at once.
	Update(ctx context.Context, path string, fields map[string]any) error
	// Remove deletes the subtree at path. Removing a missing path is a no-op.
	Remove(ctx context.Context, path string) error
	// CompareAndSwap writes value at path only if the single leaf stored
	// there equals old, and reports whether it did.
	CompareAndSwap(ctx context.Context, path string, old, value any) (bool, error)
	// Push stores value under a freshly generated child key of path.
	Push(ctx context.Context, path string, value any) (string, error)
	// Subscribe delivers the snapshot at path now and after every change
	// touching it, until the returned Unsubscribe is called or ctx ends.
	Subscribe(ctx context.Context, path string, fn SnapshotFunc) (Unsubscribe, error)
	Ping(ctx context.Context) error
}

// SessionStore holds per-user session identity and navigation history.
type SessionStore interface {
	SaveSession(ctx context.Context, uid string, fields map[string]string) error
	GetSession(ctx context.Context, uid string) (map[string]string, error)
	ClearSession(ctx context.Context, uid string) error
	// PushNavigation records path as the most recent entry. A path equal to
	// the current most recent entry is ignored and the log is capped.
	PushNavigation(ctx context.Context, uid, path string) error
	Navigation(ctx context.Context, uid string) ([]string, error)
}

// WalletStore holds per-user wallet balances, outside the shared tree.
type WalletStore interface {
	Balance(ctx context.Context, uid string) (float64, error)
	Credit(ctx context.Context, uid string, amount float64) (float64, error)
	// Debit fails with ErrInsufficientFunds, leaving the balance untouched,
	// when the balance is lower than amount.
	Debit(ctx context.Context, uid string, amount float64) (float64, error)
	AppendLedger(ctx context.Context, uid string, entry WalletEntry) error
	Ledger(ctx context.Context, uid string) ([]WalletEntry, error)
}

// MaxNavigationEntries caps the per-user navigation log.
const MaxNavigationEntries = 10

// MaxLedgerEntries caps the per-user wallet ledger.
const MaxLedgerEntries = 100

// IconStore keeps uploaded profile pictures outside the tree and returns the
// URL stored on the profile.
type IconStore interface {
	PutIcon(ctx context.Context, uid string, jpeg []byte) (string, error)
}
