// Package tree holds the path and node helpers shared by the tree store
// drivers. A node is the decoded JSON form of a subtree where every array has
// been turned into an object keyed by index, so any element is addressable
// by a path ("applications/j1/u1/job_milestones/2/status").
package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go-freelance-backend/internal/domain"
)

const forbiddenKeyChars = ".#$[]"

// CheckPath rejects segments the store cannot address.
func CheckPath(path string) error {
	for _, seg := range domain.SplitPath(path) {
		if strings.ContainsAny(seg, forbiddenKeyChars) {
			return fmt.Errorf("tree: invalid path segment %q", seg)
		}
	}
	return nil
}

// Normalize converts value into a node: objects become map[string]any,
// arrays become index-keyed maps, nulls and empty containers disappear.
// It returns nil when nothing would be stored.
func Normalize(value any) (any, error) {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		raw = v
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("tree: encode value: %w", err)
		}
		raw = b
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("tree: decode value: %w", err)
	}
	return normalizeNode(decoded), nil
}

func normalizeNode(v any) any {
	switch n := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, child := range n {
			if c := normalizeNode(child); c != nil {
				out[k] = c
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []any:
		out := make(map[string]any, len(n))
		for i, child := range n {
			if c := normalizeNode(child); c != nil {
				out[strconv.Itoa(i)] = c
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return v
	}
}

// Denormalize turns index-keyed maps whose keys are exactly 0..n-1 back
// into arrays.
func Denormalize(v any) any {
	n, ok := v.(map[string]any)
	if !ok {
		return v
	}

	out := make(map[string]any, len(n))
	for k, child := range n {
		out[k] = Denormalize(child)
	}

	if arr, ok := asArray(out); ok {
		return arr
	}
	return out
}

func asArray(m map[string]any) ([]any, bool) {
	arr := make([]any, len(m))
	for k, v := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(m) || strconv.Itoa(i) != k {
			return nil, false
		}
		arr[i] = v
	}
	return arr, true
}

// Encode renders a node as JSON, or nil when the node is absent.
func Encode(node any) (json.RawMessage, error) {
	if node == nil {
		return nil, nil
	}
	b, err := json.Marshal(Denormalize(node))
	if err != nil {
		return nil, fmt.Errorf("tree: encode node: %w", err)
	}
	return b, nil
}

// Lookup walks root along segments.
func Lookup(root map[string]any, segments []string) (any, bool) {
	var cur any = root
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	if m, ok := cur.(map[string]any); ok && len(m) == 0 {
		return nil, false
	}
	return cur, true
}

// Put stores node at segments under root, replacing whatever was there.
// A nil node deletes, and parents left empty are pruned. Scalars found on the
// way are replaced by objects.
func Put(root map[string]any, segments []string, node any) {
	if len(segments) == 0 {
		return
	}

	parents := make([]map[string]any, 0, len(segments))
	cur := root
	for _, seg := range segments[:len(segments)-1] {
		parents = append(parents, cur)
		next, ok := cur[seg].(map[string]any)
		if !ok {
			if node == nil {
				return
			}
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}

	last := segments[len(segments)-1]
	if node == nil {
		delete(cur, last)
	} else {
		cur[last] = node
	}

	for i := len(parents) - 1; i >= 0; i-- {
		child := parents[i][segments[i]].(map[string]any)
		if len(child) > 0 {
			break
		}
		delete(parents[i], segments[i])
	}
}

// Flatten lists the leaves of node keyed by their full path under prefix.
func Flatten(prefix string, node any) (map[string]json.RawMessage, error) {
	leaves := map[string]json.RawMessage{}
	if err := flatten(prefix, node, leaves); err != nil {
		return nil, err
	}
	return leaves, nil
}

func flatten(path string, node any, leaves map[string]json.RawMessage) error {
	switch n := node.(type) {
	case nil:
		return nil
	case map[string]any:
		for k, child := range n {
			if err := flatten(domain.JoinPath(path, k), child, leaves); err != nil {
				return err
			}
		}
		return nil
	default:
		b, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("tree: encode leaf %s: %w", path, err)
		}
		leaves[path] = b
		return nil
	}
}

// Assemble rebuilds the node at base from leaves stored at base or below.
func Assemble(base string, leaves map[string]json.RawMessage) (any, error) {
	baseSegs := domain.SplitPath(base)
	if raw, ok := leaves[domain.JoinPath(base)]; ok {
		return decodeLeaf(raw)
	}

	paths := make([]string, 0, len(leaves))
	for p := range leaves {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	root := map[string]any{}
	for _, p := range paths {
		segs := domain.SplitPath(p)
		if len(segs) <= len(baseSegs) {
			continue
		}
		leaf, err := decodeLeaf(leaves[p])
		if err != nil {
			return nil, err
		}
		Put(root, segs[len(baseSegs):], leaf)
	}
	if len(root) == 0 {
		return nil, nil
	}
	return root, nil
}

func decodeLeaf(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("tree: decode leaf: %w", err)
	}
	return v, nil
}

// Ancestors returns every proper ancestor of path, nearest last.
func Ancestors(path string) []string {
	segs := domain.SplitPath(path)
	out := make([]string, 0, len(segs))
	for i := 1; i < len(segs); i++ {
		out = append(out, strings.Join(segs[:i], "/"))
	}
	return out
}

// Overlaps reports whether a change at one path can affect the other: the
// paths are equal or one is an ancestor of the other.
func Overlaps(a, b string) bool {
	as, bs := domain.SplitPath(a), domain.SplitPath(b)
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
