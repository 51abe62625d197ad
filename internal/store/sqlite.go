package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/beacon-station/internal/infrastructure/database"
)

// SQLite is a Store backed by the station's local database.
//
// Each write stores a whole JSON document at its path in the store_nodes
// table. Stored paths never nest: a write below an existing document is
// merged into that document, and a write above existing documents replaces
// them. A read returns the document at the path, the matching part of an
// ancestor document, or an object assembled from descendant documents.
type SQLite struct {
	db  *database.DB
	now func() time.Time
}

// NewSQLite creates a store over a migrated database.
func NewSQLite(db *database.DB) *SQLite {
	return &SQLite{db: db, now: time.Now}
}

// GetString fetches the node at path.
func (s *SQLite) GetString(ctx context.Context, path string) (Value, error) {
	return s.get(ctx, path)
}

// GetJSON fetches the node at path.
func (s *SQLite) GetJSON(ctx context.Context, path string) (Value, error) {
	return s.get(ctx, path)
}

// SetJSON replaces the node at path with payload.
func (s *SQLite) SetJSON(ctx context.Context, path string, payload any) error {
	segs, err := SplitPath(path)
	if err != nil {
		return err
	}
	data, err := encodePayload(payload)
	if err != nil {
		return err
	}
	key := strings.Join(segs, "/")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrRequestFailed, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	ancestor, doc, err := findEnclosing(ctx, tx, segs)
	if err != nil {
		return err
	}

	stamp := s.now().UTC().Format(time.RFC3339Nano)
	if ancestor != "" && ancestor != key {
		rest := segs[len(strings.Split(ancestor, "/")):]
		merged, err := setNested(doc, rest, data)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE store_nodes SET value = ?, updated_at = ? WHERE path = ?`,
			string(merged), stamp, ancestor); err != nil {
			return fmt.Errorf("%w: update %s: %w", ErrRequestFailed, ancestor, err)
		}
	} else {
		lo, hi := descendantRange(key)
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM store_nodes WHERE path = ? OR (path > ? AND path < ?)`,
			key, lo, hi); err != nil {
			return fmt.Errorf("%w: clear %s: %w", ErrRequestFailed, key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO store_nodes (path, value, updated_at) VALUES (?, ?, ?)`,
			key, string(data), stamp); err != nil {
			return fmt.Errorf("%w: insert %s: %w", ErrRequestFailed, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrRequestFailed, err)
	}
	return nil
}

func (s *SQLite) get(ctx context.Context, path string) (Value, error) {
	segs, err := SplitPath(path)
	if err != nil {
		return Value{}, err
	}
	key := strings.Join(segs, "/")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Value{}, fmt.Errorf("%w: begin: %w", ErrRequestFailed, err)
	}
	defer tx.Rollback() //nolint:errcheck // reads only

	ancestor, doc, err := findEnclosing(ctx, tx, segs)
	if err != nil {
		return Value{}, err
	}
	if ancestor != "" {
		rest := segs[len(strings.Split(ancestor, "/")):]
		raw, ok := getNested(doc, rest)
		if !ok {
			return Value{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		v := NewValue(raw)
		if v.IsNull() {
			return Value{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return v, nil
	}

	raw, err := assembleDescendants(ctx, tx, key)
	if err != nil {
		return Value{}, err
	}
	if raw == nil {
		return Value{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return NewValue(raw), nil
}

// findEnclosing returns the stored path that is segs itself or one of its
// ancestors, with its document. An empty path means none exists.
func findEnclosing(ctx context.Context, tx *sql.Tx, segs []string) (string, json.RawMessage, error) {
	candidates := make([]any, len(segs))
	for i := range segs {
		candidates[i] = strings.Join(segs[:i+1], "/")
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(segs)), ",")

	// Stored paths never nest, so at most one row matches.
	row := tx.QueryRowContext(ctx,
		`SELECT path, value FROM store_nodes WHERE path IN (`+placeholders+`) LIMIT 1`,
		candidates...)

	var found, value string
	if err := row.Scan(&found, &value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("%w: lookup: %w", ErrRequestFailed, err)
	}
	return found, json.RawMessage(value), nil
}

// assembleDescendants builds an object from every document stored below key.
// It returns nil when there are none.
func assembleDescendants(ctx context.Context, tx *sql.Tx, key string) (json.RawMessage, error) {
	lo, hi := descendantRange(key)
	rows, err := tx.QueryContext(ctx,
		`SELECT path, value FROM store_nodes WHERE path > ? AND path < ? ORDER BY path`,
		lo, hi)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", ErrRequestFailed, key, err)
	}
	defer rows.Close()

	root := &treeNode{}
	count := 0
	for rows.Next() {
		var p, value string
		if err := rows.Scan(&p, &value); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrRequestFailed, err)
		}
		root.insert(strings.Split(strings.TrimPrefix(p, lo), "/"), json.RawMessage(value))
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %w", ErrRequestFailed, err)
	}
	if count == 0 {
		return nil, nil
	}
	return root.render()
}

// descendantRange returns bounds selecting every path strictly below key.
// '0' is the byte after '/', so the range is exactly the "key/" prefix.
func descendantRange(key string) (lo, hi string) {
	return key + "/", key + "0"
}

type treeNode struct {
	leaf     json.RawMessage
	children map[string]*treeNode
}

func (n *treeNode) insert(segs []string, value json.RawMessage) {
	if len(segs) == 0 {
		n.leaf = value
		return
	}
	if n.children == nil {
		n.children = make(map[string]*treeNode)
	}
	child, ok := n.children[segs[0]]
	if !ok {
		child = &treeNode{}
		n.children[segs[0]] = child
	}
	child.insert(segs[1:], value)
}

func (n *treeNode) render() (json.RawMessage, error) {
	if n.children == nil {
		return n.leaf, nil
	}
	obj := make(map[string]json.RawMessage, len(n.children))
	for k, child := range n.children {
		raw, err := child.render()
		if err != nil {
			return nil, err
		}
		obj[k] = raw
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return data, nil
}

// getNested walks an object document along segs.
func getNested(doc json.RawMessage, segs []string) (json.RawMessage, bool) {
	for _, seg := range segs {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(doc, &obj); err != nil {
			return nil, false
		}
		child, ok := obj[seg]
		if !ok {
			return nil, false
		}
		doc = child
	}
	return doc, true
}

// setNested returns doc with the value at segs replaced. Non-object
// intermediate values are replaced by objects.
func setNested(doc json.RawMessage, segs []string, value json.RawMessage) (json.RawMessage, error) {
	if len(segs) == 0 {
		return value, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(doc, &obj); err != nil || obj == nil {
		obj = make(map[string]json.RawMessage)
	}
	child, err := setNested(obj[segs[0]], segs[1:], value)
	if err != nil {
		return nil, err
	}
	obj[segs[0]] = child
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return data, nil
}
