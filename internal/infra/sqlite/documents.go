package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/kinly-app/kinly/internal/domain"
)

// ─── Documents ──────────────────────────────────────────────────────────────

// DocumentRecord is a stored document with its last write time.
type DocumentRecord struct {
	Key       string          `json:"key"`
	Body      domain.Document `json:"data"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// GetDocument returns the document at key, or domain.ErrDocumentNotFound.
func (d *DB) GetDocument(ctx context.Context, key string) (*DocumentRecord, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	row := d.db.QueryRowContext(ctx,
		`SELECT key, body, updated_at FROM documents WHERE key = ?`, key,
	)
	rec, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	return rec, err
}

// SetDocument writes partial to key. With merge, top-level fields of
// partial replace stored fields and the rest are kept; without merge the
// stored document is replaced. Subscribers see the resulting document.
func (d *DB) SetDocument(ctx context.Context, key string, partial domain.Document, merge bool) (*DocumentRecord, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	body := domain.Document{}
	if merge {
		var raw string
		err := tx.QueryRowContext(ctx, `SELECT body FROM documents WHERE key = ?`, key).Scan(&raw)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", key, err)
		default:
			if err := json.Unmarshal([]byte(raw), &body); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidDocument, key, err)
			}
		}
	}
	maps.Copy(body, partial)

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (key, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET body=excluded.body, updated_at=excluded.updated_at`,
		key, string(encoded), now.UnixNano(),
	); err != nil {
		return nil, fmt.Errorf("write %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s: %w", key, err)
	}

	// Re-decode so subscribers get the same JSON-typed values a reader would.
	var stored domain.Document
	if err := json.Unmarshal(encoded, &stored); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	rec := &DocumentRecord{Key: key, Body: stored, UpdatedAt: now}
	d.publish(key, stored)
	return rec, nil
}

// DeleteDocument removes a document. Missing keys are not an error.
func (d *DB) DeleteDocument(ctx context.Context, key string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key)
	return err
}

// ListDocuments returns keys under prefix, ordered by key.
func (d *DB) ListDocuments(ctx context.Context, prefix string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT key FROM documents WHERE substr(key, 1, ?) = ? ORDER BY key`,
		len(prefix), prefix,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// ─── Subscriptions ──────────────────────────────────────────────────────────

// OnChange registers fn for committed writes to key. fn runs on the
// writer's goroutine after commit and must not write the same key.
func (d *DB) OnChange(key string, fn func(domain.Document)) (unsubscribe func()) {
	d.subMu.Lock()
	defer d.subMu.Unlock()

	d.nextID++
	id := d.nextID
	if d.subs[key] == nil {
		d.subs[key] = make(map[int]func(domain.Document))
	}
	d.subs[key][id] = fn

	return func() {
		d.subMu.Lock()
		defer d.subMu.Unlock()
		delete(d.subs[key], id)
		if len(d.subs[key]) == 0 {
			delete(d.subs, key)
		}
	}
}

func (d *DB) publish(key string, doc domain.Document) {
	d.subMu.Lock()
	fns := make([]func(domain.Document), 0, len(d.subs[key]))
	for _, fn := range d.subs[key] {
		fns = append(fns, fn)
	}
	d.subMu.Unlock()

	for _, fn := range fns {
		fn(maps.Clone(doc))
	}
}

// ─── Document Helpers ───────────────────────────────────────────────────────

func scanDocument(s scanner) (*DocumentRecord, error) {
	var rec DocumentRecord
	var raw string
	var updatedAt int64
	if err := s.Scan(&rec.Key, &raw, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &rec.Body); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidDocument, rec.Key, err)
	}
	rec.UpdatedAt = time.Unix(0, updatedAt)
	return &rec, nil
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", domain.ErrInvalidKey, key)
	}
	return nil
}
