package sqlite

import (
	"context"

	"github.com/kinly-app/kinly/internal/domain"
)

// DocStore adapts DB to domain.RemoteStore.
type DocStore struct {
	db *DB
}

// NewDocStore wraps db as a remote store.
func NewDocStore(db *DB) *DocStore {
	return &DocStore{db: db}
}

var _ domain.RemoteStore = (*DocStore)(nil)

// Get implements domain.RemoteStore.
func (s *DocStore) Get(ctx context.Context, key string) (domain.Document, error) {
	rec, err := s.db.GetDocument(ctx, key)
	if err != nil {
		return nil, err
	}
	return rec.Body, nil
}

// Set implements domain.RemoteStore.
func (s *DocStore) Set(ctx context.Context, key string, partial domain.Document, merge bool) error {
	_, err := s.db.SetDocument(ctx, key, partial, merge)
	return err
}

// OnChange implements domain.RemoteStore.
func (s *DocStore) OnChange(key string, fn func(domain.Document)) func() {
	return s.db.OnChange(key, fn)
}
