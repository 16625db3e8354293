package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-process Repository, used when no database is
// configured and in tests.
type MemoryRepo struct {
	mu      sync.RWMutex
	records map[string]*CatalogRecord
}

// NewMemoryRepo returns an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: make(map[string]*CatalogRecord)}
}

func (r *MemoryRepo) Upsert(ctx context.Context, rec *CatalogRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("repo upsert: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.Name] = clone(rec)
	return nil
}

func (r *MemoryRepo) UpdateTags(ctx context.Context, name string, tags []string, modifiedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("repo updateTags: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[name]
	if !ok {
		return fmt.Errorf("repo updateTags %q: %w", name, ErrNotFound)
	}
	rec.Tags = slices.Clone(tags)
	rec.ModifiedAt = modifiedAt
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("repo delete: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, name)
	return nil
}

func (r *MemoryRepo) GetByName(ctx context.Context, name string) (*CatalogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("repo getByName: %w", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[name]
	if !ok {
		return nil, fmt.Errorf("repo getByName %q: %w", name, ErrNotFound)
	}
	return clone(rec), nil
}

func (r *MemoryRepo) ListAll(ctx context.Context) ([]*CatalogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("repo listAll: %w", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*CatalogRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, clone(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ModifiedAt.Equal(out[j].ModifiedAt) {
			return out[i].ModifiedAt.After(out[j].ModifiedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *MemoryRepo) Ping(ctx context.Context) error {
	return ctx.Err()
}

func clone(rec *CatalogRecord) *CatalogRecord {
	c := *rec
	c.Tags = slices.Clone(rec.Tags)
	c.Metadata = maps.Clone(rec.Metadata)
	return &c
}
