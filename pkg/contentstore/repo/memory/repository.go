// Package memory provides an in-memory implementation of the
// contentstore.Repository interface.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/duolang/contentstore/pkg/contentstore"
)

type recordKey struct {
	kind       contentstore.RecordKind
	naturalKey string
	language   contentstore.Language
}

// Repository implements contentstore.Repository using in-memory storage.
type Repository struct {
	mu      sync.RWMutex
	records map[recordKey]*contentstore.Record
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{
		records: make(map[recordKey]*contentstore.Record),
	}
}

func (r *Repository) GetByLanguage(ctx context.Context, kind contentstore.RecordKind, naturalKey string, lang contentstore.Language) (*contentstore.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.records[recordKey{kind, naturalKey, lang}]
	if !exists {
		return nil, contentstore.ErrRecordNotFound
	}
	return copyRecord(rec), nil
}

func (r *Repository) List(ctx context.Context, kind contentstore.RecordKind, lang contentstore.Language) ([]*contentstore.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*contentstore.Record
	for k, rec := range r.records {
		if k.kind == kind && k.language == lang {
			result = append(result, copyRecord(rec))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *Repository) Upsert(ctx context.Context, kind contentstore.RecordKind, naturalKey string, lang contentstore.Language, fields map[string]any, assets map[contentstore.SlotName]string) (*contentstore.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	key := recordKey{kind, naturalKey, lang}
	rec, exists := r.records[key]
	if !exists {
		rec = &contentstore.Record{
			Kind:       kind,
			NaturalKey: naturalKey,
			Language:   lang,
			Fields:     make(map[string]any),
			Assets:     make(map[contentstore.SlotName]string),
			CreatedAt:  now,
		}
		r.records[key] = rec
	}
	for k, v := range fields {
		rec.Fields[k] = v
	}
	for k, v := range assets {
		rec.Assets[k] = v
	}
	rec.UpdatedAt = now

	return copyRecord(rec), nil
}

func (r *Repository) SetAssetReference(ctx context.Context, kind contentstore.RecordKind, naturalKey string, lang contentstore.Language, slot contentstore.SlotName, reference string) (*contentstore.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.records[recordKey{kind, naturalKey, lang}]
	if !exists {
		return nil, contentstore.ErrRecordNotFound
	}
	rec.Assets[slot] = reference
	rec.UpdatedAt = time.Now().UTC()
	return copyRecord(rec), nil
}

func (r *Repository) DeleteCascade(ctx context.Context, kind contentstore.RecordKind, naturalKey string) ([]contentstore.DeletedAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted []contentstore.DeletedAsset
	for k, rec := range r.records {
		if k.kind != kind || k.naturalKey != naturalKey {
			continue
		}
		for slot, ref := range rec.Assets {
			if ref == "" {
				continue
			}
			deleted = append(deleted, contentstore.DeletedAsset{
				Kind:       kind,
				NaturalKey: naturalKey,
				Language:   k.language,
				Slot:       slot,
				Reference:  ref,
			})
		}
		delete(r.records, k)
	}
	return deleted, nil
}

// copyRecord returns a deep copy so callers cannot mutate stored state.
func copyRecord(rec *contentstore.Record) *contentstore.Record {
	cp := *rec
	cp.Fields = make(map[string]any, len(rec.Fields))
	for k, v := range rec.Fields {
		cp.Fields[k] = v
	}
	cp.Assets = make(map[contentstore.SlotName]string, len(rec.Assets))
	for k, v := range rec.Assets {
		cp.Assets[k] = v
	}
	return &cp
}
