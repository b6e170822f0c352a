package contentstore

import (
	"context"
	"io"
)

// BlobStore defines the interface for the external object store.
type BlobStore interface {
	// Upload writes the object under key. Keys are write-once; callers
	// derive a fresh key per upload.
	Upload(ctx context.Context, key string, reader io.Reader, mimeType string) error

	// Download reads the object back.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object. Deleting a non-existent key is harmless.
	Delete(ctx context.Context, key string) error

	// GetDownloadURL returns a time-limited read URL for the object.
	GetDownloadURL(ctx context.Context, key string) (string, error)
}

// Repository defines the interface for localized record persistence.
// The repository never talks to the object store.
type Repository interface {
	// GetByLanguage fetches the record scoped to the exact
	// (kind, naturalKey, language) triple. No fallback is applied here.
	GetByLanguage(ctx context.Context, kind RecordKind, naturalKey string, lang Language) (*Record, error)

	// List returns all records of a kind for one language, newest first.
	List(ctx context.Context, kind RecordKind, lang Language) ([]*Record, error)

	// Upsert merges fields and assets into the row keyed by
	// (kind, naturalKey, language), creating it when absent. It never
	// creates a second row for the same triple.
	Upsert(ctx context.Context, kind RecordKind, naturalKey string, lang Language, fields map[string]any, assets map[SlotName]string) (*Record, error)

	// SetAssetReference writes a single asset slot on an existing row.
	// Returns ErrRecordNotFound when the row is gone.
	SetAssetReference(ctx context.Context, kind RecordKind, naturalKey string, lang Language, slot SlotName, reference string) (*Record, error)

	// DeleteCascade removes every language row of (kind, naturalKey) and
	// returns the asset references that were held by the deleted rows so
	// the caller can run best-effort store deletes.
	DeleteCascade(ctx context.Context, kind RecordKind, naturalKey string) ([]DeletedAsset, error)
}
