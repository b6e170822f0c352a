package contentstore

import (
	"context"
	"io"
)

// Service is the main interface of the localized asset-backed content
// store: language-scoped record access with fallback, plus the asset
// replace/clear lifecycle against the object store.
type Service interface {
	// GetRecord fetches the record for (kind, naturalKey, lang). When lang
	// is not the primary language and no row exists, it retries with the
	// primary language. The primary language never falls back.
	GetRecord(ctx context.Context, kind RecordKind, naturalKey string, lang Language) (*Record, error)

	// ListRecords returns all records of a kind for one language.
	ListRecords(ctx context.Context, kind RecordKind, lang Language) ([]*Record, error)

	// UpsertRecord merges fields into the record for the triple, creating
	// the row when absent.
	UpsertRecord(ctx context.Context, req UpsertRecordRequest) (*Record, error)

	// DeleteRecord removes every language row of (kind, naturalKey) and
	// best-effort deletes the store objects they referenced.
	DeleteRecord(ctx context.Context, kind RecordKind, naturalKey string) error

	// ValidateUpload runs the slot's MIME-category and size checks without
	// touching the store or any record. Callers that persist state before
	// uploading use it to keep a rejected upload side-effect free.
	ValidateUpload(slot SlotName, fileName, mimeType string, size int64) error

	// ReplaceAsset runs the replace protocol on one asset slot: validate,
	// best-effort delete of the superseded object, upload under a fresh
	// key, persist the new reference.
	ReplaceAsset(ctx context.Context, req ReplaceAssetRequest) (*Record, error)

	// ClearAsset best-effort deletes the slot's object and unconditionally
	// nulls out the reference.
	ClearAsset(ctx context.Context, kind RecordKind, naturalKey string, lang Language, slot SlotName) (*Record, error)

	// UploadAsset uploads a file under a slot's folder without touching any
	// record and returns the public URL of the new object.
	UploadAsset(ctx context.Context, req UploadAssetRequest) (string, error)

	// PresignAsset returns a time-limited read URL for a stored reference
	// (URL or bare key).
	PresignAsset(ctx context.Context, reference string) (string, error)

	// DownloadAsset streams the content behind a persisted reference.
	// Legacy inline payloads are served from the decoded data; stored
	// objects are read back from the store.
	DownloadAsset(ctx context.Context, reference string) (io.ReadCloser, error)
}
