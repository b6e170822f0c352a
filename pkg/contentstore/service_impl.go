package contentstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/duolang/contentstore/pkg/contentstore/objectkey"
)

// service implements the Service interface.
type service struct {
	repository Repository
	store      BlobStore
	codec      objectkey.Codec
	logger     *slog.Logger
}

// Option represents a functional option for configuring the service.
type Option func(*service)

// WithRepository sets the record repository.
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the object store client.
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithKeyCodec sets the storage key codec.
func WithKeyCodec(codec objectkey.Codec) Option {
	return func(s *service) {
		s.codec = codec
	}
}

// WithLogger sets the logger used for swallowed cleanup failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options.
func New(options ...Option) (Service, error) {
	s := &service{}
	for _, option := range options {
		option(s)
	}
	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.store == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.codec.Bucket == "" {
		return nil, fmt.Errorf("key codec with a bucket is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Record operations

func (s *service) GetRecord(ctx context.Context, kind RecordKind, naturalKey string, lang Language) (*Record, error) {
	rec, err := s.repository.GetByLanguage(ctx, kind, naturalKey, lang)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return nil, &RecordError{Kind: kind, NaturalKey: naturalKey, Op: "get", Err: err}
	}
	// The primary language stays authoritative: a missing secondary row
	// resolves to the primary one, never the other way around.
	if lang == DefaultLanguage {
		return nil, err
	}
	rec, err = s.repository.GetByLanguage(ctx, kind, naturalKey, DefaultLanguage)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, err
		}
		return nil, &RecordError{Kind: kind, NaturalKey: naturalKey, Op: "get", Err: err}
	}
	return rec, nil
}

func (s *service) ListRecords(ctx context.Context, kind RecordKind, lang Language) ([]*Record, error) {
	return s.repository.List(ctx, kind, lang)
}

func (s *service) UpsertRecord(ctx context.Context, req UpsertRecordRequest) (*Record, error) {
	lang := req.Language
	if !lang.Valid() {
		lang = DefaultLanguage
	}
	rec, err := s.repository.Upsert(ctx, req.Kind, req.NaturalKey, lang, req.Fields, nil)
	if err != nil {
		return nil, &RecordError{Kind: req.Kind, NaturalKey: req.NaturalKey, Op: "upsert", Err: err}
	}
	return rec, nil
}

func (s *service) DeleteRecord(ctx context.Context, kind RecordKind, naturalKey string) error {
	deleted, err := s.repository.DeleteCascade(ctx, kind, naturalKey)
	if err != nil {
		return &RecordError{Kind: kind, NaturalKey: naturalKey, Op: "delete", Err: err}
	}
	for _, d := range deleted {
		s.deleteReference(ctx, d.Reference)
	}
	return nil
}

// Asset lifecycle

func (s *service) ReplaceAsset(ctx context.Context, req ReplaceAssetRequest) (*Record, error) {
	slot, err := s.validateUpload(req.Slot, req.FileName, req.MimeType, req.Size)
	if err != nil {
		return nil, err
	}

	rec, err := s.repository.GetByLanguage(ctx, req.Kind, req.NaturalKey, req.Language)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, err
		}
		return nil, &RecordError{Kind: req.Kind, NaturalKey: req.NaturalKey, Op: "replace_asset", Err: err}
	}

	// Best-effort cleanup of the superseded object. A store-side delete
	// failure must never block the replace.
	s.deleteRef(ctx, rec.AssetRef(req.Slot, s.codec))

	key := s.codec.DeriveKey(slot.Folder, req.FileName)
	if err := s.store.Upload(ctx, key, req.Reader, req.MimeType); err != nil {
		// No record mutation: the record must never reference an object
		// that failed to land in the store.
		return nil, &StorageError{Op: "upload", Key: key, Err: fmt.Errorf("%w: %v", ErrUploadFailed, err)}
	}

	updated, err := s.repository.SetAssetReference(ctx, req.Kind, req.NaturalKey, req.Language, req.Slot, s.codec.PublicURL(key))
	if err != nil {
		// The freshly uploaded object orphans. Accepted as a rare leak;
		// no compensating delete.
		s.logger.Error("asset reference persist failed, uploaded object orphaned",
			"kind", req.Kind, "natural_key", req.NaturalKey, "slot", req.Slot, "key", key, "err", err)
		return nil, &RecordError{Kind: req.Kind, NaturalKey: req.NaturalKey, Op: "replace_asset", Err: err}
	}
	return updated, nil
}

func (s *service) ClearAsset(ctx context.Context, kind RecordKind, naturalKey string, lang Language, slot SlotName) (*Record, error) {
	rec, err := s.repository.GetByLanguage(ctx, kind, naturalKey, lang)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, err
		}
		return nil, &RecordError{Kind: kind, NaturalKey: naturalKey, Op: "clear_asset", Err: err}
	}

	// A broken link is worse than an orphaned object: delete best-effort,
	// null out unconditionally.
	s.deleteRef(ctx, rec.AssetRef(slot, s.codec))

	updated, err := s.repository.SetAssetReference(ctx, kind, naturalKey, lang, slot, "")
	if err != nil {
		return nil, &RecordError{Kind: kind, NaturalKey: naturalKey, Op: "clear_asset", Err: err}
	}
	return updated, nil
}

func (s *service) UploadAsset(ctx context.Context, req UploadAssetRequest) (string, error) {
	slot, err := s.validateUpload(req.Slot, req.FileName, req.MimeType, req.Size)
	if err != nil {
		return "", err
	}
	key := s.codec.DeriveKey(slot.Folder, req.FileName)
	if err := s.store.Upload(ctx, key, req.Reader, req.MimeType); err != nil {
		return "", &StorageError{Op: "upload", Key: key, Err: fmt.Errorf("%w: %v", ErrUploadFailed, err)}
	}
	return s.codec.PublicURL(key), nil
}

func (s *service) PresignAsset(ctx context.Context, reference string) (string, error) {
	ref := ParseAssetReference(reference, s.codec)
	if ref.Kind != RefStoredObject {
		return "", ErrObjectNotFound
	}
	return s.store.GetDownloadURL(ctx, ref.Key)
}

func (s *service) DownloadAsset(ctx context.Context, reference string) (io.ReadCloser, error) {
	ref := ParseAssetReference(reference, s.codec)
	switch ref.Kind {
	case RefLegacyInline:
		if ref.Data == nil {
			return nil, ErrObjectNotFound
		}
		return io.NopCloser(bytes.NewReader(ref.Data)), nil
	case RefStoredObject:
		return s.store.Download(ctx, ref.Key)
	}
	return nil, ErrObjectNotFound
}

func (s *service) ValidateUpload(name SlotName, fileName, mimeType string, size int64) error {
	_, err := s.validateUpload(name, fileName, mimeType, size)
	return err
}

// validateUpload runs the slot's MIME-category and size checks. Both run
// before any store I/O.
func (s *service) validateUpload(name SlotName, fileName, mimeType string, size int64) (AssetSlot, error) {
	slot, ok := SlotByName(name)
	if !ok {
		return AssetSlot{}, &ValidationError{Slot: name, Err: ErrUnknownSlot}
	}
	if fileName == "" {
		return AssetSlot{}, &ValidationError{Slot: name, Err: ErrMissingFile}
	}
	if !slot.Accepts(mimeType) {
		return AssetSlot{}, &ValidationError{Slot: name, Err: fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mimeType)}
	}
	if size > slot.MaxBytes {
		return AssetSlot{}, &ValidationError{Slot: name, Err: fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, size, slot.MaxBytes)}
	}
	return slot, nil
}

// deleteReference best-effort deletes the store object behind a persisted
// reference string.
func (s *service) deleteReference(ctx context.Context, reference string) {
	s.deleteRef(ctx, ParseAssetReference(reference, s.codec))
}

// deleteRef best-effort deletes the store object behind a parsed reference.
// Failures are logged and swallowed; a leaked object is cheaper than a
// blocked user action. Empty and legacy inline references have nothing to
// delete.
func (s *service) deleteRef(ctx context.Context, ref AssetReference) {
	if ref.Kind != RefStoredObject {
		return
	}
	if err := s.store.Delete(ctx, ref.Key); err != nil {
		s.logger.Warn("superseded object delete failed", "key", ref.Key, "err", err)
	}
}
