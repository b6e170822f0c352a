package contentstore

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrRecordNotFound indicates a localized record was not found, after
	// language fallback where fallback applies.
	ErrRecordNotFound = errors.New("record not found")

	// ErrObjectNotFound indicates an object was not found in the store.
	ErrObjectNotFound = errors.New("object not found")

	// ErrStoreTimeout indicates a store round trip exceeded its deadline.
	// Surfaced distinctly from ErrObjectNotFound.
	ErrStoreTimeout = errors.New("object store timeout")

	// ErrUploadFailed indicates an upload operation failed.
	ErrUploadFailed = errors.New("upload failed")

	// ErrMissingFile indicates an upload request carried no file.
	ErrMissingFile = errors.New("file is required")

	// ErrUnsupportedMediaType indicates the file's MIME type is outside the
	// slot's accepted category.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrFileTooLarge indicates the file exceeds the slot's size ceiling.
	ErrFileTooLarge = errors.New("file exceeds size limit")

	// ErrUnknownSlot indicates an asset slot name outside the registry.
	ErrUnknownSlot = errors.New("unknown asset slot")
)

// ValidationError reports a rejected upload before any store I/O.
type ValidationError struct {
	Slot SlotName
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for slot %s: %v", e.Slot, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StorageError reports a failed object store operation.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// RecordError reports a failed repository operation on a localized record.
type RecordError struct {
	Kind       RecordKind
	NaturalKey string
	Op         string
	Err        error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record operation %s failed for %s/%s: %v", e.Op, e.Kind, e.NaturalKey, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
