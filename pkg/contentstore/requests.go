package contentstore

import "io"

// UpsertRecordRequest contains parameters for creating or updating a
// localized record.
type UpsertRecordRequest struct {
	Kind       RecordKind
	NaturalKey string
	Language   Language
	Fields     map[string]any
}

// UploadAssetRequest contains parameters for a bare slot upload.
type UploadAssetRequest struct {
	Slot     SlotName
	FileName string
	MimeType string
	Size     int64
	Reader   io.Reader
}

// ReplaceAssetRequest contains parameters for replacing the asset held in
// one slot of a localized record.
type ReplaceAssetRequest struct {
	Kind       RecordKind
	NaturalKey string
	Language   Language
	Slot       SlotName
	FileName   string
	MimeType   string
	Size       int64
	Reader     io.Reader
}
