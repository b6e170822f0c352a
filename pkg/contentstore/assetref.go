package contentstore

import (
	"encoding/base64"
	"strings"
)

// ReferenceKind tags the variant of an AssetReference.
type ReferenceKind string

// Reference kind constants.
const (
	RefEmpty        ReferenceKind = "empty"
	RefStoredObject ReferenceKind = "stored_object"
	RefLegacyInline ReferenceKind = "legacy_inline"
)

// KeyExtractor recovers a storage key from any persisted URL shape.
type KeyExtractor interface {
	ExtractKey(raw string) string
}

// AssetReference is the decoded form of an asset column value. The raw
// string is parsed exactly once at the persistence boundary; downstream
// code switches on Kind instead of re-probing string prefixes.
type AssetReference struct {
	Kind ReferenceKind

	// Stored object variant.
	Key string
	URL string

	// Legacy inline variant (data: URLs kept from the pre-store era).
	MimeType string
	Data     []byte
}

// IsEmpty reports whether the reference points at nothing.
func (r AssetReference) IsEmpty() bool {
	return r.Kind == RefEmpty
}

// ParseAssetReference decodes a persisted asset column value. It never
// fails: unrecognized shapes degrade to a stored-object reference whose key
// is the raw string, which is still usable for best-effort deletes.
func ParseAssetReference(raw string, codec KeyExtractor) AssetReference {
	if raw == "" {
		return AssetReference{Kind: RefEmpty}
	}
	if strings.HasPrefix(raw, "data:") {
		return parseInline(raw)
	}
	ref := AssetReference{Kind: RefStoredObject, URL: raw, Key: raw}
	if codec != nil {
		ref.Key = codec.ExtractKey(raw)
	}
	return ref
}

// parseInline decodes a data: URL. Payloads that are not valid base64 keep
// a nil Data; the reference still records its MIME type.
func parseInline(raw string) AssetReference {
	ref := AssetReference{Kind: RefLegacyInline}

	rest := strings.TrimPrefix(raw, "data:")
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return ref
	}

	encoded := strings.HasSuffix(meta, ";base64")
	ref.MimeType = strings.TrimSuffix(meta, ";base64")

	if encoded {
		if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
			ref.Data = data
		}
	} else {
		ref.Data = []byte(payload)
	}
	return ref
}
