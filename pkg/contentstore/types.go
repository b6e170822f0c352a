package contentstore

import (
	"strings"
	"time"
)

// Language is the content language tag partitioning localized records.
type Language string

// Content language constants. Chinese is the primary (authoritative)
// language; English is the secondary one.
const (
	LanguageZH Language = "zh"
	LanguageEN Language = "en"
)

// DefaultLanguage is used when a request carries no usable language signal.
const DefaultLanguage = LanguageZH

// Valid reports whether l is one of the two supported content languages.
func (l Language) Valid() bool {
	return l == LanguageZH || l == LanguageEN
}

// ParseLanguage normalizes a raw language value. Values outside the
// two-element set are reported as invalid, never as errors.
func ParseLanguage(raw string) (Language, bool) {
	switch Language(strings.ToLower(strings.TrimSpace(raw))) {
	case LanguageZH:
		return LanguageZH, true
	case LanguageEN:
		return LanguageEN, true
	}
	return "", false
}

// RecordKind identifies the entity family a localized record belongs to.
type RecordKind string

// Record kind constants.
const (
	KindProfile       RecordKind = "profile"
	KindSettings      RecordKind = "settings"
	KindProject       RecordKind = "project"
	KindTech          RecordKind = "tech"
	KindCustomField   RecordKind = "custom_field"
	KindTag           RecordKind = "tag"
	KindFile          RecordKind = "file"
	KindResumeSection RecordKind = "resume_section"
)

// Well-known natural keys for the singleton records.
const (
	ProfileKey  = "admin"
	SettingsKey = "website"
)

// Record is a language-scoped entity row. A logical identity
// (kind, naturalKey) has at most one row per language; lookups are always
// scoped by the full (kind, naturalKey, language) triple.
type Record struct {
	Kind       RecordKind          `json:"kind"`
	NaturalKey string              `json:"natural_key"`
	Language   Language            `json:"language"`
	Fields     map[string]any      `json:"fields"`
	Assets     map[SlotName]string `json:"assets,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// AssetRef returns the parsed reference held in the given slot.
func (r *Record) AssetRef(slot SlotName, codec KeyExtractor) AssetReference {
	if r == nil {
		return AssetReference{Kind: RefEmpty}
	}
	return ParseAssetReference(r.Assets[slot], codec)
}

// SlotName identifies an asset slot on a record.
type SlotName string

// Asset slot constants.
const (
	SlotAvatar         SlotName = "avatar"
	SlotBackground     SlotName = "background"
	SlotFavicon        SlotName = "favicon"
	SlotIcon           SlotName = "icon"
	SlotImage          SlotName = "image"
	SlotDetailDocument SlotName = "detail_document"
	SlotAttachment     SlotName = "attachment"
)

// AssetSlot describes the storage folder and upload constraints of a slot.
// MimeTypes, when non-empty, is an exact allow-list and takes precedence
// over MimePrefix. An empty MimePrefix with no MimeTypes accepts any type.
type AssetSlot struct {
	Name       SlotName
	Folder     string
	MimePrefix string
	MimeTypes  []string
	MaxBytes   int64
}

// Accepts reports whether the slot allows the given MIME type.
func (s AssetSlot) Accepts(mimeType string) bool {
	if len(s.MimeTypes) > 0 {
		for _, mt := range s.MimeTypes {
			if mt == mimeType {
				return true
			}
		}
		return false
	}
	if s.MimePrefix == "" {
		return true
	}
	return strings.HasPrefix(mimeType, s.MimePrefix)
}

const mib = 1 << 20

var slots = map[SlotName]AssetSlot{
	SlotAvatar:         {Name: SlotAvatar, Folder: "admin/avatar", MimePrefix: "image/", MaxBytes: 5 * mib},
	SlotBackground:     {Name: SlotBackground, Folder: "admin/background", MimePrefix: "image/", MaxBytes: 10 * mib},
	SlotFavicon:        {Name: SlotFavicon, Folder: "settings/favicon", MimePrefix: "image/", MaxBytes: 1 * mib},
	SlotIcon:           {Name: SlotIcon, Folder: "tech/icons", MimeTypes: []string{"image/jpeg", "image/png", "image/svg+xml"}, MaxBytes: 10 * mib},
	SlotImage:          {Name: SlotImage, Folder: "projects/images", MimePrefix: "image/", MaxBytes: 10 * mib},
	SlotDetailDocument: {Name: SlotDetailDocument, Folder: "projects/details", MaxBytes: 20 * mib},
	SlotAttachment:     {Name: SlotAttachment, Folder: "uploads", MaxBytes: 50 * mib},
}

// SlotByName returns the slot definition for name.
func SlotByName(name SlotName) (AssetSlot, bool) {
	s, ok := slots[name]
	return s, ok
}

// DeletedAsset describes one asset reference removed by a cascade delete.
// The caller is expected to run best-effort store deletes for these.
type DeletedAsset struct {
	Kind       RecordKind
	NaturalKey string
	Language   Language
	Slot       SlotName
	Reference  string
}
