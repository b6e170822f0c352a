// Package objectkey derives storage keys for uploads and recovers them from
// any URL shape the object store hands back. It is pure string work with no
// I/O.
package objectkey

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Codec derives and extracts storage keys for one configured bucket.
// A non-empty Endpoint means the store is addressed path-style
// (scheme://host/bucket/key); otherwise URLs use the virtual-hosted shape
// (scheme://bucket.s3.region.amazonaws.com/key).
type Codec struct {
	Bucket   string
	Region   string
	Endpoint string
}

// DeriveKey builds a fresh storage key: optional folder prefix, current
// epoch-millisecond timestamp, and the sanitized original filename. The
// timestamp guarantees uniqueness without coordination; two uploads in the
// same millisecond with the same name may collide.
func (c Codec) DeriveKey(folder, fileName string) string {
	ts := time.Now().UnixMilli()
	name := SanitizeFileName(fileName)
	if folder != "" {
		return fmt.Sprintf("%s/%d-%s", folder, ts, name)
	}
	return fmt.Sprintf("%d-%s", ts, name)
}

// SanitizeFileName replaces every character outside [A-Za-z0-9._-] with an
// underscore.
func SanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, name)
}

// PublicURL builds the public URL for a key using the shape matching the
// configured addressing mode.
func (c Codec) PublicURL(key string) string {
	if c.Endpoint != "" {
		if u, err := url.Parse(c.Endpoint); err == nil && u.Host != "" {
			return fmt.Sprintf("%s://%s/%s/%s", u.Scheme, u.Host, c.Bucket, key)
		}
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(c.Endpoint, "/"), c.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.Bucket, c.Region, key)
}

// ExtractKey recovers the storage key from a persisted reference. It
// accepts absolute URLs in either addressing shape, root-relative paths,
// and bare keys. It never fails: when URL parsing breaks down it falls
// back to a textual split on the bucket name, and as a last resort treats
// the whole input as the key, which is still usable for deletes.
func (c Codec) ExtractKey(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return c.splitOnBucket(raw)
		}
		parts := splitPath(u.Path)
		// Path-style custom endpoint: first segment is the bucket.
		if c.Endpoint != "" && len(parts) > 1 {
			return strings.Join(parts[1:], "/")
		}
		// Virtual-hosted: the whole path is the key.
		if len(parts) > 0 {
			return strings.Join(parts, "/")
		}
		return raw
	}
	if strings.HasPrefix(raw, "/") {
		return strings.TrimPrefix(raw, "/")
	}
	return raw
}

func (c Codec) splitOnBucket(raw string) string {
	parts := strings.Split(raw, "/")
	for i, p := range parts {
		if p == c.Bucket && i < len(parts)-1 {
			return strings.Join(parts[i+1:], "/")
		}
	}
	return raw
}

func splitPath(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}
