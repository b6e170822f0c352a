// Package memory provides an in-memory implementation of the
// contentstore.BlobStore interface for tests and local development.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/duolang/contentstore/pkg/contentstore"
)

// Backend is an in-memory implementation of contentstore.BlobStore.
type Backend struct {
	mu        sync.RWMutex
	objects   map[string][]byte
	mimeTypes map[string]string
}

// New creates a new in-memory storage backend.
func New() *Backend {
	return &Backend{
		objects:   make(map[string][]byte),
		mimeTypes: make(map[string]string),
	}
}

// Upload stores the object under key.
func (b *Backend) Upload(ctx context.Context, key string, reader io.Reader, mimeType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	b.mimeTypes[key] = mimeType
	return nil
}

// Download reads the object back.
func (b *Backend) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[key]
	if !exists {
		return nil, contentstore.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the object. Missing keys are not an error, matching
// object-store semantics.
func (b *Backend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	delete(b.mimeTypes, key)
	return nil
}

// GetDownloadURL returns a stable pseudo-URL for the object.
func (b *Backend) GetDownloadURL(ctx context.Context, key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, exists := b.objects[key]; !exists {
		return "", contentstore.ErrObjectNotFound
	}
	return fmt.Sprintf("memory://%s", key), nil
}

// Has reports whether an object exists under key.
func (b *Backend) Has(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, exists := b.objects[key]
	return exists
}

// Len returns the number of stored objects.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

// MimeType returns the recorded MIME type for key.
func (b *Backend) MimeType(key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.mimeTypes[key]
}
