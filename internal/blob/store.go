// Package blob provides object storage for extracted brochure images.
package blob

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
)

// Store uploads binary objects and returns publicly servable URLs.
type Store interface {
	// Upload stores data under folder/name and returns the public URL and the
	// object key usable with Delete.
	Upload(ctx context.Context, data []byte, name, contentType, folder string) (url string, key string, err error)
	Delete(ctx context.Context, key string) error
}

// DataURLStore is the degraded-mode store used when object storage is not
// configured or unreachable. Objects are inlined as data URLs; Delete is a
// no-op since nothing is persisted.
type DataURLStore struct{}

// NewDataURLStore creates the inline fallback store.
func NewDataURLStore() *DataURLStore {
	return &DataURLStore{}
}

// Upload encodes the object as a data URL.
func (s *DataURLStore) Upload(ctx context.Context, data []byte, name, contentType, folder string) (string, string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	url := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
	return url, path.Join(folder, name), nil
}

// Delete is a no-op for inline objects.
func (s *DataURLStore) Delete(ctx context.Context, key string) error {
	return nil
}
