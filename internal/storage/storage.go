// Package storage defines where rendered report artifacts are published.
// Implementations live in the local, memory and gcs subpackages.
package storage

import (
	"context"
	"io"
)

// Providers accepted by output.storage.
const (
	ProviderLocal  = "local"
	ProviderGCS    = "gcs"
	ProviderMemory = "memory"
)

// BlobStore persists an artifact and returns a URI describing where it went.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}
