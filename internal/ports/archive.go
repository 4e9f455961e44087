// Package ports declares the contracts the pipeline depends on without
// binding to a concrete backend.
package ports

import (
	"context"
	"io"
)

// StoreArtifactInput describes one artifact to archive. Key is a
// slash-separated path unique within the archive, typically
// "{component_id}/{cache_key}{ext}".
type StoreArtifactInput struct {
	Key         string
	ContentType string
	Reader      io.Reader
	Size        int64
}

// StoreArtifactOutput reports where the artifact landed. Key is the
// handle later Open/Delete calls must use; remote backends may rewrite
// it to their own object id.
type StoreArtifactOutput struct {
	Key  string
	Size int64
}

// ArchiveStore persists render artifacts beyond the local cache's
// TTL and LRU limits. Implementations: localfs, gdrive.
type ArchiveStore interface {
	Provider() string

	Store(ctx context.Context, in StoreArtifactInput) (StoreArtifactOutput, error)
	Open(ctx context.Context, key string) (rc io.ReadCloser, contentType string, size int64, err error)
	Delete(ctx context.Context, key string) error
}
