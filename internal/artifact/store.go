// Package artifact stores the archives a session produces. The S3
// backend holds them in a bucket keyed session/name and can hand out
// presigned download links; the memory backend serves single-process
// deployments and tests.
package artifact

import (
	"context"
	"errors"
)

// ErrNotFound reports a missing archive.
var ErrNotFound = errors.New("artifact not found")

// Store persists session archives.
type Store interface {
	// Put stores content under the session's name, replacing any
	// previous archive with the same name.
	Put(ctx context.Context, sessionID, name string, content []byte) error
	// Get returns the archive bytes, or ErrNotFound.
	Get(ctx context.Context, sessionID, name string) ([]byte, error)
	// GetURL returns a direct download link when the backend has one;
	// empty string means the caller must serve the bytes itself.
	GetURL(ctx context.Context, sessionID, name string) (string, error)
	// List names every archive the session has produced, sorted.
	List(ctx context.Context, sessionID string) ([]string, error)
}
