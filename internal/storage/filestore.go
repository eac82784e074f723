package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// FileStore persists report artifacts under opaque keys. Implementations
// must make Delete idempotent: deleting a key that is already gone succeeds,
// since cleanup may race the reaper or a concurrent request.
type FileStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, key string) error
}

// ErrNotFound is returned by Open when no artifact exists under the key.
var ErrNotFound = fmt.Errorf("file not found")

// NewReportKey returns a fresh, unguessable artifact key. Keys carry no
// record id and no sequential component.
func NewReportKey() string {
	return fmt.Sprintf("reports/%s.pdf", uuid.New().String())
}
