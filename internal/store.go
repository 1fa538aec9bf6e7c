//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_filestore.go -package=mocks
package internal

import (
	"context"

	"chatdrop/internal/filestore"
)

// FileStore is the file set shared by the hub and the HTTP surface.
type FileStore interface {
	List(ctx context.Context) ([]filestore.Entry, error)
	Write(ctx context.Context, name string, data []byte, uploadedBy string) (filestore.Entry, error)
	Open(ctx context.Context, name string) (*filestore.File, error)
	Delete(ctx context.Context, name string) error
}
