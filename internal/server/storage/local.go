package storage

import (
	"context"
	"fmt"
	"path"

	"github.com/dmitrijs2005/eventhub/internal/filex"
)

// UploadsURLPrefix is where the HTTP server exposes the local upload directory.
const UploadsURLPrefix = "/uploads"

// LocalStore writes images into a directory served statically by the HTTP server.
type LocalStore struct {
	dir       string
	urlPrefix string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}
	return &LocalStore{dir: abs, urlPrefix: urlPrefix}, nil
}

// Dir is the absolute directory images are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Save(ctx context.Context, name, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := filex.WriteFileAtomic(s.dir, name, data); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return path.Join(s.urlPrefix, name), nil
}
