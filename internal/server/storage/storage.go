// Package storage persists uploaded event images on local disk or in an
// S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/server/config"
)

// ImageStore saves an image under name and returns the URL clients use to fetch it.
type ImageStore interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
}

var imageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
}

// DetectImage sniffs data and returns the file extension and content type.
// Anything other than JPEG or PNG yields common.ErrUnsupportedImage.
func DetectImage(data []byte) (ext, contentType string, err error) {
	contentType = http.DetectContentType(data)
	ext, ok := imageTypes[contentType]
	if !ok {
		return "", "", common.ErrUnsupportedImage
	}
	return ext, contentType, nil
}

// ObjectName returns a collision-free name of the form <unix-ms>-<uuid>.<ext>.
func ObjectName(now time.Time, ext string) string {
	return fmt.Sprintf("%d-%s.%s", now.UnixMilli(), uuid.NewString(), ext)
}

// New builds the ImageStore selected by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config) (ImageStore, error) {
	switch cfg.StorageBackend {
	case config.StorageLocal:
		return NewLocalStore(cfg.UploadDir, UploadsURLPrefix)
	case config.StorageS3:
		return NewS3Store(ctx, S3Options{
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3RootUser,
			SecretKey:    cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
