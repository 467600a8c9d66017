// Package mediastore archives inbound media payloads (voice notes,
// receipt photos) to a GCS bucket before analysis, keeping an audit trail
// of what the extraction saw.
package mediastore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// Store writes media bytes to a bucket. A zero bucket name disables
// archival: Archive becomes a no-op so deployments without a bucket (or
// tests) skip the dependency entirely.
type Store struct {
	bucket string
}

// New creates a Store for the given bucket; empty disables archival.
func New(bucket string) *Store {
	return &Store{bucket: bucket}
}

// Enabled reports whether archival is configured.
func (s *Store) Enabled() bool {
	return s.bucket != ""
}

// Archive uploads the payload under media/<date>/<uuid>.<ext> and returns
// the gs:// URI. Assumes Application Default Credentials.
func (s *Store) Archive(ctx context.Context, kind string, data []byte, mimeType string) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	if len(data) == 0 {
		return "", fmt.Errorf("archive %s: empty payload", kind)
	}

	objectName := fmt.Sprintf("media/%s/%s-%s%s",
		time.Now().Format("2006/01/02"), kind, uuid.NewString(), extensionFor(mimeType))

	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("archive %s: create storage client: %w", kind, err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = mimeType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("archive %s: write object: %w", kind, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("archive %s: finalize upload: %w", kind, err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, objectName), nil
}

func extensionFor(mimeType string) string {
	switch {
	case mimeType == "":
		return ""
	case mimeType == "image/jpeg":
		return ".jpg"
	case mimeType == "image/png":
		return ".png"
	case len(mimeType) >= 9 && mimeType[:9] == "audio/ogg":
		return ".ogg"
	case mimeType == "audio/mpeg":
		return ".mp3"
	}
	return ""
}
