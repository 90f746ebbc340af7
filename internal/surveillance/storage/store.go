// Package storage abstracts where clips, thumbnails, and entity reference
// images live — local disk per spec.md §6's filesystem layout, or an
// S3-compatible bucket (MinIO) as a drop-in replacement.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ObjectStore persists a blob under a key and returns a URL/path a
// consumer can use to retrieve it.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Close() error
}

// ThumbnailKey builds the "data/thumbnails/YYYY-MM-DD/<event-id>.jpg" layout
// spec.md §6 names.
func ThumbnailKey(eventID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("thumbnails/%s/%s.jpg", at.UTC().Format("2006-01-02"), eventID)
}

// EntityImageKey builds "data/entity-images/<entity-id>.jpg".
func EntityImageKey(entityID uuid.UUID) string {
	return fmt.Sprintf("entity-images/%s.jpg", entityID)
}

// ClipKey builds a short-lived working-directory clip path keyed by event id.
func ClipKey(eventID uuid.UUID, ext string) string {
	return fmt.Sprintf("clips/%s%s", eventID, ext)
}

// TranscriptKey builds "data/transcripts/<event-id>.txt" for the audio
// enrichment fan-out stage.
func TranscriptKey(eventID uuid.UUID) string {
	return fmt.Sprintf("transcripts/%s.txt", eventID)
}
