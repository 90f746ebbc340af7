package ingest

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/technosupport/surveillance-core/internal/surveillance/model"
)

// Dedup suppresses events seen again within a TTL window, keyed on a
// bucketed-time dedup key — a direct port of internal/nvr/event_dedup.go's
// EventDedup to this domain's event shape.
type Dedup struct {
	cache *lru.Cache[string, time.Time]
	ttl   time.Duration
}

// NewDedup constructs a Dedup with the given LRU capacity and TTL.
func NewDedup(maxKeys int, ttl time.Duration) *Dedup {
	c, _ := lru.New[string, time.Time](maxKeys)
	return &Dedup{cache: c, ttl: ttl}
}

// IsDuplicate reports whether key was already seen within ttl, recording
// it as seen-now either way.
func (d *Dedup) IsDuplicate(key string) bool {
	if addedAt, ok := d.cache.Get(key); ok {
		if time.Since(addedAt) < d.ttl {
			return true
		}
	}
	d.cache.Add(key, time.Now())
	return false
}

// BuildDedupKey buckets occurredAt to the second, matching
// internal/nvr/event_dedup.go's BuildDedupKey.
func BuildDedupKey(cameraID, eventType string, occurredAt time.Time) string {
	ts := occurredAt.Truncate(time.Second).Unix()
	return fmt.Sprintf("%s|%s|%d", cameraID, eventType, ts)
}

// SmartDetectIDCache is the second, independent dedup layer restored from
// original_source/protect_event_handler.py: it catches a controller
// redelivering the exact same smart-detect event id, which a timing-based
// dedup key could miss if the redelivery crosses a one-second bucket
// boundary.
type SmartDetectIDCache struct {
	cache *lru.Cache[string, string] // "cameraID:type" -> last controller event id
}

// NewSmartDetectIDCache constructs a bounded id cache.
func NewSmartDetectIDCache(maxKeys int) *SmartDetectIDCache {
	c, _ := lru.New[string, string](maxKeys)
	return &SmartDetectIDCache{cache: c}
}

// IsDuplicate reports whether this (camera, type) already recorded
// controllerEventID as its most recent delivery, recording it if not.
func (s *SmartDetectIDCache) IsDuplicate(cameraID string, dt model.DetectionType, controllerEventID string) bool {
	if controllerEventID == "" {
		return false
	}
	key := cameraID + ":" + string(dt)
	if last, ok := s.cache.Get(key); ok && last == controllerEventID {
		return true
	}
	s.cache.Add(key, controllerEventID)
	return false
}
