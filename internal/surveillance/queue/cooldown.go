package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Cooldown tracks the wall-clock timestamp of the last enqueued event per
// camera, exactly the way internal/nvr/event_enricher.go's EventEnricher
// tracks its camera→id lookup cache: a sync.Map with a periodic cleanup
// ticker rather than a size-bounded LRU, since the key space (one entry per
// camera) stays small regardless of event volume.
type Cooldown struct {
	last     sync.Map // camera id -> time.Time
	cleanTkr *time.Ticker
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewCooldown starts the cleanup loop and returns a ready Cooldown tracker.
func NewCooldown() *Cooldown {
	c := &Cooldown{
		cleanTkr: time.NewTicker(5 * time.Minute),
		stopCh:   make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Allow reports whether an event for cameraID may be accepted given
// cooldown, and if so records now as the new last-event time. One shared
// timestamp is used across all detection types for a camera so multiple
// smart-detect types cannot fan in around the cooldown (spec.md §4.2).
func (c *Cooldown) Allow(cameraID uuid.UUID, cooldown time.Duration, now time.Time) bool {
	if v, ok := c.last.Load(cameraID); ok {
		lastTime := v.(time.Time)
		if now.Sub(lastTime) < cooldown {
			return false
		}
	}
	c.last.Store(cameraID, now)
	return true
}

func (c *Cooldown) cleanupLoop() {
	for {
		select {
		case <-c.stopCh:
			return
		case now := <-c.cleanTkr.C:
			// Stale entries (no event in a long while) are harmless to
			// keep, but we drop anything untouched for 24h to bound
			// memory on deployments that churn through many cameras.
			c.last.Range(func(k, v interface{}) bool {
				if now.Sub(v.(time.Time)) > 24*time.Hour {
					c.last.Delete(k)
				}
				return true
			})
		}
	}
}

// Stop cancels the cleanup loop.
func (c *Cooldown) Stop() {
	c.stopOnce.Do(func() {
		c.cleanTkr.Stop()
		close(c.stopCh)
	})
}
