package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisCooldown shares the per-camera cooldown window across every
// surveillance-core instance behind a load balancer, instead of each
// process tracking its own last-event timestamp — otherwise two instances
// could each accept an event from the same camera inside what should be one
// shared cooldown window. Grounded on the teacher's internal/session.Manager,
// which uses the identical "SET with TTL as the gate, NX as the race guard"
// idiom for per-key rate limiting.
type RedisCooldown struct {
	client *redis.Client
}

func NewRedisCooldown(client *redis.Client) *RedisCooldown {
	return &RedisCooldown{client: client}
}

func cooldownKey(cameraID uuid.UUID) string {
	return fmt.Sprintf("surveillance:cooldown:%s", cameraID)
}

// Allow sets a TTL key the first caller across any instance wins; everyone
// else inside the cooldown window sees SetNX fail and is rejected, exactly
// mirroring *Cooldown.Allow's single-shared-timestamp semantics.
func (r *RedisCooldown) Allow(cameraID uuid.UUID, cooldown time.Duration, now time.Time) bool {
	ok, err := r.client.SetNX(context.Background(), cooldownKey(cameraID), now.Unix(), cooldown).Result()
	if err != nil {
		// Redis unreachable: fail open, matching CachedCap's fail-open
		// posture — a missed cooldown window is far cheaper than dropping
		// real events because of a cache outage.
		return true
	}
	return ok
}

func (r *RedisCooldown) Stop() {}
