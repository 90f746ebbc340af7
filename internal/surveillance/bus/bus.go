// Package bus publishes surveillance events to an external message broker
// under the topic layout spec.md §6 "Message bus" names, over either NATS
// or MQTT. Publishes are always best-effort: a bus that isn't connected is
// skipped, never retried from the fan-out caller's perspective.
package bus

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Publisher is the bus transport boundary — implemented by natsPublisher
// and mqttPublisher below, and faked in tests.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Connected() bool
	Close()
}

// Topics builds the four topics spec.md §6 defines for one camera, rooted
// under root (e.g. "argus").
type Topics struct {
	Event      string
	Activity   string
	LastEvent  string
	Counts     string
}

func BuildTopics(root string, cameraID uuid.UUID) Topics {
	base := fmt.Sprintf("%s/camera/%s", root, cameraID)
	return Topics{
		Event:     base + "/event",
		Activity:  base + "/activity",
		LastEvent: base + "/last_event",
		Counts:    base + "/counts",
	}
}

// EventPayload is the full event payload published to the "event" topic —
// includes an assembled thumbnail URL, per spec.md §6.
type EventPayload struct {
	EventID           uuid.UUID `json:"event_id"`
	CameraID          uuid.UUID `json:"camera_id"`
	Timestamp         string    `json:"timestamp"`
	Description       string    `json:"description"`
	SmartDetectionType string   `json:"smart_detection_type"`
	ThumbnailURL      string    `json:"thumbnail_url"`
}

// LastEventPayload is the compact summary published to "last_event".
type LastEventPayload struct {
	EventID            uuid.UUID `json:"event_id"`
	Timestamp          string    `json:"timestamp"`
	Description        string    `json:"description"`
	SmartDetectionType  string   `json:"smart_detection_type"`
}

// CountsPayload is published to "counts".
type CountsPayload struct {
	EventsToday     int `json:"events_today"`
	EventsThisWeek  int `json:"events_this_week"`
}

// Bus wraps a Publisher with the topic-building and best-effort-skip
// behavior every fan-out call site needs.
type Bus struct {
	pub  Publisher
	root string
	qos  byte
}

func New(pub Publisher, root string, qos byte) *Bus {
	return &Bus{pub: pub, root: root, qos: qos}
}

// Connected reports whether the underlying transport can accept publishes.
// A nil Publisher (bus not configured) always reports false.
func (b *Bus) Connected() bool {
	return b.pub != nil && b.pub.Connected()
}

func (b *Bus) publishJSON(topic string, retained bool, v any) error {
	if !b.Connected() {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("bus: marshal %s: %w", topic, err)
	}
	return b.pub.Publish(topic, b.qos, retained, data)
}

// PublishEvent sends the full event payload — item #2 of spec.md §4.8.
func (b *Bus) PublishEvent(cameraID uuid.UUID, payload EventPayload) error {
	t := BuildTopics(b.root, cameraID)
	return b.publishJSON(t.Event, false, payload)
}

// PublishStatus sends the three status signals (activity, last_event,
// counts) — item #3 of spec.md §4.8.
func (b *Bus) PublishStatus(cameraID uuid.UUID, lastEventAt string, last LastEventPayload, counts CountsPayload) error {
	t := BuildTopics(b.root, cameraID)
	if err := b.publishJSON(t.Activity, true, map[string]string{"state": "ON", "last_event_at": lastEventAt}); err != nil {
		return err
	}
	if err := b.publishJSON(t.LastEvent, true, last); err != nil {
		return err
	}
	return b.publishJSON(t.Counts, true, counts)
}
