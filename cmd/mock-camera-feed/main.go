// mock-camera-feed synthesizes camera state transitions against a running
// surveillance-core instance, for local development and manual testing
// without real camera hardware. Mirrors scripts/mock_ai.go's ticker +
// NATS-publish shape, adapted from synthetic bounding-box detections to
// synthetic ingest.RawState transitions.
package main

import (
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/technosupport/surveillance-core/internal/surveillance/ingest"
)

const ingestRawSubject = "surveillance.ingest.raw"

var cycle = []struct {
	label   string
	setFlag func(*ingest.RawState)
}{
	{"motion", func(r *ingest.RawState) { r.IsMotionCurrentlyDetected = true }},
	{"person", func(r *ingest.RawState) { r.IsPersonCurrentlyDetected = true; r.IsMotionCurrentlyDetected = true }},
	{"vehicle", func(r *ingest.RawState) { r.IsVehicleCurrentlyDetected = true; r.IsMotionCurrentlyDetected = true }},
	{"package", func(r *ingest.RawState) { r.IsPackageCurrentlyDetected = true }},
	{"animal", func(r *ingest.RawState) { r.IsAnimalCurrentlyDetected = true; r.IsMotionCurrentlyDetected = true }},
}

func main() {
	_ = godotenv.Load()

	natsURL := os.Getenv("INGEST_NATS_URL")
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}

	sourceIDs := cameraSourceIDs()

	nc, err := nats.Connect(natsURL)
	if err != nil {
		log.Fatalf("mock-camera-feed: nats connect error: %v", err)
	}
	defer nc.Close()

	log.Printf("mock-camera-feed: started, publishing to %s on subject %s for cameras %v", natsURL, ingestRawSubject, sourceIDs)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	step := 0
	for range ticker.C {
		event := cycle[step%len(cycle)]
		step++

		for _, sourceID := range sourceIDs {
			raw := ingest.RawState{
				CameraSourceID: sourceID,
				OccurredAt:     time.Now(),
			}
			event.setFlag(&raw)

			data, err := json.Marshal(raw)
			if err != nil {
				log.Printf("mock-camera-feed: marshal error: %v", err)
				continue
			}
			if err := nc.Publish(ingestRawSubject, data); err != nil {
				log.Printf("mock-camera-feed: publish error: %v", err)
				continue
			}
			log.Printf("mock-camera-feed: published %s for camera %s", event.label, sourceID)
		}
	}
}

// cameraSourceIDs reads MOCK_CAMERA_SOURCE_IDS as a comma-separated list,
// defaulting to a single synthetic camera so the feed runs with zero config.
func cameraSourceIDs() []string {
	raw := os.Getenv("MOCK_CAMERA_SOURCE_IDS")
	if raw == "" {
		return []string{"mock-front-door"}
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []string{"mock-front-door"}
	}
	return ids
}
