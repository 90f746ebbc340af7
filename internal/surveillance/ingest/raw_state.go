// Package ingest parses raw camera/controller state transitions into
// typed events, applies per-camera detection filters, and deduplicates —
// the per-controller subscription handler described in spec.md §4.2.
// Grounded on internal/nvr/event_parser.go (flag → typed-event extraction)
// and internal/nvr/event_mapper.go (ConvertAdapterEvent).
package ingest

import (
	"time"

	"github.com/technosupport/surveillance-core/internal/surveillance/model"
)

// RawState is the raw boolean-flag payload a protect-style controller (or
// an RTSP/USB poller emulating one) reports for one camera transition.
type RawState struct {
	CameraSourceID string

	IsMotionCurrentlyDetected bool
	IsPersonCurrentlyDetected bool
	IsVehicleCurrentlyDetected bool
	IsPackageCurrentlyDetected bool
	IsAnimalCurrentlyDetected  bool
	IsRingCurrentlyDetected    bool

	// ActiveSmartDetectTypes carries controller-reported smart-detect
	// labels verbatim (e.g. "person", "vehicle") to be unioned with the
	// boolean flags above.
	ActiveSmartDetectTypes []string

	// LastSmartDetectEventIDs maps canonical label -> controller-side
	// event id, used by SmartDetectIDCache for a second, independent
	// dedup layer (see SPEC_FULL.md §4.2 supplement).
	LastSmartDetectEventIDs map[string]string

	OccurredAt time.Time
}

var smartLabelToType = map[string]model.DetectionType{
	"motion":  model.DetectMotion,
	"person":  model.DetectPerson,
	"vehicle": model.DetectVehicle,
	"package": model.DetectPackage,
	"animal":  model.DetectAnimal,
	"ring":    model.DetectRing,
}

// ExtractTypes unions the boolean flags with the active smart-detect type
// set into the canonical label set {motion, person, vehicle, package,
// animal, ring}. Ring events are additionally gated on doorbellCamera —
// a non-doorbell camera never emits a ring type even if the controller
// reports one.
func ExtractTypes(raw RawState, doorbellCamera bool) []model.DetectionType {
	seen := make(map[model.DetectionType]bool)

	if raw.IsMotionCurrentlyDetected {
		seen[model.DetectMotion] = true
	}
	if raw.IsPersonCurrentlyDetected {
		seen[model.DetectPerson] = true
	}
	if raw.IsVehicleCurrentlyDetected {
		seen[model.DetectVehicle] = true
	}
	if raw.IsPackageCurrentlyDetected {
		seen[model.DetectPackage] = true
	}
	if raw.IsAnimalCurrentlyDetected {
		seen[model.DetectAnimal] = true
	}
	if raw.IsRingCurrentlyDetected && doorbellCamera {
		seen[model.DetectRing] = true
	}

	for _, label := range raw.ActiveSmartDetectTypes {
		dt, ok := smartLabelToType[label]
		if !ok {
			continue
		}
		if dt == model.DetectRing && !doorbellCamera {
			continue
		}
		seen[dt] = true
	}

	var out []model.DetectionType
	for _, dt := range model.AllDetectionTypes {
		if seen[dt] {
			out = append(out, dt)
		}
	}
	return out
}
