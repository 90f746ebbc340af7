package ingest

import "github.com/technosupport/surveillance-core/internal/surveillance/model"

// PassesFilter applies the per-camera filter-set rules from spec.md §4.2:
// an empty filter set or the singleton {motion} set is pass-all; otherwise
// only types present in the filter set pass. Returns the subset of
// eventTypes that pass, preserving order.
func PassesFilter(cam *model.Camera, eventTypes []model.DetectionType) []model.DetectionType {
	if cam.PassAllFilter() {
		return eventTypes
	}
	var passed []model.DetectionType
	for _, t := range eventTypes {
		if cam.Filter[t] {
			passed = append(passed, t)
		}
	}
	return passed
}

// CameraLookup resolves a controller-side source id to a Camera.
type CameraLookup interface {
	ByProtectID(sourceID string) (*model.Camera, bool)
}

// Admit implements the full filtering gate of spec.md §4.2: camera lookup
// (missing/disabled/wrong-kind → reject), then the filter-set rule above.
// It does not apply the cooldown — that happens at enqueue time in the
// queue package, composed with this result by the caller.
func Admit(lookup CameraLookup, sourceID string, wantSource model.SourceKind, eventTypes []model.DetectionType) (*model.Camera, []model.DetectionType, error) {
	cam, ok := lookup.ByProtectID(sourceID)
	if !ok {
		return nil, nil, model.ErrCameraNotFound
	}
	if !cam.Enabled {
		return nil, nil, model.ErrCameraDisabled
	}
	if cam.Source != wantSource {
		return nil, nil, model.ErrWrongSourceKind
	}
	passed := PassesFilter(cam, eventTypes)
	if len(passed) == 0 {
		return cam, nil, model.ErrFilteredOut
	}
	return cam, passed, nil
}
