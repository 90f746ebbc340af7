package ingest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/surveillance-core/internal/surveillance/model"
)

func TestPassesFilterPassAllSemantics(t *testing.T) {
	empty := &model.Camera{ID: uuid.New(), Filter: map[model.DetectionType]bool{}}
	motionOnly := &model.Camera{ID: uuid.New(), Filter: map[model.DetectionType]bool{model.DetectMotion: true}}
	types := []model.DetectionType{model.DetectMotion, model.DetectVehicle, model.DetectPerson}

	require.Equal(t, types, PassesFilter(empty, types), "empty filter set must pass all")
	require.Equal(t, types, PassesFilter(motionOnly, types), "{motion}-only filter set must pass all, per spec open question")
}

func TestPassesFilterRestrictsToConfiguredTypes(t *testing.T) {
	cam := &model.Camera{
		ID:     uuid.New(),
		Filter: map[model.DetectionType]bool{model.DetectPerson: true, model.DetectVehicle: true},
	}
	types := []model.DetectionType{model.DetectMotion, model.DetectVehicle, model.DetectAnimal}
	require.Equal(t, []model.DetectionType{model.DetectVehicle}, PassesFilter(cam, types))
}

type fakeLookup struct {
	byID map[string]*model.Camera
}

func (f *fakeLookup) ByProtectID(id string) (*model.Camera, bool) {
	c, ok := f.byID[id]
	return c, ok
}

func TestAdmitRejectsMissingDisabledOrWrongSource(t *testing.T) {
	disabled := &model.Camera{ID: uuid.New(), Enabled: false, Source: model.SourceProtect}
	wrongKind := &model.Camera{ID: uuid.New(), Enabled: true, Source: model.SourceRTSP}
	lookup := &fakeLookup{byID: map[string]*model.Camera{
		"disabled": disabled,
		"wrong":    wrongKind,
	}}

	_, _, err := Admit(lookup, "missing", model.SourceProtect, []model.DetectionType{model.DetectMotion})
	require.ErrorIs(t, err, model.ErrCameraNotFound)

	_, _, err = Admit(lookup, "disabled", model.SourceProtect, []model.DetectionType{model.DetectMotion})
	require.ErrorIs(t, err, model.ErrCameraDisabled)

	_, _, err = Admit(lookup, "wrong", model.SourceProtect, []model.DetectionType{model.DetectMotion})
	require.ErrorIs(t, err, model.ErrWrongSourceKind)
}

func TestExtractTypesGatesRingOnDoorbellFlag(t *testing.T) {
	raw := RawState{IsRingCurrentlyDetected: true, IsMotionCurrentlyDetected: true}
	require.Equal(t, []model.DetectionType{model.DetectMotion}, ExtractTypes(raw, false))
	require.Equal(t, []model.DetectionType{model.DetectMotion, model.DetectRing}, ExtractTypes(raw, true))
}

func TestExtractTypesEmptyWhenNothingDetected(t *testing.T) {
	require.Empty(t, ExtractTypes(RawState{}, true))
}
