// Package model holds the core surveillance data types shared across the
// event pipeline: cameras, queued events, stored events, and entities.
package model

import (
	"time"

	"github.com/google/uuid"
)

// SourceKind identifies how a camera is wired into the system.
type SourceKind string

const (
	SourceRTSP    SourceKind = "rtsp"
	SourceUSB     SourceKind = "usb"
	SourceProtect SourceKind = "protect"
)

// AnalysisMode is the evidence type fed to the AI for one event.
type AnalysisMode string

const (
	ModeSingleFrame  AnalysisMode = "single_frame"
	ModeMultiFrame   AnalysisMode = "multi_frame"
	ModeVideoNative  AnalysisMode = "video_native"
)

// DetectionType is a canonical smart-detect label.
type DetectionType string

const (
	DetectMotion  DetectionType = "motion"
	DetectPerson  DetectionType = "person"
	DetectVehicle DetectionType = "vehicle"
	DetectPackage DetectionType = "package"
	DetectAnimal  DetectionType = "animal"
	DetectRing    DetectionType = "ring"
)

// AllDetectionTypes lists the canonical label set, in a stable order.
var AllDetectionTypes = []DetectionType{
	DetectMotion, DetectPerson, DetectVehicle, DetectPackage, DetectAnimal, DetectRing,
}

// Camera is immutable to the pipeline; mutated only by configuration.
type Camera struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	Source      SourceKind
	Enabled     bool
	Filter      map[DetectionType]bool // empty map == pass-all
	Mode        AnalysisMode
	PromptOverride  string
	IsDoorbell      bool
	MotionCooldown  time.Duration
	AudioEnabled    bool

	// Protect-only
	ProtectNVRID uuid.UUID
	ProtectMAC   string
}

// PassAllFilter reports whether this camera's filter set passes every
// detection type (empty set, or the singleton {motion} set — see spec.md
// §9 open question: both are treated as pass-all).
func (c *Camera) PassAllFilter() bool {
	if len(c.Filter) == 0 {
		return true
	}
	if len(c.Filter) == 1 && c.Filter[DetectMotion] {
		return true
	}
	return false
}
