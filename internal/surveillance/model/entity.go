package model

import (
	"time"

	"github.com/google/uuid"
)

// EntityType classifies a recognized recurring subject.
type EntityType string

const (
	EntityPerson  EntityType = "person"
	EntityVehicle EntityType = "vehicle"
	EntityUnknown EntityType = "unknown"
)

// Entity is a recognized recurring subject tracked by reference embedding
// and, for vehicles, a canonical color/make/model signature.
type Entity struct {
	ID              uuid.UUID
	Type            EntityType
	Name            *string
	Embedding       []float32 // fixed-dim, typically 512
	FirstSeen       time.Time
	LastSeen        time.Time
	OccurrenceCount int
	VIP             bool
	Blocked         bool

	// Vehicle-only fields.
	Color     *string
	Make      *string
	VehModel  *string
	Signature *string
}

// VehicleSignatureValid reports whether a non-nil Signature equals the
// hyphen-join of its present parts, and at least one of (color∧make) or
// (make∧model) holds — the vehicle-entity invariant from spec.md §3/§8.
func (e *Entity) VehicleSignatureValid() bool {
	if e.Signature == nil {
		return true
	}
	hasColor := e.Color != nil
	hasMake := e.Make != nil
	hasModel := e.VehModel != nil
	if !((hasColor && hasMake) || (hasMake && hasModel)) {
		return false
	}
	var parts []string
	if hasColor {
		parts = append(parts, *e.Color)
	}
	if hasMake {
		parts = append(parts, *e.Make)
	}
	if hasModel {
		parts = append(parts, *e.VehModel)
	}
	return *e.Signature == joinHyphen(parts)
}

func joinHyphen(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "-"
		}
		out += p
	}
	return out
}

// EntityEvent is the many-to-many link between an entity and an event.
type EntityEvent struct {
	EntityID        uuid.UUID
	EventID         uuid.UUID
	SimilarityScore float64
	CreatedAt       time.Time
}

// AdjustmentAction enumerates the offline-training-relevant entity graph
// mutations an admin can make.
type AdjustmentAction string

const (
	AdjustAssign   AdjustmentAction = "assign"
	AdjustUnlink   AdjustmentAction = "unlink"
	AdjustMoveFrom AdjustmentAction = "move_from"
	AdjustMoveTo   AdjustmentAction = "move_to"
	AdjustMerge    AdjustmentAction = "merge"
)

// EntityAdjustment is an immutable record of an admin mutation to the
// entity graph, kept for offline training.
type EntityAdjustment struct {
	ID                  uuid.UUID
	Action              AdjustmentAction
	OldEntityID         *uuid.UUID
	NewEntityID         *uuid.UUID
	EventID              uuid.UUID
	DescriptionSnapshot  string
	CreatedAt            time.Time
}

// EntityMatchResult is the return shape of a match/create lookup.
type EntityMatchResult struct {
	EntityID        uuid.UUID
	EntityType      EntityType
	Name            *string
	FirstSeenAt     time.Time
	LastSeenAt      time.Time
	OccurrenceCount int
	SimilarityScore float64
	IsNew           bool
}

// VehicleEntityInfo is the extracted color/make/model/signature from an AI
// description, ported from original_source/entity_service.py's dataclass
// of the same name.
type VehicleEntityInfo struct {
	Color     *string
	Make      *string
	Model     *string
	Signature *string
}

// IsValid reports whether the minimum data requirement is met:
// (color∧make) ∨ (make∧model).
func (v *VehicleEntityInfo) IsValid() bool {
	hasColor := v.Color != nil
	hasMake := v.Make != nil
	hasModel := v.Model != nil
	return (hasColor && hasMake) || (hasMake && hasModel)
}

// ProviderDescriptor is the process-wide config row for one AI vendor.
type ProviderDescriptor struct {
	Name              string
	Position          int
	VideoMethod       VideoMethod
	TokensPerImage    int
	PricePerKTokenIn  float64
	PricePerKTokenOut float64
	RetryCount        int
	RetryBaseDelay    time.Duration
}

// VideoMethod is how a provider accepts video evidence, if at all.
type VideoMethod string

const (
	VideoNone           VideoMethod = "none"
	VideoFrameExtraction VideoMethod = "frame_extraction"
	VideoNativeUpload    VideoMethod = "native_upload"
)
