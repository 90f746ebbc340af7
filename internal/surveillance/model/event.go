package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UnavailableDescription is the literal sentinel stored when the entire
// fallback chain fails. Must remain a literal string — downstream
// classification depends on an exact match, not a schema guess.
const UnavailableDescription = "AI analysis unavailable"

// PausedDescriptionPrefix prefixes the sentinel stored when the cost-cap
// gate blocks dispatch entirely.
const PausedDescriptionPrefix = "AI analysis paused - "

// ProcessingEvent is one queued unit of work.
type ProcessingEvent struct {
	EventID        uuid.UUID
	CameraID       uuid.UUID
	CameraName     string
	Timestamp      time.Time
	DetectedTypes  []DetectionType
	SmartDetection DetectionType // primary type driving sensor/fan-out routing

	// Evidence — at most one of Frame/ClipPath is populated at enqueue time.
	Frame    []byte // in-memory pixel buffer (snapshot JPEG), rtsp/usb sources
	ClipPath string // downloaded clip, protect sources only

	FallbackReason string // accumulated chain, carried forward from evidence acquisition

	EnqueuedAt time.Time
}

// AppendFallback appends a "stage:reason" entry to the comma-joined chain.
func AppendFallback(chain, stage, reason string) string {
	entry := stage + ":" + reason
	if chain == "" {
		return entry
	}
	return chain + "," + entry
}

// FallbackEntries splits a stored fallback_reason chain back into its
// "stage:reason" entries.
func FallbackEntries(chain string) []string {
	if chain == "" {
		return nil
	}
	return strings.Split(chain, ",")
}

// StoredEvent is the persisted result of one pipeline pass.
type StoredEvent struct {
	ID             uuid.UUID
	CameraID       uuid.UUID
	Timestamp      time.Time
	Description    string
	Confidence     int  // 0-100, heuristic/derived
	AIConfidence   *int // 0-100, self-reported, nullable
	LowConfidence  bool
	VagueReason    *string
	ObjectsDetected []string
	ThumbnailPath   string
	Source          SourceKind
	SmartDetectionType DetectionType
	IsDoorbellRing     bool
	AnalysisMode       AnalysisMode
	FrameCountUsed     *int
	FallbackReason     *string
	ProviderUsed       *string
	AICost             *float64
	DeliveryCarrier    *string
	KeyFrames          []KeyFrame
	AudioTranscription *string

	DescriptionRetryNeeded bool
	AnalysisSkippedReason  *string
	ReanalysisCount        int
	CorrelationGroupID     *uuid.UUID

	// Fan-out outputs, filled in asynchronously after the synchronous
	// pipeline returns — never read by anything awaiting enqueue.
	RecognitionStatus    *RecognitionStatus
	MatchedEntityIDs     []uuid.UUID
	PriorityNotification bool
	AnomalyScore         *float64
}

// RecognitionStatus classifies a face/vehicle recognition outcome.
type RecognitionStatus string

const (
	RecognitionKnown    RecognitionStatus = "known"
	RecognitionStranger RecognitionStatus = "stranger"
	RecognitionUnknown  RecognitionStatus = "unknown"
)

// KeyFrame is a small JPEG snapshot stored alongside the event.
type KeyFrame struct {
	Data      []byte
	Timestamp time.Time
}

// IsTerminalUnavailable reports whether this event's description is the
// literal sentinel stored when the entire fallback chain failed.
func (e *StoredEvent) IsTerminalUnavailable() bool {
	return e.Description == UnavailableDescription
}

// IsPaused reports whether this event's description is the cost-cap
// "paused" sentinel.
func (e *StoredEvent) IsPaused() bool {
	return strings.HasPrefix(e.Description, PausedDescriptionPrefix)
}

// ValidateInvariants checks the universal invariants from spec.md §8.
// Returns the first violated invariant description, or "" if all hold.
func (e *StoredEvent) ValidateInvariants() string {
	if !e.IsTerminalUnavailable() && !e.IsPaused() {
		if e.ProviderUsed == nil {
			return "provider_used must be non-nil unless terminal/paused"
		}
		switch e.AnalysisMode {
		case ModeSingleFrame, ModeMultiFrame, ModeVideoNative:
		default:
			return "analysis_mode must be one of single_frame/multi_frame/video_native"
		}
	}
	if e.AnalysisMode == ModeMultiFrame {
		if e.FrameCountUsed == nil || *e.FrameCountUsed < 3 || *e.FrameCountUsed > 20 {
			return "multi_frame requires frame_count_used in [3,20]"
		}
	}
	if e.AnalysisMode == ModeVideoNative && e.FrameCountUsed != nil {
		return "video_native must have nil frame_count_used"
	}
	return ""
}
