// Package evidence implements the evidence-acquisition and AI fallback
// chain state machine of spec.md §4.3: try native video upload, then
// frame-sequence extraction, then single-snapshot inference, recording
// every failure reason along the way. Grounded on
// internal/cameras/media_service.go's orchestration style (fetch → probe
// → select → store, narrated inline) and internal/nvr/adapters'
// Registry/GetAdapter factory pattern for video-capable provider selection.
package evidence

import (
	"context"
	"time"

	"github.com/technosupport/surveillance-core/internal/surveillance/model"
)

// Fallback reason tags, exactly as enumerated in spec.md §4.3/§9.
const (
	ReasonNoClipSource              = "no_clip_source"
	ReasonNoClipAvailable           = "no_clip_available"
	ReasonNoVideoProvidersAvailable = "no_video_providers_available"
	ReasonFrameExtractionFailed     = "frame_extraction_failed"
	ReasonAIFailed                  = "ai_failed"
)

const (
	stageVideoNative = "video_native"
	stageMultiFrame  = "multi_frame"
	stageSingleFrame = "single_frame"
)

const (
	videoNativeTimeout = 30 * time.Second
	multiFrameSLA      = 10 * time.Second
	singleFrameSLA      = 5 * time.Second

	defaultFrameCount = 5
	minFrameCount     = 3
	maxFrameCount     = 20
)

// DispatchContext carries everything an AI provider call needs beyond the
// raw image/video bytes.
type DispatchContext struct {
	CameraName         string
	Timestamp          time.Time
	DetectedTags       []string
	CustomPrompt       string
	AudioTranscription string
	IsDoorbellRing     bool
}

// DispatchResult is the outcome of one provider call.
type DispatchResult struct {
	Description    string
	Confidence     *int
	ProviderUsed   string
	TokensIn       int
	TokensOut      int
	ResponseTimeMS int64
	CostUSD        float64
	IsEstimated    bool
	Success        bool
}

// VideoDispatcher dispatches native-upload video evidence across the
// provider chain, honoring its own SLA budget.
type VideoDispatcher interface {
	HasVideoCapableProvider() bool
	DispatchVideo(ctx context.Context, clipPath string, dctx DispatchContext) (DispatchResult, error)
}

// MultiImageDispatcher dispatches a frame sequence across the provider
// chain.
type MultiImageDispatcher interface {
	DispatchImages(ctx context.Context, jpegs [][]byte, dctx DispatchContext) (DispatchResult, error)
}

// SingleImageDispatcher dispatches one snapshot across the provider chain.
type SingleImageDispatcher interface {
	DispatchImage(ctx context.Context, jpeg []byte, dctx DispatchContext) (DispatchResult, error)
}

// Dispatcher composes all three evidence-shaped dispatch operations.
type Dispatcher interface {
	VideoDispatcher
	MultiImageDispatcher
	SingleImageDispatcher
}

// FrameExtractor extracts up to n usable, deduplicated, ranked frames from
// a clip, already JPEG-encoded for inference (see frames package).
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, clipPath string, n int) ([][]byte, error)
}

// ClipSource downloads a clip for protect-style cameras.
type ClipSource interface {
	DownloadClip(ctx context.Context, cam *model.Camera, evt *model.ProcessingEvent) (clipPath string, ok bool, err error)
}

// SnapshotSource fetches the always-acquired snapshot that doubles as the
// stored thumbnail and single_frame input.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context, cam *model.Camera) ([]byte, error)
}

// Transcriber converts a clip's audio track to text for doorbell cameras.
type Transcriber interface {
	Transcribe(ctx context.Context, clipPath string) (string, error)
}

// CostCapChecker gates dispatch entirely when a cost cap is active
// (spec.md §4.5 "Cost cap gate").
type CostCapChecker interface {
	Check(ctx context.Context, cam *model.Camera) (paused bool, reason string)
}

// Acquirer runs the full evidence-acquisition + fallback chain for one
// qualifying event.
type Acquirer struct {
	Clips        ClipSource
	Snapshots    SnapshotSource
	Frames       FrameExtractor
	Dispatch     Dispatcher
	Transcriber  Transcriber
	CostCap      CostCapChecker
	MaxFrames    int // default 5, clamped [3,20]
}

// Outcome is the result of one Acquire call, ready to be mapped onto a
// StoredEvent.
type Outcome struct {
	Description        string
	Confidence         int
	AIConfidence       *int
	AnalysisMode       model.AnalysisMode
	FrameCountUsed     *int
	FallbackReason     string
	ProviderUsed       *string
	AICost             *float64
	ThumbnailJPEG      []byte
	DescriptionRetry   bool
	AnalysisSkipped    bool
	AnalysisSkipReason string
	AudioTranscription *string
}

// Acquire runs the strict-order chain described in spec.md §4.3.
func (a *Acquirer) Acquire(ctx context.Context, cam *model.Camera, evt *model.ProcessingEvent) (*Outcome, error) {
	if a.CostCap != nil {
		if paused, reason := a.CostCap.Check(ctx, cam); paused {
			return &Outcome{
				Description:        model.PausedDescriptionPrefix + reason,
				Confidence:         0,
				DescriptionRetry:   true,
				AnalysisSkipped:    true,
				AnalysisSkipReason: reason,
			}, nil
		}
	}

	snapshot, snapErr := a.Snapshots.FetchSnapshot(ctx, cam)

	dctx := DispatchContext{
		CameraName:     cam.Name,
		Timestamp:      evt.Timestamp,
		DetectedTags:   tagsOf(evt.DetectedTypes),
		CustomPrompt:   cam.PromptOverride,
		IsDoorbellRing: evt.SmartDetection == model.DetectRing,
	}
	if dctx.IsDoorbellRing && cam.PromptOverride == "" {
		dctx.CustomPrompt = "describe who is at the door and what they are doing"
	}

	var chain string
	var clipPath string
	haveClip := false

	if cam.Source == model.SourceProtect {
		path, ok, err := a.Clips.DownloadClip(ctx, cam, evt)
		if err == nil && ok {
			clipPath = path
			haveClip = true
		}
	} else {
		if cam.Mode == model.ModeVideoNative {
			chain = model.AppendFallback(chain, stageVideoNative, ReasonNoClipSource)
		}
		if cam.Mode == model.ModeVideoNative || cam.Mode == model.ModeMultiFrame {
			chain = model.AppendFallback(chain, stageMultiFrame, ReasonNoClipSource)
		}
	}

	if haveClip && cam.IsDoorbell && a.Transcriber != nil {
		if text, err := a.Transcriber.Transcribe(ctx, clipPath); err == nil && text != "" {
			dctx.AudioTranscription = text
		}
	}

	// Step 2: video_native
	if cam.Mode == model.ModeVideoNative {
		if !haveClip {
			chain = model.AppendFallback(chain, stageVideoNative, ReasonNoClipAvailable)
		} else if !a.Dispatch.HasVideoCapableProvider() {
			chain = model.AppendFallback(chain, stageVideoNative, ReasonNoVideoProvidersAvailable)
		} else {
			vctx, cancel := context.WithTimeout(ctx, videoNativeTimeout)
			res, err := a.Dispatch.DispatchVideo(vctx, clipPath, dctx)
			cancel()
			if err == nil && res.Success {
				return a.success(res, model.ModeVideoNative, nil, chain, snapshot), nil
			}
			chain = model.AppendFallback(chain, stageVideoNative, reasonFromErr(err))
		}
	}

	// Step 3: multi_frame
	if cam.Mode == model.ModeVideoNative || cam.Mode == model.ModeMultiFrame {
		if !haveClip {
			chain = model.AppendFallback(chain, stageMultiFrame, ReasonNoClipAvailable)
		} else {
			n := a.frameCount()
			jpegs, err := a.Frames.ExtractFrames(ctx, clipPath, n)
			if err != nil || len(jpegs) == 0 {
				chain = model.AppendFallback(chain, stageMultiFrame, ReasonFrameExtractionFailed)
			} else {
				mctx, cancel := context.WithTimeout(ctx, multiFrameSLA)
				res, err := a.Dispatch.DispatchImages(mctx, jpegs, dctx)
				cancel()
				if err == nil && res.Success {
					count := len(jpegs)
					return a.success(res, model.ModeMultiFrame, &count, chain, snapshot), nil
				}
				chain = model.AppendFallback(chain, stageMultiFrame, ReasonAIFailed)
			}
		}
	}

	// Step 4: single_frame (always attempted, terminal on failure)
	if snapErr != nil || len(snapshot) == 0 {
		chain = model.AppendFallback(chain, stageSingleFrame, ReasonAIFailed)
		return a.terminal(chain), nil
	}

	sctx, cancel := context.WithTimeout(ctx, singleFrameSLA)
	res, err := a.Dispatch.DispatchImage(sctx, snapshot, dctx)
	cancel()
	if err == nil && res.Success {
		one := 1
		return a.success(res, model.ModeSingleFrame, &one, chain, snapshot), nil
	}
	chain = model.AppendFallback(chain, stageSingleFrame, ReasonAIFailed)
	return a.terminal(chain), nil
}

func (a *Acquirer) frameCount() int {
	n := a.MaxFrames
	if n == 0 {
		n = defaultFrameCount
	}
	if n < minFrameCount {
		n = minFrameCount
	}
	if n > maxFrameCount {
		n = maxFrameCount
	}
	return n
}

func (a *Acquirer) success(res DispatchResult, mode model.AnalysisMode, frameCount *int, chain string, snapshot []byte) *Outcome {
	provider := res.ProviderUsed
	cost := res.CostUSD
	return &Outcome{
		Description:    res.Description,
		Confidence:     confidenceOrDefault(res.Confidence),
		AIConfidence:   res.Confidence,
		AnalysisMode:   mode,
		FrameCountUsed: frameCount,
		FallbackReason: chain,
		ProviderUsed:   &provider,
		AICost:         &cost,
		ThumbnailJPEG:  snapshot,
	}
}

func (a *Acquirer) terminal(chain string) *Outcome {
	return &Outcome{
		Description:      model.UnavailableDescription,
		Confidence:       0,
		AnalysisMode:     model.ModeSingleFrame,
		FallbackReason:   chain,
		DescriptionRetry: true,
	}
}

func confidenceOrDefault(c *int) int {
	if c == nil {
		return 0
	}
	return *c
}

func reasonFromErr(err error) string {
	if err == nil {
		return ReasonAIFailed
	}
	if err == context.DeadlineExceeded {
		return "timeout"
	}
	return ReasonAIFailed
}

func tagsOf(types []model.DetectionType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}
