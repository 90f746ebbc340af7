// Package frames implements the frame selection engine of spec.md §4.4:
// evenly-spaced extraction with an optional offset, blur/empty filtering with
// a replacement policy, SSIM-based perceptual dedup, Farneback-lite motion
// ranking, and JPEG re-encoding for inference and thumbnail storage.
//
// No pack example links a video-decoding or computer-vision library — the
// teacher explicitly avoids CGO (cmd/ai-service/inference.go: "Real ONNX
// detection requires CGO which is having issues... This implementation uses
// mock detection"). This package follows that precedent and shells out to an
// external ffmpeg binary for decode, the same "subprocess boundary instead of
// a C binding" idiom internal/health/prober.go uses for RTSP.
package frames

import "context"

const (
	MinFrameCount = 3
	MaxFrameCount = 20

	JPEGQualityInference = 85
	JPEGQualityThumbnail = 70
	MaxWidthInference    = 1280
	MaxWidthThumbnail    = 320

	BlurVarianceThreshold = 100.0
	EmptyStdDevThreshold  = 10.0

	SimilarityThreshold  = 0.95
	SimilarityResizeDim  = 256
	MotionScoreMultiplier = 10.0
)

// RawFrame is one decoded video frame with its position in decode order.
type RawFrame struct {
	Index int
	RGBA  []byte // tightly packed RGBA, row-major
	W, H  int
}

// ClipReader decodes a clip to a sequence of raw frames plus its frame rate.
type ClipReader interface {
	Frames(ctx context.Context, path string) ([]RawFrame, float64, error)
}

func clampFrameCount(n int) int {
	if n < MinFrameCount {
		return MinFrameCount
	}
	if n > MaxFrameCount {
		return MaxFrameCount
	}
	return n
}
