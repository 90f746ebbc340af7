// Package aiprovider implements the multi-provider AI dispatch chain of
// spec.md §4.5: an ordered provider registry with per-provider retry
// policy, SLA-bounded fallback, cost accounting, and tolerant structured-
// output parsing. Grounded on internal/nvr/adapters' Registry/GetAdapter
// factory pattern (renamed to this domain) and
// internal/nvr/nats_publisher.go's retry-with-backoff loop shape.
package aiprovider

import (
	"context"
	"errors"
	"time"
)

// ErrNotSupported is returned by a Provider's DescribeVideo when its
// VideoMethod is VideoNone.
var ErrNotSupported = errors.New("operation not supported by this provider")

// PromptContext carries everything a provider's prompt builder needs
// beyond the raw image/video bytes.
type PromptContext struct {
	CameraName         string
	TimestampISO       string
	DetectedTags       []string
	CustomPrompt       string
	AudioTranscription string
	NumFrames          int // for multi-frame prompts
}

// Result is the outcome of one provider call.
type Result struct {
	Description      string
	SelfConfidence   *int
	TokensIn         int
	TokensOut        int
	ResponseTimeMS   int64
	ProviderTag      string
	CostUSD          float64
	Success          bool
	IsEstimated      bool
	NumImages        int // frames/images actually sent, for the token-estimation fallback and usage log
	Err              error
}

// RetryPolicy controls how many times, and with what backoff, a single
// provider attempt is retried on a transient error.
type RetryPolicy struct {
	Retries int
	Delays  []time.Duration // one entry per retry, in order
}

// DefaultRetryPolicy is 3 retries at 2/4/8s, the spec.md §4.5 default.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Retries: 3, Delays: []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}}
}

// GrokRetryPolicy is 2 retries at 0.5s, per spec.md §4.5's Grok-family
// carve-out.
func GrokRetryPolicy() RetryPolicy {
	return RetryPolicy{Retries: 2, Delays: []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}}
}

// CostRates is the per-1k-token price table plus the per-image token
// estimate used when a provider doesn't report usage.
type CostRates struct {
	InputPer1K     float64
	OutputPer1K    float64
	TokensPerImage int // default 100 if zero
}

// VideoMethod mirrors model.VideoMethod without importing the model
// package from the provider contract layer, matching the teacher's own
// adapters package keeping its vendor enum self-contained.
type VideoMethod string

const (
	VideoNone            VideoMethod = "none"
	VideoFrameExtraction VideoMethod = "frame_extraction"
	VideoNativeUpload    VideoMethod = "native_upload"
)

// Provider is the per-vendor capability set: describe_image,
// describe_images, and optionally describe_video.
type Provider interface {
	Name() string
	VideoMethod() VideoMethod
	RetryPolicy() RetryPolicy
	CostRates() CostRates

	DescribeImage(ctx context.Context, jpegB64 string, pctx PromptContext) (Result, error)
	DescribeImages(ctx context.Context, jpegsB64 []string, pctx PromptContext) (Result, error)
	DescribeVideo(ctx context.Context, clipPath string, pctx PromptContext) (Result, error)
}

// Factory constructs a Provider from its API key.
type Factory func(apiKey string) Provider

// Registry is the process-wide vendor factory table, mirroring
// adapters.Registry in the teacher.
var Registry = map[string]Factory{}

// Register adds a factory for a provider name ("openai", "grok", "claude",
// "gemini", ...).
func Register(name string, f Factory) {
	Registry[name] = f
}

// Build constructs a Provider by name if both registered and an API key
// is configured; ok is false otherwise (mirrors "configured and
// video-capable" filtering in spec.md §4.3 step 2).
func Build(name, apiKey string) (Provider, bool) {
	if apiKey == "" {
		return nil, false
	}
	f, ok := Registry[name]
	if !ok {
		return nil, false
	}
	return f(apiKey), true
}
