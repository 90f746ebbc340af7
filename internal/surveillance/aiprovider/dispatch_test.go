package aiprovider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/technosupport/surveillance-core/internal/surveillance/evidence"
)

type fakeProvider struct {
	name         string
	videoMethod  VideoMethod
	retry        RetryPolicy
	rates        CostRates
	calls        int
	failTimes    int
	failErr      error
	result       Result
	lastPctx     PromptContext
	lastNumJpegs int
}

func (f *fakeProvider) Name() string            { return f.name }
func (f *fakeProvider) VideoMethod() VideoMethod { return f.videoMethod }
func (f *fakeProvider) RetryPolicy() RetryPolicy { return f.retry }
func (f *fakeProvider) CostRates() CostRates     { return f.rates }

func (f *fakeProvider) DescribeImage(ctx context.Context, jpegB64 string, pctx PromptContext) (Result, error) {
	f.calls++
	f.lastPctx = pctx
	if f.calls <= f.failTimes {
		return Result{}, f.failErr
	}
	return f.result, nil
}

func (f *fakeProvider) DescribeImages(ctx context.Context, jpegsB64 []string, pctx PromptContext) (Result, error) {
	f.lastNumJpegs = len(jpegsB64)
	return f.DescribeImage(ctx, "", pctx)
}

func (f *fakeProvider) DescribeVideo(ctx context.Context, clipPath string, pctx PromptContext) (Result, error) {
	f.lastPctx = pctx
	return Result{}, ErrNotSupported
}

type recordingUsage struct{ entries []UsageEntry }

func (r *recordingUsage) Append(e UsageEntry) { r.entries = append(r.entries, e) }

func TestChainRetriesRetryableErrorThenSucceeds(t *testing.T) {
	p := &fakeProvider{
		name:      "openai",
		retry:     RetryPolicy{Retries: 2, Delays: []time.Duration{time.Millisecond, time.Millisecond}},
		rates:     CostRates{InputPer1K: 0.00015, OutputPer1K: 0.0006},
		failTimes: 1,
		failErr:   errors.New("upstream returned 503"),
		result:    Result{Description: "A car arrives.", Success: true, TokensIn: 400, TokensOut: 50},
	}
	usage := &recordingUsage{}
	c := &Chain{Order: []string{"openai"}, Built: map[string]Provider{"openai": p}, Usage: usage}

	out, err := c.DispatchImage(context.Background(), []byte("jpeg"), evidence.DispatchContext{CameraName: "Front", Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Description != "A car arrives." || !out.Success {
		t.Fatalf("unexpected result: %+v", out)
	}
	if p.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", p.calls)
	}
	if len(usage.entries) != 2 {
		t.Fatalf("expected 2 usage entries, got %d", len(usage.entries))
	}
	if usage.entries[0].Success || !usage.entries[1].Success {
		t.Fatalf("usage entries out of order: %+v", usage.entries)
	}
}

func TestChainFallsThroughToNextProviderOnNonRetryableError(t *testing.T) {
	first := &fakeProvider{
		name:      "openai",
		retry:     DefaultRetryPolicy(),
		failTimes: 99,
		failErr:   errors.New("invalid api key"),
	}
	second := &fakeProvider{
		name:   "claude",
		retry:  DefaultRetryPolicy(),
		result: Result{Description: "A dog runs by.", Success: true},
	}
	c := &Chain{Order: []string{"openai", "claude"}, Built: map[string]Provider{"openai": first, "claude": second}}

	out, err := c.DispatchImage(context.Background(), []byte("jpeg"), evidence.DispatchContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ProviderUsed != "claude" {
		t.Fatalf("expected claude to serve the request, got %q", out.ProviderUsed)
	}
	if first.calls != 1 {
		t.Fatalf("expected exactly one non-retried attempt on openai, got %d", first.calls)
	}
}

func TestChainEstimatesCostWhenUsageAbsent(t *testing.T) {
	p := &fakeProvider{
		name:   "gemini",
		retry:  DefaultRetryPolicy(),
		rates:  CostRates{InputPer1K: 0.00025, OutputPer1K: 0.001, TokensPerImage: 258},
		result: Result{Description: "A package is dropped off.", Success: true},
	}
	usage := &recordingUsage{}
	c := &Chain{Order: []string{"gemini"}, Built: map[string]Provider{"gemini": p}, Usage: usage}

	out, err := c.DispatchImage(context.Background(), []byte("jpeg"), evidence.DispatchContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.IsEstimated {
		t.Fatalf("expected estimated cost flag to be set")
	}
	if out.CostUSD <= 0 {
		t.Fatalf("expected positive estimated cost, got %f", out.CostUSD)
	}
	if len(usage.entries) != 1 || !usage.entries[0].IsEstimated {
		t.Fatalf("expected estimated usage entry, got %+v", usage.entries)
	}
}

func TestDispatchImageSetsNumFramesToOne(t *testing.T) {
	p := &fakeProvider{
		name:   "openai",
		retry:  DefaultRetryPolicy(),
		result: Result{Description: "a car arrives", Success: true},
	}
	c := &Chain{Order: []string{"openai"}, Built: map[string]Provider{"openai": p}}

	_, err := c.DispatchImage(context.Background(), []byte("jpeg"), evidence.DispatchContext{DetectedTags: []string{"motion"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.lastPctx.NumFrames != 1 {
		t.Fatalf("expected NumFrames=1 for a single-image dispatch, got %d", p.lastPctx.NumFrames)
	}
}

func TestDispatchImagesSetsNumFramesToAttachedCount(t *testing.T) {
	p := &fakeProvider{
		name:   "claude",
		retry:  DefaultRetryPolicy(),
		result: Result{Description: "a sequence of events", Success: true},
	}
	c := &Chain{Order: []string{"claude"}, Built: map[string]Provider{"claude": p}}

	jpegs := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d"), []byte("e")}
	_, err := c.DispatchImages(context.Background(), jpegs, evidence.DispatchContext{DetectedTags: []string{"motion"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.lastNumJpegs != 5 {
		t.Fatalf("expected all 5 jpegs forwarded to the provider, got %d", p.lastNumJpegs)
	}
	if p.lastPctx.NumFrames != 5 {
		t.Fatalf("expected NumFrames=5 for a 5-frame dispatch, regardless of detected-tag count, got %d", p.lastPctx.NumFrames)
	}
}

func TestApplyCostScalesEstimateByImageCount(t *testing.T) {
	p := &fakeProvider{
		name:   "gemini",
		retry:  DefaultRetryPolicy(),
		rates:  CostRates{InputPer1K: 0.00025, OutputPer1K: 0.001, TokensPerImage: 100},
		result: Result{Description: "a sequence of events", Success: true},
	}
	usage := &recordingUsage{}
	c := &Chain{Order: []string{"gemini"}, Built: map[string]Provider{"gemini": p}, Usage: usage}

	jpegs := make([][]byte, 5)
	for i := range jpegs {
		jpegs[i] = []byte("jpeg")
	}
	out, err := c.DispatchImages(context.Background(), jpegs, evidence.DispatchContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.IsEstimated {
		t.Fatalf("expected estimated cost flag to be set")
	}
	if out.TokensIn != 800 {
		t.Fatalf("expected 200 + 5*100 + 100 = 800 estimated tokens, got %d", out.TokensIn)
	}
	if len(usage.entries) != 1 || usage.entries[0].ImageCount != 5 {
		t.Fatalf("expected usage entry to record image_count=5, got %+v", usage.entries)
	}
}

func TestHasVideoCapableProviderReflectsOrder(t *testing.T) {
	claude := &fakeProvider{name: "claude", videoMethod: VideoFrameExtraction}
	gemini := &fakeProvider{name: "gemini", videoMethod: VideoNativeUpload}
	c := &Chain{Order: []string{"claude", "gemini"}, Built: map[string]Provider{"claude": claude, "gemini": gemini}}
	if !c.HasVideoCapableProvider() {
		t.Fatalf("expected gemini to be detected as video-capable")
	}

	c2 := &Chain{Order: []string{"claude"}, Built: map[string]Provider{"claude": claude}}
	if c2.HasVideoCapableProvider() {
		t.Fatalf("expected no video-capable provider")
	}
}
