package frames

import (
	"context"
	"testing"
)

type fakeReader struct {
	frames []RawFrame
	fps    float64
	err    error
}

func (f fakeReader) Frames(ctx context.Context, path string) ([]RawFrame, float64, error) {
	return f.frames, f.fps, f.err
}

func makeFrames(n int) []RawFrame {
	out := make([]RawFrame, n)
	for i := 0; i < n; i++ {
		f := checkerFrame(64, 64)
		f.Index = i
		out[i] = f
	}
	return out
}

func TestExtractorUniformSelectionReturnsRequestedCount(t *testing.T) {
	e := &Extractor{Reader: fakeReader{frames: makeFrames(300), fps: 30}, FilterBlur: true}
	out, err := e.ExtractFrames(context.Background(), "clip.mp4", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 5 {
		t.Fatalf("expected 5 frames, got %d", len(out))
	}
}

func TestExtractorClampsFrameCountToRange(t *testing.T) {
	e := &Extractor{Reader: fakeReader{frames: makeFrames(300), fps: 30}, FilterBlur: true}
	out, err := e.ExtractFrames(context.Background(), "clip.mp4", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != MinFrameCount {
		t.Fatalf("expected clamp to %d frames, got %d", MinFrameCount, len(out))
	}
}

func TestExtractorReturnsBestAvailableWhenAllFramesBlurry(t *testing.T) {
	frames := make([]RawFrame, 10)
	for i := range frames {
		f := solidFrame(64, 64, 100, 100, 100)
		f.Index = i
		frames[i] = f
	}
	e := &Extractor{Reader: fakeReader{frames: frames, fps: 30}, FilterBlur: true}
	out, err := e.ExtractFrames(context.Background(), "clip.mp4", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("expected at least the minimum frame count even when all frames are below threshold")
	}
}

func TestExtractorErrorsOnEmptyClip(t *testing.T) {
	e := &Extractor{Reader: fakeReader{frames: nil, fps: 30}}
	if _, err := e.ExtractFrames(context.Background(), "clip.mp4", 5); err == nil {
		t.Fatalf("expected error for clip with no frames")
	}
}

func TestExtractorAdaptiveStrategyDedupsAndRanksByMotion(t *testing.T) {
	frames := make([]RawFrame, 60)
	for i := range frames {
		frames[i] = checkerFrame(64, 64)
		frames[i].Index = i
	}
	e := &Extractor{Reader: fakeReader{frames: frames, fps: 30}, Strategy: SamplingHybrid, FilterBlur: true}
	out, err := e.ExtractFrames(context.Background(), "clip.mp4", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("expected hybrid strategy to return frames")
	}
}
