package frames

import (
	"context"
	"fmt"
	"sort"

	"github.com/technosupport/surveillance-core/internal/surveillance/evidence"
)

// SamplingStrategy selects how candidate frame indices are chosen before
// quality filtering, per spec.md §4.4's uniform/adaptive/hybrid handoff.
type SamplingStrategy string

const (
	SamplingUniform  SamplingStrategy = "uniform"
	SamplingAdaptive SamplingStrategy = "adaptive"
	SamplingHybrid   SamplingStrategy = "hybrid"
)

// Extractor implements evidence.FrameExtractor: pick frame indices, decode
// via a ClipReader, filter/replace low-quality frames, optionally dedup by
// SSIM and rank by motion for adaptive/hybrid strategies, then JPEG-encode
// for inference.
type Extractor struct {
	Reader      ClipReader
	Strategy    SamplingStrategy // default uniform
	FilterBlur  bool
	OffsetMS    int
}

var _ evidence.FrameExtractor = (*Extractor)(nil)

// ExtractFrames returns up to n JPEG-encoded frames, chronologically
// ordered, never erroring for recoverable quality issues — only for decode
// failures (mirrors original_source/frame_extractor.py returning an empty
// slice on error; here errors propagate so evidence.Acquire can record
// frame_extraction_failed).
func (e *Extractor) ExtractFrames(ctx context.Context, clipPath string, n int) ([][]byte, error) {
	n = clampFrameCount(n)

	all, fps, err := e.Reader.Frames(ctx, clipPath)
	if err != nil {
		return nil, fmt.Errorf("decode clip: %w", err)
	}
	total := len(all)
	if total == 0 {
		return nil, fmt.Errorf("clip has no frames")
	}

	available, offsetFrames := applyOffset(total, fps, e.OffsetMS)
	if available <= 0 {
		return nil, fmt.Errorf("no frames available after offset")
	}

	strategy := e.Strategy
	if strategy == "" {
		strategy = SamplingUniform
	}

	candidateCount := n
	if strategy == SamplingAdaptive || strategy == SamplingHybrid {
		candidateCount = n * 3
		if candidateCount > available {
			candidateCount = available
		}
	}

	relative := calculateFrameIndices(available, candidateCount)
	selected := make([]RawFrame, 0, len(relative))
	indexSet := make(map[int]bool, len(relative))
	for _, rel := range relative {
		indexSet[rel+offsetFrames] = true
	}
	for _, f := range all {
		if indexSet[f.Index] {
			selected = append(selected, f)
		}
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].Index < selected[j].Index })

	if (strategy == SamplingAdaptive || strategy == SamplingHybrid) && len(selected) > n {
		selected = e.adaptiveSelect(selected, n)
	}

	final := e.applyQualityPolicy(selected, n)

	out := make([][]byte, 0, len(final))
	for _, f := range final {
		jpegBytes, err := encodeForInference(f)
		if err != nil {
			continue
		}
		out = append(out, jpegBytes)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no frames survived encoding")
	}
	return out, nil
}

// adaptiveSelect dedups visually redundant candidates by SSIM, then ranks
// the survivors by motion activity and keeps the top n — the "extract more
// candidates uniformly, then filter adaptively" handoff spec.md §4.4 names.
func (e *Extractor) adaptiveSelect(candidates []RawFrame, n int) []RawFrame {
	deduped := filterSimilarFrames(candidates, SimilarityThreshold)
	if len(deduped) <= n {
		return deduped
	}
	scored := scoreFramesByMotion(deduped)
	top := selectTopByScore(scored, n, true)
	out := make([]RawFrame, len(top))
	for i, s := range top {
		out[i] = s.Frame
	}
	return out
}

// applyQualityPolicy filters blurry/empty frames and backfills from the
// best-scoring rejects when there aren't enough usable frames, exactly as
// original_source/frame_extractor.py's extract_frames_with_timestamps.
func (e *Extractor) applyQualityPolicy(frames []RawFrame, targetCount int) []RawFrame {
	if !e.FilterBlur {
		return frames
	}

	var usable, unusable []RawFrame
	for _, f := range frames {
		if isFrameUsable(f) {
			usable = append(usable, f)
		} else {
			unusable = append(unusable, f)
		}
	}

	switch {
	case len(usable) == 0:
		sort.Slice(frames, func(i, j int) bool { return qualityScore(frames[i]) > qualityScore(frames[j]) })
		count := targetCount
		if count > len(frames) {
			count = len(frames)
		}
		if count < MinFrameCount && len(frames) >= MinFrameCount {
			count = MinFrameCount
		}
		return frames[:count]

	case len(usable) >= targetCount:
		sort.Slice(usable, func(i, j int) bool { return usable[i].Index < usable[j].Index })
		if len(usable) > targetCount {
			usable = usable[:targetCount]
		}
		return usable

	default:
		needed := targetCount
		if needed < MinFrameCount {
			needed = MinFrameCount
		}
		needed -= len(usable)
		if needed > 0 && len(unusable) > 0 {
			sort.Slice(unusable, func(i, j int) bool { return qualityScore(unusable[i]) > qualityScore(unusable[j]) })
			if needed > len(unusable) {
				needed = len(unusable)
			}
			usable = append(usable, unusable[:needed]...)
		}
		sort.Slice(usable, func(i, j int) bool { return usable[i].Index < usable[j].Index })
		return usable
	}
}
