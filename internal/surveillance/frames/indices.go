package frames

// calculateFrameIndices computes evenly spaced frame indices, always
// including the first and last frame, exactly as
// original_source/frame_extractor.py's _calculate_frame_indices:
// total_frames=300, frame_count=5 -> [0, 74, 149, 224, 299].
func calculateFrameIndices(totalFrames, frameCount int) []int {
	if totalFrames <= 0 || frameCount <= 0 {
		return nil
	}
	if frameCount >= totalFrames {
		out := make([]int, totalFrames)
		for i := range out {
			out[i] = i
		}
		return out
	}
	if frameCount == 1 {
		return []int{0}
	}

	indices := make([]int, frameCount)
	for i := 0; i < frameCount; i++ {
		indices[i] = (i * (totalFrames - 1)) / (frameCount - 1)
	}
	return indices
}

// applyOffset shifts extraction to start offsetMS milliseconds into the
// clip, falling back to no offset if the clip is shorter than the
// requested skip (spec.md §4.4 "extraction offset").
func applyOffset(totalFrames int, fps float64, offsetMS int) (available, offsetFrames int) {
	if offsetMS <= 0 || fps <= 0 {
		return totalFrames, 0
	}
	offsetFrames = int(float64(offsetMS) / 1000.0 * fps)
	if offsetFrames >= totalFrames {
		return totalFrames, 0
	}
	return totalFrames - offsetFrames, offsetFrames
}
