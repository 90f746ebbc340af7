package frames

import "sort"

// scoredFrame pairs a decoded frame with its original index and a motion
// score, mirroring original_source/frame_extractor.py's
// score_frames_by_motion tuple shape.
type scoredFrame struct {
	Frame RawFrame
	Index int
	Score float64
}

// motionScore is a Farneback-lite stand-in: real optical flow needs a CGO
// binding this repo avoids (see frames.go doc comment), so motion is
// approximated as the mean absolute grayscale difference between two frames
// resized to SimilarityResizeDim, scaled by MotionScoreMultiplier and
// clamped to [0, 100] the same way calculate_motion_score normalizes true
// optical-flow magnitude.
func motionScore(prev, curr RawFrame) float64 {
	ga := resizeGray(toGray(prev), SimilarityResizeDim)
	gb := resizeGray(toGray(curr), SimilarityResizeDim)

	var sum float64
	n := 0
	for y := range ga {
		for x := range ga[y] {
			d := ga[y][x] - gb[y][x]
			if d < 0 {
				d = -d
			}
			sum += d
			n++
		}
	}
	mean := sum / float64(n)
	score := mean * MotionScoreMultiplier / 25.5 // normalize 0-255 diff range to roughly 0-10 before the multiplier
	if score > 100 {
		score = 100
	}
	return score
}

// scoreFramesByMotion scores every frame against its neighbors: first frame
// against the second, last against the second-to-last, and middle frames
// against the average of their two neighbors' scores.
func scoreFramesByMotion(frames []RawFrame) []scoredFrame {
	if len(frames) == 0 {
		return nil
	}
	if len(frames) == 1 {
		return []scoredFrame{{Frame: frames[0], Index: frames[0].Index, Score: 0}}
	}

	out := make([]scoredFrame, len(frames))
	for i, f := range frames {
		var score float64
		switch {
		case i == 0:
			score = motionScore(frames[0], frames[1])
		case i == len(frames)-1:
			score = motionScore(frames[len(frames)-2], frames[len(frames)-1])
		default:
			score = (motionScore(frames[i-1], frames[i]) + motionScore(frames[i], frames[i+1])) / 2
		}
		out[i] = scoredFrame{Frame: f, Index: f.Index, Score: score}
	}
	return out
}

// selectTopByScore keeps the target_count highest-scoring frames, then
// restores chronological order, mirroring
// original_source/frame_extractor.py's select_top_frames_by_score.
func selectTopByScore(scored []scoredFrame, targetCount int, chronological bool) []scoredFrame {
	if len(scored) == 0 {
		return nil
	}
	result := scored
	if targetCount < len(scored) {
		sorted := append([]scoredFrame(nil), scored...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
		result = append([]scoredFrame(nil), sorted[:targetCount]...)
	}
	if chronological {
		result = append([]scoredFrame(nil), result...)
		sort.Slice(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	}
	return result
}
