package frames

import "testing"

func TestFilterSimilarFramesKeepsFirstAndDistinctFrames(t *testing.T) {
	a := solidFrame(64, 64, 255, 0, 0)
	a.Index = 0
	b := solidFrame(64, 64, 255, 1, 0) // near-identical to a
	b.Index = 1
	c := checkerFrame(64, 64)
	c.Index = 2

	out := filterSimilarFrames([]RawFrame{a, b, c}, SimilarityThreshold)
	if len(out) != 2 {
		t.Fatalf("expected near-duplicate frame to be filtered, got %d frames", len(out))
	}
	if out[0].Index != 0 || out[1].Index != 2 {
		t.Fatalf("unexpected surviving indices: %d, %d", out[0].Index, out[1].Index)
	}
}

func TestFilterSimilarFramesEmptyInput(t *testing.T) {
	if out := filterSimilarFrames(nil, SimilarityThreshold); out != nil {
		t.Fatalf("expected nil, got %v", out)
	}
}

func TestSSIMIdenticalFramesScoreOne(t *testing.T) {
	f := checkerFrame(64, 64)
	ga := resizeGray(toGray(f), SimilarityResizeDim)
	score := ssim(ga, ga)
	if score < 0.999 {
		t.Fatalf("expected identical frames to score near 1.0, got %f", score)
	}
}
