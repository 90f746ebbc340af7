package frames

import "math"

// resizeGray nearest-neighbor resamples a grayscale matrix to dim x dim,
// matching cv2.resize's role in _calculate_ssim/calculate_motion_score —
// both operate on already-small comparison buffers, so nearest-neighbor is
// sufficient (unlike the Lanczos resampling used for inference/thumbnail
// output in encode.go).
func resizeGray(src [][]float64, dim int) [][]float64 {
	h := len(src)
	w := len(src[0])
	out := make([][]float64, dim)
	for y := 0; y < dim; y++ {
		row := make([]float64, dim)
		sy := y * h / dim
		for x := 0; x < dim; x++ {
			sx := x * w / dim
			row[x] = src[sy][sx]
		}
		out[y] = row
	}
	return out
}

// gaussianBlur11 applies an 11x11 Gaussian blur with sigma=1.5, matching
// cv2.GaussianBlur(img, (11, 11), 1.5) as used by the SSIM local-statistics
// computation.
func gaussianBlur11(src [][]float64) [][]float64 {
	const radius = 5
	kernel := gaussianKernel1D(radius, 1.5)
	h := len(src)
	w := len(src[0])

	tmp := make([][]float64, h)
	for y := 0; y < h; y++ {
		tmp[y] = make([]float64, w)
		for x := 0; x < w; x++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				xx := clampIndex(x+k, w)
				sum += src[y][xx] * kernel[k+radius]
			}
			tmp[y][x] = sum
		}
	}

	out := make([][]float64, h)
	for y := 0; y < h; y++ {
		out[y] = make([]float64, w)
	}
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				yy := clampIndex(y+k, h)
				sum += tmp[yy][x] * kernel[k+radius]
			}
			out[y][x] = sum
		}
	}
	return out
}

func gaussianKernel1D(radius int, sigma float64) []float64 {
	size := 2*radius + 1
	kernel := make([]float64, size)
	var sum float64
	for i := -radius; i <= radius; i++ {
		v := gaussianWeight(float64(i), sigma)
		kernel[i+radius] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

func gaussianWeight(x, sigma float64) float64 {
	return math.Exp(-(x * x) / (2 * sigma * sigma))
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// ssim computes the Structural Similarity Index between two grayscale
// frames already resized to SimilarityResizeDim, porting
// original_source/frame_extractor.py's _calculate_ssim formula exactly
// (C1/C2 constants, Gaussian-blur local means/variances/covariance).
func ssim(a, b [][]float64) float64 {
	const c1 = (0.01 * 255) * (0.01 * 255)
	const c2 = (0.03 * 255) * (0.03 * 255)

	mu1 := gaussianBlur11(a)
	mu2 := gaussianBlur11(b)

	h := len(a)
	w := len(a[0])

	aSq := mulMatrix(a, a)
	bSq := mulMatrix(b, b)
	ab := mulMatrix(a, b)

	sigma1Sq := subMatrix(gaussianBlur11(aSq), mulMatrix(mu1, mu1))
	sigma2Sq := subMatrix(gaussianBlur11(bSq), mulMatrix(mu2, mu2))
	sigma12 := subMatrix(gaussianBlur11(ab), mulMatrix(mu1, mu2))

	var total float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mu1mu2 := mu1[y][x] * mu2[y][x]
			num := (2*mu1mu2 + c1) * (2*sigma12[y][x] + c2)
			den := (mu1[y][x]*mu1[y][x] + mu2[y][x]*mu2[y][x] + c1) * (sigma1Sq[y][x] + sigma2Sq[y][x] + c2)
			total += num / den
		}
	}
	score := total / float64(h*w)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func mulMatrix(a, b [][]float64) [][]float64 {
	out := make([][]float64, len(a))
	for y := range a {
		row := make([]float64, len(a[y]))
		for x := range a[y] {
			row[x] = a[y][x] * b[y][x]
		}
		out[y] = row
	}
	return out
}

func subMatrix(a, b [][]float64) [][]float64 {
	out := make([][]float64, len(a))
	for y := range a {
		row := make([]float64, len(a[y]))
		for x := range a[y] {
			row[x] = a[y][x] - b[y][x]
		}
		out[y] = row
	}
	return out
}

// isSimilar reports whether two frames are similar enough to be considered
// redundant for multi-frame dispatch.
func isSimilar(a, b RawFrame, threshold float64) bool {
	ga := resizeGray(toGray(a), SimilarityResizeDim)
	gb := resizeGray(toGray(b), SimilarityResizeDim)
	return ssim(ga, gb) > threshold
}

// filterSimilarFrames keeps the first frame and any subsequent frame whose
// SSIM against the last *kept* frame falls at or below threshold — a
// forward-walk dedup exactly mirroring
// original_source/frame_extractor.py's filter_similar_frames.
func filterSimilarFrames(frames []RawFrame, threshold float64) []RawFrame {
	if len(frames) == 0 {
		return nil
	}
	kept := []RawFrame{frames[0]}
	last := frames[0]
	for _, f := range frames[1:] {
		if !isSimilar(f, last, threshold) {
			kept = append(kept, f)
			last = f
		}
	}
	return kept
}
