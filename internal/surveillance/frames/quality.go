package frames

import "math"

// toGray converts a packed RGBA buffer to a grayscale float64 matrix using
// the standard luma weights, matching cv2.cvtColor(..., COLOR_RGB2GRAY).
func toGray(f RawFrame) [][]float64 {
	gray := make([][]float64, f.H)
	for y := 0; y < f.H; y++ {
		row := make([]float64, f.W)
		for x := 0; x < f.W; x++ {
			i := (y*f.W + x) * 4
			r, g, b := float64(f.RGBA[i]), float64(f.RGBA[i+1]), float64(f.RGBA[i+2])
			row[x] = 0.299*r + 0.587*g + 0.114*b
		}
		gray[y] = row
	}
	return gray
}

// laplacianVariance measures sharpness via the variance of the discrete
// Laplacian, matching cv2.Laplacian(gray, CV_64F).var(). Higher is sharper.
func laplacianVariance(gray [][]float64) float64 {
	h := len(gray)
	if h < 3 {
		return 0
	}
	w := len(gray[0])
	if w < 3 {
		return 0
	}

	values := make([]float64, 0, (h-2)*(w-2))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := gray[y-1][x] + gray[y+1][x] + gray[y][x-1] + gray[y][x+1] - 4*gray[y][x]
			values = append(values, lap)
		}
	}
	return variance(values)
}

// stdDev is the population standard deviation of a grayscale frame,
// flattened row-major, matching np.std(gray).
func stdDev(gray [][]float64) float64 {
	flat := make([]float64, 0, len(gray)*len(gray[0]))
	for _, row := range gray {
		flat = append(flat, row...)
	}
	return math.Sqrt(variance(flat))
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return sq / float64(len(values))
}

// qualityScore returns the Laplacian variance used both for blur detection
// and for ranking frames when none pass the usability threshold.
func qualityScore(f RawFrame) float64 {
	return laplacianVariance(toGray(f))
}

// isFrameUsable rejects frames that are too blurry or too close to a single
// flat color, per original_source/frame_extractor.py's _is_frame_usable.
func isFrameUsable(f RawFrame) bool {
	gray := toGray(f)
	if laplacianVariance(gray) < BlurVarianceThreshold {
		return false
	}
	if stdDev(gray) < EmptyStdDevThreshold {
		return false
	}
	return true
}
