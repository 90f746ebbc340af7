package frames

import "testing"

func solidFrame(w, h int, r, g, b byte) RawFrame {
	buf := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		buf[i*4] = r
		buf[i*4+1] = g
		buf[i*4+2] = b
		buf[i*4+3] = 255
	}
	return RawFrame{Index: 0, RGBA: buf, W: w, H: h}
}

func checkerFrame(w, h int) RawFrame {
	buf := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			var v byte
			if (x+y)%2 == 0 {
				v = 255
			}
			buf[i] = v
			buf[i+1] = v
			buf[i+2] = v
			buf[i+3] = 255
		}
	}
	return RawFrame{Index: 0, RGBA: buf, W: w, H: h}
}

func TestIsFrameUsableRejectsSolidColor(t *testing.T) {
	f := solidFrame(32, 32, 128, 128, 128)
	if isFrameUsable(f) {
		t.Fatalf("expected solid color frame to be rejected as empty/unusable")
	}
}

func TestIsFrameUsableAcceptsHighVarianceFrame(t *testing.T) {
	f := checkerFrame(32, 32)
	if !isFrameUsable(f) {
		t.Fatalf("expected high-contrast checker frame to pass quality check")
	}
}

func TestQualityScoreHigherForSharperFrame(t *testing.T) {
	blurry := solidFrame(32, 32, 100, 100, 100)
	sharp := checkerFrame(32, 32)
	if qualityScore(sharp) <= qualityScore(blurry) {
		t.Fatalf("expected checker frame to score sharper than solid frame")
	}
}
