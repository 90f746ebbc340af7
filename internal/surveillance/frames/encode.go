package frames

import (
	"bytes"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// toImage wraps a raw RGBA buffer as a standard library image.Image.
func toImage(f RawFrame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.W, f.H))
	copy(img.Pix, f.RGBA)
	return img
}

// encodeJPEG resizes an image to maxWidth (maintaining aspect ratio, no-op
// if already narrower) using Catmull-Rom resampling, then JPEG-encodes at
// the given quality — original_source/frame_extractor.py's _encode_frame /
// encode_frame_for_storage, using golang.org/x/image/draw in place of PIL's
// LANCZOS resize.
func encodeJPEG(img image.Image, maxWidth, quality int) ([]byte, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxWidth {
		ratio := float64(maxWidth) / float64(w)
		newW := maxWidth
		newH := int(float64(h) * ratio)
		dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeForInference is the 1280px-longest-side JPEG@85 output fed to AI
// providers.
func encodeForInference(f RawFrame) ([]byte, error) {
	return encodeJPEG(toImage(f), MaxWidthInference, JPEGQualityInference)
}

// encodeThumbnail re-encodes an already-JPEG frame as a 320px-wide JPEG@70
// thumbnail for database/object storage.
func encodeThumbnail(jpegBytes []byte) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(jpegBytes))
	if err != nil {
		return nil, err
	}
	return encodeJPEG(img, MaxWidthThumbnail, JPEGQualityThumbnail)
}
