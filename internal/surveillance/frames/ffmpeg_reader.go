package frames

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegReader decodes a clip by shelling out to ffmpeg/ffprobe, the
// subprocess-boundary idiom described in frames.go's package doc. It never
// links a decoding library directly.
type FFmpegReader struct {
	FFmpegPath  string // defaults to "ffmpeg"
	FFprobePath string // defaults to "ffprobe"
}

var _ ClipReader = (*FFmpegReader)(nil)

func (r *FFmpegReader) ffmpegBin() string {
	if r.FFmpegPath != "" {
		return r.FFmpegPath
	}
	return "ffmpeg"
}

func (r *FFmpegReader) ffprobeBin() string {
	if r.FFprobePath != "" {
		return r.FFprobePath
	}
	return "ffprobe"
}

// Frames decodes the entire clip to an MJPEG stream on stdout and reads
// frames off it sequentially, pairing each with its decode-order index.
func (r *FFmpegReader) Frames(ctx context.Context, path string) ([]RawFrame, float64, error) {
	fps, err := r.probeFPS(ctx, path)
	if err != nil {
		fps = 30.0
	}

	cmd := exec.CommandContext(ctx, r.ffmpegBin(),
		"-i", path,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "2",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, 0, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, 0, fmt.Errorf("ffmpeg start: %w", err)
	}

	var frames []RawFrame
	reader := bufio.NewReaderSize(stdout, 1<<20)
	for idx := 0; ; idx++ {
		img, err := jpeg.Decode(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		frames = append(frames, toRawFrame(idx, img))
	}
	_ = cmd.Wait()

	if len(frames) == 0 {
		return nil, fps, fmt.Errorf("no frames decoded from %s", path)
	}
	return frames, fps, nil
}

func toRawFrame(idx int, img image.Image) RawFrame {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			rgba.Set(x, y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return RawFrame{Index: idx, RGBA: rgba.Pix, W: w, H: h}
}

func (r *FFmpegReader) probeFPS(ctx context.Context, path string) (float64, error) {
	out, err := exec.CommandContext(ctx, r.ffprobeBin(),
		"-v", "0",
		"-select_streams", "v:0",
		"-show_entries", "stream=r_frame_rate",
		"-of", "csv=p=0",
		path,
	).Output()
	if err != nil {
		return 0, err
	}
	return parseRate(strings.TrimSpace(string(out)))
}

func parseRate(s string) (float64, error) {
	parts := strings.SplitN(s, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, err
	}
	if len(parts) == 1 {
		return num, nil
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0, fmt.Errorf("malformed frame rate %q", s)
	}
	return num / den, nil
}
