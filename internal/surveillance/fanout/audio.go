package fanout

import (
	"context"

	"github.com/technosupport/surveillance-core/internal/surveillance/storage"
)

// runAudio persists the audio transcription produced earlier in the
// pipeline as a standalone object, when the camera has audio enabled and a
// transcription is already in hand — item #10. No new transcription work is
// kicked off here; the synchronous pipeline already produced the text, this
// stage only archives it alongside the thumbnail/clip objects.
func (d *Deps) runAudio(ctx context.Context, in Input) {
	if d.Storage == nil || in.Stored.AudioTranscription == nil || *in.Stored.AudioTranscription == "" {
		return
	}
	key := storage.TranscriptKey(in.Event.EventID)
	_, err := d.Storage.Put(ctx, key, []byte(*in.Stored.AudioTranscription), "text/plain; charset=utf-8")
	d.fail(catAudio, err)
}
