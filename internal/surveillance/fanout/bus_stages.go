package fanout

import (
	"context"

	"github.com/technosupport/surveillance-core/internal/surveillance/bus"
)

// runBusEvent publishes the full event payload — item #2. Skipped silently
// when the bus isn't connected, per spec.md's best-effort framing.
func (d *Deps) runBusEvent(_ context.Context, in Input) {
	if d.Bus == nil || !d.Bus.Connected() {
		return
	}
	thumbnailURL := ""
	if d.Storage != nil {
		thumbnailURL = in.Stored.ThumbnailPath
	}
	err := d.Bus.PublishEvent(in.Event.CameraID, bus.EventPayload{
		EventID:            in.Event.EventID,
		CameraID:           in.Event.CameraID,
		Timestamp:          in.Stored.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Description:        in.Stored.Description,
		SmartDetectionType: string(in.Stored.SmartDetectionType),
		ThumbnailURL:       thumbnailURL,
	})
	d.fail(catBusEvent, err)
}

// runBusStatus publishes the three status signals — item #3.
func (d *Deps) runBusStatus(_ context.Context, in Input) {
	if d.Bus == nil || !d.Bus.Connected() {
		return
	}
	last := bus.LastEventPayload{
		EventID:            in.Event.EventID,
		Timestamp:          in.Stored.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Description:        in.Stored.Description,
		SmartDetectionType: string(in.Stored.SmartDetectionType),
	}
	counts := bus.CountsPayload{EventsToday: in.EventsToday, EventsThisWeek: in.EventsThisWeek}
	err := d.Bus.PublishStatus(in.Event.CameraID, last.Timestamp, last, counts)
	d.fail(catBusStatus, err)
}
