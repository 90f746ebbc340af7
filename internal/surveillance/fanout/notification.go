package fanout

import "context"

// runNotification dispatches a push notification — item #4. collapse_key is
// the camera id, so a device never sees more than one pending notification
// per camera.
func (d *Deps) runNotification(ctx context.Context, in Input) {
	if d.Notifier == nil {
		return
	}
	thumbnailURL := ""
	if d.Storage != nil {
		thumbnailURL = in.Stored.ThumbnailPath
	}
	err := d.Notifier.Notify(ctx, Notification{
		CameraID:     in.Event.CameraID,
		EventID:      in.Event.EventID,
		Description:  in.Stored.Description,
		ThumbnailURL: thumbnailURL,
		CollapseKey:  in.Event.CameraID.String(),
		Priority:     in.Stored.PriorityNotification,
	})
	d.fail(catNotification, err)
}
