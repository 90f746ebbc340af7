package fanout

import (
	"context"

	"github.com/technosupport/surveillance-core/internal/surveillance/bridge"
	"github.com/technosupport/surveillance-core/internal/surveillance/model"
)

// runSensors triggers the smart-home sensors item #1 names: motion always,
// occupancy/vehicle/animal/package only when the smart detection type
// matches, and the doorbell press on a ring.
func (d *Deps) runSensors(_ context.Context, in Input) {
	if d.Bridge == nil {
		return
	}
	evt := in.Event
	cameraID := evt.CameraID.String()
	eventID := evt.EventID.String()

	d.Bridge.Trigger(cameraID, bridge.KindMotion, eventID)

	switch evt.SmartDetection {
	case model.DetectPerson:
		d.Bridge.Trigger(cameraID, bridge.KindOccupancy, eventID)
	case model.DetectVehicle:
		d.Bridge.Trigger(cameraID, bridge.KindVehicle, eventID)
	case model.DetectAnimal:
		d.Bridge.Trigger(cameraID, bridge.KindAnimal, eventID)
	case model.DetectPackage:
		carrier := ""
		if in.Stored.DeliveryCarrier != nil {
			carrier = *in.Stored.DeliveryCarrier
		}
		d.Bridge.TriggerCarrier(cameraID, eventID, carrier)
	case model.DetectRing:
		d.Bridge.TriggerDoorbell(cameraID, eventID)
	}
}
