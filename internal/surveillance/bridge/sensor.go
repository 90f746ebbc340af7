// Package bridge exposes cameras as typed sensors on a process-local
// smart-home accessory bridge: boolean motion/occupancy/vehicle/animal/
// package sensors with auto-reset timers, per-carrier package sensors, and
// a stateless doorbell press — the sensor-fan-out half of
// original_source/homekit_service.py.
package bridge

import "time"

// Kind enumerates the sensor types a camera can expose.
type Kind string

const (
	KindMotion    Kind = "motion"
	KindOccupancy Kind = "occupancy"
	KindVehicle   Kind = "vehicle"
	KindAnimal    Kind = "animal"
	KindPackage   Kind = "package"
	KindCarrier   Kind = "carrier" // keyed "{cameraID}:{carrier}"
	KindDoorbell  Kind = "doorbell"
)

// Default auto-reset durations, per spec.md §4.7.
const (
	DefaultMotionReset    = 30 * time.Second
	DefaultMaxMotion      = 10 * time.Minute
	DefaultOccupancyReset = 5 * time.Minute
	DefaultMaxOccupancy   = 30 * time.Minute
	DefaultVehicleReset   = 60 * time.Second
	DefaultAnimalReset    = 60 * time.Second
	DefaultPackageReset   = 60 * time.Second
)

// Carriers recognized for per-carrier package sensors.
var Carriers = []string{"fedex", "ups", "usps", "amazon", "dhl"}

// SensorKey addresses one boolean sensor on one camera (or, for carrier
// sensors, one camera+carrier pair).
type SensorKey struct {
	CameraID string
	Kind     Kind
	Carrier  string // only set when Kind == KindCarrier
}

// SensorState is the boolean value plus bookkeeping for a single sensor.
type SensorState struct {
	Active    bool
	StartedAt time.Time
	EventID   string
}
