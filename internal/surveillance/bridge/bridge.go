package bridge

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// Config carries the per-sensor reset durations and optional features.
type Config struct {
	MotionReset    time.Duration
	MaxMotion      time.Duration
	OccupancyReset time.Duration
	MaxOccupancy   time.Duration
	VehicleReset   time.Duration
	AnimalReset    time.Duration
	PackageReset   time.Duration
	PerCarrierSensors bool
	BridgeName     string
	Port           int
}

func DefaultConfig() Config {
	return Config{
		MotionReset:       DefaultMotionReset,
		MaxMotion:         DefaultMaxMotion,
		OccupancyReset:    DefaultOccupancyReset,
		MaxOccupancy:      DefaultMaxOccupancy,
		VehicleReset:      DefaultVehicleReset,
		AnimalReset:       DefaultAnimalReset,
		PackageReset:      DefaultPackageReset,
		PerCarrierSensors: false,
		BridgeName:        "ArgusAI",
		Port:              51826,
	}
}

// Bridge is the process-local smart-home accessory bridge: a map of boolean
// sensor states with cancel-then-schedule auto-reset timers, backed by a
// single timerWheel instead of one goroutine per sensor.
type Bridge struct {
	cfg    Config
	logger *log.Logger

	mu      sync.Mutex
	states  map[SensorKey]*SensorState
	macToID map[string]string // normalized MAC -> camera id

	wheel *timerWheel

	recentLogs []string

	// Hub, when set, receives a SensorEvent on every trigger/clear so an
	// ops console connected over WebSocket sees sensor state live instead
	// of polling Status()/Diagnostics().
	Hub *DiagnosticsHub
}

func New(cfg Config, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.Default()
	}
	b := &Bridge{
		cfg:     cfg,
		logger:  logger,
		states:  make(map[SensorKey]*SensorState),
		macToID: make(map[string]string),
	}
	b.wheel = newTimerWheel(b.onExpire)
	return b
}

// RegisterCameraMapping lets Protect-sourced events that address a camera
// by MAC resolve to the internal camera id.
func (b *Bridge) RegisterCameraMapping(cameraID, mac string) {
	if mac == "" {
		return
	}
	normalized := strings.ToLower(strings.NewReplacer(":", "", "-", "").Replace(mac))
	b.mu.Lock()
	b.macToID[normalized] = cameraID
	b.macToID[mac] = cameraID
	b.mu.Unlock()
}

func (b *Bridge) resolve(cameraID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id, ok := b.macToID[cameraID]; ok {
		return id
	}
	normalized := strings.ToLower(strings.NewReplacer(":", "", "-", "").Replace(cameraID))
	if id, ok := b.macToID[normalized]; ok {
		return id
	}
	return cameraID
}

func (b *Bridge) resetDuration(kind Kind) time.Duration {
	switch kind {
	case KindMotion:
		return b.cfg.MotionReset
	case KindOccupancy:
		return b.cfg.OccupancyReset
	case KindVehicle:
		return b.cfg.VehicleReset
	case KindAnimal:
		return b.cfg.AnimalReset
	case KindPackage, KindCarrier:
		return b.cfg.PackageReset
	default:
		return 60 * time.Second
	}
}

func (b *Bridge) maxDuration(kind Kind) time.Duration {
	switch kind {
	case KindMotion:
		return b.cfg.MaxMotion
	case KindOccupancy:
		return b.cfg.MaxOccupancy
	default:
		return 0 // no forced clear for vehicle/animal/package/carrier
	}
}

// Trigger sets a boolean sensor active, canceling any pending reset and
// scheduling a new one — cancel-then-schedule is atomic under b.mu.
// A sensor held active longer than its configured max duration (motion,
// occupancy) is force-cleared instead of extended.
func (b *Bridge) Trigger(cameraID string, kind Kind, eventID string) bool {
	return b.trigger(SensorKey{CameraID: b.resolve(cameraID), Kind: kind}, eventID)
}

// TriggerCarrier triggers the generic package sensor and, when per-carrier
// sensors are enabled, the carrier-specific sensor alongside it.
func (b *Bridge) TriggerCarrier(cameraID, eventID, carrier string) (packageTriggered, carrierTriggered bool) {
	resolved := b.resolve(cameraID)
	packageTriggered = b.trigger(SensorKey{CameraID: resolved, Kind: KindPackage}, eventID)
	if b.cfg.PerCarrierSensors && carrier != "" {
		carrierTriggered = b.trigger(SensorKey{CameraID: resolved, Kind: KindCarrier, Carrier: strings.ToLower(carrier)}, eventID)
	}
	return packageTriggered, carrierTriggered
}

// trigger sets the sensor active and (re)schedules its reset timer, unless
// it has been continuously active longer than its configured max duration
// (motion, occupancy), in which case it is force-cleared instead: no new
// timer is scheduled and the sensor reports inactive, mirroring the
// original _clear_motion_state's early return rather than re-arming a
// fresh max-duration window forever under continuous triggering.
func (b *Bridge) trigger(key SensorKey, eventID string) bool {
	now := time.Now()
	b.mu.Lock()
	state, ok := b.states[key]
	if !ok {
		state = &SensorState{}
		b.states[key] = state
	}
	if state.Active {
		if max := b.maxDuration(key.Kind); max > 0 && now.Sub(state.StartedAt) > max {
			state.Active = false
			state.EventID = ""
			b.mu.Unlock()
			b.wheel.Cancel(key)
			b.logger.Printf("[WARN] Bridge: force-clearing %s sensor for %s after exceeding max duration", key.Kind, key.CameraID)
			b.broadcast(key, false, "")
			return false
		}
	} else {
		state.StartedAt = now
	}
	state.Active = true
	state.EventID = eventID
	b.mu.Unlock()

	b.wheel.Schedule(key, b.resetDuration(key.Kind))
	b.broadcast(key, true, eventID)
	return true
}

func (b *Bridge) broadcast(key SensorKey, active bool, eventID string) {
	if b.Hub == nil {
		return
	}
	b.Hub.Broadcast(SensorEvent{
		CameraID:  key.CameraID,
		Kind:      key.Kind,
		Carrier:   key.Carrier,
		Active:    active,
		EventID:   eventID,
		Timestamp: time.Now(),
	})
}

// TriggerDoorbell fires a stateless press — never auto-resets.
func (b *Bridge) TriggerDoorbell(cameraID, eventID string) {
	resolved := b.resolve(cameraID)
	b.logger.Printf("[INFO] Bridge: doorbell press for camera %s (event %s)", resolved, eventID)
}

// Clear force-clears a sensor and cancels its pending reset.
func (b *Bridge) Clear(cameraID string, kind Kind) {
	key := SensorKey{CameraID: b.resolve(cameraID), Kind: kind}
	b.wheel.Cancel(key)
	b.onExpire(key)
}

func (b *Bridge) onExpire(key SensorKey) {
	b.mu.Lock()
	if state, ok := b.states[key]; ok {
		state.Active = false
		state.EventID = ""
	}
	b.mu.Unlock()
	b.broadcast(key, false, "")
}

// IsActive reports the current boolean value of a sensor.
func (b *Bridge) IsActive(cameraID string, kind Kind) bool {
	key := SensorKey{CameraID: b.resolve(cameraID), Kind: kind}
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.states[key]
	return ok && state.Active
}

// Shutdown cancels all pending timers and clears every sensor state — the
// two-phase graceful-shutdown contract's bridge-side half.
func (b *Bridge) Shutdown() {
	b.wheel.CancelAll()
	b.wheel.Close()
	b.mu.Lock()
	for _, s := range b.states {
		s.Active = false
		s.EventID = ""
	}
	b.mu.Unlock()
}

// Status is a snapshot of active sensors, for the diagnostics endpoint.
type Status struct {
	BridgeName    string
	Port          int
	ActiveSensors int
}

func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	active := 0
	for _, s := range b.states {
		if s.Active {
			active++
		}
	}
	return Status{BridgeName: b.cfg.BridgeName, Port: b.cfg.Port, ActiveSensors: active}
}

func (b *Bridge) logRecent(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recentLogs = append(b.recentLogs, fmt.Sprintf("%s %s", time.Now().Format(time.RFC3339), line))
	if len(b.recentLogs) > 50 {
		b.recentLogs = b.recentLogs[len(b.recentLogs)-50:]
	}
}
