package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.MotionReset = 30 * time.Millisecond
	cfg.OccupancyReset = 30 * time.Millisecond
	cfg.VehicleReset = 30 * time.Millisecond
	cfg.AnimalReset = 30 * time.Millisecond
	cfg.PackageReset = 30 * time.Millisecond
	return cfg
}

func TestTriggerActivatesSensor(t *testing.T) {
	b := New(fastConfig(), nil)
	defer b.Shutdown()

	b.Trigger("cam-1", KindMotion, "evt-1")
	require.True(t, b.IsActive("cam-1", KindMotion))
}

func TestTriggerAutoResetsAfterDuration(t *testing.T) {
	b := New(fastConfig(), nil)
	defer b.Shutdown()

	b.Trigger("cam-1", KindMotion, "evt-1")
	require.Eventually(t, func() bool {
		return !b.IsActive("cam-1", KindMotion)
	}, time.Second, 5*time.Millisecond)
}

func TestTriggerReschedulesOnRepeatedCalls(t *testing.T) {
	b := New(fastConfig(), nil)
	defer b.Shutdown()

	b.Trigger("cam-1", KindMotion, "evt-1")
	time.Sleep(15 * time.Millisecond)
	b.Trigger("cam-1", KindMotion, "evt-2") // should push the reset out again
	time.Sleep(20 * time.Millisecond)
	require.True(t, b.IsActive("cam-1", KindMotion), "second trigger should have rescheduled the reset")
}

func TestTriggerForceClearsAfterMaxDurationInsteadOfReArming(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxMotion = 20 * time.Millisecond
	b := New(cfg, nil)
	defer b.Shutdown()

	b.Trigger("cam-1", KindMotion, "evt-1")
	time.Sleep(25 * time.Millisecond)

	ok := b.Trigger("cam-1", KindMotion, "evt-2")
	require.False(t, ok, "trigger past max duration should force-clear, not re-arm")
	require.False(t, b.IsActive("cam-1", KindMotion), "sensor should be inactive immediately, not after another reset window")
}

func TestClearCancelsPendingResetAndDeactivates(t *testing.T) {
	b := New(fastConfig(), nil)
	defer b.Shutdown()

	b.Trigger("cam-1", KindOccupancy, "evt-1")
	b.Clear("cam-1", KindOccupancy)
	require.False(t, b.IsActive("cam-1", KindOccupancy))
}

func TestRegisterCameraMappingResolvesMAC(t *testing.T) {
	b := New(fastConfig(), nil)
	defer b.Shutdown()

	b.RegisterCameraMapping("cam-1", "AA:BB:CC:DD:EE:FF")
	b.Trigger("aabbccddeeff", KindMotion, "evt-1")
	require.True(t, b.IsActive("cam-1", KindMotion))
}

func TestTriggerCarrierFiresBothGenericAndCarrierSensorWhenEnabled(t *testing.T) {
	cfg := fastConfig()
	cfg.PerCarrierSensors = true
	b := New(cfg, nil)
	defer b.Shutdown()

	pkg, carrier := b.TriggerCarrier("cam-1", "evt-1", "fedex")
	require.True(t, pkg)
	require.True(t, carrier)
}

func TestTriggerCarrierSkipsCarrierSensorWhenDisabled(t *testing.T) {
	b := New(fastConfig(), nil)
	defer b.Shutdown()

	pkg, carrier := b.TriggerCarrier("cam-1", "evt-1", "fedex")
	require.True(t, pkg)
	require.False(t, carrier)
}

func TestShutdownClearsAllSensors(t *testing.T) {
	b := New(fastConfig(), nil)
	b.Trigger("cam-1", KindMotion, "evt-1")
	b.Trigger("cam-2", KindOccupancy, "evt-2")
	b.Shutdown()
	require.False(t, b.IsActive("cam-1", KindMotion))
	require.False(t, b.IsActive("cam-2", KindOccupancy))
}

func TestStatusCountsActiveSensors(t *testing.T) {
	b := New(fastConfig(), nil)
	defer b.Shutdown()
	b.Trigger("cam-1", KindMotion, "evt-1")
	b.Trigger("cam-2", KindOccupancy, "evt-2")
	status := b.Status()
	require.Equal(t, 2, status.ActiveSensors)
}
