package fanout

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/technosupport/surveillance-core/internal/metrics"
	"github.com/technosupport/surveillance-core/internal/surveillance/bridge"
	"github.com/technosupport/surveillance-core/internal/surveillance/bus"
	"github.com/technosupport/surveillance-core/internal/surveillance/model"
)

func testDeps() *Deps {
	return &Deps{Logger: log.New(io.Discard, "", 0)}
}

func testInput() Input {
	return Input{
		Event: &model.ProcessingEvent{
			EventID:        uuid.New(),
			CameraID:       uuid.New(),
			SmartDetection: model.DetectPerson,
		},
		Stored: &model.StoredEvent{
			Description: "a person walks by",
		},
	}
}

func TestRunSensorsTriggersMotionAndMatchingKind(t *testing.T) {
	b := bridge.New(bridge.DefaultConfig(), log.New(io.Discard, "", 0))
	defer b.Shutdown()
	d := testDeps()
	d.Bridge = b

	in := testInput()
	d.runSensors(context.Background(), in)

	require.True(t, b.IsActive(in.Event.CameraID.String(), bridge.KindMotion))
	require.True(t, b.IsActive(in.Event.CameraID.String(), bridge.KindOccupancy))
}

func TestRunSensorsNilBridgeIsNoop(t *testing.T) {
	d := testDeps()
	require.NotPanics(t, func() { d.runSensors(context.Background(), testInput()) })
}

type fakePublisher struct {
	connected bool
	published []string
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.published = append(f.published, topic)
	return nil
}
func (f *fakePublisher) Connected() bool { return f.connected }
func (f *fakePublisher) Close()          {}

func TestRunBusEventSkippedWhenDisconnected(t *testing.T) {
	pub := &fakePublisher{connected: false}
	d := testDeps()
	d.Bus = bus.New(pub, "argus", 0)

	d.runBusEvent(context.Background(), testInput())
	require.Empty(t, pub.published)
}

func TestRunBusEventPublishesWhenConnected(t *testing.T) {
	pub := &fakePublisher{connected: true}
	d := testDeps()
	d.Bus = bus.New(pub, "argus", 0)

	in := testInput()
	in.Stored.Timestamp = time.Now()
	d.runBusEvent(context.Background(), in)
	require.Len(t, pub.published, 1)
}

func TestRunBusStatusPublishesThreeTopics(t *testing.T) {
	pub := &fakePublisher{connected: true}
	d := testDeps()
	d.Bus = bus.New(pub, "argus", 0)

	d.runBusStatus(context.Background(), testInput())
	require.Len(t, pub.published, 3)
}

type fakeNotifier struct {
	calls []Notification
	err   error
}

func (f *fakeNotifier) Notify(ctx context.Context, n Notification) error {
	f.calls = append(f.calls, n)
	return f.err
}

func TestRunNotificationUsesCameraIDAsCollapseKey(t *testing.T) {
	n := &fakeNotifier{}
	d := testDeps()
	d.Notifier = n

	in := testInput()
	d.runNotification(context.Background(), in)

	require.Len(t, n.calls, 1)
	require.Equal(t, in.Event.CameraID.String(), n.calls[0].CollapseKey)
}

func TestRunNotificationFailureIncrementsCounter(t *testing.T) {
	n := &fakeNotifier{err: errors.New("network down")}
	d := testDeps()
	d.Notifier = n

	before := testutil.ToFloat64(metrics.FanoutFailuresTotal.WithLabelValues(catNotification))
	d.runNotification(context.Background(), testInput())
	after := testutil.ToFloat64(metrics.FanoutFailuresTotal.WithLabelValues(catNotification))
	require.Equal(t, before+1, after)
}

type fakeEmbeddingStore struct {
	stored map[uuid.UUID][]float32
}

func (f *fakeEmbeddingStore) StoreEventEmbedding(ctx context.Context, eventID uuid.UUID, embedding []float32) error {
	if f.stored == nil {
		f.stored = map[uuid.UUID][]float32{}
	}
	f.stored[eventID] = embedding
	return nil
}

func TestRunEmbeddingStoreSkipsWhenNoEmbedding(t *testing.T) {
	store := &fakeEmbeddingStore{}
	d := testDeps()
	d.Embeddings = store

	d.runEmbeddingStore(context.Background(), testInput())
	require.Empty(t, store.stored)
}

func TestRunEmbeddingStorePersistsWhenPresent(t *testing.T) {
	store := &fakeEmbeddingStore{}
	d := testDeps()
	d.Embeddings = store

	in := testInput()
	in.Embedding = []float32{0.1, 0.2, 0.3}
	d.runEmbeddingStore(context.Background(), in)
	require.Equal(t, in.Embedding, store.stored[in.Event.EventID])
}

type fakeRecognizer struct {
	faceIDs, vehicleIDs []uuid.UUID
	faceErr, vehErr     error
}

func (f *fakeRecognizer) RecognizeFaces(ctx context.Context, evt *model.ProcessingEvent) ([]uuid.UUID, error) {
	return f.faceIDs, f.faceErr
}
func (f *fakeRecognizer) RecognizeVehicle(ctx context.Context, evt *model.ProcessingEvent, description string) ([]uuid.UUID, error) {
	return f.vehicleIDs, f.vehErr
}

func TestRunRecognitionRespectsFeatureFlags(t *testing.T) {
	id := uuid.New()
	d := testDeps()
	d.Recognizer = &fakeRecognizer{faceIDs: []uuid.UUID{id}}
	d.Flags = Flags{FaceRecognitionEnabled: false}

	matched := d.runRecognition(context.Background(), testInput())
	require.Empty(t, matched, "recognition disabled by flag must not run")
}

func TestRunRecognitionRunsWhenFlagEnabledAndClassMatches(t *testing.T) {
	id := uuid.New()
	d := testDeps()
	d.Recognizer = &fakeRecognizer{faceIDs: []uuid.UUID{id}}
	d.Flags = Flags{FaceRecognitionEnabled: true}

	matched := d.runRecognition(context.Background(), testInput())
	require.Equal(t, []uuid.UUID{id}, matched)
}

type fakeNamer struct {
	names   map[uuid.UUID]string
	vip     map[uuid.UUID]bool
	blocked map[uuid.UUID]bool
}

func (f *fakeNamer) Describe(ctx context.Context, id uuid.UUID) (string, bool, bool, error) {
	return f.names[id], f.vip[id], f.blocked[id], nil
}

type fakePersister struct {
	calls []EnrichmentFields
}

func (f *fakePersister) UpdateEventEnrichment(ctx context.Context, eventID uuid.UUID, fields EnrichmentFields) error {
	f.calls = append(f.calls, fields)
	return nil
}

func TestRunEntityAlertUnknownWhenNoMatches(t *testing.T) {
	persist := &fakePersister{}
	d := testDeps()
	d.Namer = &fakeNamer{}
	d.Persist = persist

	d.runEntityAlert(context.Background(), testInput())
	require.Len(t, persist.calls, 1)
	require.Equal(t, model.RecognitionUnknown, *persist.calls[0].Recognition)
}

func TestRunEntityAlertPromotesVIPAndSuppressesBlocked(t *testing.T) {
	vipID, blockedID := uuid.New(), uuid.New()
	persist := &fakePersister{}
	d := testDeps()
	d.Recognizer = &fakeRecognizer{faceIDs: []uuid.UUID{vipID, blockedID}}
	d.Flags = Flags{FaceRecognitionEnabled: true}
	d.Namer = &fakeNamer{
		names:   map[uuid.UUID]string{vipID: "Alice", blockedID: "Evicted Tenant"},
		vip:     map[uuid.UUID]bool{vipID: true},
		blocked: map[uuid.UUID]bool{blockedID: true},
	}
	d.Persist = persist

	d.runEntityAlert(context.Background(), testInput())
	require.Len(t, persist.calls, 1)
	fields := persist.calls[0]
	require.Equal(t, model.RecognitionKnown, *fields.Recognition)
	require.True(t, *fields.Priority)
	require.Contains(t, *fields.Description, "Alice")
	require.NotContains(t, *fields.Description, "Evicted Tenant")
}

func TestRunAudioSkipsWithoutTranscription(t *testing.T) {
	d := testDeps()
	d.Storage = nil
	require.NotPanics(t, func() { d.runAudio(context.Background(), testInput()) })
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	d := testDeps()
	require.NotPanics(t, func() {
		d.dispatch("test_panic", func(ctx context.Context) { panic("boom") })
	})
}
