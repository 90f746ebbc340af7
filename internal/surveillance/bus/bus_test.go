package bus

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	connected bool
	published []published
	failNext  bool
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if f.failNext {
		f.failNext = false
		return assertErr
	}
	f.published = append(f.published, published{topic, qos, retained, payload})
	return nil
}

func (f *fakePublisher) Connected() bool { return f.connected }
func (f *fakePublisher) Close()          {}

var assertErr = errString("publish failed")

type errString string

func (e errString) Error() string { return string(e) }

func TestBuildTopicsLayout(t *testing.T) {
	id := uuid.New()
	topics := BuildTopics("argus", id)
	require.Equal(t, "argus/camera/"+id.String()+"/event", topics.Event)
	require.Equal(t, "argus/camera/"+id.String()+"/activity", topics.Activity)
	require.Equal(t, "argus/camera/"+id.String()+"/last_event", topics.LastEvent)
	require.Equal(t, "argus/camera/"+id.String()+"/counts", topics.Counts)
}

func TestPublishEventSkippedWhenNotConnected(t *testing.T) {
	pub := &fakePublisher{connected: false}
	b := New(pub, "argus", 0)
	err := b.PublishEvent(uuid.New(), EventPayload{Description: "test"})
	require.NoError(t, err)
	require.Empty(t, pub.published)
}

func TestPublishEventSendsWhenConnected(t *testing.T) {
	pub := &fakePublisher{connected: true}
	b := New(pub, "argus", 1)
	cam := uuid.New()
	err := b.PublishEvent(cam, EventPayload{Description: "motion detected"})
	require.NoError(t, err)
	require.Len(t, pub.published, 1)
	require.Equal(t, "argus/camera/"+cam.String()+"/event", pub.published[0].topic)
}

func TestPublishStatusSendsAllThreeSignals(t *testing.T) {
	pub := &fakePublisher{connected: true}
	b := New(pub, "argus", 0)
	cam := uuid.New()
	err := b.PublishStatus(cam, "2026-07-30T12:00:00Z", LastEventPayload{Description: "x"}, CountsPayload{EventsToday: 3})
	require.NoError(t, err)
	require.Len(t, pub.published, 3)
	require.Equal(t, "argus/camera/"+cam.String()+"/activity", pub.published[0].topic)
	require.Equal(t, "argus/camera/"+cam.String()+"/last_event", pub.published[1].topic)
	require.Equal(t, "argus/camera/"+cam.String()+"/counts", pub.published[2].topic)
}

func TestConnectedFalseWhenPublisherNil(t *testing.T) {
	b := New(nil, "argus", 0)
	require.False(t, b.Connected())
}
