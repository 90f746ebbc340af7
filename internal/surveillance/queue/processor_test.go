package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/surveillance-core/internal/surveillance/model"
)

type countingHandler struct {
	mu        sync.Mutex
	processed []uuid.UUID
	delay     time.Duration
	fail      bool
}

func (h *countingHandler) Process(ctx context.Context, evt *model.ProcessingEvent) error {
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	h.processed = append(h.processed, evt.EventID)
	h.mu.Unlock()
	if h.fail {
		return model.NewError(model.KindPersistence, context.DeadlineExceeded)
	}
	return nil
}

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.processed)
}

func newEvent(camera uuid.UUID) *model.ProcessingEvent {
	return &model.ProcessingEvent{
		EventID:    uuid.New(),
		CameraID:   camera,
		EnqueuedAt: time.Now(),
	}
}

func TestQueueOverflowDropsOldest(t *testing.T) {
	h := &countingHandler{delay: time.Hour} // never actually drains during this test
	p := New(Config{Capacity: 50, WorkerCount: 2}, h)

	var first3 []uuid.UUID
	for i := 0; i < 53; i++ {
		evt := newEvent(uuid.New())
		if i < 3 {
			first3 = append(first3, evt.EventID)
		}
		p.Enqueue(evt)
	}

	p.mu.Lock()
	require.Len(t, p.items, 50)
	remainingIDs := map[uuid.UUID]bool{}
	for _, it := range p.items {
		remainingIDs[it.EventID] = true
	}
	p.mu.Unlock()

	require.EqualValues(t, 3, p.droppedOverflow.Load())
	for _, id := range first3 {
		require.False(t, remainingIDs[id], "oldest events should have been dropped")
	}
}

func TestWorkerCountClampedToRange(t *testing.T) {
	p := New(Config{WorkerCount: 100}, &countingHandler{})
	require.Equal(t, maxWorkerCount, p.cfg.WorkerCount)

	p2 := New(Config{WorkerCount: 1}, &countingHandler{})
	require.Equal(t, minWorkerCount, p2.cfg.WorkerCount)
}

func TestGracefulShutdownDrainsQueue(t *testing.T) {
	h := &countingHandler{}
	p := New(Config{Capacity: 50, WorkerCount: 3}, h)
	p.Start()

	for i := 0; i < 20; i++ {
		p.Enqueue(newEvent(uuid.New()))
	}

	p.Stop(5 * time.Second)

	require.Equal(t, 20, h.count())
	m := p.Metrics()
	require.EqualValues(t, 0, m.Depth)
	require.EqualValues(t, 20, m.Success)
}

func TestCooldownDedupesWithinWindow(t *testing.T) {
	h := &countingHandler{}
	p := New(Config{Capacity: 50, WorkerCount: 2}, h)
	cam := uuid.New()

	base := time.Now()
	var accepted int32
	for _, offset := range []time.Duration{0, 10 * time.Second, 70 * time.Second} {
		evt := newEvent(cam)
		ok := p.cooldown.Allow(cam, 60*time.Second, base.Add(offset))
		if ok {
			atomic.AddInt32(&accepted, 1)
			p.Enqueue(evt)
		}
	}

	require.EqualValues(t, 2, accepted)
}
