package bridge

import (
	"container/heap"
	"sync"
	"time"
)

// timerWheel replaces one goroutine-per-sensor with a single min-heap of
// (deadline, key) entries drained by one background goroutine — the
// redesign spec.md §9's "Timers" note asks for explicitly. Cancellation is
// a generation bump on the entry rather than a goroutine being killed: a
// popped entry whose generation no longer matches the live one is a stale
// fire and is silently dropped.
type timerWheel struct {
	mu    sync.Mutex
	items *entryHeap
	gen   map[SensorKey]uint64
	wake  chan struct{}
	stop  chan struct{}
	fire  func(SensorKey)
}

type wheelEntry struct {
	deadline time.Time
	key      SensorKey
	gen      uint64
	index    int
}

type entryHeap []*wheelEntry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index, h[j].index = i, j }
func (h *entryHeap) Push(x interface{}) {
	e := x.(*wheelEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

func newTimerWheel(fire func(SensorKey)) *timerWheel {
	w := &timerWheel{
		items: &entryHeap{},
		gen:   make(map[SensorKey]uint64),
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
		fire:  fire,
	}
	heap.Init(w.items)
	go w.run()
	return w
}

// Schedule cancels any pending timer for key and schedules a new one after
// d — the cancel-then-schedule atomicity spec.md §9 requires, implemented
// here as a generation bump rather than a map delete+re-add race.
func (w *timerWheel) Schedule(key SensorKey, d time.Duration) {
	w.mu.Lock()
	w.gen[key]++
	entry := &wheelEntry{deadline: time.Now().Add(d), key: key, gen: w.gen[key]}
	heap.Push(w.items, entry)
	w.mu.Unlock()
	w.nudge()
}

// Cancel invalidates any pending timer for key without scheduling a new one.
func (w *timerWheel) Cancel(key SensorKey) {
	w.mu.Lock()
	w.gen[key]++
	w.mu.Unlock()
}

// CancelAll invalidates every pending timer, used on shutdown.
func (w *timerWheel) CancelAll() {
	w.mu.Lock()
	for k := range w.gen {
		w.gen[k]++
	}
	w.mu.Unlock()
}

func (w *timerWheel) Close() {
	close(w.stop)
}

func (w *timerWheel) nudge() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *timerWheel) run() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		w.mu.Lock()
		var wait time.Duration
		if w.items.Len() == 0 {
			wait = time.Hour
		} else {
			wait = time.Until((*w.items)[0].deadline)
			if wait < 0 {
				wait = 0
			}
		}
		w.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-w.stop:
			return
		case <-w.wake:
			continue
		case <-timer.C:
			w.drainExpired()
		}
	}
}

func (w *timerWheel) drainExpired() {
	now := time.Now()
	var toFire []SensorKey
	w.mu.Lock()
	for w.items.Len() > 0 && !(*w.items)[0].deadline.After(now) {
		e := heap.Pop(w.items).(*wheelEntry)
		if w.gen[e.key] == e.gen {
			toFire = append(toFire, e.key)
		}
	}
	w.mu.Unlock()
	for _, k := range toFire {
		w.fire(k)
	}
}
