// Package queue implements the bounded event queue and worker pool that
// decouples camera ingestion from AI inference (spec.md §4.1), grounded on
// internal/health/scheduler.go's ticker+worker-pool shape and
// internal/nvr/event_poller.go's semaphore-bounded fan-out and
// success/failure state recording.
package queue

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/technosupport/surveillance-core/internal/surveillance/model"
)

const (
	defaultCapacity    = 50
	defaultWorkerCount = 2
	minWorkerCount     = 2
	maxWorkerCount     = 5
	pullTimeout        = 1 * time.Second
)

// Handler runs the full pipeline for one event to completion.
type Handler interface {
	Process(ctx context.Context, evt *model.ProcessingEvent) error
}

// Config controls the processor's capacity and concurrency.
type Config struct {
	Capacity    int
	WorkerCount int
}

// CooldownGate is the per-camera cooldown gate EnqueueWithCooldown consults.
// *Cooldown is the default, process-local implementation; RedisCooldown
// (cooldown_redis.go) satisfies the same interface for multi-instance
// deployments that need a cooldown window shared across processes.
type CooldownGate interface {
	Allow(cameraID uuid.UUID, cooldown time.Duration, now time.Time) bool
	Stop()
}

// Processor is the bounded FIFO + fixed worker pool described in spec.md §4.1.
type Processor struct {
	cfg      Config
	handler  Handler
	cooldown CooldownGate

	mu    sync.Mutex
	items []*model.ProcessingEvent

	notify chan struct{}

	stopCh    chan struct{}
	wg        sync.WaitGroup
	draining  atomic.Bool

	// Metrics
	depth            atomic.Int64
	successCount     atomic.Int64
	failureCount     atomic.Int64
	droppedOverflow  atomic.Int64
	workerExceptions atomic.Int64
	durations        *durationWindow

	errMu     sync.Mutex
	errCounts map[model.ErrorKind]int64
}

// New constructs a Processor, clamping WorkerCount into [2,5] and logging a
// warning if the configured value was out of range — the same
// clamp-and-warn idiom as NewNVRPoller defaulting MaxInflight.
func New(cfg Config, handler Handler) *Processor {
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultCapacity
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = defaultWorkerCount
	} else if cfg.WorkerCount < minWorkerCount || cfg.WorkerCount > maxWorkerCount {
		log.Printf("[WARN] queue: EVENT_WORKER_COUNT=%d out of range [%d,%d], clamping",
			cfg.WorkerCount, minWorkerCount, maxWorkerCount)
		if cfg.WorkerCount < minWorkerCount {
			cfg.WorkerCount = minWorkerCount
		} else {
			cfg.WorkerCount = maxWorkerCount
		}
	}
	return &Processor{
		cfg:       cfg,
		handler:   handler,
		cooldown:  NewCooldown(),
		items:     make([]*model.ProcessingEvent, 0, cfg.Capacity),
		notify:    make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		durations: newDurationWindow(1000),
		errCounts: make(map[model.ErrorKind]int64),
	}
}

// SetCooldown replaces the default process-local cooldown gate — used to
// install RedisCooldown when a multi-instance deployment is configured.
// Must be called before the processor starts accepting EnqueueWithCooldown
// calls from more than one goroutine; it stops the gate being replaced.
func (p *Processor) SetCooldown(gate CooldownGate) {
	p.cooldown.Stop()
	p.cooldown = gate
}

// Enqueue adds an event to the bounded FIFO. On overflow, the oldest event
// is dropped (logged), the overflow counter is incremented, and the new
// event is enqueued.
func (p *Processor) Enqueue(evt *model.ProcessingEvent) {
	if p.draining.Load() {
		return
	}
	p.mu.Lock()
	if len(p.items) >= p.cfg.Capacity {
		dropped := p.items[0]
		p.items = p.items[1:]
		p.droppedOverflow.Add(1)
		log.Printf("[WARN] queue: overflow, dropping oldest event camera=%s enqueued_at=%s; incoming camera=%s",
			dropped.CameraID, dropped.EnqueuedAt, evt.CameraID)
	}
	p.items = append(p.items, evt)
	p.depth.Store(int64(len(p.items)))
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// EnqueueWithCooldown applies the per-camera cooldown gate at enqueue time
// (spec.md §4.1) before calling Enqueue.
func (p *Processor) EnqueueWithCooldown(evt *model.ProcessingEvent, cooldown time.Duration) bool {
	if !p.cooldown.Allow(evt.CameraID, cooldown, time.Now()) {
		return false
	}
	p.Enqueue(evt)
	return true
}

func (p *Processor) pull() *model.ProcessingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.items) == 0 {
		return nil
	}
	evt := p.items[0]
	p.items = p.items[1:]
	p.depth.Store(int64(len(p.items)))
	return evt
}

// Start spawns the configured number of workers.
func (p *Processor) Start() {
	for i := 0; i < p.cfg.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *Processor) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case <-p.notify:
		case <-time.After(pullTimeout):
		}

		for {
			evt := p.pull()
			if evt == nil {
				break
			}
			p.runOne(id, evt)

			select {
			case <-p.stopCh:
				return
			default:
			}
		}
	}
}

func (p *Processor) runOne(workerID int, evt *model.ProcessingEvent) {
	defer func() {
		if r := recover(); r != nil {
			p.workerExceptions.Add(1)
			log.Printf("[ERROR] queue: worker %d panic processing event camera=%s: %v", workerID, evt.CameraID, r)
			time.Sleep(1 * time.Second)
		}
	}()

	start := time.Now()
	ctx := context.Background()
	err := p.handler.Process(ctx, evt)
	p.durations.Add(time.Since(start))

	if err != nil {
		p.failureCount.Add(1)
		kind, ok := model.KindOf(err)
		if !ok {
			kind = model.KindPersistence
		}
		p.errMu.Lock()
		p.errCounts[kind]++
		p.errMu.Unlock()
		log.Printf("[ERROR] queue: worker %d event camera=%s failed: %v", workerID, evt.CameraID, err)
		return
	}
	p.successCount.Add(1)
}

// Stop performs the two-phase graceful shutdown: stop accepting new
// events, then let workers drain up to timeout before cancelling them.
func (p *Processor) Stop(timeout time.Duration) {
	p.draining.Store(true)

	done := make(chan struct{})
	go func() {
		for {
			p.mu.Lock()
			remaining := len(p.items)
			p.mu.Unlock()
			if remaining == 0 {
				close(done)
				return
			}
			time.Sleep(25 * time.Millisecond)
		}
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		log.Printf("[WARN] queue: stop timeout after %s, remaining=%d", timeout, p.depth.Load())
	}

	close(p.stopCh)
	p.wg.Wait()
	p.cooldown.Stop()
}

// Snapshot is a point-in-time view of processor metrics.
type Snapshot struct {
	Depth            int64
	Success          int64
	Failure          int64
	DroppedOverflow  int64
	WorkerExceptions int64
	P50, P95, P99    time.Duration
	ErrorsByKind     map[model.ErrorKind]int64
}

// Metrics returns the current metrics snapshot.
func (p *Processor) Metrics() Snapshot {
	p50, p95, p99 := p.durations.Quantiles()
	p.errMu.Lock()
	errs := make(map[model.ErrorKind]int64, len(p.errCounts))
	for k, v := range p.errCounts {
		errs[k] = v
	}
	p.errMu.Unlock()
	return Snapshot{
		Depth:            p.depth.Load(),
		Success:          p.successCount.Load(),
		Failure:          p.failureCount.Load(),
		DroppedOverflow:  p.droppedOverflow.Load(),
		WorkerExceptions: p.workerExceptions.Load(),
		P50:              p50,
		P95:              p95,
		P99:              p99,
		ErrorsByKind:     errs,
	}
}
