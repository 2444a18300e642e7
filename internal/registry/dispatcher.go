package registry

import (
	"context"
	"fmt"
	"log"
	"sync"

	"drawboard/internal/models"
)

/*
LEARNING: TWO-PHASE MUTATIONS

Every edit is applied to memory synchronously, then the durable write
is enqueued here. The worker pool keeps downstream latency (database,
audit sink) off the interactive path: a slow or failing write never
blocks the edit the user already saw happen, and never rolls it back.
*/

type jobKind int

const (
	jobAddObject jobKind = iota
	jobUpdateObject
	jobRemoveObject
	jobClearCanvas
	jobAudit
)

// persistJob is one queued downstream write.
type persistJob struct {
	kind     jobKind
	canvasID string
	objectID string
	object   *models.CanvasObject
	update   *models.ObjectUpdate
	event    *models.ActivityEvent
}

// dispatcher runs a fixed worker pool draining persistence and audit
// jobs. Submission never blocks: when the queue is full the job is
// dropped with a warning, which matches the fire-and-forget contract.
type dispatcher struct {
	store ObjectStore
	audit AuditLog

	jobs    chan persistJob
	workers int
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newDispatcher(store ObjectStore, audit AuditLog, workers, queueSize int) *dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &dispatcher{
		store:   store,
		audit:   audit,
		jobs:    make(chan persistJob, queueSize),
		workers: workers,
	}
}

// Start spawns the worker goroutines.
func (d *dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

func (d *dispatcher) worker(id int) {
	defer d.wg.Done()

	for job := range d.jobs {
		if err := d.process(job); err != nil {
			// Transient downstream failure: the in-memory state
			// already changed and stays changed.
			log.Printf("⚠️  Persist worker %d: %v", id, err)
		}
	}
}

// submit enqueues a job without blocking the caller. The closed check
// and the send happen under the same lock as Shutdown's close, so a
// late submission during teardown is dropped instead of panicking.
func (d *dispatcher) submit(job persistJob) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	select {
	case d.jobs <- job:
	default:
		log.Printf("⚠️  Persist queue full, dropping job for canvas %s", job.canvasID)
	}
}

func (d *dispatcher) submitStore(job persistJob) {
	if d.store == nil {
		return
	}
	d.submit(job)
}

func (d *dispatcher) submitAudit(event *models.ActivityEvent) {
	if d.audit == nil {
		return
	}
	d.submit(persistJob{kind: jobAudit, canvasID: event.CanvasID, event: event})
}

func (d *dispatcher) process(job persistJob) error {
	ctx := context.Background()

	switch job.kind {
	case jobAddObject:
		if err := d.store.AddObject(ctx, job.canvasID, job.object); err != nil {
			return fmt.Errorf("add object %s: %w", job.object.ID, err)
		}
	case jobUpdateObject:
		if err := d.store.UpdateObject(ctx, job.canvasID, job.objectID, job.update); err != nil {
			return fmt.Errorf("update object %s: %w", job.objectID, err)
		}
	case jobRemoveObject:
		if err := d.store.RemoveObject(ctx, job.canvasID, job.objectID); err != nil {
			return fmt.Errorf("remove object %s: %w", job.objectID, err)
		}
	case jobClearCanvas:
		if err := d.store.Clear(ctx, job.canvasID); err != nil {
			return fmt.Errorf("clear canvas %s: %w", job.canvasID, err)
		}
	case jobAudit:
		if err := d.audit.Record(ctx, job.event); err != nil {
			return fmt.Errorf("audit %s event: %w", job.event.Type, err)
		}
	}
	return nil
}

// Shutdown stops accepting jobs and waits for the workers to drain
// what was already queued. Safe to call more than once.
func (d *dispatcher) Shutdown() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}
