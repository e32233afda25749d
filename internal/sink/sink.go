package sink

import (
	"context"
	"log"
	"sync"

	"github.com/weaverun/weaverun/internal/metrics"
)

// queueCapacity and workerCount implement the bounded queue / small worker
// pool from §4.8: slow sink I/O must never head-of-line-block fast calls,
// and the wire path must never block on enqueue.
const (
	queueCapacity = 1000
	workerCount   = 2
)

// Worker drains a bounded queue of Tasks with a small pool of goroutines,
// each submitting to Client and invoking the task's callback with whatever
// trace URL (if any) came back.
type Worker struct {
	client  Client
	queue   chan Task
	metrics *metrics.Registry

	wg       sync.WaitGroup
	dropOnce sync.Once
}

// NewWorker builds a Worker around client and starts its worker pool. reg may
// be nil, in which case dropped tasks are simply not counted (the Worker
// counts only drops; enqueued tasks are counted by the caller). Call
// Stop to drain and shut it down.
func NewWorker(client Client, reg *metrics.Registry) *Worker {
	w := &Worker{
		client:  client,
		queue:   make(chan Task, queueCapacity),
		metrics: reg,
	}
	for i := 0; i < workerCount; i++ {
		w.wg.Add(1)
		go w.run()
	}
	return w
}

// Enqueue submits t for background processing. If the queue is full, t is
// dropped and a single warning is logged per process — the wire path never
// blocks.
func (w *Worker) Enqueue(t Task) {
	select {
	case w.queue <- t:
	default:
		w.dropOnce.Do(func() {
			log.Printf("weaverun: sink queue full, dropping task")
		})
		if w.metrics != nil {
			w.metrics.SinkDropped.Inc()
		}
	}
}

// Depth reports the number of tasks currently queued, for metrics.
func (w *Worker) Depth() int {
	return len(w.queue)
}

func (w *Worker) run() {
	defer w.wg.Done()
	for t := range w.queue {
		w.process(t)
	}
}

func (w *Worker) process(t Task) {
	// Each task gets its own background context: tasks must outlive the
	// request that produced them, and the wire path never waits for this.
	traceURL, err := w.client.Submit(context.Background(), t)
	if err != nil {
		traceURL = ""
	}
	if t.OnTraceURL != nil {
		t.OnTraceURL(traceURL)
	}
}

// Stop closes the queue so workers drain whatever is buffered and exit, up
// to the given context's deadline. Tasks still unprocessed when ctx expires
// are abandoned without further waiting.
func (w *Worker) Stop(ctx context.Context) {
	close(w.queue)
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
