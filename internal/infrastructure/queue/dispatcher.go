package queue

import (
	"context"
	"hash/fnv"

	"github.com/rs/zerolog"

	"github.com/ministry-digital/portal-api/internal/api/metrics"
	"github.com/ministry-digital/portal-api/internal/core/domain"
	"github.com/ministry-digital/portal-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher fans audit events out to a fixed set of workers, sharded by
// actor so one actor's events are recorded in order. Submission never
// blocks: when a worker's buffer is full the event is dropped and counted,
// because audit recording is best-effort and must not stall requests.
type Dispatcher struct {
	workers  []chan domain.AuditEvent
	recorder ports.AuditRecorder
	log      zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, recorder ports.AuditRecorder, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan domain.AuditEvent, numWorkers),
		recorder: recorder,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuditEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Submit enqueues an event for the worker responsible for its actor.
func (d *Dispatcher) Submit(event domain.AuditEvent) {
	select {
	case d.workers[d.shardIndex(event.Actor)] <- event:
	default:
		metrics.AuditEventsDroppedTotal.Inc()
		d.log.Warn().
			Str("type", string(event.Type)).
			Msg("audit queue full, event dropped")
	}
}

// shardIndex maps an actor deterministically to a worker index.
func (d *Dispatcher) shardIndex(actor string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(actor))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuditEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := d.recorder.Record(ctx, event); err != nil {
				d.log.Error().Err(err).
					Str("type", string(event.Type)).
					Int("worker_id", id).
					Msg("audit event recording failed")
			}
		}
	}
}
