// services/hal/internal/worker/measure_worker.go
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"barocode-go/errcode"
	"barocode-go/services/hal/internal/halcore"
	"barocode-go/services/hal/internal/util"
)

// MeasureWorker runs the split-phase cycle for every adaptor on one bus.
// Trigger and Collect run on its goroutine while holding the bus lock; other
// callers that talk to a device on the same bus must hold that lock too.
type MeasureWorker struct {
	cfg  halcore.WorkerConfig
	reqQ chan halcore.MeasureReq
	sink chan<- halcore.Result // fan-in sink owned by service
	lock sync.Locker           // nil when the bus has no other users

	pending  map[string]*collectItem
	want     map[string]bool // read_now arrived while a cycle was in flight
	collects []*collectItem
	timer    *time.Timer
}

type collectItem struct {
	id      string
	adaptor halcore.Adaptor
	due     time.Time
	retries int
}

func New(cfg halcore.WorkerConfig, sink chan<- halcore.Result) *MeasureWorker {
	if cfg.TriggerTimeout <= 0 {
		cfg.TriggerTimeout = 100 * time.Millisecond
	}
	if cfg.CollectTimeout <= 0 {
		cfg.CollectTimeout = 250 * time.Millisecond
	}
	if cfg.RetryBackoff <= 0 {
		// One conversion at the 1 Hz output data rate.
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 15
	}
	if cfg.InputQueueSize <= 0 {
		cfg.InputQueueSize = 8
	}
	return &MeasureWorker{
		cfg:     cfg,
		reqQ:    make(chan halcore.MeasureReq, cfg.InputQueueSize),
		sink:    sink,
		pending: map[string]*collectItem{},
		want:    map[string]bool{},
		timer:   time.NewTimer(time.Hour),
	}
}

// Submit queues a request without blocking. Priority requests get a short
// grace period when the queue is full.
func (w *MeasureWorker) Submit(req halcore.MeasureReq) bool {
	select {
	case w.reqQ <- req:
		return true
	default:
		if req.Prio {
			select {
			case w.reqQ <- req:
				return true
			case <-time.After(5 * time.Millisecond):
			}
		}
		return false
	}
}

// WithBusLock sets the lock held around every adaptor call. Call before Start.
func (w *MeasureWorker) WithBusLock(l sync.Locker) *MeasureWorker {
	w.lock = l
	return w
}

func (w *MeasureWorker) Start(ctx context.Context) {
	if !w.timer.Stop() {
		util.DrainTimer(w.timer)
	}
	go w.loop(ctx)
}

func (w *MeasureWorker) loop(ctx context.Context) {
	for {
		if next := w.minDue(); next.IsZero() {
			util.ResetTimer(w.timer, time.Hour)
		} else {
			util.ResetTimer(w.timer, time.Until(next))
		}
		select {
		case <-ctx.Done():
			return
		case req := <-w.reqQ:
			if _, busy := w.pending[req.ID]; busy {
				if req.Prio {
					w.want[req.ID] = true
				}
				continue
			}
			it := &collectItem{id: req.ID, adaptor: req.Adaptor}
			if err := w.trigger(ctx, it); err != nil {
				w.emit(ctx, halcore.Result{ID: req.ID, Err: err})
				continue
			}
			w.pending[req.ID] = it
			w.collects = append(w.collects, it)
		case <-w.timer.C:
			w.collectDue(ctx)
		}
	}
}

func (w *MeasureWorker) trigger(ctx context.Context, it *collectItem) error {
	tctx, cancel := context.WithTimeout(ctx, w.cfg.TriggerTimeout)
	w.acquire()
	after, err := it.adaptor.Trigger(tctx)
	w.release()
	cancel()
	if err != nil {
		return err
	}
	it.retries = 0
	it.due = time.Now().Add(after)
	return nil
}

func (w *MeasureWorker) collectDue(ctx context.Context) {
	now := time.Now()
	var keep []*collectItem
	for _, it := range w.collects {
		if now.Before(it.due) {
			keep = append(keep, it)
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, w.cfg.CollectTimeout)
		w.acquire()
		s, err := it.adaptor.Collect(cctx)
		w.release()
		cancel()
		switch {
		case err == nil:
			delete(w.pending, it.id)
			delete(w.want, it.id)
			w.emit(ctx, halcore.Result{ID: it.id, Sample: s})
		case errors.Is(err, halcore.ErrNotReady) && it.retries < w.cfg.MaxRetries:
			it.retries++
			it.due = now.Add(w.cfg.RetryBackoff)
			keep = append(keep, it)
		default:
			if errors.Is(err, halcore.ErrNotReady) {
				err = &errcode.E{C: errcode.NotReady, Op: it.id, Msg: "retries exhausted", Err: err}
			}
			delete(w.pending, it.id)
			w.emit(ctx, halcore.Result{ID: it.id, Err: err})
			if w.want[it.id] {
				delete(w.want, it.id)
				if w.trigger(ctx, it) == nil {
					w.pending[it.id] = it
					keep = append(keep, it)
				}
			}
		}
	}
	w.collects = keep
}

func (w *MeasureWorker) acquire() {
	if w.lock != nil {
		w.lock.Lock()
	}
}

func (w *MeasureWorker) release() {
	if w.lock != nil {
		w.lock.Unlock()
	}
}

func (w *MeasureWorker) emit(ctx context.Context, r halcore.Result) {
	select {
	case w.sink <- r:
	case <-ctx.Done():
	}
}

func (w *MeasureWorker) minDue() time.Time {
	var min time.Time
	for _, it := range w.collects {
		if min.IsZero() || it.due.Before(min) {
			min = it.due
		}
	}
	return min
}
