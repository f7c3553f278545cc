package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"barocode-go/errcode"
	"barocode-go/services/hal/internal/halcore"
)

type fakeBaro struct {
	id          string
	delay       time.Duration
	collectErrs int // consecutive not-ready replies before success
	failErr     error
	triggers    atomic.Int32
}

func (f *fakeBaro) ID() string                      { return f.id }
func (f *fakeBaro) Capabilities() []halcore.CapInfo { return nil }
func (f *fakeBaro) Trigger(ctx context.Context) (time.Duration, error) {
	f.triggers.Add(1)
	if f.failErr != nil {
		return 0, f.failErr
	}
	return f.delay, nil
}
func (f *fakeBaro) Collect(ctx context.Context) (halcore.Sample, error) {
	if f.collectErrs > 0 {
		f.collectErrs--
		// Drivers wrap the sentinel.
		return nil, fmt.Errorf("%s: %w", f.id, halcore.ErrNotReady)
	}
	return halcore.Sample{{Kind: "pressure", Payload: 1013, TsMs: time.Now().UnixMilli()}}, nil
}
func (f *fakeBaro) Control(string, string, any) (any, error) { return nil, halcore.ErrUnsupported }

func fastConfig() halcore.WorkerConfig {
	return halcore.WorkerConfig{
		TriggerTimeout: 5 * time.Millisecond,
		CollectTimeout: 10 * time.Millisecond,
		RetryBackoff:   2 * time.Millisecond,
		MaxRetries:     5,
		InputQueueSize: 4,
	}
}

func TestMeasureWorkerSuccessWithRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan halcore.Result, 1)
	w := New(fastConfig(), results)
	w.Start(ctx)

	ad := &fakeBaro{id: "baro0", delay: time.Millisecond, collectErrs: 2}
	if !w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad}) {
		t.Fatal("submit failed")
	}

	select {
	case r := <-results:
		if r.Err != nil || len(r.Sample) != 1 || r.Sample[0].Payload != 1013 {
			t.Fatalf("unexpected result: %+v", r)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for result")
	}
}

func TestMeasureWorkerGivesUpAfterMaxRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan halcore.Result, 1)
	w := New(fastConfig(), results)
	w.Start(ctx)

	ad := &fakeBaro{id: "baro0", collectErrs: 100}
	w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad})

	select {
	case r := <-results:
		if !errors.Is(r.Err, halcore.ErrNotReady) {
			t.Fatalf("err = %v, want ErrNotReady", r.Err)
		}
		if got := errcode.MapDriverErr(r.Err); got != errcode.NotReady {
			t.Fatalf("code = %q, want %q", got, errcode.NotReady)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for result")
	}
}

func TestMeasureWorkerTriggerErrorAndPrio(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan halcore.Result, 2)
	w := New(halcore.WorkerConfig{}, results)
	w.Start(ctx)

	boom := errors.New("bus fault")
	ad := &fakeBaro{id: "baroX", failErr: boom}
	if !w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad}) {
		t.Fatal("submit failed")
	}
	if !w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad, Prio: true}) {
		t.Fatal("prio submit failed")
	}

	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			if !errors.Is(r.Err, boom) {
				t.Fatalf("expected trigger error, got %+v", r)
			}
		case <-time.After(200 * time.Millisecond):
			t.Fatal("timeout waiting for error result")
		}
	}
}

func TestMeasureWorkerCoalescesWhilePending(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan halcore.Result, 4)
	w := New(fastConfig(), results)
	w.Start(ctx)

	ad := &fakeBaro{id: "baro0", delay: 20 * time.Millisecond}
	w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad})
	w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad})

	select {
	case <-results:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for result")
	}
	select {
	case r := <-results:
		t.Fatalf("second request was not coalesced: %+v", r)
	case <-time.After(40 * time.Millisecond):
	}
	if n := ad.triggers.Load(); n != 1 {
		t.Fatalf("triggers = %d, want 1", n)
	}
}

func TestMeasureWorkerHoldsBusLock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	results := make(chan halcore.Result, 1)
	w := New(fastConfig(), results).WithBusLock(&mu)
	w.Start(ctx)

	mu.Lock()
	ad := &fakeBaro{id: "baro0"}
	w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad})

	select {
	case r := <-results:
		t.Fatalf("adaptor ran while the bus was held: %+v", r)
	case <-time.After(30 * time.Millisecond):
	}
	mu.Unlock()

	select {
	case r := <-results:
		if r.Err != nil {
			t.Fatalf("unexpected error: %v", r.Err)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for result after bus release")
	}
}
