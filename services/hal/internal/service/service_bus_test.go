package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"barocode-go/bus"
	"barocode-go/services/hal/internal/consts"
	"barocode-go/services/hal/internal/halcore"
)

// sharedPort is one SPI port with several chip-select lines. It counts byte
// exchanges that happen while another transfer is in flight or while more
// than one device is selected.
type sharedPort struct {
	mu       sync.Mutex
	selected int
	inFlight int
	overlaps int
	bytes    int
}

func (p *sharedPort) enter(n int) {
	p.mu.Lock()
	p.inFlight++
	if p.inFlight > 1 || p.selected > 1 {
		p.overlaps += n
	}
	p.bytes += n
	p.mu.Unlock()
}

func (p *sharedPort) leave() {
	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()
}

func (p *sharedPort) Tx(w, r []byte) error {
	n := len(w)
	if len(r) > n {
		n = len(r)
	}
	p.enter(n)
	time.Sleep(20 * time.Microsecond)
	for i := range r {
		r[i] = 0
	}
	p.leave()
	return nil
}

func (p *sharedPort) Transfer(b byte) (byte, error) {
	p.enter(1)
	time.Sleep(20 * time.Microsecond)
	p.leave()
	return 0, nil
}

func (p *sharedPort) counts() (overlaps, bytes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overlaps, p.bytes
}

type sharedCS struct {
	port *sharedPort
	n    int
	lvl  bool
}

func (c *sharedCS) ConfigureOutput(initial bool) error {
	c.lvl = true
	c.Set(initial)
	return nil
}

func (c *sharedCS) Set(v bool) {
	c.port.mu.Lock()
	switch {
	case c.lvl && !v:
		c.port.selected++
	case !c.lvl && v:
		c.port.selected--
	}
	c.lvl = v
	c.port.mu.Unlock()
}

func (c *sharedCS) Get() bool   { return c.lvl }
func (c *sharedCS) Number() int { return c.n }

type sharedPins map[int]*sharedCS

func (f sharedPins) ByNumber(n int) (halcore.GPIOPin, bool) {
	p, ok := f[n]
	return p, ok
}

func TestServiceSerialisesTransactionsPerBus(t *testing.T) {
	port := &sharedPort{}
	pins := sharedPins{17: {port: port, n: 17}, 18: {port: port, n: 18}}

	b := bus.NewBus(8)
	conn := b.NewConnection("test")
	s := New(conn, spiFactory{"spi0": port}, pins).WithWorkerConfig(fastWorker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	stateSub := conn.Subscribe(bus.Topic{consts.TokHAL, consts.TokState})
	defer conn.Unsubscribe(stateSub)
	waitHALLevel(t, stateSub, "idle", time.Second)

	dev := func(id string, cs int) map[string]any {
		return map[string]any{
			"id":      id,
			"type":    "lps25hb",
			"params":  map[string]any{"cs_pin": cs, "period_ms": 200},
			"bus_ref": map[string]any{"type": "spi", "id": "spi0"},
		}
	}
	conn.Publish(conn.NewMessage(bus.Topic{consts.TokConfig, consts.TokHAL}, map[string]any{
		"devices": []any{dev("baro0", 17)},
	}, true))
	waitHALLevel(t, stateSub, "ready", time.Second)

	// baro1 is built while baro0's worker already owns spi0.
	conn.Publish(conn.NewMessage(bus.Topic{consts.TokConfig, consts.TokHAL}, map[string]any{
		"devices": []any{dev("baro0", 17), dev("baro1", 18)},
	}, true))
	waitHALLevel(t, stateSub, "ready", time.Second)

	deadline := time.Now().Add(600 * time.Millisecond)
	for time.Now().Before(deadline) {
		request(t, conn, consts.KindPressure, 1, "identify")
	}

	overlaps, bytes := port.counts()
	if bytes == 0 {
		t.Fatal("no bus traffic")
	}
	if overlaps != 0 {
		t.Fatalf("%d of %d byte exchanges overlapped another transaction", overlaps, bytes)
	}
}
