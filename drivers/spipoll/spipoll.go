// Package spipoll drives a register-level SPI controller by polling its
// status flags, with every wait bounded by a poll budget.
//
// A controller that never raises its ready flag yields ErrTimeout instead of
// hanging the caller. The resulting Bus satisfies tinygo.org/x/drivers.SPI.
package spipoll

import (
	"errors"

	"tinygo.org/x/drivers"
)

// DefaultMaxPolls bounds each wait when Config.MaxPolls is zero. At 1 MHz a
// byte takes 8 µs; this is several orders of magnitude above that on any
// supported core clock.
const DefaultMaxPolls = 100000

var ErrTimeout = errors.New("spipoll: timeout")

// Peripheral is the register-level view of a synchronous serial controller.
type Peripheral interface {
	TxReady() bool // transmit stage can accept a byte
	RxReady() bool // a received byte is waiting
	Send(b byte) error
	Recv() (byte, error)
}

type Config struct {
	// MaxPolls bounds each status wait. Default DefaultMaxPolls.
	MaxPolls int
}

// Bus adapts a Peripheral to drivers.SPI.
type Bus struct {
	p        Peripheral
	maxPolls int
}

var _ drivers.SPI = (*Bus)(nil)

func New(p Peripheral, cfg Config) *Bus {
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = DefaultMaxPolls
	}
	return &Bus{p: p, maxPolls: cfg.MaxPolls}
}

// Transfer waits for the transmit stage, writes w, waits for the reply and
// returns it.
func (b *Bus) Transfer(w byte) (byte, error) {
	if !b.wait(b.p.TxReady) {
		return 0, ErrTimeout
	}
	if err := b.p.Send(w); err != nil {
		return 0, err
	}
	if !b.wait(b.p.RxReady) {
		return 0, ErrTimeout
	}
	return b.p.Recv()
}

// Tx clocks max(len(w), len(r)) bytes. Missing w bytes are sent as zero and
// surplus replies are dropped. w and r may be the same slice.
func (b *Bus) Tx(w, r []byte) error {
	n := len(w)
	if len(r) > n {
		n = len(r)
	}
	for i := 0; i < n; i++ {
		var out byte
		if i < len(w) {
			out = w[i]
		}
		in, err := b.Transfer(out)
		if err != nil {
			return err
		}
		if i < len(r) {
			r[i] = in
		}
	}
	return nil
}

func (b *Bus) wait(ready func() bool) bool {
	for i := 0; i < b.maxPolls; i++ {
		if ready() {
			return true
		}
	}
	return false
}
