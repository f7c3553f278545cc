package sim

import "sync"

// Port is a register-level view of an SPI controller wired to a Device:
// status flags plus a one-deep data register. It satisfies spipoll.Peripheral.
type Port struct {
	d *Device

	mu      sync.Mutex
	rx      []byte
	txStall int // polls of TxReady that report false; <0 stalls forever
	rxStall int // same for RxReady
	sendErr error
}

// Port returns a register-level controller view of the device.
func (d *Device) Port() *Port { return &Port{d: d} }

// StallTx makes the next n TxReady polls report false (n < 0: forever).
func (p *Port) StallTx(n int) {
	p.mu.Lock()
	p.txStall = n
	p.mu.Unlock()
}

// StallRx makes the next n RxReady polls report false (n < 0: forever).
func (p *Port) StallRx(n int) {
	p.mu.Lock()
	p.rxStall = n
	p.mu.Unlock()
}

// FailSend makes every Send return err until cleared with nil.
func (p *Port) FailSend(err error) {
	p.mu.Lock()
	p.sendErr = err
	p.mu.Unlock()
}

func (p *Port) TxReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return poll(&p.txStall)
}

func (p *Port) RxReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.rx) == 0 {
		return false
	}
	return poll(&p.rxStall)
}

func (p *Port) Send(b byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	in, err := p.d.Transfer(b)
	if err != nil {
		return err
	}
	p.rx = append(p.rx, in)
	return nil
}

func (p *Port) Recv() (byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.rx) == 0 {
		return 0, ErrFault
	}
	b := p.rx[0]
	p.rx = p.rx[1:]
	return b, nil
}

func poll(stall *int) bool {
	switch {
	case *stall < 0:
		return false
	case *stall > 0:
		*stall--
		return false
	}
	return true
}
