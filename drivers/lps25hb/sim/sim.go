// Package sim models an LPS25HB on an SPI bus for host-side tests and for
// platforms without the real part. It satisfies drivers.SPI, exposes the
// chip-select line as an output pin, and records every exchanged byte
// together with the chip-select level at that moment.
package sim

import (
	"errors"
	"sync"
)

const (
	regWhoAmI   = 0x0F
	regCtrl1    = 0x20
	regCtrl2    = 0x21
	regStatus   = 0x27
	regPressXL  = 0x28
	regPressH   = 0x2A
	regTempL    = 0x2B
	regTempH    = 0x2C
	numRegs     = 0x40
	defaultID   = 0xBD
	statusTDA   = 0x01
	statusPDA   = 0x02
	ctrl2Reset  = 0x04
	idleMISO    = 0xFF
	cmdRead     = 0x80
	cmdAutoInc  = 0x40
	cmdAddrMask = 0x3F
)

// ErrFault is returned by injected bus faults unless another error is given.
var ErrFault = errors.New("sim: injected bus fault")

// EntryKind classifies a trace entry.
type EntryKind uint8

const (
	EntrySelect EntryKind = iota
	EntryDeselect
	EntryByte
)

// Entry is one trace record.
type Entry struct {
	Kind     EntryKind
	Selected bool // chip-select asserted when the entry was recorded
	Out      byte // master to device
	In       byte // device to master
}

// Write is one register write observed by the device.
type Write struct {
	Addr byte
	Val  byte
}

// Device is a simulated LPS25HB.
type Device struct {
	mu sync.Mutex

	regs     [numRegs]byte
	selected bool

	// Frame state, reset on every chip-select assert.
	haveCmd bool
	read    bool
	autoInc bool
	addr    byte

	trace  []Entry
	writes []Write

	failAt  int // byte index (1-based) that fails; 0 disables
	failErr error
	nbytes  int

	source func() (pressure uint32, temp int16)
}

// New returns a device in its power-on state (standby, WHO_AM_I = 0xBD).
func New() *Device {
	d := &Device{selected: false}
	d.reset()
	return d
}

func (d *Device) reset() {
	id := d.regs[regWhoAmI]
	d.regs = [numRegs]byte{}
	if id == 0 {
		id = defaultID
	}
	d.regs[regWhoAmI] = id
}

// SetWhoAmI changes the identification code the device reports.
func (d *Device) SetWhoAmI(id byte) {
	d.mu.Lock()
	d.regs[regWhoAmI] = id
	d.mu.Unlock()
}

// SetPressureRaw loads a 24-bit pressure sample and flags it available.
func (d *Device) SetPressureRaw(raw uint32) {
	d.mu.Lock()
	d.regs[regPressXL] = byte(raw)
	d.regs[regPressXL+1] = byte(raw >> 8)
	d.regs[regPressH] = byte(raw >> 16)
	d.regs[regStatus] |= statusPDA
	d.mu.Unlock()
}

// SetPressureBytes loads PRESS_OUT_XL, _L and _H directly.
func (d *Device) SetPressureBytes(low, mid, high byte) {
	d.SetPressureRaw(uint32(high)<<16 | uint32(mid)<<8 | uint32(low))
}

// SetTemperatureRaw loads a 16-bit temperature sample and flags it available.
func (d *Device) SetTemperatureRaw(raw int16) {
	d.mu.Lock()
	d.regs[regTempL] = byte(uint16(raw))
	d.regs[regTempH] = byte(uint16(raw) >> 8)
	d.regs[regStatus] |= statusTDA
	d.mu.Unlock()
}

// SetSource makes the device convert on its own: switching CTRL_REG1 to
// active loads the first sample from fn, and while active a STATUS read that
// finds no fresh data loads the next one.
func (d *Device) SetSource(fn func() (pressure uint32, temp int16)) {
	d.mu.Lock()
	d.source = fn
	d.mu.Unlock()
}

func (d *Device) loadLocked(p uint32, t int16) {
	d.regs[regPressXL] = byte(p)
	d.regs[regPressXL+1] = byte(p >> 8)
	d.regs[regPressH] = byte(p >> 16)
	d.regs[regTempL] = byte(uint16(t))
	d.regs[regTempH] = byte(uint16(t) >> 8)
	d.regs[regStatus] |= statusPDA | statusTDA
}

// Register returns the current value of a register.
func (d *Device) Register(addr byte) byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[addr&cmdAddrMask]
}

// Active reports whether CTRL_REG1 has the power-down bit set.
func (d *Device) Active() bool { return d.Register(regCtrl1)&0x80 != 0 }

// Selected reports the current chip-select state.
func (d *Device) Selected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected
}

// Writes returns the register writes seen so far.
func (d *Device) Writes() []Write {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Write(nil), d.writes...)
}

// Trace returns a copy of the recorded trace.
func (d *Device) Trace() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Entry(nil), d.trace...)
}

// ResetTrace clears the trace and the write log.
func (d *Device) ResetTrace() {
	d.mu.Lock()
	d.trace = d.trace[:0]
	d.writes = d.writes[:0]
	d.mu.Unlock()
}

// FailAt makes the n-th exchanged byte from now on fail with err
// (ErrFault if nil). n <= 0 disables injection.
func (d *Device) FailAt(n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		err = ErrFault
	}
	d.nbytes = 0
	d.failAt = n
	d.failErr = err
}

// ---- chip select ----

// CS returns the chip-select line as an output pin.
func (d *Device) CS() *CSPin { return &CSPin{d: d} }

// CSPin is the simulated active-low chip-select input of the device.
type CSPin struct{ d *Device }

func (p *CSPin) Set(high bool) { p.d.setCS(!high) }

// High and Low mirror machine.Pin.
func (p *CSPin) High() { p.Set(true) }
func (p *CSPin) Low()  { p.Set(false) }

func (d *Device) setCS(selected bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if selected == d.selected {
		return
	}
	d.selected = selected
	if selected {
		d.haveCmd = false
		d.trace = append(d.trace, Entry{Kind: EntrySelect, Selected: true})
		return
	}
	d.trace = append(d.trace, Entry{Kind: EntryDeselect})
}

// ---- drivers.SPI ----

// Transfer exchanges one byte.
func (d *Device) Transfer(b byte) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exchangeLocked(b)
}

// Tx exchanges max(len(w), len(r)) bytes. w and r may alias.
func (d *Device) Tx(w, r []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(w)
	if len(r) > n {
		n = len(r)
	}
	for i := 0; i < n; i++ {
		var out byte
		if i < len(w) {
			out = w[i]
		}
		in, err := d.exchangeLocked(out)
		if err != nil {
			return err
		}
		if i < len(r) {
			r[i] = in
		}
	}
	return nil
}

func (d *Device) exchangeLocked(out byte) (byte, error) {
	if d.failAt > 0 {
		d.nbytes++
		if d.nbytes == d.failAt {
			d.failAt = 0
			return 0, d.failErr
		}
	}
	in := byte(idleMISO)
	if d.selected {
		in = d.clockLocked(out)
	}
	d.trace = append(d.trace, Entry{Kind: EntryByte, Selected: d.selected, Out: out, In: in})
	return in, nil
}

// clockLocked runs the device side of one byte inside a selected frame.
func (d *Device) clockLocked(out byte) byte {
	if !d.haveCmd {
		d.haveCmd = true
		d.read = out&cmdRead != 0
		d.autoInc = out&cmdAutoInc != 0
		d.addr = out & cmdAddrMask
		return 0
	}
	a := d.addr
	var in byte
	if d.read {
		if a == regStatus && d.source != nil && d.regs[regCtrl1]&0x80 != 0 && d.regs[regStatus]&statusPDA == 0 {
			d.loadLocked(d.source())
		}
		in = d.regs[a]
		switch a {
		case regPressH:
			d.regs[regStatus] &^= statusPDA
		case regTempH:
			d.regs[regStatus] &^= statusTDA
		}
	} else {
		d.writeLocked(a, out)
	}
	if d.autoInc {
		d.addr = (d.addr + 1) & cmdAddrMask
	}
	return in
}

func (d *Device) writeLocked(a, v byte) {
	d.writes = append(d.writes, Write{Addr: a, Val: v})
	switch a {
	case regWhoAmI, regStatus, regPressXL, regPressXL + 1, regPressH, regTempL, regTempH:
		return // read-only
	case regCtrl2:
		if v&ctrl2Reset != 0 {
			d.reset()
			return
		}
	}
	wasActive := d.regs[regCtrl1]&0x80 != 0
	d.regs[a] = v
	if a == regCtrl1 && !wasActive && v&0x80 != 0 && d.source != nil {
		d.loadLocked(d.source())
	}
}
