// services/hal/internal/platform/factories_linux.go
//go:build linux && arm64 && !(rp2040 || rp2350)

package platform

import (
	"sync"

	"github.com/warthog618/gpiod"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"

	"barocode-go/services/hal/internal/halcore"
	"barocode-go/services/hal/internal/platform/boards"
)

var board = boards.RPiBaro

// DefaultSPIFactory opens every planned spidev port with the kernel's chip
// select disabled; devices drive their own select line.
func DefaultSPIFactory() halcore.SPIBusFactory {
	f := &linuxSPIFactory{buses: make(map[string]drivers.SPI)}
	if _, err := host.Init(); err != nil {
		println("[hal] periph host init failed:", err.Error())
		return f
	}
	for _, p := range board.SPI {
		port, err := spireg.Open(p.Dev)
		if err != nil {
			println("[hal]", p.ID, "open failed:", err.Error())
			continue
		}
		c, err := port.Connect(physic.Frequency(p.Hz)*physic.Hertz, spi.Mode(p.Mode)|spi.NoCS, 8)
		if err != nil {
			println("[hal]", p.ID, "connect failed:", err.Error())
			_ = port.Close()
			continue
		}
		f.buses[p.ID] = &periphSPI{c: c}
	}
	return f
}

// DefaultPinFactory hands out lines of the board's GPIO chip.
func DefaultPinFactory() halcore.PinFactory {
	return &gpiodPinFactory{chipName: board.GPIOChip, lines: map[int]*gpiodPin{}}
}

// ---- SPI implementation ----

type linuxSPIFactory struct {
	buses map[string]drivers.SPI
}

func (f *linuxSPIFactory) ByID(id string) (drivers.SPI, bool) {
	b, ok := f.buses[id]
	return b, ok
}

// periphSPI adapts a periph full-duplex connection to drivers.SPI.
type periphSPI struct {
	c interface{ Tx(w, r []byte) error }
}

func (s *periphSPI) Tx(w, r []byte) error {
	n := len(w)
	if len(r) > n {
		n = len(r)
	}
	if len(w) == n && len(r) == n {
		return s.c.Tx(w, r)
	}
	wb := make([]byte, n)
	rb := make([]byte, n)
	copy(wb, w)
	if err := s.c.Tx(wb, rb); err != nil {
		return err
	}
	copy(r, rb)
	return nil
}

func (s *periphSPI) Transfer(b byte) (byte, error) {
	var w, r [1]byte
	w[0] = b
	if err := s.c.Tx(w[:], r[:]); err != nil {
		return 0, err
	}
	return r[0], nil
}

// ---- GPIO implementation ----

type gpiodPinFactory struct {
	mu       sync.Mutex
	chipName string
	chip     *gpiod.Chip
	lines    map[int]*gpiodPin
}

func (f *gpiodPinFactory) ByNumber(n int) (halcore.GPIOPin, bool) {
	if !board.ValidPin(n) {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chip == nil {
		c, err := gpiod.NewChip(f.chipName, gpiod.WithConsumer("lps25hb"))
		if err != nil {
			println("[hal] gpio chip", f.chipName, "open failed:", err.Error())
			return nil, false
		}
		f.chip = c
	}
	p, ok := f.lines[n]
	if !ok {
		p = &gpiodPin{chip: f.chip, n: n}
		f.lines[n] = p
	}
	return p, true
}

// gpiodPin is a GPIO character-device line. A failed write to a chip-select
// line cannot be recovered from, so Set panics.
type gpiodPin struct {
	chip *gpiod.Chip
	n    int
	line *gpiod.Line
}

func (p *gpiodPin) ConfigureOutput(initial bool) error {
	if p.line != nil {
		p.Set(initial)
		return nil
	}
	l, err := p.chip.RequestLine(p.n, gpiod.AsOutput(level(initial)))
	if err != nil {
		return err
	}
	p.line = l
	return nil
}

func (p *gpiodPin) Set(v bool) {
	if p.line == nil {
		panic("[hal] gpio: line not configured")
	}
	if err := p.line.SetValue(level(v)); err != nil {
		panic("[hal] gpio: " + err.Error())
	}
}

func (p *gpiodPin) Get() bool {
	if p.line == nil {
		return false
	}
	v, err := p.line.Value()
	return err == nil && v != 0
}

func (p *gpiodPin) Number() int { return p.n }

func level(v bool) int {
	if v {
		return 1
	}
	return 0
}
