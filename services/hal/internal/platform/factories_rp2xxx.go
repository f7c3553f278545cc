// services/hal/internal/platform/factories_rp2xxx.go
//go:build rp2040 || rp2350

package platform

import (
	"machine"

	"tinygo.org/x/drivers"

	halcore "barocode-go/services/hal/internal/halcore"
	"barocode-go/services/hal/internal/platform/boards"
)

// -----------------------------------------------------------------------------
// Defaults used by hal.Run on Raspberry Pi Pico / Pico 2 (RP2 family)
// -----------------------------------------------------------------------------

var board = boards.PicoBaro

// DefaultSPIFactory configures spi0 from the board plan (1 MHz, mode 3, MSB
// first). Chip select is left to the devices.
func DefaultSPIFactory() halcore.SPIBusFactory {
	f := &rp2SPIFactory{buses: make(map[string]drivers.SPI)}
	if p, ok := board.SPIByID("spi0"); ok {
		spi := machine.SPI0
		err := spi.Configure(machine.SPIConfig{
			Frequency: p.Hz,
			SCK:       machine.Pin(p.SCK),
			SDO:       machine.Pin(p.SDO),
			SDI:       machine.Pin(p.SDI),
			Mode:      p.Mode,
			LSBFirst:  false,
		})
		if err != nil {
			println("[hal] spi0 configure failed:", err.Error())
		} else {
			f.buses[p.ID] = spiPort(spi)
		}
	}
	return f
}

// DefaultPinFactory maps logical numbers directly to machine.Pin(n). This
// matches Pico/Pico 2 GP numbering.
func DefaultPinFactory() halcore.PinFactory { return rp2PinFactory{} }

// ---- SPI implementation ----

type rp2SPIFactory struct {
	buses map[string]drivers.SPI
}

func (f *rp2SPIFactory) ByID(id string) (drivers.SPI, bool) {
	b, ok := f.buses[id]
	return b, ok
}

// ---- GPIO implementation ----

type rp2PinFactory struct{}

func (rp2PinFactory) ByNumber(n int) (halcore.GPIOPin, bool) {
	if !board.ValidPin(n) {
		return nil, false
	}
	return &rp2Pin{p: machine.Pin(n), n: n}, true
}

type rp2Pin struct {
	p machine.Pin
	n int
}

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	// Latch the level first so the line never glitches low.
	r.p.Set(initial)
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2Pin) Set(level bool) { r.p.Set(level) }
func (r *rp2Pin) Get() bool      { return r.p.Get() }
func (r *rp2Pin) Number() int    { return r.n }
