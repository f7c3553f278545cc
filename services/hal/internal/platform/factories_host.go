// services/hal/internal/platform/factories_host.go
//go:build !rp2040 && !rp2350 && !(linux && arm64)

package platform

import (
	"sync"

	"barocode-go/drivers/lps25hb/sim"
	"barocode-go/services/hal/internal/halcore"

	"tinygo.org/x/drivers"
)

// SimCSPin is the GPIO wired to the simulated sensor's chip select.
const SimCSPin = 17

var (
	simOnce sync.Once
	simDev  *sim.Device
	simPins *HostPinFactory
)

// SimDevice returns the simulated LPS25HB behind host "spi0". It converts on
// its own at roughly sea-level pressure and 20 °C.
func SimDevice() *sim.Device {
	simOnce.Do(func() {
		simDev = sim.New()
		var n uint32
		simDev.SetSource(func() (uint32, int16) {
			n++
			// 1013.25 hPa with a slow 1/4096 hPa ramp; (20 - 42.5) * 480.
			return 4150272 + n%64, -10800
		})
		simPins = NewHostPinFactory()
		simPins.Attach(SimCSPin, simDev.CS())
	})
	return simDev
}

// ----------------------------- SPI (host) ------------------------------------

type hostSPIFactory struct {
	buses map[string]drivers.SPI
}

func (f *hostSPIFactory) ByID(id string) (drivers.SPI, bool) {
	b, ok := f.buses[id]
	return b, ok
}

// NewHostSPIFactory serves the given ports by id.
func NewHostSPIFactory(buses map[string]drivers.SPI) halcore.SPIBusFactory {
	return &hostSPIFactory{buses: buses}
}

// DefaultSPIFactory exposes the simulated sensor as "spi0".
func DefaultSPIFactory() halcore.SPIBusFactory {
	return NewHostSPIFactory(map[string]drivers.SPI{"spi0": SimDevice()})
}

// ----------------------------- GPIO (host) -----------------------------------

// FakePin implements GPIOPin for host-side tests. An attached output sees
// every level written to the pin.
type FakePin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	modeOut bool
	out     interface{ Set(high bool) }
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.mu.Unlock()
	p.Set(initial)
	return nil
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	out := p.out
	p.mu.Unlock()
	if out != nil {
		out.Set(level)
	}
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	v := p.level
	p.mu.RUnlock()
	return v
}

func (p *FakePin) IsOutput() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modeOut
}

func (p *FakePin) Number() int { return p.number }

// HostPinFactory returns stable *FakePin instances per number.
type HostPinFactory struct {
	mu   sync.Mutex
	pins map[int]*FakePin
}

func NewHostPinFactory() *HostPinFactory {
	return &HostPinFactory{pins: make(map[int]*FakePin)}
}

func (f *HostPinFactory) pin(n int) *FakePin {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pins == nil {
		f.pins = make(map[int]*FakePin)
	}
	p, ok := f.pins[n]
	if !ok {
		p = &FakePin{number: n}
		f.pins[n] = p
	}
	return p
}

func (f *HostPinFactory) ByNumber(n int) (halcore.GPIOPin, bool) {
	if n < 0 {
		return nil, false
	}
	return f.pin(n), true
}

// Attach forwards writes on pin n to out, e.g. a simulated chip-select input.
func (f *HostPinFactory) Attach(n int, out interface{ Set(high bool) }) {
	p := f.pin(n)
	p.mu.Lock()
	p.out = out
	p.mu.Unlock()
}

// Get exposes the underlying *FakePin for tests.
func (f *HostPinFactory) Get(n int) (*FakePin, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	return p, ok
}

// DefaultPinFactory provides host GPIOs with SimCSPin wired to the
// simulated sensor.
func DefaultPinFactory() halcore.PinFactory {
	SimDevice()
	return simPins
}
