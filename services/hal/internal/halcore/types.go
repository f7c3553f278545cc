// services/hal/internal/halcore/types.go
package halcore

import (
	"context"
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// Reading is one datum for one capability kind.
type Reading struct {
	Kind    string // "pressure" or "temperature"
	Payload any    // JSON-serialisable
	TsMs    int64  // producer timestamp (ms)
}

// Sample is a batch collected together.
type Sample []Reading

// CapInfo describes one capability's retained info document.
type CapInfo struct {
	Kind string
	Info any // small JSONable value
}

// Adaptor abstracts a concrete device/driver. Must not own goroutines or the bus.
type Adaptor interface {
	ID() string
	Capabilities() []CapInfo
	// Split-phase measurement cycle.
	Trigger(ctx context.Context) (collectAfter time.Duration, err error)
	Collect(ctx context.Context) (Sample, error)
	// Optional pass-through control for device-specific methods.
	Control(kind, method string, payload any) (result any, err error)
}

// WorkerConfig centralises timings and limits.
type WorkerConfig struct {
	TriggerTimeout time.Duration
	CollectTimeout time.Duration
	RetryBackoff   time.Duration
	MaxRetries     int
	InputQueueSize int
}

// MeasureReq asks a worker to service an adaptor.
type MeasureReq struct {
	ID      string
	Adaptor Adaptor
	Prio    bool // true for "read_now"
}

// Result emitted by a worker.
type Result struct {
	ID     string
	Sample Sample
	Err    error
}

var (
	// ErrNotReady signals the worker to retry Collect after backoff.
	ErrNotReady = errors.New("not ready")
	// ErrUnsupported for adaptor Control pass-through.
	ErrUnsupported = errors.New("unsupported")
)

// ---- Buses ----

// SPIBusFactory injects configured SPI ports by id ("spi0").
// Ports speak the TinyGo drivers.SPI interface on every target; chip select
// is a separate GPIO owned by the device.
type SPIBusFactory interface {
	ByID(id string) (drivers.SPI, bool)
}

// ---- GPIO abstractions ----

type GPIOPin interface {
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Number() int
}

// PinFactory supplies GPIO pins by the configured number scheme.
type PinFactory interface {
	ByNumber(n int) (GPIOPin, bool)
}

// PinClaimer hands out pins to a single owning device.
type PinClaimer interface {
	ClaimPin(devID string, n int) (GPIOPin, error)
}
