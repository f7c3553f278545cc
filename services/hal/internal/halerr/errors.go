// services/hal/internal/halerr/errors.go
package halerr

import "errors"

var (
	// Service/control plane
	ErrBusy           = errors.New("busy")
	ErrInvalidCapAddr = errors.New("invalid_capability_address")
	ErrUnknownCap     = errors.New("unknown_capability")
	ErrNoAdaptor      = errors.New("no_adaptor")

	// Build/config
	ErrMissingBusRef = errors.New("missing_bus_ref")
	ErrUnknownBus    = errors.New("unknown_bus")
	ErrUnknownPin    = errors.New("unknown_pin")
	ErrUnknownType   = errors.New("unknown_device_type")

	// Generic / pass-through
	ErrUnsupported = errors.New("unsupported")
)
