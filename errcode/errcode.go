package errcode

import (
	"errors"

	"barocode-go/drivers/lps25hb"
	"barocode-go/drivers/spipoll"
)

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK                Code = "ok"
	Busy              Code = "busy"
	Unsupported       Code = "unsupported"
	InvalidParams     Code = "invalid_params"
	InvalidPayload    Code = "invalid_payload"
	UnknownCapability Code = "unknown_capability"
	HALNotReady       Code = "hal_not_ready"
	InvalidTopic      Code = "invalid_topic"

	UnknownBus Code = "unknown_bus"
	UnknownPin Code = "unknown_pin"
	PinInUse   Code = "pin_in_use"
	Timeout    Code = "timeout"
	NotReady   Code = "not_ready"
	IDMismatch Code = "id_mismatch"
	BusFault   Code = "bus_fault"

	Error Code = "error" // generic fallback
)

// E keeps context and a cause alongside a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return Error
}

// MapDriverErr maps low-level driver and transport errors to a Code.
// Unrecognised errors from the bus are reported as BusFault.
func MapDriverErr(err error) Code {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, spipoll.ErrTimeout):
		return Timeout
	case errors.Is(err, lps25hb.ErrNotReady):
		return NotReady
	case errors.Is(err, lps25hb.ErrIdentity):
		return IDMismatch
	}
	if c := Of(err); c != Error {
		return c
	}
	return BusFault
}
