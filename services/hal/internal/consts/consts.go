// services/hal/internal/consts/consts.go
package consts

// Top-level topics
const (
	TokConfig     = "config"
	TokHAL        = "hal"
	TokCapability = "capability"
	TokInfo       = "info"
	TokState      = "state"
	TokValue      = "value"
	TokControl    = "control"
)

// Control verbs. Rate changes are not offered; periods come from config.
const (
	CtrlReadNow = "read_now"
)

// Capability kinds used in service wiring
const (
	KindPressure    = "pressure"
	KindTemperature = "temperature"
)

// Bus reference types
const (
	BusSPI = "spi"
)

const (
	LinkUp       = "up"
	LinkDown     = "down"
	LinkDegraded = "degraded"
)
