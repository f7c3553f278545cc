package types

import "time"

// ---- Common HAL state (retained) ----

type HALState struct {
	Level  string    `json:"level"`  // "idle", "ready", "error", "stopped"
	Status string    `json:"status"` // short code
	Error  string    `json:"error,omitempty"`
	TS     time.Time `json:"ts"`
}

// Link is the link/state reported for a capability.
type Link string

const (
	LinkUp       Link = "up"
	LinkDown     Link = "down"
	LinkDegraded Link = "degraded"
)

type CapabilityState struct {
	Link  Link      `json:"link"`
	TS    time.Time `json:"ts"`
	Error string    `json:"error,omitempty"`
}

// ---- Capability kinds ----

type Kind string

const (
	KindPressure    Kind = "pressure"
	KindTemperature Kind = "temperature"
)

// Info envelope each capability exposes (retained).
type Info struct {
	SchemaVersion int    `json:"schema_version"`
	Driver        string `json:"driver"`
	Detail        any    `json:"detail,omitempty"`
}

// ---- Generic replies ----

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ReadNowAck acknowledges a read_now control; the value follows on .../value.
type ReadNowAck struct {
	OK bool `json:"ok"`
}

// IdentifyReply answers an "identify" control: WHO_AM_I is re-read.
type IdentifyReply struct {
	OK         bool `json:"ok"`
	Identified bool `json:"identified"`
}
