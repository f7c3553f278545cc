package types

// HAL configuration supplied on topic "config/hal".

type HALConfig struct {
	Devices []HALDevice `json:"devices"`
}

type HALDevice struct {
	ID     string `json:"id"`               // logical device id, e.g. "baro0"
	Type   string `json:"type"`             // builder name, e.g. "lps25hb"
	Params any    `json:"params,omitempty"` // device-specific params
	BusRef BusRef `json:"bus_ref,omitempty"`
}

// BusRef identifies a named bus instance configured by the platform layer.
type BusRef struct {
	Type string `json:"type"` // "spi"
	ID   string `json:"id"`   // "spi0"
}

// LPS25HBParams are the "params" of an lps25hb device.
type LPS25HBParams struct {
	// CSPin is the GPIO driving the sensor's chip-select line.
	CSPin int `json:"cs_pin"`
	// Strict rejects the device when WHO_AM_I does not match. The default
	// powers it up and reports identified=false.
	Strict bool `json:"strict,omitempty"`
	// PeriodMs is the sampling period; 0 selects the 1 Hz output data rate.
	PeriodMs int `json:"period_ms,omitempty"`
}
