package types

// ------------------------
// Pressure & temperature
// ------------------------

// PressureInfo is Info.Detail for a pressure capability.
type PressureInfo struct {
	Sensor     string `json:"sensor"` // "lps25hb"
	Bus        string `json:"bus"`    // "spi0"
	CSPin      int    `json:"cs_pin"`
	Identified bool   `json:"identified"` // WHO_AM_I matched at init
}

type TemperatureInfo struct {
	Sensor string `json:"sensor"`
	Bus    string `json:"bus"`
	CSPin  int    `json:"cs_pin"`
}

// PressureValue is fixed-point to suit TinyGo.
type PressureValue struct {
	// Raw 24-bit sample in 1/4096 hPa.
	Raw uint32 `json:"raw"`
	// Whole hPa (Raw >> 12).
	HPa int32 `json:"hpa"`
	// Hundredths of hPa (Pa).
	CentiHPa int32 `json:"centi_hpa"`
}

type TemperatureValue struct {
	// Tenths of °C (e.g. 231 => 23.1°C).
	DeciC int16 `json:"deci_c"`
}
