package config

// Embedded configuration per device ID (the value placed in ctx under
// CtxDeviceKey). Each top-level key becomes a retained config/<key> message.

const cfgPico = `{
  "hal": {
    "devices": [
      {
        "id": "baro0",
        "type": "lps25hb",
        "params": {"cs_pin": 17},
        "bus_ref": {"type": "spi", "id": "spi0"}
      }
    ]
  },
  "heartbeat": {
    "interval_ms": 5000
  }
}`

// GPIO17 (header pin 11) drives chip select; CE0 is left to the kernel.
const cfgRPi = `{
  "hal": {
    "devices": [
      {
        "id": "baro0",
        "type": "lps25hb",
        "params": {"cs_pin": 17, "strict": true},
        "bus_ref": {"type": "spi", "id": "spi0"}
      }
    ]
  },
  "heartbeat": {
    "interval_ms": 10000
  }
}`

const cfgHost = `{
  "hal": {
    "devices": [
      {
        "id": "baro0",
        "type": "lps25hb",
        "params": {"cs_pin": 17, "period_ms": 500},
        "bus_ref": {"type": "spi", "id": "spi0"}
      }
    ]
  },
  "heartbeat": {
    "interval_ms": 2000
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"rpi":  []byte(cfgRPi),
	"host": []byte(cfgHost),
}
