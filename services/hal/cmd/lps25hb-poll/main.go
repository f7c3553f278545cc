// Command lps25hb-poll: bare driver loop for an LPS25HB on spi0.
//
// Build/flash (TinyGo):
//   tinygo flash -target pico ./services/hal/cmd/lps25hb-poll
//
// Wiring: SPI0 SCK=GP18, SDO=GP19, SDI=GP16; chip select on GP17 (active low).
// On linux/arm64 the kernel chip select is unused and GPIO17 drives CS.
// On a host build the sensor is simulated.

package main

import (
	"time"

	"barocode-go/drivers/lps25hb"
	"barocode-go/services/hal/internal/platform"
)

const csPin = 17

func main() {
	time.Sleep(2 * time.Second)
	println("== lps25hb-poll ==")

	spi, ok := platform.DefaultSPIFactory().ByID("spi0")
	if !ok {
		panic("[lps25hb] spi0 not available")
	}
	cs, ok := platform.DefaultPinFactory().ByNumber(csPin)
	if !ok {
		panic("[lps25hb] chip-select pin not available")
	}
	must(cs.ConfigureOutput(true))

	dev := lps25hb.New(spi, cs)
	dev.Configure()

	identified, err := dev.Init()
	must(err)
	if !identified {
		println("[lps25hb] WHO_AM_I mismatch, continuing")
	}

	for {
		hpa, err := dev.ReadPressure()
		must(err)
		println("[lps25hb] pressure", hpa, "hPa")
		time.Sleep(time.Second)
	}
}

// must halts on bus errors; there is no recovery path.
func must(err error) {
	if err != nil {
		panic("[lps25hb] " + err.Error())
	}
}
