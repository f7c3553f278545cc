//go:build rp2350

package platform

import (
	"machine"

	"tinygo.org/x/drivers"
)

func spiPort(spi *machine.SPI) drivers.SPI { return spi }
