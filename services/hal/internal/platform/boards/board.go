package boards

// Board describes what the PCB/SoC offers and how the SPI ports are wired.
type Board struct {
	Name             string
	GPIOMin, GPIOMax int

	SPI []SPIPlan

	// GPIOChip names the character device used for chip select on Linux.
	GPIOChip string
}

// SPIPlan is the wiring and clocking of one SPI port. Chip select is not
// part of the plan; devices own their own select pin.
type SPIPlan struct {
	ID            string // "spi0"
	SCK, SDO, SDI int
	Hz            uint32
	Mode          uint8
	Dev           string // Linux spidev name, "" for the first one found
}

// PicoBaro is a Pico or Pico 2 with the barometer on SPI0 (GP16..19).
var PicoBaro = Board{
	Name:    "pico_baro",
	GPIOMin: 0, GPIOMax: 28,
	SPI: []SPIPlan{
		{ID: "spi0", SCK: 18, SDO: 19, SDI: 16, Hz: 1_000_000, Mode: 3},
	},
}

// RPiBaro is a Raspberry Pi (arm64) with the barometer on SPI0 and chip
// select driven as a plain GPIO.
var RPiBaro = Board{
	Name:    "rpi_baro",
	GPIOMin: 0, GPIOMax: 27,
	SPI: []SPIPlan{
		{ID: "spi0", SCK: 11, SDO: 10, SDI: 9, Hz: 1_000_000, Mode: 3, Dev: "/dev/spidev0.0"},
	},
	GPIOChip: "gpiochip0",
}

func (b Board) SPIByID(id string) (SPIPlan, bool) {
	for _, p := range b.SPI {
		if p.ID == id {
			return p, true
		}
	}
	return SPIPlan{}, false
}

func (b Board) ValidPin(n int) bool { return n >= b.GPIOMin && n <= b.GPIOMax }
