//go:build rp2040

package platform

import (
	"device/rp"
	"machine"

	"tinygo.org/x/drivers"

	"barocode-go/drivers/spipoll"
)

// spiPort drives SPI0 byte by byte through its status and data registers so
// that a wedged peripheral surfaces as spipoll.ErrTimeout.
func spiPort(spi *machine.SPI) drivers.SPI {
	return spipoll.New(&sspRegs{r: spi.Bus}, spipoll.Config{})
}

// sspRegs is the PL022 register view of one RP2040 SPI block.
type sspRegs struct {
	r *rp.SPI0_Type
}

func (s *sspRegs) TxReady() bool { return s.r.SSPSR.HasBits(rp.SPI0_SSPSR_TNF) }
func (s *sspRegs) RxReady() bool { return s.r.SSPSR.HasBits(rp.SPI0_SSPSR_RNE) }

func (s *sspRegs) Send(b byte) error {
	s.r.SSPDR.Set(uint32(b))
	return nil
}

func (s *sspRegs) Recv() (byte, error) { return byte(s.r.SSPDR.Get()), nil }
