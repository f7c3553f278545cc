// Package lps25hb provides a driver for the ST LPS25HB barometric pressure
// sensor on a 4-wire SPI bus with a GPIO chip-select line.
//
// Design notes (datasheet references):
//   - SPI mode 3 (clock idle high, capture on the trailing edge), MSB first,
//     up to 10 MHz; the driver is used at 1 MHz.
//   - Command byte: bit7 = read, bit6 = address auto-increment, bits 5:0 address.
//   - WHO_AM_I (0x0F) reads 0xBD.
//   - PRESS_OUT_XL/L/H (0x28..0x2A) hold a 24-bit sample in 1/4096 hPa.
//   - TEMP_OUT_L/H (0x2B..0x2C) hold a 16-bit sample; T = 42.5 + raw/480 °C.
//
// Every register transaction asserts chip select, exchanges its bytes and
// deasserts chip select before returning. The bus primitives themselves never
// touch chip select.
package lps25hb

import (
	"errors"

	"tinygo.org/x/drivers"
)

// Errors returned by the driver.
var (
	ErrNotReady = errors.New("lps25hb: not ready")
	ErrIdentity = errors.New("lps25hb: unexpected WHO_AM_I")
)

// Device wraps an SPI connection to an LPS25HB.
type Device struct {
	bus drivers.SPI
	cs  ChipSelect

	// Fixed transfer buffer: command byte plus up to three data bytes.
	buf [4]byte
}

// New creates a Device. The SPI bus must already be configured for mode 3.
// This function only creates the Device object; it does not touch the device.
func New(bus drivers.SPI, cs OutputPin) *Device {
	return &Device{
		bus: bus,
		cs:  NewChipSelect(cs),
	}
}

// Configure releases chip select so the device starts deselected.
func (d *Device) Configure() {
	d.cs.Deassert()
}

// Init checks WHO_AM_I and then powers the device up into continuous
// measurement. The power-up write is issued even when the identification
// check fails; the returned bool reports whether it passed. A bus error
// aborts the sequence.
func (d *Device) Init() (bool, error) {
	id, err := d.readRegister(regWhoAmI)
	if err != nil {
		return false, err
	}
	if err := d.writeRegister(regCtrl1, ctrl1Active); err != nil {
		return false, err
	}
	return id == DeviceID, nil
}

// Connected reports whether WHO_AM_I reads DeviceID. It has no side effects.
func (d *Device) Connected() (bool, error) {
	id, err := d.readRegister(regWhoAmI)
	if err != nil {
		return false, err
	}
	return id == DeviceID, nil
}

// PowerDown puts the device in standby.
func (d *Device) PowerDown() error {
	return d.writeRegister(regCtrl1, ctrl1PowerDown)
}

// Reset issues a software reset of the user registers. The device is in
// standby afterwards; call Init again.
func (d *Device) Reset() error {
	return d.writeRegister(regCtrl2, ctrl2SWReset)
}

// Status returns STATUS_REG.
func (d *Device) Status() (byte, error) {
	return d.readRegister(regStatus)
}

// ReadRaw performs one auto-increment read of PRESS_OUT_XL..H and returns
// the assembled 24-bit sample.
func (d *Device) ReadRaw() (uint32, error) {
	reply, err := d.readPressureOut()
	if err != nil {
		return 0, err
	}
	return DecodeRaw(reply), nil
}

// ReadPressure returns pressure in whole hPa (raw >> 12).
func (d *Device) ReadPressure() (int32, error) {
	reply, err := d.readPressureOut()
	if err != nil {
		return 0, err
	}
	return DecodePressure(reply), nil
}

func (d *Device) readPressureOut() ([4]byte, error) {
	d.buf = [4]byte{AutoIncrementRead(regPressOutX)}
	if err := d.transaction(d.buf[:]); err != nil {
		return [4]byte{}, err
	}
	return d.buf, nil
}

// ReadTemperature returns the raw 16-bit temperature sample.
func (d *Device) ReadTemperature() (int16, error) {
	b := d.buf[:3]
	b[0] = AutoIncrementRead(regTempOutL)
	b[1], b[2] = 0, 0
	if err := d.transaction(b); err != nil {
		return 0, err
	}
	return int16(uint16(b[1]) | uint16(b[2])<<8), nil
}

// Read fills out with the latest pressure and temperature. It returns
// ErrNotReady if no new pressure sample has been produced since the last read.
func (d *Device) Read(out *Sample) error {
	st, err := d.Status()
	if err != nil {
		return err
	}
	if st&statusPDA == 0 {
		return ErrNotReady
	}
	raw, err := d.ReadRaw()
	if err != nil {
		return err
	}
	var t int16
	if st&statusTDA != 0 {
		if t, err = d.ReadTemperature(); err != nil {
			return err
		}
	}
	if out != nil {
		out.RawPressure = raw
		out.RawTemp = t
		out.HasTemp = st&statusTDA != 0
	}
	return nil
}

// ---- register transactions ----

func (d *Device) readRegister(reg byte) (byte, error) {
	d.cs.Assert()
	defer d.cs.Deassert()
	if _, err := d.exchange(ReadRequest(reg)); err != nil {
		return 0, err
	}
	return d.exchange(0)
}

func (d *Device) writeRegister(reg, val byte) error {
	d.cs.Assert()
	defer d.cs.Deassert()
	if _, err := d.exchange(WriteRequest(reg)); err != nil {
		return err
	}
	_, err := d.exchange(val)
	return err
}

// transaction runs one chip-select bracketed in-place exchange of buf.
func (d *Device) transaction(buf []byte) error {
	d.cs.Assert()
	defer d.cs.Deassert()
	return d.exchangeBuf(buf)
}

// ---- bus primitives (chip select is the caller's job) ----

// exchange clocks one byte out and returns the byte clocked in.
func (d *Device) exchange(b byte) (byte, error) {
	return d.bus.Transfer(b)
}

// exchangeBuf is a full-duplex transfer over buf; byte i sent yields byte i
// received, written back into buf.
func (d *Device) exchangeBuf(buf []byte) error {
	return d.bus.Tx(buf, buf)
}
