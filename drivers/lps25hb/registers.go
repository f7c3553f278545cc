package lps25hb

// Register map (subset used by this driver).
const (
	regWhoAmI    = 0x0F
	regCtrl1     = 0x20
	regCtrl2     = 0x21
	regStatus    = 0x27
	regPressOutX = 0x28 // PRESS_OUT_XL, then _L, _H
	regTempOutL  = 0x2B // TEMP_OUT_L, then _H
)

// DeviceID is the WHO_AM_I reply of an LPS25HB.
const DeviceID = 0xBD

// CTRL_REG1 values.
const (
	ctrl1Active    = 0x90 // PD=1, ODR=001 (1 Hz continuous)
	ctrl1PowerDown = 0x00
)

// CTRL_REG2 bits.
const (
	ctrl2SWReset = 0x04
)

// STATUS_REG bits.
const (
	statusTDA = 0x01 // temperature data available
	statusPDA = 0x02 // pressure data available
)

// SPI command byte bits. Address occupies the low bits.
const (
	cmdRead    = 0x80
	cmdAutoInc = 0x40
	addrMask   = 0x7F
)

// ReadRequest returns the command byte for a single register read.
func ReadRequest(addr byte) byte { return addr&addrMask | cmdRead }

// AutoIncrementRead returns the command byte for a multi-byte read that
// advances the register address after every byte.
func AutoIncrementRead(addr byte) byte { return addr&addrMask | cmdRead | cmdAutoInc }

// WriteRequest returns the command byte for a single register write.
func WriteRequest(addr byte) byte { return addr & addrMask }
