package lps25hb

// Sample holds raw readings.
type Sample struct {
	RawPressure uint32 // 24-bit, 1/4096 hPa
	RawTemp     int16
	HasTemp     bool
}

// DecodeRaw assembles the 24-bit sample from the reply of a PRESS_OUT
// auto-increment read. reply[0] is the byte clocked in during the command
// and is ignored.
func DecodeRaw(reply [4]byte) uint32 {
	return uint32(reply[3])<<16 | uint32(reply[2])<<8 | uint32(reply[1])
}

// DecodePressure returns whole hPa from a PRESS_OUT reply.
func DecodePressure(reply [4]byte) int32 {
	return int32(DecodeRaw(reply) >> 12)
}

// Fixed-point conversion helpers operating on Sample.

// HPa returns whole hectopascals.
func (s Sample) HPa() int32 { return int32(s.RawPressure >> 12) }

// CentiHPa returns hundredths of a hectopascal (Pa).
func (s Sample) CentiHPa() int32 {
	return int32((int64(s.RawPressure) * 100) >> 12)
}

// DeciCelsius returns tenths of °C: 425 + raw/48.
func (s Sample) DeciCelsius() int32 {
	return 425 + int32(s.RawTemp)/48
}
