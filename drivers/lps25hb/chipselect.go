package lps25hb

// OutputPin is a digital output. machine.Pin satisfies it on TinyGo targets.
// Implementations that can fail to drive the line treat that as fatal.
type OutputPin interface {
	Set(high bool)
}

// ChipSelect drives an active-low chip-select line. It holds no state of its
// own; callers bracket each transaction with Assert and Deassert.
type ChipSelect struct {
	pin OutputPin
}

func NewChipSelect(pin OutputPin) ChipSelect { return ChipSelect{pin: pin} }

// Assert selects the device (line low).
func (cs ChipSelect) Assert() { cs.pin.Set(false) }

// Deassert releases the device (line high).
func (cs ChipSelect) Deassert() { cs.pin.Set(true) }
