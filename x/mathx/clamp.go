// Package mathx holds small generic numeric helpers shared by the HAL and
// the heartbeat (sampling periods, fixed-point bounds).
package mathx

import "golang.org/x/exp/constraints"

// Clamp returns v limited to the closed range between lo and hi. The bounds
// may be given in either order.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if lo > hi {
		lo, hi = hi, lo
	}
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
