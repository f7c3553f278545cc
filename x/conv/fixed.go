package conv

// Fixed appends n scaled by 10^-decimals to buf[:0] ("1013.25" for 101325
// with 2 decimals) and returns the result. decimals is limited to 18.
// No fmt/strconv dependency.
func Fixed(buf []byte, n int64, decimals int) []byte {
	if decimals > 18 {
		decimals = 18
	}
	out := buf[:0]
	var u uint64
	if n < 0 {
		out = append(out, '-')
		u = uint64(-n)
	} else {
		u = uint64(n)
	}
	var w [24]byte
	d := Utoa(w[:], u)
	if decimals <= 0 {
		return append(out, d...)
	}
	// At least one integer digit.
	for len(d) <= decimals {
		i := len(w) - len(d) - 1
		w[i] = '0'
		d = w[i:]
	}
	out = append(out, d[:len(d)-decimals]...)
	out = append(out, '.')
	return append(out, d[len(d)-decimals:]...)
}
