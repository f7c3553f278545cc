// services/hal/internal/util/util.go
package util

import (
	"encoding/json"
	"time"

	"barocode-go/x/mathx"
)

func ResetTimer(t *time.Timer, d time.Duration) {
	if d < 0 {
		d = 0
	}
	if !t.Stop() {
		DrainTimer(t)
	}
	t.Reset(d)
}

func DrainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}

// DecodeJSON accepts raw JSON, a JSON string, or an already-decoded value
// (typed struct or map) and decodes it into dst.
func DecodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case nil:
		return nil
	case *T:
		*dst = *v
		return nil
	case T:
		*dst = v
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}

// PeriodFromMs converts a configured millisecond period, substituting def
// for zero and clamping to [lo, hi].
func PeriodFromMs(ms int, def, lo, hi time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return mathx.Clamp(time.Duration(ms)*time.Millisecond, lo, hi)
}
