package heartbeat

import (
	"context"
	"time"

	"barocode-go/bus"
	"barocode-go/types"
	"barocode-go/x/conv"
	"barocode-go/x/mathx"
)

var (
	topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}
	topicValues          = bus.Topic{"hal", "capability", "+", "+", "value"}
)

// Service prints a periodic status line with the latest barometer reading.
type Service struct {
	buf      [24]byte
	last     types.PressureValue
	lastTemp types.TemperatureValue
	have     bool
	haveTemp bool
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)
	valSub := conn.Subscribe(topicValues)
	defer conn.Unsubscribe(valSub)

	tick := time.NewTicker(1 * time.Second)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("[heartbeat] stopping")
			return
		case t := <-tick.C:
			if line, ok := s.report(t); ok {
				println(line)
			}
		case msg := <-valSub.Channel():
			s.observe(msg.Payload)
		case msg := <-cfgSub.Channel():
			if d, ok := interval(msg.Payload); ok {
				tick.Reset(d)
				println("[heartbeat] interval set to", int(d/time.Millisecond), "ms")
			}
		}
	}
}

func (s *Service) observe(p any) {
	switch v := p.(type) {
	case types.PressureValue:
		s.last, s.have = v, true
	case types.TemperatureValue:
		s.lastTemp, s.haveTemp = v, true
	}
}

// report formats the status line for t. Nothing is reported before the
// first pressure sample.
func (s *Service) report(t time.Time) (string, bool) {
	if !s.have {
		return "", false
	}
	line := "[heartbeat] " + t.Format("15:04:05") + " " + string(conv.Fixed(s.buf[:], int64(s.last.CentiHPa), 2)) + " hPa"
	if s.haveTemp {
		line += " " + string(conv.Fixed(s.buf[:], int64(s.lastTemp.DeciC), 1)) + " C"
	}
	return line, true
}

// interval reads {"interval_ms": n}, clamped to 1 s .. 1 h.
func interval(p any) (time.Duration, bool) {
	m, ok := p.(map[string]any)
	if !ok {
		return 0, false
	}
	ms, ok := m["interval_ms"].(float64)
	if !ok || ms <= 0 {
		return 0, false
	}
	return mathx.Clamp(time.Duration(ms)*time.Millisecond, time.Second, time.Hour), true
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
