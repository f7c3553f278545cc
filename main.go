package main

import (
	"context"
	"time"

	"barocode-go/bus"
	"barocode-go/services/config"
	"barocode-go/services/hal"
	"barocode-go/services/heartbeat"
	"barocode-go/types"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot", device)

	b := bus.NewBus(16)
	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, device)

	config.NewConfigService().Start(ctx, b.NewConnection("config"))
	go hal.Run(ctx, b.NewConnection("hal"))
	_ = (&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat"))

	conn := b.NewConnection("main")
	state := conn.Subscribe(bus.T("hal", "state"))
	values := conn.Subscribe(bus.T("hal", "capability", "pressure", 0, "value"))
	caps := conn.Subscribe(bus.T("hal", "capability", "pressure", 0, "state"))

	for {
		select {
		case m := <-state.Channel():
			if st, ok := m.Payload.(types.HALState); ok {
				println("[main] hal", st.Level, st.Status, st.Error)
			}
		case m := <-caps.Channel():
			if st, ok := m.Payload.(types.CapabilityState); ok && st.Link != types.LinkUp {
				println("[main] pressure/0", string(st.Link), st.Error)
			}
		case m := <-values.Channel():
			if v, ok := m.Payload.(types.PressureValue); ok {
				println("[main] pressure", v.HPa, "hPa", v.CentiHPa, "Pa")
			}
		}
	}
}
