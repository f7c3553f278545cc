// services/hal/internal/devices/lps25hb/adaptor.go
package lps25hbdev

import (
	"context"
	"errors"
	"sync"
	"time"

	"barocode-go/drivers/lps25hb"
	"barocode-go/errcode"
	"barocode-go/services/hal/internal/consts"
	"barocode-go/services/hal/internal/halcore"
	"barocode-go/services/hal/internal/halerr"
	"barocode-go/services/hal/internal/registry"
	"barocode-go/services/hal/internal/util"
	"barocode-go/types"
	"barocode-go/x/mathx"
	"barocode-go/x/timex"
)

// CTRL_REG1 0x90 selects the 1 Hz output data rate.
const odrHz = 1

func init() {
	registry.RegisterBuilder("lps25hb", lps25hbBuilder{})
}

type lps25hbBuilder struct{}

func (lps25hbBuilder) Build(in registry.BuildInput) (registry.BuildOutput, error) {
	if in.BusRefType != consts.BusSPI || in.BusRefID == "" {
		return registry.BuildOutput{}, &errcode.E{C: errcode.InvalidParams, Op: in.DeviceID, Err: halerr.ErrMissingBusRef}
	}
	spi, ok := in.Buses.ByID(in.BusRefID)
	if !ok {
		return registry.BuildOutput{}, &errcode.E{C: errcode.UnknownBus, Op: in.DeviceID, Msg: in.BusRefID, Err: halerr.ErrUnknownBus}
	}
	var p types.LPS25HBParams
	if err := util.DecodeJSON(in.ParamsJSON, &p); err != nil {
		return registry.BuildOutput{}, &errcode.E{C: errcode.InvalidParams, Op: in.DeviceID, Err: err}
	}
	pin, err := in.Pins.ClaimPin(in.DeviceID, p.CSPin)
	if err != nil {
		return registry.BuildOutput{}, &errcode.E{C: errcode.Of(err), Op: in.DeviceID, Msg: "cs_pin", Err: err}
	}
	// Deselected before the first clock edge.
	if err := pin.ConfigureOutput(true); err != nil {
		return registry.BuildOutput{}, &errcode.E{C: errcode.UnknownPin, Op: in.DeviceID, Err: err}
	}

	dev := lps25hb.New(spi, pin)
	dev.Configure()
	identified, err := dev.Init()
	if err != nil {
		return registry.BuildOutput{}, &errcode.E{C: errcode.MapDriverErr(err), Op: in.DeviceID, Msg: "init", Err: err}
	}
	if !identified {
		if p.Strict {
			return registry.BuildOutput{}, &errcode.E{C: errcode.IDMismatch, Op: in.DeviceID, Err: lps25hb.ErrIdentity}
		}
		println("[hal]", in.DeviceID, "lps25hb: WHO_AM_I mismatch, continuing")
	}

	ad := &adaptor{
		id:         in.DeviceID,
		dev:        dev,
		bus:        in.BusRefID,
		csPin:      p.CSPin,
		identified: identified,
	}
	def := time.Duration(timex.PeriodFromHz(odrHz))
	return registry.BuildOutput{
		Adaptor:     ad,
		BusID:       in.BusRefID,
		SampleEvery: util.PeriodFromMs(p.PeriodMs, def, 200*time.Millisecond, time.Hour),
	}, nil
}

type adaptor struct {
	id    string
	bus   string
	csPin int

	mu         sync.Mutex // Control runs outside the bus worker
	dev        *lps25hb.Device
	identified bool
}

func (a *adaptor) ID() string { return a.id }

func (a *adaptor) Capabilities() []halcore.CapInfo {
	a.mu.Lock()
	identified := a.identified
	a.mu.Unlock()
	return []halcore.CapInfo{
		{Kind: consts.KindPressure, Info: types.Info{
			SchemaVersion: 1,
			Driver:        "lps25hb",
			Detail:        types.PressureInfo{Sensor: "lps25hb", Bus: a.bus, CSPin: a.csPin, Identified: identified},
		}},
		{Kind: consts.KindTemperature, Info: types.Info{
			SchemaVersion: 1,
			Driver:        "lps25hb",
			Detail:        types.TemperatureInfo{Sensor: "lps25hb", Bus: a.bus, CSPin: a.csPin},
		}},
	}
}

// Trigger is a no-op: the sensor converts continuously once active.
func (a *adaptor) Trigger(ctx context.Context) (time.Duration, error) {
	return 0, nil
}

func (a *adaptor) Collect(ctx context.Context) (halcore.Sample, error) {
	var s lps25hb.Sample
	a.mu.Lock()
	err := a.dev.Read(&s)
	a.mu.Unlock()
	if err != nil {
		if errors.Is(err, lps25hb.ErrNotReady) {
			return nil, halcore.ErrNotReady
		}
		return nil, err
	}
	ts := timex.NowMs()
	out := halcore.Sample{{
		Kind:    consts.KindPressure,
		Payload: types.PressureValue{Raw: s.RawPressure, HPa: s.HPa(), CentiHPa: s.CentiHPa()},
		TsMs:    ts,
	}}
	if s.HasTemp {
		deciC := mathx.Clamp(s.DeciCelsius(), -32768, 32767)
		out = append(out, halcore.Reading{
			Kind:    consts.KindTemperature,
			Payload: types.TemperatureValue{DeciC: int16(deciC)},
			TsMs:    ts,
		})
	}
	return out, nil
}

// Control supports "identify", which re-reads WHO_AM_I.
func (a *adaptor) Control(kind, method string, payload any) (any, error) {
	if method != "identify" {
		return nil, halcore.ErrUnsupported
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	ok, err := a.dev.Connected()
	if err != nil {
		return nil, err
	}
	a.identified = ok
	return types.IdentifyReply{OK: true, Identified: ok}, nil
}
