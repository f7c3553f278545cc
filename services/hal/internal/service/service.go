// services/hal/internal/service/service.go
package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"barocode-go/bus"
	"barocode-go/errcode"
	"barocode-go/services/hal/internal/consts"
	"barocode-go/services/hal/internal/halcore"
	"barocode-go/services/hal/internal/halerr"
	"barocode-go/services/hal/internal/provider"
	"barocode-go/services/hal/internal/registry"
	"barocode-go/services/hal/internal/util"
	"barocode-go/services/hal/internal/worker"

	"barocode-go/types"
	"barocode-go/x/mathx"
)

const (
	minPeriod     = 200 * time.Millisecond
	maxPeriod     = time.Hour
	firstReadings = 200 * time.Millisecond
)

type devEntry struct {
	adaptor halcore.Adaptor
	caps    map[string]int // kind -> numeric capability id
	busID   string
}

type capKey struct {
	kind string
	id   int
}

type Service struct {
	conn  *bus.Connection
	buses halcore.SPIBusFactory
	res   *provider.Registry // pin ownership
	wcfg  halcore.WorkerConfig

	workers  map[string]*worker.MeasureWorker // busID -> worker
	busLocks map[string]*sync.Mutex           // busID -> transaction lock
	results chan halcore.Result

	devices map[string]devEntry

	capToDev  map[capKey]string // (kind,id) -> devID
	nextCapID map[string]int

	devPeriod  map[string]time.Duration
	devNextDue map[string]time.Time

	timer *time.Timer
}

var (
	topicConfigHAL = bus.Topic{consts.TokConfig, consts.TokHAL}
	topicCtrl      = bus.Topic{consts.TokHAL, consts.TokCapability, "+", "+", consts.TokControl, "+"}
)

func New(conn *bus.Connection, buses halcore.SPIBusFactory, pins halcore.PinFactory) *Service {
	return &Service{
		conn:       conn,
		buses:      buses,
		res:        provider.New(pins),
		workers:    map[string]*worker.MeasureWorker{},
		busLocks:   map[string]*sync.Mutex{},
		results:    make(chan halcore.Result, 16),
		devices:    map[string]devEntry{},
		capToDev:   map[capKey]string{},
		nextCapID:  map[string]int{},
		devPeriod:  map[string]time.Duration{},
		devNextDue: map[string]time.Time{},
	}
}

// WithWorkerConfig overrides the timings used for workers created after
// the call.
func (s *Service) WithWorkerConfig(cfg halcore.WorkerConfig) *Service {
	s.wcfg = cfg
	return s
}

func (s *Service) Run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicConfigHAL)
	ctrlSub := s.conn.Subscribe(topicCtrl)
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	s.publishState("idle", "awaiting_config", nil)

	s.timer = time.NewTimer(time.Hour)
	if !s.timer.Stop() {
		util.DrainTimer(s.timer)
	}

	for {
		if next := s.earliestDevDue(); next.IsZero() {
			util.ResetTimer(s.timer, time.Hour)
		} else {
			util.ResetTimer(s.timer, time.Until(next))
		}

		select {
		case <-ctx.Done():
			s.publishState("stopped", "context_cancelled", nil)
			return

		case msg := <-cfgSub.Channel():
			var cfg types.HALConfig
			if err := util.DecodeJSON(msg.Payload, &cfg); err != nil {
				s.publishState("error", "config_wrong_type", err)
				continue
			}
			if err := s.applyConfig(ctx, cfg); err != nil {
				s.publishState("error", "apply_config_failed", err)
				continue
			}
			s.publishState("ready", "configured", nil)

		case msg := <-ctrlSub.Channel():
			s.handleControl(msg)

		case <-s.timer.C:
			now := time.Now()
			for devID, due := range s.devNextDue {
				if !now.Before(due) {
					s.submitMeasure(devID, false)
					s.bumpDevNext(devID, now)
				}
			}

		case r := <-s.results:
			s.handleResult(r)
		}
	}
}

func (s *Service) handleControl(msg *bus.Message) {
	if len(msg.Topic) < 6 {
		return
	}
	kind, _ := msg.Topic[2].(string)
	idNum, ok := asInt(msg.Topic[3])
	if !ok || kind == "" {
		s.replyErr(msg, halerr.ErrInvalidCapAddr.Error())
		return
	}
	devID, ok := s.capToDev[capKey{kind: kind, id: idNum}]
	if !ok {
		s.replyErr(msg, halerr.ErrUnknownCap.Error())
		return
	}
	method, _ := msg.Topic[5].(string)

	if method == consts.CtrlReadNow {
		if s.submitMeasure(devID, true) {
			s.bumpDevNext(devID, time.Now())
			s.conn.Reply(msg, types.ReadNowAck{OK: true}, false)
		} else {
			s.replyErr(msg, halerr.ErrBusy.Error())
		}
		return
	}

	ent := s.devices[devID]
	if ent.adaptor == nil {
		s.replyErr(msg, halerr.ErrNoAdaptor.Error())
		return
	}
	l := s.busLock(ent.busID)
	l.Lock()
	res, err := ent.adaptor.Control(kind, method, msg.Payload)
	l.Unlock()
	switch {
	case err == nil:
		s.conn.Reply(msg, res, false)
	case errors.Is(err, halcore.ErrUnsupported):
		s.replyErr(msg, halerr.ErrUnsupported.Error())
	default:
		s.replyErr(msg, string(errcode.MapDriverErr(err)))
	}
}

func (s *Service) applyConfig(ctx context.Context, cfg types.HALConfig) error {
	seen := map[string]struct{}{}
	var firstErr error

	for i := range cfg.Devices {
		d := &cfg.Devices[i]
		seen[d.ID] = struct{}{}

		if _, exists := s.devices[d.ID]; exists {
			continue
		}

		b, ok := registry.Lookup(d.Type)
		if !ok {
			println("[hal] unknown device type", d.Type, "for", d.ID)
			if firstErr == nil {
				firstErr = &errcode.E{C: errcode.InvalidParams, Op: d.ID, Err: halerr.ErrUnknownType}
			}
			continue
		}

		// Build talks to the device; the bus worker may already be running.
		l := s.busLock(d.BusRef.ID)
		l.Lock()
		out, err := b.Build(registry.BuildInput{
			Ctx:        ctx,
			Buses:      s.buses,
			Pins:       s.res,
			DeviceID:   d.ID,
			Type:       d.Type,
			ParamsJSON: d.Params,
			BusRefType: d.BusRef.Type,
			BusRefID:   d.BusRef.ID,
		})
		l.Unlock()
		if err != nil {
			s.res.ReleaseAll(d.ID)
			println("[hal] build", d.ID, "failed:", err.Error())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if out.BusID != "" {
			if _, ok := s.workers[out.BusID]; !ok {
				w := worker.New(s.wcfg, s.results).WithBusLock(s.busLock(out.BusID))
				w.Start(ctx)
				s.workers[out.BusID] = w
			}
		}

		ad := out.Adaptor
		entry := devEntry{adaptor: ad, busID: out.BusID, caps: map[string]int{}}
		now := time.Now()

		for _, ci := range ad.Capabilities() {
			id := s.nextCapID[ci.Kind]
			s.nextCapID[ci.Kind]++

			entry.caps[ci.Kind] = id
			s.capToDev[capKey{kind: ci.Kind, id: id}] = d.ID

			s.pubRet(ci.Kind, id, consts.TokInfo, ci.Info)
			s.pubRet(ci.Kind, id, consts.TokState, types.CapabilityState{Link: types.LinkUp, TS: now})
		}
		s.devices[d.ID] = entry

		if out.SampleEvery > 0 {
			s.devPeriod[d.ID] = out.SampleEvery
			s.devNextDue[d.ID] = now.Add(firstReadings)
		}
	}

	// Tidy-up devices not in config
	for devID, ent := range s.devices {
		if _, ok := seen[devID]; ok {
			continue
		}
		for kind, id := range ent.caps {
			s.pubRet(kind, id, consts.TokInfo, nil)
			s.pubRet(kind, id, consts.TokState, types.CapabilityState{Link: types.LinkDown, TS: time.Now()})
			delete(s.capToDev, capKey{kind: kind, id: id})
		}
		s.res.ReleaseAll(devID)
		delete(s.devices, devID)
		delete(s.devPeriod, devID)
		delete(s.devNextDue, devID)
	}
	return firstErr
}

// ---- measurement helpers ----

// busLock returns the lock shared by every caller that drives a device on busID.
func (s *Service) busLock(busID string) *sync.Mutex {
	l, ok := s.busLocks[busID]
	if !ok {
		l = &sync.Mutex{}
		s.busLocks[busID] = l
	}
	return l
}

func (s *Service) submitMeasure(devID string, prio bool) bool {
	ent, ok := s.devices[devID]
	if !ok {
		return false
	}
	w := s.workers[ent.busID]
	if w == nil {
		return false
	}
	return w.Submit(halcore.MeasureReq{ID: devID, Adaptor: ent.adaptor, Prio: prio})
}

func (s *Service) bumpDevNext(devID string, from time.Time) {
	period := s.devPeriod[devID]
	if period <= 0 {
		return
	}
	s.devNextDue[devID] = from.Add(mathx.Clamp(period, minPeriod, maxPeriod))
}

func (s *Service) earliestDevDue() time.Time {
	var min time.Time
	for _, t := range s.devNextDue {
		if !t.IsZero() && (min.IsZero() || t.Before(min)) {
			min = t
		}
	}
	return min
}

// ---- results ----

func (s *Service) handleResult(r halcore.Result) {
	ent, ok := s.devices[r.ID]
	if !ok {
		return
	}
	now := time.Now()

	if r.Err != nil {
		code := errcode.MapDriverErr(r.Err)
		println("[hal]", r.ID, "measure failed:", string(code))
		for kind, id := range ent.caps {
			s.pubRet(kind, id, consts.TokState, types.CapabilityState{
				Link:  types.LinkDegraded,
				TS:    now,
				Error: string(code),
			})
		}
		return
	}
	for _, rd := range r.Sample {
		id, ok := ent.caps[rd.Kind]
		if !ok {
			continue
		}
		s.conn.Publish(s.conn.NewMessage(capTopicInt(rd.Kind, id, consts.TokValue), rd.Payload, false))
		s.pubRet(rd.Kind, id, consts.TokState, types.CapabilityState{Link: types.LinkUp, TS: now})
	}
}

// ---- bus helpers & utils ----

func (s *Service) publishState(level, status string, err error) {
	pl := types.HALState{Level: level, Status: status, TS: time.Now()}
	if err != nil {
		pl.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(bus.Topic{consts.TokHAL, consts.TokState}, pl, true))
}

func (s *Service) replyErr(req *bus.Message, code string) {
	if !req.CanReply() {
		return
	}
	if code == "" {
		code = string(errcode.Error)
	}
	s.conn.Reply(req, types.ErrorReply{OK: false, Error: code}, false)
}

func capTopicInt(kind string, id int, suffix string) bus.Topic {
	return bus.Topic{consts.TokHAL, consts.TokCapability, kind, id, suffix}
}

func (s *Service) pubRet(kind string, id int, suffix string, p any) {
	s.conn.Publish(s.conn.NewMessage(capTopicInt(kind, id, suffix), p, true))
}

func asInt(t any) (int, bool) {
	switch v := t.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil && n >= 0
	default:
		return 0, false
	}
}
