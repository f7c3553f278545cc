package config

import (
	"context"
	"encoding/json"
	"errors"

	"barocode-go/bus"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// publishConfig reads the device config from embedded data and publishes
// each top-level key as a retained config/<key> message.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errors.New("config: missing device ID in context")
	}

	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return errors.New("config: no embedded config for device: " + device)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return errors.New("config: embedded config is not a JSON object: " + err.Error())
	}

	for k, v := range m {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			println("[config]", err.Error())
		}
	}()
}
