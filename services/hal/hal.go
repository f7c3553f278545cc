// services/hal/hal.go
package hal

import (
	"context"

	"barocode-go/bus"
	"barocode-go/services/hal/internal/platform"
	"barocode-go/services/hal/internal/service"

	// Register device builders.
	_ "barocode-go/services/hal/internal/devices/lps25hb"
)

// Run serves the HAL on conn with the platform's default SPI ports and GPIOs
// until ctx is cancelled. Devices come from the retained config/hal message.
func Run(ctx context.Context, conn *bus.Connection) {
	service.New(conn, platform.DefaultSPIFactory(), platform.DefaultPinFactory()).Run(ctx)
}
