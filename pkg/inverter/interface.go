package inverter

import (
	"context"
	"time"

	"github.com/pvcast/pvcast/pkg/types"
)

// System defines the interface for pulling live telemetry from an inverter
// integration (like Victron VRM). Given a timestamp, it produces an ordered
// series of timestamped power readings.
type System interface {
	// GetData returns recent telemetry as a series of power readings with
	// strictly non-decreasing naive timestamps. When telemetry is
	// unavailable it returns an error from the types taxonomy; it never
	// panics. The contract defines no retries, each adapter owns its own
	// resilience policy.
	GetData(ctx context.Context, ts time.Time) ([]types.PowerReading, error)
}
