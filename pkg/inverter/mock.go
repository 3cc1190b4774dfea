package inverter

import (
	"context"
	"math"
	"time"

	"github.com/pvcast/pvcast/pkg/types"
)

// MockInverter is a deterministic simulated inverter used for local
// development and tests. It produces an hourly daylight bell curve over the
// trailing week.
type MockInverter struct{}

func newMockFactory() Factory {
	return func(ctx context.Context) (System, error) {
		return NewMock(), nil
	}
}

// NewMock returns a simulated inverter.
func NewMock() *MockInverter {
	return &MockInverter{}
}

// GetData returns hourly readings for the 7 days preceding now. Power follows
// a sine bump between 06:00 and 18:00 peaking at 3kW, zero at night.
func (m *MockInverter) GetData(ctx context.Context, ts time.Time) ([]types.PowerReading, error) {
	end := types.Naive(time.Now().UTC().Truncate(time.Hour))
	start := end.AddDate(0, 0, -7)

	var readings []types.PowerReading
	for t := start; !t.After(end); t = t.Add(time.Hour) {
		readings = append(readings, types.PowerReading{
			Timestamp: t,
			PowerKW:   simulatedPowerKW(t),
		})
	}
	return readings, nil
}

func simulatedPowerKW(t time.Time) float64 {
	h := float64(t.Hour())
	if h < 6 || h > 18 {
		return 0
	}
	return 3.0 * math.Sin((h-6)/12*math.Pi)
}
