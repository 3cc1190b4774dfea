package forecast

import (
	"context"
	"time"

	"github.com/pvcast/pvcast/pkg/types"
	"github.com/stretchr/testify/mock"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Run(ctx context.Context, site types.Site, ts time.Time) ([]types.PowerReading, error) {
	args := m.Called(ctx, site, ts)
	if len(args) > 0 {
		if r, ok := args.Get(0).([]types.PowerReading); ok {
			return r, args.Error(1)
		}
		return nil, args.Error(1)
	}
	return nil, nil
}

type mockSystem struct {
	mock.Mock
}

func (m *mockSystem) GetData(ctx context.Context, ts time.Time) ([]types.PowerReading, error) {
	args := m.Called(ctx, ts)
	if len(args) > 0 {
		if r, ok := args.Get(0).([]types.PowerReading); ok {
			return r, args.Error(1)
		}
		return nil, args.Error(1)
	}
	return nil, nil
}
