package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteValidate(t *testing.T) {
	tests := []struct {
		name    string
		site    Site
		wantErr bool
	}{
		{"Valid", Site{Latitude: 51.5, Longitude: -0.1, CapacityKWP: 4.0}, false},
		{"Valid With Inverter", Site{Latitude: 51.5, Longitude: -0.1, CapacityKWP: 4.0, InverterType: "victron"}, false},
		{"Latitude Too High", Site{Latitude: 91, Longitude: 0, CapacityKWP: 1}, true},
		{"Latitude Too Low", Site{Latitude: -90.5, Longitude: 0, CapacityKWP: 1}, true},
		{"Longitude Too High", Site{Latitude: 0, Longitude: 180.1, CapacityKWP: 1}, true},
		{"Longitude Too Low", Site{Latitude: 0, Longitude: -181, CapacityKWP: 1}, true},
		{"Zero Capacity", Site{Latitude: 0, Longitude: 0}, true},
		{"Negative Capacity", Site{Latitude: 0, Longitude: 0, CapacityKWP: -1}, true},
		{"Boundary Coordinates", Site{Latitude: -90, Longitude: 180, CapacityKWP: 0.1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.site.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSiteWithoutInverter(t *testing.T) {
	site := Site{Latitude: 51.5, Longitude: -0.1, CapacityKWP: 4.0, InverterType: "victron"}
	stripped := site.WithoutInverter()

	assert.False(t, stripped.HasInverter())
	assert.Equal(t, site.Latitude, stripped.Latitude)
	assert.Equal(t, site.Longitude, stripped.Longitude)
	assert.Equal(t, site.CapacityKWP, stripped.CapacityKWP)
	// original untouched
	assert.True(t, site.HasInverter())
}

func TestEffectiveTime(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 30, 45, 123456789, time.UTC)

	t.Run("Defaults To Now Truncated To Seconds", func(t *testing.T) {
		req := ForecastRequest{}
		ts, err := req.EffectiveTime(now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 6, 1, 10, 30, 45, 0, time.UTC), ts)
	})

	t.Run("Defaults Independent Of Caller Timezone", func(t *testing.T) {
		loc := time.FixedZone("UTC+5", 5*3600)
		req := ForecastRequest{}
		ts, err := req.EffectiveTime(now.In(loc))
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 6, 1, 10, 30, 45, 0, time.UTC), ts)
	})

	t.Run("RFC3339 Zulu Keeps Wall Clock", func(t *testing.T) {
		req := ForecastRequest{Timestamp: "2024-01-01T12:00:00Z"}
		ts, err := req.EffectiveTime(now)
		require.NoError(t, err)
		assert.Equal(t, "2024-01-01 12:00:00", ts.Format(TimeLayout))
	})

	t.Run("Offset Dropped Not Converted", func(t *testing.T) {
		// naive means the offset is stripped, keeping the wall clock
		req := ForecastRequest{Timestamp: "2024-01-01T12:00:00+05:00"}
		ts, err := req.EffectiveTime(now)
		require.NoError(t, err)
		assert.Equal(t, "2024-01-01 12:00:00", ts.Format(TimeLayout))
	})

	t.Run("Naive Input Accepted", func(t *testing.T) {
		req := ForecastRequest{Timestamp: "2024-01-01T12:00:00"}
		ts, err := req.EffectiveTime(now)
		require.NoError(t, err)
		assert.Equal(t, "2024-01-01 12:00:00", ts.Format(TimeLayout))
	})

	t.Run("Garbage Rejected", func(t *testing.T) {
		req := ForecastRequest{Timestamp: "not-a-timestamp"}
		_, err := req.EffectiveTime(now)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestForecastResultSortedKeys(t *testing.T) {
	res := ForecastResult{
		Predictions: map[string]Prediction{
			"2024-01-01 13:00:00": {PowerKW: 2},
			"2024-01-01 11:00:00": {PowerKW: 1},
			"2024-01-01 12:00:00": {PowerKW: 3},
		},
	}
	assert.Equal(t, []string{
		"2024-01-01 11:00:00",
		"2024-01-01 12:00:00",
		"2024-01-01 13:00:00",
	}, res.SortedKeys())
}
