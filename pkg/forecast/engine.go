package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/pvcast/pvcast/pkg/common"
	"github.com/pvcast/pvcast/pkg/inverter"
	"github.com/pvcast/pvcast/pkg/log"
	"github.com/pvcast/pvcast/pkg/types"
)

// Engine produces a power forecast for a site at a timestamp. It is treated
// as a pure function of (site, timestamp); its internals are not owned by
// this repository.
type Engine interface {
	Run(ctx context.Context, site types.Site, ts time.Time) ([]types.PowerReading, error)
}

// ModelBridge implements Engine by calling the external forecasting model
// service over HTTP. When the site carries an inverter type, the bridge looks
// up the matching adapter and attaches its live telemetry to the model
// request; adapter selection is delegated here, never to the reconciler.
type ModelBridge struct {
	client    *http.Client
	baseURL   string
	inverters *inverter.Map
}

// Configured initializes the ModelBridge with the inverter providers.
// It uses lflag to register flags for configuration.
func Configured(inverters *inverter.Map) *ModelBridge {
	modelURL := lflag.String("model-url", "http://localhost:8501", "Base URL of the forecasting model service")

	b := &ModelBridge{
		client:    common.HTTPClient(30 * time.Second),
		inverters: inverters,
	}
	lflag.Do(func() {
		b.baseURL = *modelURL
	})
	return b
}

// NewModelBridge creates a bridge against a fixed URL. This is primarily used for testing.
func NewModelBridge(baseURL string, client *http.Client, inverters *inverter.Map) *ModelBridge {
	return &ModelBridge{
		client:    client,
		baseURL:   baseURL,
		inverters: inverters,
	}
}

type modelReading struct {
	Timestamp string  `json:"timestamp"`
	PowerKW   float64 `json:"power_kw"`
}

type modelRequest struct {
	Site      types.Site     `json:"site"`
	Timestamp string         `json:"timestamp"`
	Telemetry []modelReading `json:"telemetry,omitempty"`
}

type modelResponse struct {
	Predictions []modelReading `json:"predictions"`
}

// Run invokes the model service. Taxonomy errors from inverter adapters
// propagate unchanged; transport and decode failures against the model
// service are wrapped once here.
func (b *ModelBridge) Run(ctx context.Context, site types.Site, ts time.Time) ([]types.PowerReading, error) {
	mreq := modelRequest{
		Site:      site,
		Timestamp: ts.Format(types.TimeLayout),
	}

	if site.HasInverter() {
		sys, err := b.inverters.System(ctx, site.InverterType)
		if err != nil {
			return nil, err
		}
		telemetry, err := sys.GetData(ctx, ts)
		if err != nil {
			return nil, err
		}
		mreq.Telemetry = make([]modelReading, len(telemetry))
		for i, r := range telemetry {
			mreq.Telemetry[i] = modelReading{
				Timestamp: r.Timestamp.Format(types.TimeLayout),
				PowerKW:   r.PowerKW,
			}
		}
		log.Ctx(ctx).DebugContext(ctx, "attached live telemetry to model request",
			slog.String("inverterType", site.InverterType),
			slog.Int("readings", len(mreq.Telemetry)),
		)
	}

	body, err := json.Marshal(mreq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal model request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/run_forecast", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, types.ConnectionErrorf("model service unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.ConnectionErrorf("model service returned status %d", resp.StatusCode)
	}

	var mres modelResponse
	if err := json.NewDecoder(resp.Body).Decode(&mres); err != nil {
		return nil, types.DataUnavailableErrorf("failed to decode model response: %v", err)
	}
	if len(mres.Predictions) == 0 {
		return nil, types.DataUnavailableErrorf("model returned no predictions")
	}

	readings := make([]types.PowerReading, len(mres.Predictions))
	var prev time.Time
	for i, p := range mres.Predictions {
		t, err := time.Parse(types.TimeLayout, p.Timestamp)
		if err != nil {
			return nil, types.DataUnavailableErrorf("bad prediction timestamp %q: %v", p.Timestamp, err)
		}
		if t.Before(prev) {
			return nil, types.DataUnavailableErrorf("prediction timestamps are not non-decreasing at %q", p.Timestamp)
		}
		prev = t
		readings[i] = types.PowerReading{Timestamp: t, PowerKW: p.PowerKW}
	}
	return readings, nil
}
