package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pvcast/pvcast/pkg/log"
	"github.com/pvcast/pvcast/pkg/types"
)

// Reconciler orchestrates the baseline and live forecast invocations for one
// request and merges their series into a single result. It holds no
// cross-request state.
type Reconciler struct {
	engine Engine
}

// NewReconciler creates a Reconciler on top of the given engine.
func NewReconciler(engine Engine) *Reconciler {
	return &Reconciler{engine: engine}
}

// Forecast computes the forecast for the site at ts. The baseline (no-live)
// forecast is always computed, even when live telemetry is requested, so
// responses can show live-corrected and pure-model predictions side by side.
// With an inverter present the result is keyed by the live series'
// timestamps and each prediction carries the baseline value as
// power_kw_no_live_pv.
func (r *Reconciler) Forecast(ctx context.Context, site types.Site, ts time.Time) (types.ForecastResult, error) {
	baseline, err := r.engine.Run(ctx, site.WithoutInverter(), ts)
	if err != nil {
		return types.ForecastResult{}, fmt.Errorf("baseline forecast failed: %w", err)
	}

	result := types.ForecastResult{
		Timestamp:   ts.Format(types.TimeLayout),
		Predictions: make(map[string]types.Prediction, len(baseline)),
	}

	if !site.HasInverter() {
		for _, p := range baseline {
			result.Predictions[p.Timestamp.Format(types.TimeLayout)] = types.Prediction{PowerKW: p.PowerKW}
		}
		return result, nil
	}

	live, err := r.engine.Run(ctx, site, ts)
	if err != nil {
		return types.ForecastResult{}, fmt.Errorf("live forecast failed: %w", err)
	}

	baselineByTS := make(map[string]float64, len(baseline))
	for _, p := range baseline {
		baselineByTS[p.Timestamp.Format(types.TimeLayout)] = p.PowerKW
	}

	var unmatched int
	for _, p := range live {
		key := p.Timestamp.Format(types.TimeLayout)
		pred := types.Prediction{PowerKW: p.PowerKW}
		if b, ok := baselineByTS[key]; ok {
			b := b
			pred.PowerKWNoLive = &b
		} else {
			unmatched++
		}
		result.Predictions[key] = pred
	}
	if unmatched > 0 {
		log.Ctx(ctx).WarnContext(ctx, "live timestamps missing from baseline forecast",
			slog.Int("unmatched", unmatched),
			slog.Int("live", len(live)),
		)
	}

	return result, nil
}
