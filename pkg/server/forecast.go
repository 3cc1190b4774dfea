package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/pvcast/pvcast/pkg/log"
	"github.com/pvcast/pvcast/pkg/types"
)

// handleForecast serves POST /forecast/. Any failure on the request path,
// malformed input, engine failure, or adapter failure surfacing through the
// engine, is translated into a 400 here; nothing crashes the serving process.
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req types.ForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetailError(w, "malformed JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := req.Validate(); err != nil {
		writeDetailError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ts, err := req.EffectiveTime(time.Now())
	if err != nil {
		writeDetailError(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Ctx(ctx).InfoContext(ctx, "forecast request received",
		slog.String("site", req.Site.String()),
		slog.String("timestamp", ts.Format(types.TimeLayout)),
	)

	result, err := s.reconciler.Forecast(ctx, req.Site, ts)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "forecast failed", slog.Any("error", err))
		writeDetailError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to write forecast response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}
