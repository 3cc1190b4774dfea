package types

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
)

// TimeLayout is the naive timestamp format used for all timestamps exposed by
// the API. The forecasting engine operates on timezone-naive timestamps so no
// offset is ever rendered.
const TimeLayout = "2006-01-02 15:04:05"

var validate = validator.New()

// Site describes a physical PV installation. It is immutable once constructed
// and built per-request from the inbound payload.
type Site struct {
	Latitude    float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64 `json:"longitude" validate:"gte=-180,lte=180"`
	CapacityKWP float64 `json:"capacity_kwp" validate:"gt=0"`

	// InverterType identifies which inverter integration supplies live
	// telemetry. Empty means no live telemetry.
	InverterType string `json:"inverter_type,omitempty"`
}

// Validate checks the site's coordinates and capacity.
func (s Site) Validate() error {
	if err := validate.Struct(s); err != nil {
		return ValidationErrorf("%v", err)
	}
	return nil
}

// WithoutInverter returns a copy of the site with the inverter identity
// stripped, used for the baseline (no-live) forecast.
func (s Site) WithoutInverter() Site {
	s.InverterType = ""
	return s
}

// HasInverter reports whether the site is paired with a live inverter.
func (s Site) HasInverter() bool {
	return s.InverterType != ""
}

// ForecastRequest is the inbound payload for a forecast. It is constructed at
// request entry, consumed once, and discarded.
type ForecastRequest struct {
	Site Site `json:"site"`

	// Timestamp is an optional ISO-8601 timestamp. Absent means "now" at
	// request receipt.
	Timestamp string `json:"timestamp,omitempty"`
}

// timestamp layouts accepted in requests, tried in order
var requestTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	TimeLayout,
}

// EffectiveTime resolves the request's timestamp to a naive timestamp. Any
// offset in the input is dropped, keeping the wall clock as written. When no
// timestamp was supplied, now is used (as UTC) truncated to second precision.
func (r ForecastRequest) EffectiveTime(now time.Time) (time.Time, error) {
	if r.Timestamp == "" {
		return Naive(now.UTC().Truncate(time.Second)), nil
	}
	for _, layout := range requestTimeLayouts {
		if t, err := time.Parse(layout, r.Timestamp); err == nil {
			return Naive(t.Truncate(time.Second)), nil
		}
	}
	return time.Time{}, ValidationErrorf("unable to parse timestamp %q", r.Timestamp)
}

// Validate checks the request and its site.
func (r ForecastRequest) Validate() error {
	return r.Site.Validate()
}

// Naive drops the timezone from t, keeping its wall clock. The forecasting
// engine operates exclusively on naive timestamps.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// PowerReading is a single timestamped power value. Series of readings are
// ordered by strictly non-decreasing naive timestamps.
type PowerReading struct {
	Timestamp time.Time `json:"timestamp"`
	PowerKW   float64   `json:"power_kw"`
}

// Prediction is the per-timestamp value in a forecast response. PowerKWNoLive
// is only present when a live-corrected forecast was computed alongside the
// baseline.
type Prediction struct {
	PowerKW       float64  `json:"power_kw"`
	PowerKWNoLive *float64 `json:"power_kw_no_live_pv,omitempty"`
}

// ForecastResult is a single merged forecast keyed by naive timestamp
// (TimeLayout). When both a live and a baseline series were computed, the keys
// are the live series' timestamps and the baseline values ride along in each
// prediction; there are never two top-level series.
type ForecastResult struct {
	Timestamp   string                `json:"timestamp"`
	Predictions map[string]Prediction `json:"predictions"`
}

// SortedKeys returns the prediction keys in chronological order. Keys are
// TimeLayout-formatted so lexical order is chronological order.
func (r ForecastResult) SortedKeys() []string {
	keys := make([]string, 0, len(r.Predictions))
	for k := range r.Predictions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String implements fmt.Stringer for logging.
func (s Site) String() string {
	return fmt.Sprintf("site(lat=%.4f lon=%.4f kwp=%.2f inverter=%q)", s.Latitude, s.Longitude, s.CapacityKWP, s.InverterType)
}
