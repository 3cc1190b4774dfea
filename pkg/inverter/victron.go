package inverter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/pvcast/pvcast/pkg/common"
	"github.com/pvcast/pvcast/pkg/log"
	"github.com/pvcast/pvcast/pkg/types"
	"github.com/sony/gobreaker"
)

const victronBaseURL = "https://vrmapi.victronenergy.com/v2"

// one breaker per vendor, shared across adapter constructions
var victronBreaker = common.NewBreaker("victron")

// VictronSettings holds VRM portal credentials. They are read from flags (or
// the VICTRON_USER/VICTRON_PASS environment) once at process start and are
// read-only afterwards.
type VictronSettings struct {
	Username string
	Password string

	// SiteID optionally pins the VRM installation to read stats from. When
	// empty the first registered installation is used.
	SiteID string
}

// Victron implements the System interface against the Victron VRM cloud API.
// It logs in at construction time and fetches kWh statistics for a trailing
// 7-day window.
type Victron struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	baseURL string

	token  string
	userID int64
	siteID string

	// The stats window is fixed at construction time, not at the timestamp
	// passed to GetData.
	windowStart time.Time
	windowEnd   time.Time
}

func configuredVictron() Factory {
	user := lflag.String("victron-user", "", "Victron VRM portal username")
	pass := lflag.String("victron-pass", "", "Victron VRM portal password")
	siteID := lflag.String("victron-site-id", "", "VRM installation ID to pull stats from (empty auto-selects the first registered installation)")

	var settings VictronSettings
	lflag.Do(func() {
		settings = VictronSettings{
			Username: *user,
			Password: *pass,
			SiteID:   *siteID,
		}
	})

	return func(ctx context.Context) (System, error) {
		return FromSettings(ctx, settings)
	}
}

// FromSettings constructs a Victron adapter and authenticates to the VRM API.
// Missing credentials fail with a configuration error, a failed login with a
// connection error.
func FromSettings(ctx context.Context, settings VictronSettings) (*Victron, error) {
	if settings.Username == "" || settings.Password == "" {
		return nil, types.ConfigurationErrorf("victron credentials not set")
	}

	end := time.Now().UTC()
	v := &Victron{
		client:      common.HTTPClient(30 * time.Second),
		breaker:     victronBreaker,
		baseURL:     victronBaseURL,
		siteID:      settings.SiteID,
		windowStart: end.AddDate(0, 0, -7),
		windowEnd:   end,
	}

	if err := v.login(ctx, settings.Username, settings.Password); err != nil {
		return nil, types.ConnectionErrorf("victron login failed: %v", err)
	}
	return v, nil
}

type victronLoginResult struct {
	Token  string `json:"token"`
	UserID int64  `json:"idUser"`
}

func (v *Victron) login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return err
	}

	resp, err := common.DoWithRetry(ctx, v.client, v.breaker, common.DefaultBackoff, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", v.baseURL+"/auth/login", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	var res victronLoginResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}
	if res.Token == "" {
		return fmt.Errorf("no token in login response")
	}
	v.token = res.Token
	v.userID = res.UserID
	log.Ctx(ctx).DebugContext(ctx, "victron login success", slog.Int64("userID", res.UserID))
	return nil
}

func (v *Victron) doGet(ctx context.Context, endpoint string, params url.Values, dest interface{}) error {
	resp, err := common.DoWithRetry(ctx, v.client, v.breaker, common.DefaultBackoff, func() (*http.Request, error) {
		u := v.baseURL + endpoint
		if len(params) > 0 {
			u += "?" + params.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Authorization", "Bearer "+v.token)
		return req, nil
	})
	if err != nil {
		return types.ConnectionErrorf("victron request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.ConnectionErrorf("victron returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.ConnectionErrorf("failed to read victron response: %v", err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to decode victron response", slog.Any("error", err), slog.String("body", string(body)))
		return types.DataUnavailableErrorf("failed to decode victron response: %v", err)
	}
	return nil
}

type victronSite struct {
	IDSite int64  `json:"idSite"`
	Name   string `json:"name"`
}

type victronSitesResult struct {
	Success bool          `json:"success"`
	Records []victronSite `json:"records"`
}

func (v *Victron) getSites(ctx context.Context) (victronSitesResult, error) {
	var res victronSitesResult
	endpoint := fmt.Sprintf("/users/%d/installations", v.userID)
	if err := v.doGet(ctx, endpoint, nil, &res); err != nil {
		return victronSitesResult{}, err
	}
	return res, nil
}

type victronStatsResult struct {
	Success bool `json:"success"`
	Records struct {
		// rows are (ms-epoch, kwh-rate) pairs
		KWH [][]float64 `json:"kwh"`
	} `json:"records"`
}

func (v *Victron) getKWHStats(ctx context.Context, siteID string) (victronStatsResult, error) {
	params := url.Values{}
	params.Set("type", "kwh")
	params.Set("start", strconv.FormatInt(v.windowStart.Unix(), 10))
	params.Set("end", strconv.FormatInt(v.windowEnd.Unix(), 10))

	var res victronStatsResult
	endpoint := "/installations/" + siteID + "/stats"
	if err := v.doGet(ctx, endpoint, params, &res); err != nil {
		return victronStatsResult{}, err
	}
	return res, nil
}

// GetData fetches kWh statistics for the adapter's fixed trailing window and
// normalizes them into a series of naive timestamped power readings. The ts
// argument does not move the window.
func (v *Victron) GetData(ctx context.Context, ts time.Time) ([]types.PowerReading, error) {
	sites, err := v.getSites(ctx)
	if err != nil {
		return nil, err
	}
	if len(sites.Records) == 0 {
		return nil, types.DataUnavailableErrorf("no installations found in victron response")
	}

	siteID := v.siteID
	if siteID == "" {
		// the first registered installation is used regardless of whether
		// it matches the requested coordinates; pin victron-site-id to
		// override
		first := sites.Records[0]
		if first.IDSite == 0 {
			return nil, types.DataUnavailableErrorf("installation id missing from victron records")
		}
		siteID = strconv.FormatInt(first.IDSite, 10)
		log.Ctx(ctx).InfoContext(ctx, "automatically selected victron installation",
			slog.String("siteID", siteID),
			slog.String("name", first.Name),
		)
	}

	stats, err := v.getKWHStats(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if len(stats.Records.KWH) == 0 {
		return nil, types.DataUnavailableErrorf("no kwh stats found in victron response")
	}

	readings := make([]types.PowerReading, 0, len(stats.Records.KWH))
	for _, row := range stats.Records.KWH {
		if len(row) < 2 {
			return nil, types.DataUnavailableErrorf("unexpected column count in kwh stats row")
		}
		readings = append(readings, types.PowerReading{
			Timestamp: types.Naive(time.UnixMilli(int64(row[0])).UTC()),
			PowerKW:   row[1],
		})
	}
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})

	log.Ctx(ctx).DebugContext(ctx, "victron telemetry fetched",
		slog.String("siteID", siteID),
		slog.Int("readings", len(readings)),
		slog.Time("windowStart", v.windowStart),
		slog.Time("windowEnd", v.windowEnd),
	)
	return readings, nil
}
