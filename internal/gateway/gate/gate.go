package gate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/antihax/optional"
	gateapi "github.com/gateio/gateapi-go/v7"
	"github.com/tidwall/gjson"

	"backfill/internal/logger"
	"backfill/internal/market"
	"backfill/internal/pkg/convert"
	symbolpkg "backfill/internal/pkg/symbol"
)

const gateMaxHistoryLimit = 2000

// Vendor 基于 gateapi-go SDK 实现 market.Vendor（Gate 永续合约）。
type Vendor struct {
	cfg  Config
	rest *gateapi.APIClient
}

func New(cfg Config) (*Vendor, error) {
	final := cfg.withDefaults()
	restClient, err := newRESTClient(final)
	if err != nil {
		return nil, err
	}
	return &Vendor{cfg: final, rest: restClient}, nil
}

func newRESTClient(cfg Config) (*gateapi.APIClient, error) {
	conf := gateapi.NewConfiguration()
	conf.BasePath = cfg.RESTBaseURL

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	if cfg.ProxyEnabled && cfg.RESTProxyURL != "" {
		proxyURL, err := url.Parse(cfg.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid gate REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	conf.HTTPClient = httpClient
	return gateapi.NewAPIClient(conf), nil
}

func (v *Vendor) Name() string { return "gateio" }

func (v *Vendor) Has(feature market.Feature) bool {
	switch feature {
	case market.FeatureCandles, market.FeatureFundingRateHistory, market.FeatureOpenInterestHistory:
		return true
	default:
		return false
	}
}

func (v *Vendor) RateLimit() time.Duration { return v.cfg.Spacing }

func (v *Vendor) MaxRecords() int { return v.cfg.MaxRecords }

func (v *Vendor) Symbols(ctx context.Context) ([]string, error) {
	contracts, _, err := v.rest.FuturesApi.ListFuturesContracts(ctx, v.cfg.Settle, nil)
	if err != nil {
		return nil, v.classify(err)
	}
	settle := strings.ToUpper(v.cfg.Settle)
	out := make([]string, 0, len(contracts))
	for _, contract := range contracts {
		pair := symbolpkg.Parse(contract.Name)
		if pair.Base == "" || pair.Quote == "" {
			continue
		}
		pair.Settle = settle
		out = append(out, pair.Unified())
	}
	sort.Strings(out)
	return out, nil
}

func (v *Vendor) FetchCandles(ctx context.Context, symbol, interval string, since int64, limit int) ([]market.Candle, error) {
	contract := symbolpkg.Gate.ToExchange(symbol)
	interval = strings.ToLower(strings.TrimSpace(interval))
	if contract == "" || interval == "" {
		return nil, fmt.Errorf("symbol and interval are required")
	}
	opts := &gateapi.ListFuturesCandlesticksOpts{
		Limit:    optional.NewInt32(int32(v.clampLimit(limit))),
		Interval: optional.NewString(interval),
	}
	if since > 0 {
		opts.From = optional.NewInt64(since / 1000)
	}
	kls, _, err := v.rest.FuturesApi.ListFuturesCandlesticks(ctx, v.cfg.Settle, contract, opts)
	if err != nil {
		return nil, v.classify(err)
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		out = append(out, market.Candle{
			Timestamp: int64(kl.T) * 1000,
			Open:      convert.Float(kl.O),
			High:      convert.Float(kl.H),
			Low:       convert.Float(kl.L),
			Close:     convert.Float(kl.C),
			Volume:    convert.Float(kl.Sum),
		})
	}
	return out, nil
}

// FetchFundingRates pulls the most recent window the endpoint offers and
// filters client-side; Gate's funding history has no since parameter.
func (v *Vendor) FetchFundingRates(ctx context.Context, symbol string, since int64, limit int) ([]market.FundingRate, error) {
	contract := symbolpkg.Gate.ToExchange(symbol)
	if contract == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	opts := &gateapi.ListFuturesFundingRateHistoryOpts{
		Limit: optional.NewInt32(int32(v.clampLimit(limit))),
	}
	records, _, err := v.rest.FuturesApi.ListFuturesFundingRateHistory(ctx, v.cfg.Settle, contract, opts)
	if err != nil {
		return nil, v.classify(err)
	}
	oldest := int64(0)
	out := make([]market.FundingRate, 0, len(records))
	for _, item := range records {
		ts := item.T * 1000
		if oldest == 0 || ts < oldest {
			oldest = ts
		}
		if since > 0 && ts < since {
			continue
		}
		out = append(out, market.FundingRate{
			Symbol:    symbol,
			Rate:      convert.Float(item.R),
			Timestamp: ts,
		})
	}
	if fundingHistoryTruncated(since, oldest) {
		logger.Warnf("[%s] %s funding history starts at %d, requested window starts at %d; older records are not served",
			v.Name(), contract, oldest, since)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// fundingHistoryTruncated reports whether the venue's newest-first funding
// window no longer reaches back to the requested cursor.
func fundingHistoryTruncated(since, oldest int64) bool {
	return since > 0 && oldest > since
}

func (v *Vendor) FetchOpenInterest(ctx context.Context, symbol, interval string, since int64, limit int) ([]market.OpenInterest, error) {
	contract := symbolpkg.Gate.ToExchange(symbol)
	if contract == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	opts := &gateapi.ListContractStatsOpts{
		Interval: optional.NewString(statsPeriod(interval)),
		Limit:    optional.NewInt32(int32(v.clampLimit(limit))),
	}
	if since > 0 {
		opts.From = optional.NewInt64(since / 1000)
	}
	stats, _, err := v.rest.FuturesApi.ListContractStats(ctx, v.cfg.Settle, contract, opts)
	if err != nil {
		return nil, v.classify(err)
	}
	out := make([]market.OpenInterest, 0, len(stats))
	for _, item := range stats {
		out = append(out, market.OpenInterest{
			Symbol:    symbol,
			Amount:    float64(item.OpenInterest),
			Value:     item.OpenInterestUsd,
			Timestamp: item.Time * 1000,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (v *Vendor) clampLimit(limit int) int {
	if limit <= 0 || limit > v.cfg.MaxRecords {
		return v.cfg.MaxRecords
	}
	return limit
}

// statsPeriod maps candle intervals onto the stats endpoint's grid.
func statsPeriod(interval string) string {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "", "1m", "5m", "15m", "30m":
		return "5m"
	case "1h", "2h", "4h", "8h", "12h":
		return "1h"
	default:
		return "1d"
	}
}

func (v *Vendor) classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr gateapi.GateAPIError
	if errors.As(err, &apiErr) {
		if strings.EqualFold(apiErr.Label, "TOO_MANY_REQUESTS") {
			return &market.RateLimitError{Exchange: v.Name(), Err: err}
		}
		return err
	}
	// Some transport paths surface the raw body instead of a typed error.
	if label := gjson.Get(err.Error(), "label"); label.Exists() &&
		strings.EqualFold(label.String(), "TOO_MANY_REQUESTS") {
		return &market.RateLimitError{Exchange: v.Name(), Err: err}
	}
	return err
}
