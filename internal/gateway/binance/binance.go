package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"

	"backfill/internal/market"
	"backfill/internal/pkg/convert"
	symbolpkg "backfill/internal/pkg/symbol"
)

const maxHistoryLimit = 1500

// Vendor 基于 go-binance SDK 实现 market.Vendor（USDⓈ-M 永续）。
type Vendor struct {
	cfg    Config
	client *futures.Client
}

func New(cfg Config) (*Vendor, error) {
	final := cfg.withDefaults()
	client := futures.NewClient("", "")
	client.BaseURL = final.RESTBaseURL
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyEnabled && final.RESTProxyURL != "" {
		proxyURL, err := url.Parse(final.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	return &Vendor{cfg: final, client: client}, nil
}

func (v *Vendor) Name() string { return "binanceusdm" }

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

// Symbols 返回支持的永续合约（统一格式，如 BTC/USDT:USDT）。
func (v *Vendor) Symbols(ctx context.Context) ([]string, error) {
	info, err := v.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, v.classify(err)
	}
	out := make([]string, 0, len(info.Symbols))
	for _, sym := range info.Symbols {
		if sym.Status != "TRADING" || sym.ContractType != "PERPETUAL" {
			continue
		}
		if sym.BaseAsset == "" || sym.QuoteAsset == "" {
			continue
		}
		unified := fmt.Sprintf("%s/%s:%s", sym.BaseAsset, sym.QuoteAsset, sym.QuoteAsset)
		out = append(out, unified)
	}
	sort.Strings(out)
	return out, nil
}

func (v *Vendor) FetchCandles(ctx context.Context, symbol, interval string, since int64, limit int) ([]market.Candle, error) {
	cleanSymbol := symbolpkg.Binance.ToExchange(symbol)
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	svc := v.client.NewKlinesService().
		Symbol(cleanSymbol).
		Interval(interval).
		Limit(v.clampLimit(limit))
	if since > 0 {
		svc = svc.StartTime(since)
	}
	kls, err := svc.Do(ctx)
	if err != nil {
		return nil, v.classify(err)
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			Timestamp: kl.OpenTime,
			Open:      convert.Float(kl.Open),
			High:      convert.Float(kl.High),
			Low:       convert.Float(kl.Low),
			Close:     convert.Float(kl.Close),
			Volume:    convert.Float(kl.Volume),
		})
	}
	return out, nil
}

func (v *Vendor) FetchFundingRates(ctx context.Context, symbol string, since int64, limit int) ([]market.FundingRate, error) {
	cleanSymbol := symbolpkg.Binance.ToExchange(symbol)
	svc := v.client.NewFundingRateService().
		Symbol(cleanSymbol).
		Limit(v.clampLimit(limit))
	if since > 0 {
		svc = svc.StartTime(since)
	}
	rates, err := svc.Do(ctx)
	if err != nil {
		return nil, v.classify(err)
	}
	out := make([]market.FundingRate, 0, len(rates))
	for _, item := range rates {
		if item == nil {
			continue
		}
		out = append(out, market.FundingRate{
			Symbol:    symbol,
			Rate:      convert.Float(item.FundingRate),
			Timestamp: item.FundingTime,
		})
	}
	return out, nil
}

func (v *Vendor) FetchOpenInterest(ctx context.Context, symbol, interval string, since int64, limit int) ([]market.OpenInterest, error) {
	cleanSymbol := symbolpkg.Binance.ToExchange(symbol)
	period := oiPeriod(interval)
	svc := v.client.NewOpenInterestStatisticsService().
		Symbol(cleanSymbol).
		Period(period).
		Limit(v.clampLimit(limit))
	if since > 0 {
		svc = svc.StartTime(since)
	}
	stats, err := svc.Do(ctx)
	if err != nil {
		return nil, v.classify(err)
	}
	out := make([]market.OpenInterest, 0, len(stats))
	for _, item := range stats {
		if item == nil {
			continue
		}
		out = append(out, market.OpenInterest{
			Symbol:    symbol,
			Amount:    convert.Float(item.SumOpenInterest),
			Value:     convert.Float(item.SumOpenInterestValue),
			Timestamp: item.Timestamp,
		})
	}
	return out, nil
}

func (v *Vendor) clampLimit(limit int) int {
	if limit <= 0 || limit > v.cfg.MaxRecords {
		return v.cfg.MaxRecords
	}
	return limit
}

// oiPeriod maps candle intervals onto the subset the OI statistics
// endpoint accepts (5m..1d).
func oiPeriod(interval string) string {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "", "1m", "5m":
		return "5m"
	case "15m":
		return "15m"
	case "30m":
		return "30m"
	case "1h":
		return "1h"
	case "2h":
		return "2h"
	case "4h":
		return "4h"
	case "6h":
		return "6h"
	case "8h", "12h":
		return "12h"
	default:
		return "1d"
	}
}

// classify wraps SDK errors so the pipeline can tell throttling apart
// from ordinary failures.
func (v *Vendor) classify(err error) error {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*common.APIError); ok {
		switch apiErr.Code {
		case -1003, -1015:
			return &market.RateLimitError{Exchange: v.Name(), Err: err}
		}
	}
	if strings.Contains(err.Error(), "Too many requests") {
		return &market.RateLimitError{Exchange: v.Name(), Err: err}
	}
	return err
}
