package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"backfill/internal/request"
)

// Config is the full yaml surface of the daemon. Zero values are filled
// by applyDefaults so a minimal file only needs the request block.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Store    StoreConfig    `mapstructure:"store"`
	Request  RequestConfig  `mapstructure:"request"`
}

type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
}

type ExchangeConfig struct {
	Name         string        `mapstructure:"name"`
	RESTBaseURL  string        `mapstructure:"rest_base_url"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
	ProxyEnabled bool          `mapstructure:"proxy_enabled"`
	RESTProxyURL string        `mapstructure:"rest_proxy_url"`
}

type FetchConfig struct {
	MaxInFlight      int           `mapstructure:"max_in_flight"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// RequestConfig is the yaml spelling of a data request; ToRequest turns
// it into the validated internal form.
type RequestConfig struct {
	MarketType string   `mapstructure:"market_type"`
	Tickers    []string `mapstructure:"tickers"`
	Fields     []string `mapstructure:"fields"`
	Freq       string   `mapstructure:"freq"`
	QuoteCcy   string   `mapstructure:"quote_ccy"`
	Start      string   `mapstructure:"start"`
	End        string   `mapstructure:"end"`
}

func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Exchange.HTTPTimeout <= 0 {
		c.Exchange.HTTPTimeout = 15 * time.Second
	}
	if c.Fetch.MaxInFlight <= 0 {
		c.Fetch.MaxInFlight = 4
	}
	if c.Fetch.MaxRetries <= 0 {
		c.Fetch.MaxRetries = 3
	}
	if c.Fetch.CacheTTL <= 0 {
		c.Fetch.CacheTTL = time.Hour
	}
	if c.Fetch.BreakerThreshold <= 0 {
		c.Fetch.BreakerThreshold = 5
	}
	if c.Fetch.BreakerCooldown <= 0 {
		c.Fetch.BreakerCooldown = 30 * time.Second
	}
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Exchange.Name) == "" {
		return fmt.Errorf("exchange.name is required")
	}
	if len(cfg.Request.Tickers) == 0 {
		return fmt.Errorf("request.tickers cannot be empty")
	}
	return nil
}

// ToRequest assembles the internal request; Validate still runs later in
// the service and fills the remaining defaults.
func (rc RequestConfig) ToRequest(exchange string) (request.Request, error) {
	var req request.Request
	req.Source = "ccxt"
	req.Exchange = exchange
	req.Tickers = append([]string(nil), rc.Tickers...)
	for _, f := range rc.Fields {
		req.Fields = append(req.Fields, request.Field(strings.ToLower(strings.TrimSpace(f))))
	}
	req.Freq = rc.Freq
	req.QuoteCcy = rc.QuoteCcy

	mt := strings.TrimSpace(rc.MarketType)
	if mt == "" {
		mt = "spot"
	}
	marketType, err := request.ParseMarketType(mt)
	if err != nil {
		return req, fmt.Errorf("request.market_type: %w", err)
	}
	req.MarketType = marketType

	if rc.Start != "" {
		t, err := parseTime(rc.Start)
		if err != nil {
			return req, fmt.Errorf("request.start: %w", err)
		}
		req.Start = t
	}
	if rc.End != "" {
		t, err := parseTime(rc.End)
		if err != nil {
			return req, fmt.Errorf("request.end: %w", err)
		}
		req.End = t
	}
	return req, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
