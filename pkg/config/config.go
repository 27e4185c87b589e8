package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/seethefuture888888-creator/kangbo/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"11m"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		AllowOrigins    []string      `yaml:"allow_origins" default:"[\"http://localhost:5173\"]" validate:"min=1"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout" validate:"required"`
		// CollectErrors ships aggregated error logs to Kafka when Kafka is enabled.
		CollectErrors bool `yaml:"collect_errors" default:"true"`
	} `yaml:"log"`
	Dashboard struct {
		JSONPath     string        `yaml:"json_path" default:"data/dashboard.json" validate:"required"`
		Workers      int           `yaml:"workers" default:"4" validate:"gte=1,lte=32"`
		LookbackDays int           `yaml:"lookback_days" default:"400" validate:"gte=30"`
		Interval     time.Duration `yaml:"interval" default:"60m" validate:"gte=1m"`
		RunTimeout   time.Duration `yaml:"run_timeout" default:"10m" validate:"gte=10s"`
	} `yaml:"dashboard"`
	Providers struct {
		FREDAPIKey         string        `yaml:"fred_api_key"`
		TwelveDataAPIKey   string        `yaml:"twelvedata_api_key"`
		AlphaVantageAPIKey string        `yaml:"alphavantage_api_key"`
		BinanceBaseURL     string        `yaml:"binance_base_url" default:"https://data-api.binance.vision" validate:"url"`
		RateLimitRPS       float64       `yaml:"rate_limit_rps" default:"2" validate:"gt=0"`
		RateLimitBurst     int           `yaml:"rate_limit_burst" default:"2" validate:"gte=1"`
		CacheTTL           time.Duration `yaml:"cache_ttl" default:"30m"`
		MacroLookbackYears int           `yaml:"macro_lookback_years" default:"3" validate:"gte=1"`
	} `yaml:"providers"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379" validate:"required_if=Enabled true"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
		Prefix   string `yaml:"prefix" default:"kangbo"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers" validate:"required_if=Enabled true"`
		DailyTopic   string   `yaml:"daily_topic" default:"kangbo.dashboard.daily"`
		SignalsTopic string   `yaml:"signals_topic" default:"kangbo.dashboard.signals"`
		LogsTopic    string   `yaml:"logs_topic" default:"kangbo.logs"`
		RequiredAcks int      `yaml:"required_acks" default:"1" validate:"oneof=-1 0 1"`
		Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		MaxAttempts  int      `yaml:"max_attempts" default:"3" validate:"gte=1"`
		Async        bool     `yaml:"async"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000" validate:"gte=1,lte=65535"`
		Database         string        `yaml:"database" default:"kangbo"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		Table            string        `yaml:"table" default:"kangbo.signal_history"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
}

// Load reads a YAML configuration file on top of the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("FRED_API_KEY"); ok {
		c.Providers.FREDAPIKey = v
	}
	if v, ok := get("TWELVEDATA_API_KEY"); ok {
		c.Providers.TwelveDataAPIKey = v
	}
	if v, ok := get("ALPHAVANTAGE_API_KEY"); ok {
		c.Providers.AlphaVantageAPIKey = v
	}
	if v, ok := get("BINANCE_BASE_URL"); ok {
		c.Providers.BinanceBaseURL = v
	}
	if v, ok := get("DASHBOARD_JSON_PATH"); ok {
		c.Dashboard.JSONPath = v
	}
	if v, ok := get("CORS_ALLOW_ORIGINS"); ok {
		c.Server.AllowOrigins = util.SplitList(v)
	}
	if v, ok := get("REDIS_ADDR"); ok {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v, ok := get("KAFKA_BROKERS"); ok {
		c.Kafka.Brokers = util.SplitList(v)
		c.Kafka.Enabled = true
	}
	if v, ok := get("CLICKHOUSE_HOST"); ok {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v, ok := get("HTTP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// RedisHostPort splits Redis.Addr. The port defaults to 6379.
func (c *Config) RedisHostPort() (string, int) {
	host, port, ok := strings.Cut(c.Redis.Addr, ":")
	if !ok {
		return host, 6379
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return host, 6379
	}
	return host, n
}
