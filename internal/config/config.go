package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/viper"

	"github.com/bugfreev587/openshift-utilization/internal/models"
)

// DateLayout accepts unpadded days and months, e.g. 2024-04-1.
const DateLayout = "2006-1-2"

type OutputCfg struct {
	Path   string `mapstructure:"path" yaml:"path"`     // empty or "-" writes to stdout
	Format string `mapstructure:"format" yaml:"format"` // json or yaml
}

type SinkCfg struct {
	WebhookURL    string `mapstructure:"webhook_url" yaml:"webhook_url"`
	WebhookAPIKey string `mapstructure:"webhook_api_key" yaml:"webhook_api_key"`
}

type RedisCfg struct {
	URL       string        `mapstructure:"url" yaml:"url"`
	Addr      string        `mapstructure:"addr" yaml:"addr"`
	Password  string        `mapstructure:"password" yaml:"password"`
	DB        int           `mapstructure:"db" yaml:"db"`
	TTL       time.Duration `mapstructure:"-" yaml:"-"`
	KeyPrefix string        `mapstructure:"key_prefix" yaml:"key_prefix"`
}

// Enabled reports whether a redis sink was configured.
func (r RedisCfg) Enabled() bool { return r.URL != "" || r.Addr != "" }

type TimescaleCfg struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

type LogCfg struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

type Config struct {
	BaseURL            string        `mapstructure:"base_url" yaml:"base_url"`
	AuthToken          string        `mapstructure:"auth_token" yaml:"auth_token"`
	StartDate          string        `mapstructure:"start_date" yaml:"start_date"`
	EndDate            string        `mapstructure:"end_date" yaml:"end_date"`
	PageSize           int           `mapstructure:"page_size" yaml:"page_size"`
	HTTPTimeout        time.Duration `mapstructure:"-" yaml:"-"`
	RetryMaxElapsed    time.Duration `mapstructure:"-" yaml:"-"`
	RequestsPerSecond  float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	OrphanPolicy       string        `mapstructure:"orphan_policy" yaml:"orphan_policy"`
	ServeInterval      time.Duration `mapstructure:"-" yaml:"-"`
	PushgatewayURL     string        `mapstructure:"pushgateway_url" yaml:"pushgateway_url"`

	Output    OutputCfg    `mapstructure:"output" yaml:"output"`
	Sink      SinkCfg      `mapstructure:"sink" yaml:"sink"`
	Redis     RedisCfg     `mapstructure:"redis" yaml:"redis"`
	Timescale TimescaleCfg `mapstructure:"timescale" yaml:"timescale"`
	Server    ServerCfg    `mapstructure:"server" yaml:"server"`
	Log       LogCfg       `mapstructure:"log" yaml:"log"`
}

// Load loads configuration from an optional YAML file with UTILIZATION_*
// environment variable overrides (UTILIZATION_REDIS_ADDR for redis.addr).
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("UTILIZATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	v.SetDefault("base_url", "https://sc1001.kumolus.net/reportapi/api/v2/openshift/utilization/reports")
	v.SetDefault("auth_token", "")
	v.SetDefault("start_date", "")
	v.SetDefault("end_date", "")
	v.SetDefault("page_size", models.MaxPageSize)
	v.SetDefault("http_timeout", 30)      // seconds
	v.SetDefault("retry_max_elapsed", 60) // seconds, 0 disables retries
	v.SetDefault("requests_per_second", 0)
	v.SetDefault("insecure_skip_verify", false)
	v.SetDefault("orphan_policy", "skip")
	v.SetDefault("serve_interval", 3600) // seconds
	v.SetDefault("pushgateway_url", "")
	v.SetDefault("output.path", "-")
	v.SetDefault("output.format", "json")
	v.SetDefault("sink.webhook_url", "")
	v.SetDefault("sink.webhook_api_key", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 86400) // seconds
	v.SetDefault("redis.key_prefix", "utilization:report")
	v.SetDefault("timescale.dsn", "")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	// Durations are configured in seconds; viper does not convert ints to Duration.
	cfg := Config{
		BaseURL:            v.GetString("base_url"),
		AuthToken:          v.GetString("auth_token"),
		StartDate:          v.GetString("start_date"),
		EndDate:            v.GetString("end_date"),
		PageSize:           v.GetInt("page_size"),
		HTTPTimeout:        time.Duration(v.GetInt("http_timeout")) * time.Second,
		RetryMaxElapsed:    time.Duration(v.GetInt("retry_max_elapsed")) * time.Second,
		RequestsPerSecond:  v.GetFloat64("requests_per_second"),
		InsecureSkipVerify: v.GetBool("insecure_skip_verify"),
		OrphanPolicy:       v.GetString("orphan_policy"),
		ServeInterval:      time.Duration(v.GetInt("serve_interval")) * time.Second,
		PushgatewayURL:     v.GetString("pushgateway_url"),
		Output: OutputCfg{
			Path:   v.GetString("output.path"),
			Format: v.GetString("output.format"),
		},
		Sink: SinkCfg{
			WebhookURL:    v.GetString("sink.webhook_url"),
			WebhookAPIKey: v.GetString("sink.webhook_api_key"),
		},
		Redis: RedisCfg{
			URL:       v.GetString("redis.url"),
			Addr:      v.GetString("redis.addr"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			TTL:       time.Duration(v.GetInt("redis.ttl")) * time.Second,
			KeyPrefix: v.GetString("redis.key_prefix"),
		},
		Timescale: TimescaleCfg{DSN: v.GetString("timescale.dsn")},
		Server: ServerCfg{
			Host: v.GetString("server.host"),
			Port: v.GetString("server.port"),
		},
		Log: LogCfg{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
	}

	// Allow the bearer token to come from the conventional variable too
	if cfg.AuthToken == "" {
		if token := os.Getenv("REPORT_API_TOKEN"); token != "" {
			cfg.AuthToken = token
		}
	}
	// Railway-style REDIS_URL, as the api-server does
	if cfg.Redis.URL == "" {
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			cfg.Redis.URL = redisURL
		}
	}

	return &cfg, nil
}

// Validate checks the fields a run cannot do without.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	start, err := time.Parse(DateLayout, c.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start_date %q: %w", c.StartDate, err)
	}
	end, err := time.Parse(DateLayout, c.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end_date %q: %w", c.EndDate, err)
	}
	if end.Before(start) {
		return fmt.Errorf("end_date %s is before start_date %s", c.EndDate, c.StartDate)
	}
	if c.PageSize <= 0 || c.PageSize > models.MaxPageSize {
		return fmt.Errorf("page_size must be between 1 and %d, got %d", models.MaxPageSize, c.PageSize)
	}
	switch c.OrphanPolicy {
	case "skip", "abort":
	default:
		return fmt.Errorf("orphan_policy must be skip or abort, got %q", c.OrphanPolicy)
	}
	switch c.Output.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("output.format must be json or yaml, got %q", c.Output.Format)
	}
	return nil
}

// CapacityQuery and UsageQuery build the two reporting API queries for the
// configured date range.
func (c *Config) CapacityQuery() models.Query {
	return models.CapacityQuery(c.StartDate, c.EndDate, c.PageSize)
}

func (c *Config) UsageQuery() models.Query {
	return models.UsageQuery(c.StartDate, c.EndDate, c.PageSize)
}

// Redacted returns a YAML dump of the config with secrets masked, for logging.
func (c *Config) Redacted() string {
	cp := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	cp.AuthToken = mask(cp.AuthToken)
	cp.Sink.WebhookAPIKey = mask(cp.Sink.WebhookAPIKey)
	cp.Redis.Password = mask(cp.Redis.Password)
	cp.Redis.URL = mask(cp.Redis.URL)
	cp.Timescale.DSN = mask(cp.Timescale.DSN)
	out, err := yaml.Marshal(cp)
	if err != nil {
		return fmt.Sprintf("<unprintable config: %v>", err)
	}
	return string(out)
}
