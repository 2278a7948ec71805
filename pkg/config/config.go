package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"GrowthLens/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		RateLimit       struct {
			PerSecond float64 `yaml:"per_second" default:"5" validate:"gt=0"`
			Burst     int     `yaml:"burst" default:"10" validate:"gte=1"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logging struct {
		Level     string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format    string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled        bool          `yaml:"enabled"`
			Topic          string        `yaml:"topic" default:"growthlens.logs"`
			Interval       time.Duration `yaml:"interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"logging"`
	Analytics struct {
		LTV struct {
			TargetCostPerInstall float64 `yaml:"target_cost_per_install" default:"50" validate:"gt=0"`
			NetRevenueShare      float64 `yaml:"net_revenue_share" default:"0.35" validate:"gt=0,lte=1"`
			FitMaxEvaluations    int     `yaml:"fit_max_evaluations" default:"2000" validate:"gte=10"`
		} `yaml:"ltv"`
		MAU struct {
			MonthsToPredict int     `yaml:"months_to_predict" default:"12" validate:"gte=0,lte=120"`
			GrowthFactor    float64 `yaml:"growth_factor" default:"1.0" validate:"gte=0"`
			BaselineMonths  int     `yaml:"baseline_months" default:"6" validate:"gte=1"`
		} `yaml:"mau"`
	} `yaml:"analytics"`
	Cache struct {
		TTL   time.Duration `yaml:"ttl" default:"5m"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Sources struct {
		ClickHouse struct {
			Enabled          bool          `yaml:"enabled"`
			Host             string        `yaml:"host"`
			Port             int           `yaml:"port" default:"9000"`
			Database         string        `yaml:"database" default:"default"`
			User             string        `yaml:"user" default:"default"`
			Password         string        `yaml:"password"`
			UseHTTP          bool          `yaml:"use_http"`
			DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
			ReadTimeout      time.Duration `yaml:"read_timeout" default:"60s"`
			MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"300s"`
		} `yaml:"clickhouse"`
		MySQL struct {
			Enabled bool   `yaml:"enabled"`
			DSN     string `yaml:"dsn"`
		} `yaml:"mysql"`
		ThinkingData struct {
			Enabled   bool          `yaml:"enabled"`
			URL       string        `yaml:"url"`
			QueryPath string        `yaml:"query_path" default:"/api/v1/sql/query"`
			User      string        `yaml:"user"`
			Password  string        `yaml:"password"`
			Token     string        `yaml:"token"`
			Timeout   time.Duration `yaml:"timeout" default:"10m"`
		} `yaml:"thinkingdata"`
		Files struct {
			Dir string `yaml:"dir" default:"./data"`
		} `yaml:"files"`
	} `yaml:"sources"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"growthlens.predictions"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=none gzip snappy lz4 zstd"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`
	SMTP struct {
		Server   string `yaml:"server" default:"smtp.gmail.com"`
		Port     int    `yaml:"port" default:"465"`
		Sender   string `yaml:"sender"`
		Password string `yaml:"password"`
		FromName string `yaml:"from_name" default:"GrowthLens"`
	} `yaml:"smtp"`
	Export struct {
		Dir string `yaml:"dir" default:"./output"`
	} `yaml:"export"`
	Reports []Report `yaml:"reports" validate:"dive"`
}

// Report is one configured prediction run. Zero model parameters fall back
// to the analytics section.
type Report struct {
	Name                 string   `yaml:"name" validate:"required"`
	Kind                 string   `yaml:"kind" validate:"oneof=ltv mau"`
	Source               string   `yaml:"source" validate:"oneof=clickhouse mysql thinkingdata file"`
	Query                string   `yaml:"query" validate:"required"`
	Schedule             string   `yaml:"schedule"`
	Recipients           []string `yaml:"recipients" validate:"dive,email"`
	TargetCostPerInstall float64  `yaml:"target_cost_per_install" validate:"gte=0"`
	NetRevenueShare      float64  `yaml:"net_revenue_share" validate:"gte=0,lte=1"`
	MonthsToPredict      int      `yaml:"months_to_predict" validate:"gte=0"`
	GrowthFactor         float64  `yaml:"growth_factor" validate:"gte=0"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

// LoadWithEnv loads config from YAML and overrides it with environment
// variables before validation.
func LoadWithEnv(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if getenv != nil {
		c.ApplyEnv(getenv)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func decode(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// ApplyEnv overrides credentials and endpoints from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("SMTP_SERVER"); v != "" {
		c.SMTP.Server = v
	}
	if v := getenv("SMTP_PORT"); v != "" {
		c.SMTP.Port = util.ParseIntDefault(v, c.SMTP.Port)
	}
	if v := getenv("SENDER_EMAIL"); v != "" {
		c.SMTP.Sender = v
	}
	if v := getenv("SENDER_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := getenv("TA_URL"); v != "" {
		c.Sources.ThinkingData.URL = v
	}
	if v := getenv("TA_USER"); v != "" {
		c.Sources.ThinkingData.User = v
	}
	if v := getenv("TA_PASS"); v != "" {
		c.Sources.ThinkingData.Password = v
	}
	if v := getenv("TA_TOKEN"); v != "" {
		c.Sources.ThinkingData.Token = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.Sources.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_USER"); v != "" {
		c.Sources.ClickHouse.User = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.Sources.ClickHouse.Password = v
	}
	if v := getenv("MYSQL_DSN"); v != "" {
		c.Sources.MySQL.DSN = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Sources.ClickHouse.Enabled && c.Sources.ClickHouse.Host == "" {
		return fmt.Errorf("sources.clickhouse.host is required when clickhouse is enabled")
	}
	if c.Sources.MySQL.Enabled && c.Sources.MySQL.DSN == "" {
		return fmt.Errorf("sources.mysql.dsn is required when mysql is enabled")
	}
	if c.Sources.ThinkingData.Enabled && c.Sources.ThinkingData.URL == "" {
		return fmt.Errorf("sources.thinkingdata.url is required when thinkingdata is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Logging.Collector.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("logging.collector requires kafka to be enabled")
	}
	seen := make(map[string]struct{}, len(c.Reports))
	for _, r := range c.Reports {
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("duplicate report name %q", r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return nil
}

// FindReport returns the configured report with the given name.
func (c *Config) FindReport(name string) (Report, bool) {
	for _, r := range c.Reports {
		if r.Name == name {
			return r, true
		}
	}
	return Report{}, false
}
