// Package config loads the application configuration from YAML, fills
// struct-tag defaults, applies environment overrides and validates the
// result. A missing config file is not an error: defaults plus
// environment variables are enough to run.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/indicator"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/logging"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/signal"
)

var validate = validator.New()

// Config is the full application configuration.
type Config struct {
	Stocks  []string       `yaml:"stocks"`
	Data    DataConfig     `yaml:"data"`
	Signal  signal.Config  `yaml:"signal"`
	LLM     LLMConfig      `yaml:"llm"`
	News    NewsConfig     `yaml:"news"`
	Cache   CacheConfig    `yaml:"cache"`
	Scanner ScannerConfig  `yaml:"scanner"`
	Report  ReportConfig   `yaml:"report"`
	Notify  NotifyConfig   `yaml:"notify"`
	Web     WebConfig      `yaml:"web"`
	Daemon  DaemonConfig   `yaml:"daemon"`
	Log     logging.Config `yaml:"log"`
}

// DataConfig controls candle fetching.
type DataConfig struct {
	Provider  string        `yaml:"provider" default:"auto" validate:"oneof=auto tencent sina"`
	Count     int           `yaml:"count" default:"120" validate:"min=1,max=1000"`
	Frequency string        `yaml:"frequency" default:"1d" validate:"oneof=1d 1w 1M"`
	Timeout   time.Duration `yaml:"timeout" default:"15s"`
	CacheTTL  time.Duration `yaml:"cache_ttl" default:"5m"`
}

// LLMConfig controls the AI narrative client. An empty key disables the
// narrative; analysis still runs.
type LLMConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url" default:"https://api.deepseek.com"`
	Model       string        `yaml:"model" default:"deepseek-chat"`
	Temperature float64       `yaml:"temperature" default:"1.0"`
	Timeout     time.Duration `yaml:"timeout" default:"2m"`
	MaxRetries  int           `yaml:"max_retries" default:"3" validate:"min=0,max=10"`
}

// NewsConfig controls headline scraping for LLM context.
type NewsConfig struct {
	Enabled      bool          `yaml:"enabled" default:"true"`
	MaxHeadlines int           `yaml:"max_headlines" default:"10" validate:"min=1,max=50"`
	Timeout      time.Duration `yaml:"timeout" default:"10s"`
}

// CacheConfig selects the candle/quote cache backend.
type CacheConfig struct {
	Backend string      `yaml:"backend" default:"memory" validate:"oneof=memory redis none"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ScannerConfig controls multi-stock analysis concurrency.
type ScannerConfig struct {
	Workers int           `yaml:"workers" default:"4" validate:"min=1,max=64"`
	Timeout time.Duration `yaml:"timeout" default:"5m"`
}

// ReportConfig controls HTML report output.
type ReportConfig struct {
	OutputDir string `yaml:"output_dir" default:"reports"`
	KeepRuns  int    `yaml:"keep_runs" default:"50" validate:"min=1"`
}

// NotifyConfig controls push channels after a run.
type NotifyConfig struct {
	Enabled       bool       `yaml:"enabled"`
	Methods       []string   `yaml:"methods" validate:"dive,oneof=serverchan wecom email"`
	ServerChanKey string     `yaml:"serverchan_key"`
	WecomWebhook  string     `yaml:"wecom_webhook"`
	SMTP          SMTPConfig `yaml:"smtp"`
}

// SMTPConfig holds email channel settings.
type SMTPConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port" default:"465"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// WebConfig controls the HTTP server.
type WebConfig struct {
	Addr      string `yaml:"addr" default:":8080"`
	JWTSecret string `yaml:"jwt_secret"`
}

// DaemonConfig controls scheduled daily runs.
type DaemonConfig struct {
	RunAt    string `yaml:"run_at" default:"17:30"`
	Timezone string `yaml:"timezone" default:"Asia/Shanghai"`
	Notify   bool   `yaml:"notify" default:"true"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.MustSet(cfg)
	return cfg
}

// Load reads the YAML file at path, merges it over the defaults and the
// environment, and validates the result. A missing file falls back to
// defaults; a present but broken file is an error.
func Load(path string) (*Config, error) {
	// Best effort: a .env in the working directory feeds the overrides.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults + env only
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with the well-known environment keys.
func applyEnv(cfg *Config) {
	if v := os.Getenv("STOCK_CODES"); v != "" {
		cfg.Stocks = splitList(v)
	}
	if v := os.Getenv("DATA_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Data.Count = n
		}
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("ENABLE_PUSH"); v != "" {
		cfg.Notify.Enabled = isTruthy(v)
	}
	if v := os.Getenv("PUSH_METHODS"); v != "" {
		cfg.Notify.Methods = splitList(v)
	}
	if v := os.Getenv("SERVERCHAN_KEY"); v != "" {
		cfg.Notify.ServerChanKey = v
	}
	if v := os.Getenv("WORK_WECHAT_WEBHOOK"); v != "" {
		cfg.Notify.WecomWebhook = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Notify.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Notify.SMTP.Port = n
		}
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.Notify.SMTP.User = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Notify.SMTP.Password = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		cfg.Notify.SMTP.From = v
	}
	if v := os.Getenv("SMTP_TO"); v != "" {
		cfg.Notify.SMTP.To = splitList(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Web.JWTSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate checks tag rules plus the cross-field constraints tags cannot
// express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Signal.RSIOverbought <= c.Signal.RSIOversold {
		return fmt.Errorf("invalid config: rsi_overbought (%.1f) must exceed rsi_oversold (%.1f)",
			c.Signal.RSIOverbought, c.Signal.RSIOversold)
	}
	if c.Signal.MAFast >= c.Signal.MASlow {
		return fmt.Errorf("invalid config: ma_fast (%d) must be shorter than ma_slow (%d)",
			c.Signal.MAFast, c.Signal.MASlow)
	}
	for _, p := range []int{c.Signal.MAFast, c.Signal.MASlow} {
		if !hasPeriod(p) {
			return fmt.Errorf("invalid config: MA%d is not computed, pick from %v", p, indicator.MAPeriods)
		}
	}
	for _, fam := range c.Signal.EnableRuleFamily {
		switch signal.Family(fam) {
		case signal.FamilyCrossover, signal.FamilyThreshold, signal.FamilyTrend:
		default:
			return fmt.Errorf("invalid config: unknown rule family %q", fam)
		}
	}
	for _, m := range c.Notify.Methods {
		switch m {
		case "serverchan":
			if c.Notify.Enabled && c.Notify.ServerChanKey == "" {
				return errors.New("invalid config: serverchan push enabled without SERVERCHAN_KEY")
			}
		case "wecom":
			if c.Notify.Enabled && c.Notify.WecomWebhook == "" {
				return errors.New("invalid config: wecom push enabled without WORK_WECHAT_WEBHOOK")
			}
		case "email":
			if c.Notify.Enabled && (c.Notify.SMTP.Host == "" || len(c.Notify.SMTP.To) == 0) {
				return errors.New("invalid config: email push enabled without SMTP host and recipients")
			}
		}
	}
	if _, err := time.Parse("15:04", c.Daemon.RunAt); err != nil {
		return fmt.Errorf("invalid config: daemon run_at %q is not HH:MM", c.Daemon.RunAt)
	}
	if _, err := time.LoadLocation(c.Daemon.Timezone); err != nil {
		return fmt.Errorf("invalid config: daemon timezone: %w", err)
	}
	return nil
}

func hasPeriod(p int) bool {
	for _, known := range indicator.MAPeriods {
		if p == known {
			return true
		}
	}
	return false
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
