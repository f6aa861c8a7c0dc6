package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Data.Provider != "auto" {
		t.Errorf("Expected provider auto, got %s", cfg.Data.Provider)
	}
	if cfg.Data.Count != 120 {
		t.Errorf("Expected count 120, got %d", cfg.Data.Count)
	}
	if cfg.Data.Frequency != "1d" {
		t.Errorf("Expected frequency 1d, got %s", cfg.Data.Frequency)
	}
	if cfg.LLM.BaseURL != "https://api.deepseek.com" {
		t.Errorf("Expected deepseek base URL, got %s", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Model != "deepseek-chat" {
		t.Errorf("Expected deepseek-chat, got %s", cfg.LLM.Model)
	}
	if cfg.Signal.RSIOverbought != 70 || cfg.Signal.RSIOversold != 30 {
		t.Errorf("Expected RSI thresholds 70/30, got %.0f/%.0f",
			cfg.Signal.RSIOverbought, cfg.Signal.RSIOversold)
	}
	if cfg.Signal.MAFast != 5 || cfg.Signal.MASlow != 20 {
		t.Errorf("Expected MA pair 5/20, got %d/%d", cfg.Signal.MAFast, cfg.Signal.MASlow)
	}
	if cfg.Scanner.Workers != 4 {
		t.Errorf("Expected 4 workers, got %d", cfg.Scanner.Workers)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("Expected memory cache, got %s", cfg.Cache.Backend)
	}
	if cfg.Daemon.RunAt != "17:30" || cfg.Daemon.Timezone != "Asia/Shanghai" {
		t.Errorf("Expected 17:30 Asia/Shanghai, got %s %s", cfg.Daemon.RunAt, cfg.Daemon.Timezone)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected info level, got %s", cfg.Log.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "no-such.yaml"))
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if cfg.Data.Count != 120 {
		t.Errorf("Expected default count 120, got %d", cfg.Data.Count)
	}
}

func TestLoadFile(t *testing.T) {
	yaml := `
stocks: [sh600036, sz000001]
data:
  provider: tencent
  count: 250
signal:
  rsi_overbought: 80
  rsi_oversold: 20
  enable_rule_family: [crossover, threshold, trend]
report:
  output_dir: /tmp/reports
`
	path := writeConfig(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(cfg.Stocks) != 2 || cfg.Stocks[0] != "sh600036" {
		t.Errorf("Expected two stocks starting with sh600036, got %v", cfg.Stocks)
	}
	if cfg.Data.Provider != "tencent" {
		t.Errorf("Expected tencent provider, got %s", cfg.Data.Provider)
	}
	if cfg.Data.Count != 250 {
		t.Errorf("Expected count 250, got %d", cfg.Data.Count)
	}
	// Untouched keys keep their defaults.
	if cfg.Data.Frequency != "1d" {
		t.Errorf("Expected default frequency, got %s", cfg.Data.Frequency)
	}
	if cfg.Signal.RSIOverbought != 80 || cfg.Signal.RSIOversold != 20 {
		t.Errorf("Expected RSI 80/20, got %.0f/%.0f", cfg.Signal.RSIOverbought, cfg.Signal.RSIOversold)
	}
	if len(cfg.Signal.EnableRuleFamily) != 3 {
		t.Errorf("Expected three rule families, got %v", cfg.Signal.EnableRuleFamily)
	}
	if cfg.Report.OutputDir != "/tmp/reports" {
		t.Errorf("Expected /tmp/reports, got %s", cfg.Report.OutputDir)
	}
}

func TestLoadBrokenFile(t *testing.T) {
	path := writeConfig(t, "stocks: [unterminated")
	if _, err := Load(path); err == nil {
		t.Error("Expected parse error for broken YAML")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STOCK_CODES", "600036, 000858")
	t.Setenv("DATA_COUNT", "300")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("ENABLE_PUSH", "true")
	t.Setenv("PUSH_METHODS", "serverchan")
	t.Setenv("SERVERCHAN_KEY", "SCT123")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "no-such.yaml"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(cfg.Stocks) != 2 || cfg.Stocks[1] != "000858" {
		t.Errorf("Expected trimmed stock list, got %v", cfg.Stocks)
	}
	if cfg.Data.Count != 300 {
		t.Errorf("Expected count 300, got %d", cfg.Data.Count)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("Expected env API key, got %q", cfg.LLM.APIKey)
	}
	if !cfg.Notify.Enabled || len(cfg.Notify.Methods) != 1 {
		t.Errorf("Expected serverchan push enabled, got %+v", cfg.Notify)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected debug level, got %s", cfg.Log.Level)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "llm:\n  api_key: from-file\n")
	t.Setenv("LLM_API_KEY", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.LLM.APIKey != "from-env" {
		t.Errorf("Expected env to win over file, got %q", cfg.LLM.APIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "count above limit",
			mutate:  func(c *Config) { c.Data.Count = 5000 },
			wantErr: "max",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Data.Provider = "bloomberg" },
			wantErr: "oneof",
		},
		{
			name:    "inverted rsi thresholds",
			mutate:  func(c *Config) { c.Signal.RSIOverbought = 20; c.Signal.RSIOversold = 70 },
			wantErr: "rsi_overbought",
		},
		{
			name:    "inverted ma pair",
			mutate:  func(c *Config) { c.Signal.MAFast = 60; c.Signal.MASlow = 5 },
			wantErr: "ma_fast",
		},
		{
			name:    "unknown ma period",
			mutate:  func(c *Config) { c.Signal.MAFast = 7 },
			wantErr: "MA7",
		},
		{
			name:    "unknown rule family",
			mutate:  func(c *Config) { c.Signal.EnableRuleFamily = []string{"volume"} },
			wantErr: "rule family",
		},
		{
			name:    "unknown push method",
			mutate:  func(c *Config) { c.Notify.Methods = []string{"pigeon"} },
			wantErr: "oneof",
		},
		{
			name: "serverchan without key",
			mutate: func(c *Config) {
				c.Notify.Enabled = true
				c.Notify.Methods = []string{"serverchan"}
			},
			wantErr: "SERVERCHAN_KEY",
		},
		{
			name: "email without recipients",
			mutate: func(c *Config) {
				c.Notify.Enabled = true
				c.Notify.Methods = []string{"email"}
				c.Notify.SMTP.Host = "smtp.example.com"
			},
			wantErr: "recipients",
		},
		{
			name:    "bad daemon time",
			mutate:  func(c *Config) { c.Daemon.RunAt = "half past five" },
			wantErr: "run_at",
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Daemon.Timezone = "Mars/Olympus" },
			wantErr: "timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, b ,, c ")
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("Expected [a b c], got %v", got)
	}
}

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"true", true},
		{"YES", true},
		{"on", true},
		{"0", false},
		{"false", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isTruthy(tt.in); got != tt.want {
			t.Errorf("Expected isTruthy(%q)=%v, got %v", tt.in, tt.want, got)
		}
	}
}

// writeConfig writes a config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
