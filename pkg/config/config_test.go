package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if c.Strategy.TopN != 20 || c.Strategy.RefreshInterval != 15*time.Minute {
		t.Fatalf("unexpected strategy defaults: %+v", c.Strategy)
	}
	if c.Cache.Key != "tradingStrategyData" || c.Cache.MaxAge != time.Hour {
		t.Fatalf("unexpected cache defaults: %+v", c.Cache)
	}
	if got := c.Weights.Total(); got != 100 {
		t.Fatalf("weights total = %v, want 100", got)
	}
	if len(c.Strategy.ExcludedSymbols) != 4 {
		t.Fatalf("unexpected excluded symbols: %v", c.Strategy.ExcludedSymbols)
	}
}

func TestParse_OverridesKeepDefaults(t *testing.T) {
	c, err := Parse([]byte(`
strategy:
  top_n: 5
  excluded_symbols: [" usdt ", "dai"]
cache:
  backend: redis
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Strategy.TopN != 5 || c.Cache.Backend != "redis" {
		t.Fatalf("overrides not applied: %+v %+v", c.Strategy, c.Cache)
	}
	if c.Strategy.QuoteCurrency != "USDT" || c.Indicators.RSIPeriod != 14 {
		t.Fatalf("defaults lost: %+v", c.Strategy)
	}

	set := c.Strategy.ExcludedSet()
	if _, ok := set["USDT"]; !ok {
		t.Fatalf("expected normalized USDT in %v", set)
	}
	if _, ok := set["DAI"]; !ok {
		t.Fatalf("expected normalized DAI in %v", set)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad backend":     "cache:\n  backend: disk\n",
		"macd order":      "indicators:\n  macd_fast: 30\n  macd_slow: 26\n",
		"kafka brokers":   "kafka:\n  enabled: true\n",
		"clickhouse off":  "indicators:\n  source: clickhouse\n",
		"telegram token":  "telegram:\n  enabled: true\n",
		"negative top_n":  "strategy:\n  top_n: -1\n",
		"bad yaml":        "strategy: [",
		"fallback policy": "indicators:\n  fallback: retry\n",
	}
	for name, body := range cases {
		if _, err := Parse([]byte(body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadWithEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("COINSCOUT_TOP_N", "7")
	t.Setenv("COINSCOUT_REFRESH_INTERVAL", "5m")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 9000 {
		t.Fatalf("port = %d", c.Server.Port)
	}
	if c.Strategy.TopN != 7 || c.Strategy.RefreshInterval != 5*time.Minute {
		t.Fatalf("env overrides not applied: %+v", c.Strategy)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("kafka env not applied: %+v", c.Kafka)
	}
}

func TestLoadWithEnv_MissingFileUsesDefaults(t *testing.T) {
	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 8080 {
		t.Fatalf("port = %d", c.Server.Port)
	}
}
