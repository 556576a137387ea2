package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Logging struct {
		CollectTopic    string        `yaml:"collect_topic"`
		CollectInterval time.Duration `yaml:"collect_interval" default:"30s"`
		CollectBatch    int           `yaml:"collect_batch" default:"100"`
	} `yaml:"logging"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	OKX        OKX        `yaml:"okx"`
	Strategy   Strategy   `yaml:"strategy"`
	Indicators Indicators `yaml:"indicators"`
	Weights    Weights    `yaml:"weights"`
	Analysis   Analysis   `yaml:"analysis"`
	Cache      struct {
		Backend  string        `yaml:"backend" default:"memory" validate:"oneof=memory redis file layered"`
		Key      string        `yaml:"key" default:"tradingStrategyData" validate:"required"`
		MaxAge   time.Duration `yaml:"max_age" default:"1h" validate:"gt=0"`
		FilePath string        `yaml:"file_path" default:"data/portfolio.json"`
	} `yaml:"cache"`
	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"coinscout"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled        bool     `yaml:"enabled"`
		Brokers        []string `yaml:"brokers"`
		PortfolioTopic string   `yaml:"portfolio_topic" default:"coinscout.portfolio"`
		RefreshTopic   string   `yaml:"refresh_topic" default:"coinscout.refresh"`
		RequiredAcks   int      `yaml:"required_acks" default:"1"`
		Compression    string   `yaml:"compression" default:"snappy"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"coinscout"`
			Workers    int           `yaml:"workers" default:"1"`
			BufferSize int           `yaml:"buffer_size" default:"16"`
			RetryMax   int           `yaml:"retry_max" default:"2"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled     bool          `yaml:"enabled"`
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"market"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		UseHTTP     bool          `yaml:"use_http"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout time.Duration `yaml:"read_timeout" default:"10s"`
		CandleTable string        `yaml:"candle_table" default:"candles_1h"`
	} `yaml:"clickhouse"`
	Telegram struct {
		Enabled bool   `yaml:"enabled"`
		Token   string `yaml:"token"`
		ChatID  int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
}

// OKX holds the public market-data endpoint settings.
type OKX struct {
	BaseURL           string        `yaml:"base_url" default:"https://www.okx.com/api/v5" validate:"required,url"`
	InstType          string        `yaml:"inst_type" default:"SPOT"`
	Timeout           time.Duration `yaml:"timeout" default:"10s" validate:"gt=0"`
	MaxRetries        int           `yaml:"max_retries" default:"3" validate:"gte=0,lte=10"`
	RetryDelay        time.Duration `yaml:"retry_delay" default:"500ms"`
	MaxRetryDelay     time.Duration `yaml:"max_retry_delay" default:"5s"`
	FallbackSynthetic bool          `yaml:"fallback_synthetic" default:"true"`
	CandleRate        float64       `yaml:"candle_rate" default:"10" validate:"gt=0"`
	CandleBurst       int           `yaml:"candle_burst" default:"10" validate:"gt=0"`
}

// Strategy is the filter and ranking surface.
type Strategy struct {
	QuoteCurrency     string        `yaml:"quote_currency" json:"quoteCurrency" default:"USDT" validate:"required"`
	ExcludedSymbols   []string      `yaml:"excluded_symbols" json:"excludedSymbols" default:"[\"USDT\",\"USDC\",\"BUSD\",\"DAI\"]"`
	MinPrice          float64       `yaml:"min_price" json:"minPrice" default:"0.000001" validate:"gte=0"`
	MinVolume         float64       `yaml:"min_volume" json:"minVolume" default:"100000" validate:"gte=0"`
	TopN              int           `yaml:"top_n" json:"topN" default:"20" validate:"gt=0"`
	RefreshInterval   time.Duration `yaml:"refresh_interval" json:"refreshInterval" default:"15m" validate:"gt=0"`
	QualifiedScore    float64       `yaml:"qualified_score" json:"qualifiedScore" default:"50"`
	Concurrency       int           `yaml:"concurrency" json:"concurrency" default:"8" validate:"gt=0"`
	StrongSignalCount int           `yaml:"strong_signal_count" json:"strongSignalCount" default:"5" validate:"gt=0"`
}

// Indicators configures how indicator snapshots are produced.
type Indicators struct {
	Source              string  `yaml:"source" json:"source" default:"okx" validate:"oneof=okx clickhouse synthetic"`
	Fallback            string  `yaml:"fallback" json:"fallback" default:"neutral" validate:"oneof=neutral synthetic skip"`
	Bar                 string  `yaml:"bar" json:"bar" default:"1H"`
	HistoryLimit        int     `yaml:"history_limit" json:"historyLimit" default:"100" validate:"gt=0,lte=300"`
	RSIPeriod           int     `yaml:"rsi_period" json:"rsiPeriod" default:"14" validate:"gt=0"`
	RSIThreshold        float64 `yaml:"rsi_threshold" json:"rsiThreshold" default:"50" validate:"gte=0,lte=100"`
	MACDFast            int     `yaml:"macd_fast" json:"macdFast" default:"12" validate:"gt=0"`
	MACDSlow            int     `yaml:"macd_slow" json:"macdSlow" default:"26" validate:"gt=0"`
	MACDSignal          int     `yaml:"macd_signal" json:"macdSignal" default:"9" validate:"gt=0"`
	SMAPeriod           int     `yaml:"sma_period" json:"smaPeriod" default:"20" validate:"gt=0"`
	VolumePeriod        int     `yaml:"volume_period" json:"volumePeriod" default:"4" validate:"gt=0"`
	SRLookback          int     `yaml:"sr_lookback" json:"srLookback" default:"20" validate:"gt=0"`
	ResistanceProximity float64 `yaml:"resistance_proximity" json:"resistanceProximity" default:"0.02" validate:"gt=0,lt=1"`
	TrendLookback       int     `yaml:"trend_lookback" json:"trendLookback" default:"14" validate:"gt=0"`
	TrendThreshold      float64 `yaml:"trend_threshold" json:"trendThreshold" default:"0.7" validate:"gte=0,lte=1"`
}

// Weights are the points awarded per triggered rule.
type Weights struct {
	RSIBreakthrough float64 `yaml:"rsi_breakthrough" json:"rsiBreakthrough" default:"15" validate:"gte=0"`
	MACDCrossover   float64 `yaml:"macd_crossover" json:"macdCrossover" default:"20" validate:"gte=0"`
	SMABreakthrough float64 `yaml:"sma_breakthrough" json:"smaBreakthrough" default:"10" validate:"gte=0"`
	ResistanceBreak float64 `yaml:"resistance_break" json:"resistanceBreak" default:"15" validate:"gte=0"`
	LiquidityCross  float64 `yaml:"liquidity_cross" json:"liquidityCross" default:"10" validate:"gte=0"`
	VolumeIncrease  float64 `yaml:"volume_increase" json:"volumeIncrease" default:"10" validate:"gte=0"`
	TrendStrength   float64 `yaml:"trend_strength" json:"trendStrength" default:"20" validate:"gte=0"`
}

// Total is the maximum score an asset can reach.
func (w Weights) Total() float64 {
	return w.RSIBreakthrough + w.MACDCrossover + w.SMABreakthrough + w.ResistanceBreak +
		w.LiquidityCross + w.VolumeIncrease + w.TrendStrength
}

// Analysis holds the percentage offsets used for targets and entries.
type Analysis struct {
	Target1   float64 `yaml:"target1" json:"target1" default:"0.05" validate:"gt=0"`
	Target2   float64 `yaml:"target2" json:"target2" default:"0.12" validate:"gt=0"`
	Target3   float64 `yaml:"target3" json:"target3" default:"0.20" validate:"gt=0"`
	StopLoss  float64 `yaml:"stop_loss" json:"stopLoss" default:"0.05" validate:"gt=0,lt=1"`
	Dip       float64 `yaml:"dip" json:"dip" default:"0.02" validate:"gte=0,lt=1"`
	Breakout  float64 `yaml:"breakout" json:"breakout" default:"0.02" validate:"gte=0"`
	Timeframe string  `yaml:"timeframe" json:"timeframe" default:"short to medium term (1-4 weeks)"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A .env file in the working directory is read first when present.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	var (
		c   *Config
		err error
	)
	if _, statErr := os.Stat(path); statErr == nil {
		c, err = Load(path)
		if err != nil {
			return nil, err
		}
	} else {
		c = Default()
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("COINSCOUT_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("COINSCOUT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("COINSCOUT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("COINSCOUT_OKX_BASE_URL"); v != "" {
		c.OKX.BaseURL = v
	}
	if v := os.Getenv("COINSCOUT_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Strategy.TopN = n
		}
	}
	if v := os.Getenv("COINSCOUT_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Strategy.RefreshInterval = d
		}
	}
	if v := os.Getenv("COINSCOUT_INDICATOR_SOURCE"); v != "" {
		c.Indicators.Source = v
	}
	if v := os.Getenv("COINSCOUT_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Indicators.MACDFast >= c.Indicators.MACDSlow {
		return fmt.Errorf("indicators.macd_fast (%d) must be less than macd_slow (%d)",
			c.Indicators.MACDFast, c.Indicators.MACDSlow)
	}
	if c.Weights.Total() <= 0 {
		return fmt.Errorf("weights must not all be zero")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Indicators.Source == "clickhouse" && !c.ClickHouse.Enabled {
		return fmt.Errorf("indicators.source 'clickhouse' requires clickhouse.enabled")
	}
	if c.Telegram.Enabled && (c.Telegram.Token == "" || c.Telegram.ChatID == 0) {
		return fmt.Errorf("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	return nil
}

// ExcludedSet returns the exclusion list as an upper-cased lookup set.
func (s Strategy) ExcludedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.ExcludedSymbols))
	for _, sym := range s.ExcludedSymbols {
		set[strings.ToUpper(strings.TrimSpace(sym))] = struct{}{}
	}
	return set
}
