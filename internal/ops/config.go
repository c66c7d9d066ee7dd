package ops

import (
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/yanun0323/errors"
)

// ErrConfig marks a missing or malformed configuration value. Fatal at
// startup.
var ErrConfig = errors.New("config error")

// Config is the resolved engine configuration.
type Config struct {
	TradingSymbol          string
	InitialCapital         float64
	SpreadThresholdBps     float64
	OrderSize              float64
	MaxInventory           float64
	OrderRateLimit         int
	OrderRefreshIntervalMs int
	OrderTimeoutSeconds    int
	MaxDailyLossLimit      float64
	MaxDrawdown            float64
	PositionLimit          float64
	EnableCircuitBreaker   bool
	PaperTrading           bool
	LogLevel               string
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		TradingSymbol:          "ETH-USD",
		InitialCapital:         50.0,
		SpreadThresholdBps:     5.0,
		OrderSize:              0.01,
		MaxInventory:           0.1,
		OrderRateLimit:         100,
		OrderRefreshIntervalMs: 200,
		OrderTimeoutSeconds:    30,
		MaxDailyLossLimit:      5.0,
		MaxDrawdown:            20.0,
		PositionLimit:          0.1,
		EnableCircuitBreaker:   true,
		PaperTrading:           true,
		LogLevel:               "INFO",
	}
}

// Load reads a KEY=VALUE file ('#' comments, whitespace trimmed) and
// overlays it on the defaults. Unknown keys are ignored; malformed
// values are fatal.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return Config{}, errors.Wrap(ErrConfig, err.Error())
	}

	if v, ok := values["TRADING_SYMBOL"]; ok {
		cfg.TradingSymbol = strings.TrimSpace(v)
	}
	if err := overlayFloat(values, "INITIAL_CAPITAL", &cfg.InitialCapital); err != nil {
		return Config{}, err
	}
	if err := overlayFloat(values, "SPREAD_THRESHOLD_BPS", &cfg.SpreadThresholdBps); err != nil {
		return Config{}, err
	}
	if err := overlayFloat(values, "ORDER_SIZE", &cfg.OrderSize); err != nil {
		return Config{}, err
	}
	if err := overlayFloat(values, "MAX_INVENTORY", &cfg.MaxInventory); err != nil {
		return Config{}, err
	}
	if err := overlayInt(values, "ORDER_RATE_LIMIT", &cfg.OrderRateLimit); err != nil {
		return Config{}, err
	}
	if err := overlayInt(values, "ORDER_REFRESH_INTERVAL_MS", &cfg.OrderRefreshIntervalMs); err != nil {
		return Config{}, err
	}
	if err := overlayInt(values, "ORDER_TIMEOUT_SECONDS", &cfg.OrderTimeoutSeconds); err != nil {
		return Config{}, err
	}
	if err := overlayFloat(values, "MAX_DAILY_LOSS_LIMIT", &cfg.MaxDailyLossLimit); err != nil {
		return Config{}, err
	}
	if err := overlayFloat(values, "MAX_DRAWDOWN", &cfg.MaxDrawdown); err != nil {
		return Config{}, err
	}
	if err := overlayFloat(values, "POSITION_LIMIT", &cfg.PositionLimit); err != nil {
		return Config{}, err
	}
	if err := overlayBool(values, "ENABLE_CIRCUIT_BREAKER", &cfg.EnableCircuitBreaker); err != nil {
		return Config{}, err
	}
	if err := overlayBool(values, "PAPER_TRADING", &cfg.PaperTrading); err != nil {
		return Config{}, err
	}
	if v, ok := values["LOG_LEVEL"]; ok {
		cfg.LogLevel = strings.ToUpper(strings.TrimSpace(v))
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.TradingSymbol == "" {
		return errors.Wrap(ErrConfig, "TRADING_SYMBOL is empty")
	}
	if c.OrderSize <= 0 {
		return errors.Wrap(ErrConfig, "ORDER_SIZE must be > 0")
	}
	if c.MaxInventory <= 0 {
		return errors.Wrap(ErrConfig, "MAX_INVENTORY must be > 0")
	}
	if c.PositionLimit <= 0 {
		return errors.Wrap(ErrConfig, "POSITION_LIMIT must be > 0")
	}
	if c.OrderRateLimit <= 0 {
		return errors.Wrap(ErrConfig, "ORDER_RATE_LIMIT must be > 0")
	}
	if c.OrderRefreshIntervalMs <= 0 {
		return errors.Wrap(ErrConfig, "ORDER_REFRESH_INTERVAL_MS must be > 0")
	}
	return nil
}

func overlayFloat(values map[string]string, key string, dst *float64) error {
	v, ok := values[key]
	if !ok {
		return nil
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return errors.Wrap(ErrConfig, "invalid "+key+": "+v)
	}
	*dst = parsed
	return nil
}

func overlayInt(values map[string]string, key string, dst *int) error {
	v, ok := values[key]
	if !ok {
		return nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return errors.Wrap(ErrConfig, "invalid "+key+": "+v)
	}
	*dst = parsed
	return nil
}

func overlayBool(values map[string]string, key string, dst *bool) error {
	v, ok := values[key]
	if !ok {
		return nil
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return errors.Wrap(ErrConfig, "invalid "+key+": "+v)
	}
	*dst = parsed
	return nil
}
