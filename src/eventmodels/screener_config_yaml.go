package eventmodels

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so timeout tables can be written as "30s"
// in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("Duration:UnmarshalYAML(): failed to decode value: %w", err)
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("Duration:UnmarshalYAML(): failed to parse duration %q: %w", raw, err)
	}

	*d = Duration(parsed)

	return nil
}

func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}

type RequiredFieldsYAML struct {
	Stock          []TickField `yaml:"stock"`
	Option         []TickField `yaml:"option"`
	NoTradingHours []TickField `yaml:"no_trading_hours"`
}

// ScreenerConfigYAML holds every policy knob that varied across revisions of
// the evaluation pipeline: field-completeness tables, timeouts, pool bounds,
// and the screening floor. Values here are the latest-observed defaults.
type ScreenerConfigYAML struct {
	QuotePoolSize  int     `yaml:"quote_pool_size"`
	LookupPoolSize int     `yaml:"lookup_pool_size"`
	PriceFloor     float64 `yaml:"price_floor"`

	ChainTimeout        Duration `yaml:"chain_timeout"`
	CoreOptionsTimeout  Duration `yaml:"core_options_timeout"`
	RangeOptionsTimeout Duration `yaml:"range_options_timeout"`
	OverallTimeout      Duration `yaml:"overall_timeout"`
	PriceFallbackAfter  Duration `yaml:"price_fallback_after"`
	TickInterval        Duration `yaml:"tick_interval"`
	StartStagger        Duration `yaml:"start_stagger"`

	TopMoves          int    `yaml:"top_moves"`
	HistoryDuration   string `yaml:"history_duration"`
	HistoryBarSize    string `yaml:"history_bar_size"`
	RangeExtraStrikes int    `yaml:"range_extra_strikes"`

	RequiredFields RequiredFieldsYAML `yaml:"required_fields"`
}

func DefaultScreenerConfig() *ScreenerConfigYAML {
	return &ScreenerConfigYAML{
		QuotePoolSize:       95,
		LookupPoolSize:      5,
		PriceFloor:          40.0,
		ChainTimeout:        Duration(30 * time.Second),
		CoreOptionsTimeout:  Duration(30 * time.Second),
		RangeOptionsTimeout: Duration(20 * time.Second),
		OverallTimeout:      Duration(600 * time.Second),
		PriceFallbackAfter:  Duration(15 * time.Second),
		TickInterval:        Duration(500 * time.Millisecond),
		StartStagger:        Duration(250 * time.Millisecond),
		TopMoves:            14,
		HistoryDuration:     "3 Y",
		HistoryBarSize:      "1 day",
		RangeExtraStrikes:   2,
		RequiredFields: RequiredFieldsYAML{
			Stock:          []TickField{TickFieldLast, TickFieldAsk, TickFieldBid},
			Option:         []TickField{TickFieldLast, TickFieldAsk, TickFieldBid, TickFieldDelta, TickFieldGamma, TickFieldVega, TickFieldIV},
			NoTradingHours: []TickField{TickFieldMark},
		},
	}
}

// LoadScreenerConfig overlays a YAML file on top of the defaults. An empty
// path returns the defaults unchanged.
func LoadScreenerConfig(path string) (*ScreenerConfigYAML, error) {
	cfg := DefaultScreenerConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadScreenerConfig: failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("LoadScreenerConfig: failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// RequiredFieldsFor resolves the completeness table for a security type.
// Outside trading hours only the mark price is obtainable, so the table
// collapses to the no-trading-hours set regardless of security type.
func (c *ScreenerConfigYAML) RequiredFieldsFor(secType SecurityType, noTradingHours bool) []TickField {
	if noTradingHours {
		return c.RequiredFields.NoTradingHours
	}

	if secType == SecurityTypeOption {
		return c.RequiredFields.Option
	}

	return c.RequiredFields.Stock
}
