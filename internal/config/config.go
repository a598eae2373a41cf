// Package config defines the backtest run configuration. Config is
// loaded from a YAML file whose path the caller supplies, with
// sensitive or environment-specific fields overridable via APEX_*
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level backtest configuration, mapping directly to
// the YAML file structure.
type Config struct {
	TickData TickDataConfig `mapstructure:"tick_data"`
	Replay   ReplayConfig   `mapstructure:"replay"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// TickDataConfig locates the root of the bucketed tick archive laid
// out as EXCHANGE/SYMBOL/STREAM/YYYY-MM-DD.tkbn[.gz].
type TickDataConfig struct {
	RootDir string `mapstructure:"root_dir"`
}

// ReplayConfig bounds the date range and instrument universe of one
// backtest run.
type ReplayConfig struct {
	From        string   `mapstructure:"from"` // YYYY-MM-DD
	Upto        string   `mapstructure:"upto"` // YYYY-MM-DD, inclusive
	Instruments []string `mapstructure:"instruments"`
	Streams     []string `mapstructure:"streams"` // subset of {aggTrades, bookTicker}
}

// StrategyConfig names the strategy to load and its free-form params.
type StrategyConfig struct {
	Name   string         `mapstructure:"name"`
	Params map[string]any `mapstructure:"params"`
}

// AuditConfig controls where the transaction journal and position
// snapshot are written.
type AuditConfig struct {
	OutputDir    string `mapstructure:"output_dir"`
	SnapshotFile string `mapstructure:"snapshot_file"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads the config file at path, applying APEX_*-prefixed
// environment variable overrides (e.g. APEX_TICK_DATA_ROOT_DIR).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvPrefix("APEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("replay.streams", []string{"aggTrades", "bookTicker"})
	v.SetDefault("audit.output_dir", "runs")
	v.SetDefault("audit.snapshot_file", "positions.snapshot")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that the config is complete enough to start a run.
func (c *Config) Validate() error {
	if c.TickData.RootDir == "" {
		return fmt.Errorf("tick_data.root_dir is required")
	}
	if c.Replay.From == "" || c.Replay.Upto == "" {
		return fmt.Errorf("replay.from and replay.upto are required")
	}
	fromT, err := time.Parse("2006-01-02", c.Replay.From)
	if err != nil {
		return fmt.Errorf("replay.from: %w", err)
	}
	uptoT, err := time.Parse("2006-01-02", c.Replay.Upto)
	if err != nil {
		return fmt.Errorf("replay.upto: %w", err)
	}
	if uptoT.Before(fromT) {
		return fmt.Errorf("replay.upto must not be before replay.from")
	}
	if len(c.Replay.Instruments) == 0 {
		return fmt.Errorf("replay.instruments must name at least one instrument")
	}
	return nil
}
