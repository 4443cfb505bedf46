// Package config loads run settings from defaults, an optional YAML file,
// TABRL_ environment variables and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sw965/tabrl/game/gambler"
	"github.com/sw965/tabrl/game/jackscarrental"
)

const EnvPrefix = "TABRL"

var ErrInvalidConfig = errors.New("invalid configuration")

type Gambler struct {
	HeadProbability float64 `mapstructure:"head-probability" yaml:"head-probability"`
	Goal            int     `mapstructure:"goal" yaml:"goal"`
}

type JacksCarRental struct {
	MaxCars  int     `mapstructure:"max-cars" yaml:"max-cars"`
	MaxMove  int     `mapstructure:"max-move" yaml:"max-move"`
	TailMass float64 `mapstructure:"tail-mass" yaml:"tail-mass"`
	Gamma    float64 `mapstructure:"gamma" yaml:"gamma"`
}

type Config struct {
	Seed      uint64 `mapstructure:"seed" yaml:"seed"`
	LogLevel  string `mapstructure:"log-level" yaml:"log-level"`
	OutputDir string `mapstructure:"output-dir" yaml:"output-dir"`
	Plot      bool   `mapstructure:"plot" yaml:"plot"`

	Theta     float64 `mapstructure:"theta" yaml:"theta"`
	MaxSweeps int     `mapstructure:"max-sweeps" yaml:"max-sweeps"`

	Epsilon         float64 `mapstructure:"epsilon" yaml:"epsilon"`
	Alpha           float64 `mapstructure:"alpha" yaml:"alpha"`
	Episodes        int     `mapstructure:"episodes" yaml:"episodes"`
	MaxEpisodeSteps int     `mapstructure:"max-episode-steps" yaml:"max-episode-steps"`

	Gambler        Gambler        `mapstructure:"gambler" yaml:"gambler"`
	JacksCarRental JacksCarRental `mapstructure:"jacks" yaml:"jacks"`
}

func setDefaults(v *viper.Viper) {
	jacks := jackscarrental.DefaultConfig()

	v.SetDefault("seed", 1)
	v.SetDefault("log-level", "info")
	v.SetDefault("output-dir", "output")
	v.SetDefault("plot", false)
	v.SetDefault("theta", 1e-9)
	v.SetDefault("max-sweeps", 0)
	v.SetDefault("epsilon", 0.1)
	v.SetDefault("alpha", 0.1)
	v.SetDefault("episodes", 100000)
	v.SetDefault("max-episode-steps", 100000)
	v.SetDefault("gambler.head-probability", gambler.DefaultHeadProbability)
	v.SetDefault("gambler.goal", gambler.DefaultGoal)
	v.SetDefault("jacks.max-cars", jacks.MaxCars)
	v.SetDefault("jacks.max-move", jacks.MaxMove)
	v.SetDefault("jacks.tail-mass", jacks.TailMass)
	v.SetDefault("jacks.gamma", jacks.Gamma)
}

// Load resolves the configuration. path may be empty. Flags in fs that the user
// did not set keep the lower-priority value.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	var cfg Config
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log-level %q", ErrInvalidConfig, c.LogLevel)
	}
	if !(c.Theta > 0) {
		return fmt.Errorf("%w: theta %v must be > 0", ErrInvalidConfig, c.Theta)
	}
	if c.MaxSweeps < 0 || c.MaxEpisodeSteps < 0 {
		return fmt.Errorf("%w: step ceilings must be >= 0", ErrInvalidConfig)
	}
	// 0 is accepted here; Monte Carlo rejects it itself
	if !(c.Epsilon >= 0 && c.Epsilon <= 1) {
		return fmt.Errorf("%w: epsilon %v must be in [0, 1]", ErrInvalidConfig, c.Epsilon)
	}
	if !(c.Alpha > 0 && c.Alpha <= 1) {
		return fmt.Errorf("%w: alpha %v must be in (0, 1]", ErrInvalidConfig, c.Alpha)
	}
	if c.Episodes < 0 {
		return fmt.Errorf("%w: episodes %d", ErrInvalidConfig, c.Episodes)
	}
	if err := c.GamblerTask().Validate(); err != nil {
		return err
	}
	return c.JacksCarRentalConfig().Validate()
}

func (c Config) GamblerTask() gambler.Gambler {
	return gambler.Gambler{HeadProbability: c.Gambler.HeadProbability, Goal: c.Gambler.Goal}
}

// JacksCarRentalConfig overlays the configurable fields on the task defaults.
func (c Config) JacksCarRentalConfig() jackscarrental.Config {
	jacks := jackscarrental.DefaultConfig()
	jacks.MaxCars = c.JacksCarRental.MaxCars
	jacks.MaxMove = c.JacksCarRental.MaxMove
	jacks.TailMass = c.JacksCarRental.TailMass
	jacks.Gamma = c.JacksCarRental.Gamma
	return jacks
}

func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// Dump writes the effective configuration as YAML.
func (c Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
