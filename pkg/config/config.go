package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SinaHkz/typed-pipeline/pkg/types"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("pipeline: invalid config")

// ------------------------------ YAML schema ------------------------------

type Pipeline struct {
	BatchSize      int           `yaml:"batch_size"`
	Kinds          []types.Kind  `yaml:"kinds"`
	IntakeCapacity int           `yaml:"intake_capacity"`
	KindCapacity   int           `yaml:"kind_capacity"` // 0 = unbounded
	IntervalMin    time.Duration `yaml:"interval_min"`
	IntervalMax    time.Duration `yaml:"interval_max"`
	CostMin        int           `yaml:"cost_min"`
	CostMax        int           `yaml:"cost_max"`
	CostUnit       time.Duration `yaml:"cost_unit"`
	MaxRate        float64       `yaml:"max_rate"` // items/s, 0 = off
	EventBuffer    int           `yaml:"event_buffer"`
}

type Config struct {
	Pipeline  Pipeline `yaml:"pipeline"`
	LogLevel  string   `yaml:"log_level"`
	FaultRate int      `yaml:"fault_rate"`
}

// ------------------------------ loader ------------------------------

//go:embed config.yml
var raw []byte

// Load unmarshals the embedded YAML into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: embedded defaults: %w", err)
	}
	return &cfg, nil
}

// LoadFile reads path over the embedded defaults; keys missing from the
// file keep their default value.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Level maps LogLevel onto slog; unknown values fall back to info.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// ------------------------------ validation ------------------------------

// Validate rejects configurations the pipeline cannot run.
func (p Pipeline) Validate() error {
	switch {
	case p.BatchSize <= 0:
		return invalid("batch_size must be positive, got %d", p.BatchSize)
	case len(p.Kinds) == 0:
		return invalid("kinds must not be empty")
	case p.IntakeCapacity < 1:
		return invalid("intake_capacity must be at least 1, got %d", p.IntakeCapacity)
	case p.KindCapacity < 0:
		return invalid("kind_capacity must not be negative, got %d", p.KindCapacity)
	case p.IntervalMin < 0 || p.IntervalMin > p.IntervalMax:
		return invalid("interval range [%s, %s] is invalid", p.IntervalMin, p.IntervalMax)
	case p.CostMin < 1 || p.CostMin > p.CostMax:
		return invalid("cost range [%d, %d] is invalid", p.CostMin, p.CostMax)
	case p.CostUnit < 0:
		return invalid("cost_unit must not be negative, got %s", p.CostUnit)
	case p.MaxRate < 0:
		return invalid("max_rate must not be negative, got %g", p.MaxRate)
	case p.EventBuffer < 0:
		return invalid("event_buffer must not be negative, got %d", p.EventBuffer)
	}

	seen := make(map[types.Kind]struct{}, len(p.Kinds))
	for _, k := range p.Kinds {
		if k == "" {
			return invalid("kind names must not be empty")
		}
		if _, dup := seen[k]; dup {
			return invalid("duplicate kind %q", k)
		}
		seen[k] = struct{}{}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
