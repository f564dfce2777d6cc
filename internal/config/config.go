// Package config loads the runtime configuration of the btrun command.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/behave/internal/core/observability/log"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error silent none off"`

	// Tree is the tree file every agent runs (.yaml, .json or .hcl).
	Tree string `yaml:"tree" validate:"required"`

	// Seed overrides the tree's seed when non-zero.
	Seed int64 `yaml:"seed"`

	// Watch reloads Tree between frames when it changes on disk.
	Watch bool `yaml:"watch"`

	Agents AgentsConfig `yaml:"agents"`
	Tick   TickConfig   `yaml:"tick"`
	Trace  TraceConfig  `yaml:"trace"`
}

type AgentsConfig struct {
	Count   int `yaml:"count" validate:"gte=1"`
	Workers int `yaml:"workers" validate:"gte=0"`

	// Blackboard is copied into every agent's blackboard at spawn.
	Blackboard map[string]any `yaml:"blackboard"`
}

type TickConfig struct {
	// Rate is the number of frames per second.
	Rate float64 `yaml:"rate" validate:"gt=0"`

	// MaxSteps bounds the node entries a runner makes in one frame.
	MaxSteps int `yaml:"max_steps" validate:"gte=1"`

	// Frames stops the loop after that many frames. Zero runs until
	// interrupted.
	Frames int `yaml:"frames" validate:"gte=0"`
}

type TraceConfig struct {
	// Listen enables the trace server (/ws and /metrics) on this address.
	Listen    string `yaml:"listen"`
	Token     string `yaml:"token"`
	Namespace string `yaml:"namespace"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LogLevel: "info",
		Agents: AgentsConfig{
			Count: 1,
		},
		Tick: TickConfig{
			Rate:     30,
			MaxSteps: 1024,
		},
		Trace: TraceConfig{
			Namespace: "behave",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := Decode(f, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads YAML from r into cfg. Unknown keys are rejected so typos
// do not silently fall back to defaults.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// validate names fields by their yaml keys so messages match the file.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, errors.New(formatFieldError(fe)))
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func formatFieldError(e validator.FieldError) string {
	// Namespace is "Config.tick.rate"; drop the root struct name.
	path := e.Namespace()
	if _, rest, ok := strings.Cut(path, "."); ok {
		path = rest
	}
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "gte":
		return fmt.Sprintf("%s must be at least %s (got: %v)", path, e.Param(), e.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s (got: %v)", path, e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", path, e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed validation '%s' (got: %v)", path, e.Tag(), e.Value())
	}
}

// Interval is the wall time between frames.
func (c Config) Interval() time.Duration {
	return time.Duration(float64(time.Second) / c.Tick.Rate)
}

func (c Config) Level() log.Level {
	lvl, _ := log.ParseLevel(c.LogLevel)
	return lvl
}
