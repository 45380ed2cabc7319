// Package config loads the project file wetwire-cdk.yaml.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/lex00/wetwire-cdk-go/core"
)

// FileName is the project configuration file name.
const FileName = "wetwire-cdk.yaml"

// Config is the project configuration.
type Config struct {
	// App is the command that runs the construct program.
	App string `mapstructure:"app" yaml:"app"`
	// Output is the cloud assembly directory.
	Output  string         `mapstructure:"output" yaml:"output"`
	Context map[string]any `mapstructure:"context" yaml:"context,omitempty"`
	Region  string         `mapstructure:"region" yaml:"region,omitempty"`
	Profile string         `mapstructure:"profile" yaml:"profile,omitempty"`
	Watch   Watch          `mapstructure:"watch" yaml:"watch,omitempty"`

	// Path is the file the configuration was read from, empty for
	// defaults.
	Path string `mapstructure:"-" yaml:"-"`
}

// Watch configures `wetwire-cdk watch`.
type Watch struct {
	Include  []string      `mapstructure:"include" yaml:"include,omitempty"`
	Exclude  []string      `mapstructure:"exclude" yaml:"exclude,omitempty"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		App:     "go run .",
		Output:  "cdk.out",
		Context: map[string]any{},
		Watch: Watch{
			Include:  []string{"**/*.go", "go.mod", FileName},
			Exclude:  []string{"cdk.out/**", "vendor/**"},
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Load reads dir/wetwire-cdk.yaml over the defaults and applies
// environment overrides. A missing file is not an error.
func Load(dir string) (*Config, error) {
	cfg := Default()
	path := filepath.Join(dir, FileName)

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		cfg.Path = path
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// decode merges a YAML document into cfg. Durations accept Go duration
// strings ("750ms") or integer milliseconds.
func (c *Config) decode(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing: %w", err)
	}
	if raw == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           c,
		ErrorUnused:      true,
		ZeroFields:       true,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			millisecondsHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func millisecondsHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64:
		return time.Duration(reflect.ValueOf(data).Int()) * time.Millisecond, nil
	}
	return data, nil
}

// applyEnv lets the runner environment override the file, so an app run
// by hand and one run by the CLI see the same settings.
func (c *Config) applyEnv() error {
	if out := os.Getenv(core.EnvOutdir); out != "" {
		c.Output = out
	}
	if raw := os.Getenv(core.EnvContext); raw != "" {
		var ctx map[string]any
		if err := json.Unmarshal([]byte(raw), &ctx); err != nil {
			return fmt.Errorf("parsing %s: %w", core.EnvContext, err)
		}
		if c.Context == nil {
			c.Context = map[string]any{}
		}
		for k, v := range ctx {
			c.Context[k] = v
		}
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Output == "" {
		return errors.New("output must not be empty")
	}
	for _, pattern := range append(append([]string{}, c.Watch.Include...), c.Watch.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid watch pattern %q", pattern)
		}
	}
	if c.Watch.Debounce < 0 {
		return errors.New("watch.debounce must not be negative")
	}
	return nil
}

// Matches reports whether a slash-separated path relative to the project
// root should trigger a rebuild.
func (w Watch) Matches(rel string) bool {
	for _, pattern := range w.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	for _, pattern := range w.Include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// fileConfig is the on-disk form. Durations are written as strings.
type fileConfig struct {
	App     string         `yaml:"app"`
	Output  string         `yaml:"output"`
	Context map[string]any `yaml:"context,omitempty"`
	Region  string         `yaml:"region,omitempty"`
	Profile string         `yaml:"profile,omitempty"`
	Watch   struct {
		Include  []string `yaml:"include,omitempty"`
		Exclude  []string `yaml:"exclude,omitempty"`
		Debounce string   `yaml:"debounce,omitempty"`
	} `yaml:"watch"`
}

// Write stores the configuration in dir, as `wetwire-cdk init` does.
func (c *Config) Write(dir string) error {
	out := fileConfig{
		App:     c.App,
		Output:  c.Output,
		Context: c.Context,
		Region:  c.Region,
		Profile: c.Profile,
	}
	out.Watch.Include = c.Watch.Include
	out.Watch.Exclude = c.Watch.Exclude
	if c.Watch.Debounce > 0 {
		out.Watch.Debounce = c.Watch.Debounce.String()
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, FileName), data, 0o644)
}
