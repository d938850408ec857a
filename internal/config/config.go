// Package config loads generation settings from defaults, a YAML config
// file, DATAGEN_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/datagen/internal/combination"
	"github.com/roach88/datagen/internal/generator"
)

// EnvPrefix prefixes every environment variable, for example
// DATAGEN_MAX_ROWS or DATAGEN_OUTPUT_FORMAT.
const EnvPrefix = "DATAGEN"

// Output formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Config holds the settings of one generate invocation.
type Config struct {
	Strategy       string    `mapstructure:"strategy" validate:"strategy"`
	Mode           string    `mapstructure:"mode" validate:"mode"`
	MaxRows        int       `mapstructure:"max_rows" validate:"gte=0"`
	ValuesPerField int       `mapstructure:"values_per_field" validate:"gte=0"`
	Parallel       int       `mapstructure:"parallel" validate:"gte=1,lte=256"`
	FieldOrder     []string  `mapstructure:"field_order" validate:"dive,required"`
	NamesFile      string    `mapstructure:"names_file"`
	Output         Output    `mapstructure:"output"`
	Telemetry      Telemetry `mapstructure:"telemetry"`
}

// Output selects where rows go.
type Output struct {
	Format string `mapstructure:"format" validate:"oneof=json csv"`

	// Path is the file rows are written to; empty means stdout.
	Path string `mapstructure:"path"`

	// DB is an optional SQLite store rows are also written to.
	DB string `mapstructure:"db"`
}

// Telemetry enables run instrumentation.
type Telemetry struct {
	// Metrics prints Prometheus counters to stderr after the run.
	Metrics bool `mapstructure:"metrics"`

	// Trace exports the run span to stderr.
	Trace bool `mapstructure:"trace"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Strategy: combination.NameFieldExhaustive,
		Mode:     string(generator.ModeValid),
		MaxRows:  1000,
		Parallel: 1,
		Output:   Output{Format: FormatJSON},
	}
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"strategy":         "strategy",
	"mode":             "mode",
	"max-rows":         "max_rows",
	"values-per-field": "values_per_field",
	"parallel":         "parallel",
	"field-order":      "field_order",
	"names":            "names_file",
	"output":           "output.format",
	"out":              "output.path",
	"db":               "output.db",
	"metrics":          "telemetry.metrics",
	"trace":            "telemetry.trace",
}

// Load reads the configuration. path names an optional YAML file; flags,
// when non-nil, override every other source for the flags that were set.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("strategy", d.Strategy)
	v.SetDefault("mode", d.Mode)
	v.SetDefault("max_rows", d.MaxRows)
	v.SetDefault("values_per_field", d.ValuesPerField)
	v.SetDefault("parallel", d.Parallel)
	if len(d.FieldOrder) > 0 {
		v.SetDefault("field_order", d.FieldOrder)
	} else {
		_ = v.BindEnv("field_order")
	}
	v.SetDefault("names_file", d.NamesFile)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("output.db", d.Output.DB)
	v.SetDefault("telemetry.metrics", d.Telemetry.Metrics)
	v.SetDefault("telemetry.trace", d.Telemetry.Trace)
}

// validate is the validator instance for configs.
// Initialized in init() with custom validators.
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("strategy", func(fl validator.FieldLevel) bool {
		_, err := combination.Lookup(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("mode", func(fl validator.FieldLevel) bool {
		_, err := generator.ParseMode(fl.Field().String())
		return err == nil
	})
}

// Validate checks every field, reporting all problems at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: invalid value %v (%s)", fe.Namespace(), fe.Value(), fe.Tag())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// StrategyValue returns the combination strategy named by Strategy.
func (c Config) StrategyValue() (combination.Strategy, error) {
	return combination.Lookup(c.Strategy)
}

// ModeValue returns the generation mode named by Mode.
func (c Config) ModeValue() (generator.Mode, error) {
	return generator.ParseMode(c.Mode)
}
