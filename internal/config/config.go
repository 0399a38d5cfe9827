package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"retail-insights/internal/model"
)

// EnvPrefix prefixes every environment override, e.g. RIE_SERVER_LISTEN_ADDR.
const EnvPrefix = "RIE"

// keyDelimiter replaces viper's "." so column names and statuses containing
// dots survive as map keys.
const keyDelimiter = "::"

// InputConfig lists the files read by the batch runner.
type InputConfig struct {
	Paths     []string `mapstructure:"paths"`
	Encoding  string   `mapstructure:"encoding"`
	Delimiter string   `mapstructure:"delimiter"`
}

// Sources turns the configured paths into pipeline sources.
func (c InputConfig) Sources() []model.Source {
	sources := make([]model.Source, len(c.Paths))
	for i, p := range c.Paths {
		sources[i] = model.Source{Path: p, Encoding: c.Encoding, Delimiter: c.Delimiter}
	}
	return sources
}

type OutputConfig struct {
	Dir  string `mapstructure:"dir"`
	JSON bool   `mapstructure:"json"`
	TopN int    `mapstructure:"top_n"`
}

type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig enables run bookkeeping when Path is set.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Verbose bool `mapstructure:"verbose"`
}

// Config represents the application's configuration structure.
type Config struct {
	Data   model.SchemaConfig `mapstructure:"data"`
	Input  InputConfig        `mapstructure:"input"`
	Output OutputConfig       `mapstructure:"output"`
	Server ServerConfig       `mapstructure:"server"`
	Store  StoreConfig        `mapstructure:"store"`
	Log    LogConfig          `mapstructure:"log"`
}

var defaults = map[string]interface{}{
	"input::encoding":          "utf-8",
	"input::delimiter":         ",",
	"output::dir":              "output",
	"output::json":             false,
	"output::top_n":            10,
	"server::listen_addr":      ":8000",
	"server::shutdown_timeout": "10s",
	"store::path":              "",
	"log::verbose":             false,
}

var requiredFields = []string{
	"data::drop_columns",
	"data::status_mapping",
}

// LoadEnv loads .env style files into the process environment. Missing files
// are skipped.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("could not load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads a TOML config file. Environment variables take precedence over
// the file.
func Load(path string) (*Config, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_", "-", "_"))
	v.AutomaticEnv()

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	for _, field := range requiredFields {
		if !v.IsSet(field) {
			return nil, fmt.Errorf("missing required config field: %s", strings.ReplaceAll(field, keyDelimiter, "."))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that viper cannot.
func (c *Config) Validate() error {
	for col, typ := range c.Data.DtypeMap {
		if _, ok := model.ParseColumnType(typ); !ok {
			return fmt.Errorf("data.dtype_columns: unknown type %q for column %q", typ, col)
		}
	}
	if c.Output.TopN < 1 || c.Output.TopN > 100 {
		return fmt.Errorf("output.top_n must be between 1 and 100, got %d", c.Output.TopN)
	}
	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}
	if c.Input.Delimiter != "" && len([]rune(c.Input.Delimiter)) != 1 {
		return fmt.Errorf("input.delimiter must be a single character, got %q", c.Input.Delimiter)
	}
	return nil
}
