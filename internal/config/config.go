package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/strongdm/supportdesk/internal/listen"
	"github.com/strongdm/supportdesk/internal/openflag"
	"github.com/strongdm/supportdesk/internal/telemetry/otel"
)

// Environment variables consulted by Load.
const (
	EnvTitle        = "NEXT_PUBLIC_APP_TITLE"
	EnvDescription  = "SUPPORTDESK_DESCRIPTION"
	EnvListen       = "SUPPORTDESK_LISTEN"
	EnvLogLevel     = "SUPPORTDESK_LOG_LEVEL"
	EnvLogFormat    = "SUPPORTDESK_LOG_FORMAT"
	EnvHome         = "SUPPORTDESK_HOME"
	EnvConfigFile   = "SUPPORTDESK_CONFIG"
	EnvOTelMetrics  = "SUPPORTDESK_OTEL_METRICS"
	EnvOTelTraces   = "SUPPORTDESK_OTEL_TRACES"
	EnvOTelEndpoint = "SUPPORTDESK_OTEL_ENDPOINT"
	EnvOTelHeaders  = "SUPPORTDESK_OTEL_HEADERS"
)

// Source names the layer that produced a setting.
type Source string

const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Config is the resolved runtime configuration.
type Config struct {
	// TitleOverride is nil when no layer supplied a title.
	TitleOverride *string
	TitleSource   Source
	Description   string
	Listen        listen.Config
	LogLevel      log.Level
	LogFormat     string
	Open          bool
	Telemetry     otel.Config
	// File is the config file that was read, empty when none existed.
	File string
}

// ParseError represents a config file decode failure.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse config %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type fileConfig struct {
	Title       *string `toml:"title" yaml:"title"`
	Description *string `toml:"description" yaml:"description"`
	Listen      *string `toml:"listen" yaml:"listen"`
	Open        *bool   `toml:"open" yaml:"open"`
	Log         struct {
		Level  string `toml:"level" yaml:"level"`
		Format string `toml:"format" yaml:"format"`
	} `toml:"log" yaml:"log"`
	Telemetry struct {
		Metrics  *bool  `toml:"metrics" yaml:"metrics"`
		Traces   *bool  `toml:"traces" yaml:"traces"`
		Endpoint string `toml:"endpoint" yaml:"endpoint"`
	} `toml:"telemetry" yaml:"telemetry"`
}

// Default returns the configuration used when neither a file nor the
// environment provides any value.
func Default() Config {
	return Config{
		TitleSource: SourceDefault,
		Description: DefaultDescription,
		Listen:      listen.Default(),
		LogLevel:    log.InfoLevel,
		LogFormat:   "text",
		Telemetry:   otel.Config{ServiceName: "supportdesk"},
	}
}

// DisplayTitle is the single title used for both the document metadata and
// the landing heading.
func (c Config) DisplayTitle() string {
	return ResolveDisplayTitle(c.TitleOverride)
}

// LoadFromEnv is Load over the process environment.
func LoadFromEnv() (Config, error) {
	return Load(os.LookupEnv)
}

// Load resolves the configuration from defaults, the optional config file and
// the environment, in increasing precedence.
func Load(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := Default()

	path, explicit, err := configFile(lookup)
	if err != nil {
		return cfg, err
	}
	fc, found, err := readFile(path, explicit)
	if err != nil {
		return cfg, err
	}
	if found {
		cfg.File = path
		if err := cfg.applyFile(fc); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func configFile(lookup LookupFunc) (string, bool, error) {
	if explicit := strings.TrimSpace(getenv(lookup, EnvConfigFile)); explicit != "" {
		return explicit, true, nil
	}
	_, file, err := GetConfigPath(lookup)
	if err != nil {
		return "", false, err
	}
	return file, false, nil
}

func readFile(path string, explicit bool) (fileConfig, bool, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return fc, false, nil
	}
	if err != nil {
		return fc, false, fmt.Errorf("read config: %w", err)
	}
	if err := decodeFile(data, path, &fc); err != nil {
		return fc, false, err
	}
	return fc, true, nil
}

func decodeFile(data []byte, path string, fc *fileConfig) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, fc); err != nil {
			return &ParseError{Path: path, Err: err}
		}
	case ".toml", "":
		if err := toml.Unmarshal(data, fc); err != nil {
			var decodeErr *toml.DecodeError
			if errors.As(err, &decodeErr) {
				return &ParseError{Path: path, Err: decodeErr}
			}
			return &ParseError{Path: path, Err: err}
		}
	default:
		return fmt.Errorf("unsupported config format %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}
	return nil
}

func (c *Config) applyFile(fc fileConfig) error {
	if fc.Title != nil {
		c.setTitle(*fc.Title, SourceFile)
	}
	if fc.Description != nil {
		c.Description = *fc.Description
	}
	if fc.Listen != nil {
		l, err := listen.Parse(*fc.Listen)
		if err != nil {
			return err
		}
		c.Listen = l
	}
	if fc.Open != nil {
		c.Open = *fc.Open
	}
	if err := c.setLogLevel(fc.Log.Level); err != nil {
		return err
	}
	if err := c.setLogFormat(fc.Log.Format); err != nil {
		return err
	}
	if fc.Telemetry.Metrics != nil {
		c.Telemetry.EnableMetrics = *fc.Telemetry.Metrics
	}
	if fc.Telemetry.Traces != nil {
		c.Telemetry.EnableTraces = *fc.Telemetry.Traces
	}
	if endpoint := strings.TrimSpace(fc.Telemetry.Endpoint); endpoint != "" {
		c.Telemetry.Endpoint = endpoint
	}
	return nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	if value, ok := lookup(EnvTitle); ok {
		c.setTitle(value, SourceEnv)
	}
	if value, ok := lookup(EnvDescription); ok {
		c.Description = value
	}
	if value, ok := lookup(EnvListen); ok {
		l, err := listen.Parse(value)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvListen, err)
		}
		c.Listen = l
	}
	if value, ok := lookup(openflag.EnvVar); ok {
		c.Open = openflag.IsTruthy(value)
	}
	if err := c.setLogLevel(getenv(lookup, EnvLogLevel)); err != nil {
		return fmt.Errorf("%s: %w", EnvLogLevel, err)
	}
	if err := c.setLogFormat(getenv(lookup, EnvLogFormat)); err != nil {
		return fmt.Errorf("%s: %w", EnvLogFormat, err)
	}
	c.Telemetry.EnableMetrics = otel.EnvBool(getenv(lookup, EnvOTelMetrics), c.Telemetry.EnableMetrics)
	c.Telemetry.EnableTraces = otel.EnvBool(getenv(lookup, EnvOTelTraces), c.Telemetry.EnableTraces)
	if endpoint := strings.TrimSpace(getenv(lookup, EnvOTelEndpoint)); endpoint != "" {
		c.Telemetry.Endpoint = endpoint
	}
	if headers := otel.ParseHeaders(getenv(lookup, EnvOTelHeaders)); headers != nil {
		c.Telemetry.Headers = headers
	}
	return nil
}

func (c *Config) setTitle(value string, source Source) {
	title := value
	c.TitleOverride = &title
	c.TitleSource = source
}

func (c *Config) setLogLevel(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	level, err := log.ParseLevel(raw)
	if err != nil {
		return err
	}
	c.LogLevel = level
	return nil
}

func (c *Config) setLogFormat(raw string) error {
	switch format := strings.ToLower(strings.TrimSpace(raw)); format {
	case "":
		return nil
	case "text", "json":
		c.LogFormat = format
		return nil
	default:
		return fmt.Errorf("unsupported log format %q (want text or json)", raw)
	}
}

func getenv(lookup LookupFunc, key string) string {
	if lookup == nil {
		return os.Getenv(key)
	}
	value, _ := lookup(key)
	return value
}
