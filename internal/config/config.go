// Package config loads, validates and persists descarte's YAML configuration.
//
// Values are resolved in this order, later sources winning: built-in
// defaults, $DESCARTE_HOME/config.yaml, an optional project overlay,
// DESCARTE_* environment variables, and finally CLI flags applied by the
// caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Database drivers understood by the store.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	configFileName   = "config.yaml"
	defaultDBName    = "descarte.db"
	defaultAddress   = ":8080"
	defaultLogLevel  = "info"
	defaultLogFormat = "json"

	defaultRankingLimit     = 10
	defaultMaxRankingLimit  = 100
	defaultRankingWorkers   = 8
	defaultPointsPerKg      = 10
	defaultMaxDisposalKg    = 1000
	defaultMaxOpenConns     = 10
	defaultMaxIdleConns     = 5
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultShutdownTimeout  = 15 * time.Second
	defaultConnMaxLifetime  = 30 * time.Minute
	configFilePermissions   = 0o600
	configDirPermissions    = 0o700
	defaultTracingOutputDst = "stdout"
)

// ErrUnknownKey is returned by Get for a dotted key that names no setting.
var ErrUnknownKey = errors.New("unknown configuration key")

// Config is the complete descarte configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"   validate:"required"`
	Database DatabaseConfig `yaml:"database" validate:"required"`
	Impact   ImpactConfig   `yaml:"impact"   validate:"required"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`

	configPath string
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address         string        `yaml:"address"          validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig selects and tunes the SQL backend.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"            validate:"required,oneof=postgres sqlite"`
	DSN             string        `yaml:"dsn"               validate:"required"`
	MaxOpenConns    int           `yaml:"max_open_conns"    validate:"gte=0"`
	MaxIdleConns    int           `yaml:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" validate:"gte=0"`
}

// ImpactConfig tunes aggregation and ranking.
type ImpactConfig struct {
	DefaultRankingLimit int     `yaml:"default_ranking_limit"  validate:"gte=1,ltefield=MaxRankingLimit"`
	MaxRankingLimit     int     `yaml:"max_ranking_limit"      validate:"gte=1,lte=10000"`
	RankingConcurrency  int     `yaml:"ranking_concurrency"    validate:"gte=1,lte=64"`
	PointsPerKg         float64 `yaml:"points_per_kg"          validate:"gte=0"`
	MaxDisposalWeightKg float64 `yaml:"max_disposal_weight_kg" validate:"gt=0"`
	RecomputeOnStart    bool    `yaml:"recompute_on_start"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `yaml:"level"  validate:"omitempty,oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
	File   string `yaml:"file,omitempty"`
}

// TracingConfig configures the OpenTelemetry tracer provider.
type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Output  string `yaml:"output,omitempty"`
}

// Default returns a Config populated with built-in defaults only.
func Default() *Config {
	dsn := defaultDBName
	if dir, err := GetConfigDir(); err == nil {
		dsn = filepath.Join(dir, defaultDBName)
	}

	return &Config{
		Server: ServerConfig{
			Address:         defaultAddress,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			DSN:             dsn,
			MaxOpenConns:    defaultMaxOpenConns,
			MaxIdleConns:    defaultMaxIdleConns,
			ConnMaxLifetime: defaultConnMaxLifetime,
		},
		Impact: ImpactConfig{
			DefaultRankingLimit: defaultRankingLimit,
			MaxRankingLimit:     defaultMaxRankingLimit,
			RankingConcurrency:  defaultRankingWorkers,
			PointsPerKg:         defaultPointsPerKg,
			MaxDisposalWeightKg: defaultMaxDisposalKg,
		},
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Tracing: TracingConfig{
			Output: defaultTracingOutputDst,
		},
	}
}

// New returns the defaults overlaid with the user's config file and the
// environment. A missing or unreadable file is not fatal: the defaults are
// kept and the error is ignored, matching how the CLI behaves before
// `config init` has been run.
func New() *Config {
	cfg := Default()
	if path, err := GetConfigPath(); err == nil {
		cfg.configPath = path
		_ = cfg.loadFile(path)
	}
	cfg.ApplyEnv()
	return cfg
}

// Load reads the config file at path on top of the defaults and applies the
// environment. Unlike New it reports read and parse errors.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.configPath = path
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// ConfigPath returns the file Save writes to.
func (c *Config) ConfigPath() string {
	return c.configPath
}

// SetConfigPath overrides the file Save writes to.
func (c *Config) SetConfigPath(path string) {
	c.configPath = path
}

// Save writes the configuration as YAML, creating the parent directory.
func (c *Config) Save() error {
	path := c.configPath
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err = os.WriteFile(path, data, configFilePermissions); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays DESCARTE_* variables. DATABASE_URL selects postgres
// unless DESCARTE_DATABASE_DSN is also set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" && os.Getenv("DESCARTE_DATABASE_DSN") == "" {
		c.Database.Driver = DriverPostgres
		c.Database.DSN = v
	}

	setString(&c.Server.Address, "DESCARTE_SERVER_ADDRESS")
	setString(&c.Database.Driver, "DESCARTE_DATABASE_DRIVER")
	setString(&c.Database.DSN, "DESCARTE_DATABASE_DSN")
	setString(&c.Logging.Level, "DESCARTE_LOG_LEVEL")
	setString(&c.Logging.Format, "DESCARTE_LOG_FORMAT")
	setString(&c.Logging.File, "DESCARTE_LOG_FILE")
	setString(&c.Tracing.Output, "DESCARTE_TRACING_OUTPUT")

	if v, err := strconv.ParseFloat(os.Getenv("DESCARTE_POINTS_PER_KG"), 64); err == nil {
		c.Impact.PointsPerKg = v
	}
	if v, err := strconv.ParseBool(os.Getenv("DESCARTE_TRACING_ENABLED")); err == nil {
		c.Tracing.Enabled = v
	}
	if v, err := strconv.ParseBool(os.Getenv("DESCARTE_RECOMPUTE_ON_START")); err == nil {
		c.Impact.RecomputeOnStart = v
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// Validate checks every section and returns one error listing all problems.
func (c *Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func describeFieldError(fe validator.FieldError) string {
	path := fe.Namespace()
	if _, rest, ok := strings.Cut(path, "."); ok {
		path = rest
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s (got %v)", path, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s failed %s (got %v)", path, fe.Tag(), fe.Value())
}

// Get returns the value at a dotted key such as "database.driver".
func (c *Config) Get(key string) (any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	var tree map[string]any
	if err = yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	var cur any = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		if cur, ok = m[part]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
	}
	return cur, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
