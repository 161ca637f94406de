package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Transport modes.
const (
	ModeSerial    = "serial"
	ModeSimulated = "simulated"
)

const envPrefix = "ZONECTL"

// Config is the fully resolved gateway configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	DB        DBConfig        `mapstructure:"db"`
	Table     TableConfig     `mapstructure:"table"`
	Transport TransportConfig `mapstructure:"transport"`
	Serial    SerialConfig    `mapstructure:"serial"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Protocol  ProtocolConfig  `mapstructure:"protocol"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Auth      AuthConfig      `mapstructure:"auth"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Port string `mapstructure:"port"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type TableConfig struct {
	Path string `mapstructure:"path"` // pipe-delimited "opcode | name | zone"
}

type TransportConfig struct {
	Mode string `mapstructure:"mode"` // serial | simulated
}

type SerialConfig struct {
	Port    string        `mapstructure:"port"`
	Baud    int           `mapstructure:"baud"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SimulatorConfig struct {
	ErrorProbability float64       `mapstructure:"error_probability"`
	DropProbability  float64       `mapstructure:"drop_probability"`
	Latency          time.Duration `mapstructure:"latency"`
}

type ProtocolConfig struct {
	SettleDelay time.Duration `mapstructure:"settle_delay"`
}

type DispatchConfig struct {
	Rate  float64 `mapstructure:"rate"` // commands per second, 0 = unlimited
	Burst int     `mapstructure:"burst"`
}

type ProbeConfig struct {
	Command  string        `mapstructure:"command"` // empty disables probing
	Interval time.Duration `mapstructure:"interval"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// HasPlaceholderKey reports whether the signing key is still the published sample value.
func (a AuthConfig) HasPlaceholderKey() bool {
	return strings.TrimSpace(a.SigningKey) == PlaceholderSigningKey
}

// PlaceholderSigningKey ships in the sample config; serve refuses to sign tokens with it.
const PlaceholderSigningKey = "change-me"

var (
	errUnknownMode     = errors.New("transport.mode must be serial or simulated")
	errBadProbability  = errors.New("simulator probabilities must be within [0, 1]")
	errEmptySigningKey = errors.New("auth.signing_key must not be empty")
)

// setDefaults registers every key so that env overrides work without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("http.port", "8080")
	v.SetDefault("db.path", "zonectl.db")
	v.SetDefault("table.path", "commands.csv")
	v.SetDefault("transport.mode", ModeSerial)
	v.SetDefault("serial.port", "/dev/ttyS0")
	v.SetDefault("serial.baud", 115200)
	v.SetDefault("serial.timeout", time.Second)
	v.SetDefault("simulator.error_probability", 0.25)
	v.SetDefault("simulator.drop_probability", 0.0)
	v.SetDefault("simulator.latency", 50*time.Millisecond)
	v.SetDefault("protocol.settle_delay", 100*time.Millisecond)
	v.SetDefault("dispatch.rate", 0.0)
	v.SetDefault("dispatch.burst", 1)
	v.SetDefault("probe.command", "")
	v.SetDefault("probe.interval", 30*time.Second)
	v.SetDefault("auth.signing_key", PlaceholderSigningKey)
	v.SetDefault("auth.token_ttl", time.Hour)
}

// New returns a viper instance with defaults and ZONECTL_* env overrides.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configs/config.yml (or the explicit path) and decodes it into Config.
// A missing default config file is not an error; a missing explicit file is.
func Load(path string) (Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return Decode(v)
}

// Decode unmarshals and validates the configuration held by v.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that defaults cannot guarantee.
func (c Config) Validate() error {
	switch strings.ToLower(c.Transport.Mode) {
	case ModeSerial, ModeSimulated:
	default:
		return fmt.Errorf("%w: got %q", errUnknownMode, c.Transport.Mode)
	}
	if !inUnitRange(c.Simulator.ErrorProbability) || !inUnitRange(c.Simulator.DropProbability) {
		return errBadProbability
	}
	if c.Serial.Timeout <= 0 {
		return fmt.Errorf("serial.timeout must be positive, got %s", c.Serial.Timeout)
	}
	if c.Protocol.SettleDelay < 0 {
		return fmt.Errorf("protocol.settle_delay must not be negative, got %s", c.Protocol.SettleDelay)
	}
	if c.Dispatch.Rate < 0 {
		return fmt.Errorf("dispatch.rate must not be negative, got %v", c.Dispatch.Rate)
	}
	if strings.TrimSpace(c.Auth.SigningKey) == "" {
		return errEmptySigningKey
	}
	return nil
}

// Simulated reports whether the simulated transport is selected.
func (c Config) Simulated() bool {
	return strings.EqualFold(c.Transport.Mode, ModeSimulated)
}

func inUnitRange(p float64) bool {
	return p >= 0 && p <= 1
}
