// Package config reads runtime settings from the environment.
//
// Values come from process environment variables, falling back to a .env file in the working
// directory, falling back to the defaults declared on Config.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/muhammadut/Finite-State-Machine/internal/logging"
)

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into Config.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrInvalidConfig is returned when parsed values fail validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// DefaultEnvFile is read by Load when present.
const DefaultEnvFile = ".env"

// Config is the full set of runtime settings.
type Config struct {
	LogLevel  string `env:"FSM_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"FSM_LOG_FORMAT" envDefault:"text"`

	HTTPAddr string `env:"FSM_HTTP_ADDR" envDefault:":8080"`

	Redis RedisConfig

	SessionDir string        `env:"FSM_SESSION_DIR" envDefault:".fsm/sessions"`
	SessionTTL time.Duration `env:"FSM_SESSION_TTL" envDefault:"0s"`

	// SessionKey, when set, encrypts sessions at rest. 64 hex characters (AES-256).
	SessionKey string `env:"FSM_SESSION_KEY"`
	// SessionFallbackKeys are retired keys still accepted when reading.
	SessionFallbackKeys []string `env:"FSM_SESSION_FALLBACK_KEYS" envSeparator:","`

	// DefinitionsDir, when set, is scanned for extra machine definitions.
	DefinitionsDir string `env:"FSM_DEFINITIONS_DIR"`
}

// RedisConfig selects the Redis session backend. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `env:"FSM_REDIS_ADDR"`
	Password string `env:"FSM_REDIS_PASSWORD"`
	DB       int    `env:"FSM_REDIS_DB" envDefault:"0"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Load reads the process environment, with DefaultEnvFile as a fallback if it exists.
func Load() (Config, error) {
	files := []string{}
	if _, err := os.Stat(DefaultEnvFile); err == nil {
		files = append(files, DefaultEnvFile)
	}
	return LoadFiles(files...)
}

// LoadFiles is Load with explicit dotenv files. Missing files are errors.
// Process environment variables take precedence over file values; earlier files over later ones.
func LoadFiles(files ...string) (Config, error) {
	environ := map[string]string{}
	for i := len(files) - 1; i >= 0; i-- {
		values, err := godotenv.Read(files[i])
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("env file %s: %w", files[i], err)
			}
			return Config{}, errors.Join(ErrParsingConfig, err)
		}
		for k, v := range values {
			environ[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			environ[k] = v
		}
	}
	return Parse(environ)
}

// Parse builds a Config from an explicit environment, ignoring the process environment.
func Parse(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that the env tags cannot express.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		errs = append(errs, err)
	}
	if c.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("FSM_SESSION_TTL must not be negative, got %s", c.SessionTTL))
	}
	if _, _, err := c.EncryptionKeys(); err != nil {
		errs = append(errs, err)
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("FSM_REDIS_DB must not be negative, got %d", c.Redis.DB))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}

// EncryptionKeys decodes SessionKey and SessionFallbackKeys. active is nil when encryption is off.
func (c Config) EncryptionKeys() (active []byte, fallbacks [][]byte, err error) {
	if c.SessionKey == "" {
		if len(c.SessionFallbackKeys) > 0 {
			return nil, nil, errors.New("FSM_SESSION_FALLBACK_KEYS requires FSM_SESSION_KEY")
		}
		return nil, nil, nil
	}
	active, err = decodeKey("FSM_SESSION_KEY", c.SessionKey)
	if err != nil {
		return nil, nil, err
	}
	for _, k := range c.SessionFallbackKeys {
		key, err := decodeKey("FSM_SESSION_FALLBACK_KEYS", k)
		if err != nil {
			return nil, nil, err
		}
		fallbacks = append(fallbacks, key)
	}
	return active, fallbacks, nil
}

func decodeKey(name, value string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("%s must be hex encoded: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must decode to 32 bytes, got %d", name, len(key))
	}
	return key, nil
}

// Logger builds the application logger from LogLevel and LogFormat.
// verbose forces the debug level.
func (c Config) Logger(verbose bool) *slog.Logger {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	format, err := logging.ParseFormat(c.LogFormat)
	if err != nil {
		format = logging.FormatText
	}
	return logging.New(level, format)
}
