package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultPort is used when PORT is absent or not a usable TCP port.
const DefaultPort = 5000

// DefaultEnvFile is the dotenv file read at startup when present.
const DefaultEnvFile = ".env"

// MongoConfig holds settings for the document database connection.
type MongoConfig struct {
	// ConnectTimeout bounds server selection and the initial ping.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"gt=0"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// HTTPConfig holds request handling limits.
type HTTPConfig struct {
	// JSONLimit is the maximum accepted JSON request body, in bytes.
	JSONLimit int64 `mapstructure:"json_limit" validate:"gt=0"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// RateLimitConfig configures per-client rate limiting. Zero disables it.
type RateLimitConfig struct {
	RequestsPerSecond int `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int `mapstructure:"burst" validate:"gte=0"`
}

// Config holds all configuration for the server. It is loaded once at
// startup and not modified afterwards.
type Config struct {
	// Port is the TCP port of the HTTP listener (PORT, default 5000).
	Port int `mapstructure:"-" validate:"min=1,max=65535"`
	// RawPort is the PORT value as supplied, kept for diagnostics.
	RawPort string `mapstructure:"-"`
	// MongoURI is the database connection string (MONGO_URI), passed through unvalidated.
	MongoURI string `mapstructure:"mongo_uri"`

	Mongo     MongoConfig     `mapstructure:"mongo"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// Default returns a configuration with every default applied and no
// database URI.
func Default() *Config {
	return &Config{
		Port: DefaultPort,
		Mongo: MongoConfig{
			ConnectTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		HTTP: HTTPConfig{
			JSONLimit: 100 * 1024,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("mongo_uri", "")
	v.SetDefault("mongo.connect_timeout", d.Mongo.ConnectTimeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("http.json_limit", d.HTTP.JSONLimit)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("rate_limit.requests_per_second", 0)
	v.SetDefault("rate_limit.burst", 0)
}

// loadFromEnv sets up environment variable loading. PORT and MONGO_URI keep
// their conventional unprefixed names.
func loadFromEnv(v *viper.Viper) {
	v.SetEnvPrefix("BACKEND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("mongo_uri", "MONGO_URI")
}

// loadEnvFile reads a dotenv file into the process environment. Variables
// that are already set are left untouched, and a missing file is ignored.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// LoadConfig loads configuration from the dotenv file, an optional
// config.yaml and the process environment, in increasing precedence.
func LoadConfig(envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)
	loadFromEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.RawPort = v.GetString("port")
	cfg.Port, _ = ParsePort(cfg.RawPort)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// ParsePort converts a PORT value into a TCP port number. Empty,
// non-numeric and out-of-range values yield DefaultPort and false.
func ParsePort(raw string) (int, bool) {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || port < 1 || port > 65535 {
		return DefaultPort, false
	}
	return port, true
}

// PortDiscarded reports whether a PORT value was supplied but could not be
// used, so the default port applies instead.
func (c *Config) PortDiscarded() bool {
	if strings.TrimSpace(c.RawPort) == "" {
		return false
	}
	_, ok := ParsePort(c.RawPort)
	return !ok
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate checks the configuration struct tags.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: %v (rule %q)", fe.Namespace(), fe.Value(), fe.Tag())
		}
		return err
	}
	return nil
}
