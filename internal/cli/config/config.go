// Package config loads causeway.yaml and CAUSEWAY_ environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/causeway-lang/causeway/internal/logging"
)

// ErrInvalid is wrapped by every validation error returned from Load
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix prefixes the environment variables overriding the file, e.g. CAUSEWAY_SERVER_PORT
const EnvPrefix = "CAUSEWAY"

// Memento stores
const (
	StoreMemory = "memory"
	StoreCache  = "cache"
	StoreRedis  = "redis"
)

// DriverMemory keeps entities in process
const DriverMemory = "memory"

var drivers = []string{DriverMemory, "sqlite3", "pgx", "postgres"}

// Config is the complete causeway configuration
type Config struct {
	Metamodel   MetamodelConfig   `mapstructure:"metamodel"`
	Memento     MementoConfig     `mapstructure:"memento"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Server      ServerConfig      `mapstructure:"server"`
	Logging     logging.Config    `mapstructure:"logging"`
}

// MetamodelConfig controls how the metamodel is built
type MetamodelConfig struct {
	IgnoredPackages   []string `mapstructure:"ignored_packages"`
	LayoutDir         string   `mapstructure:"layout_dir"`
	TranslationsDir   string   `mapstructure:"translations_dir"`
	Locale            string   `mapstructure:"locale"`
	ValidateOnStartup bool     `mapstructure:"validate_on_startup"`
	WatchLayouts      bool     `mapstructure:"watch_layouts"`
}

// Tag parses Locale; Load has already checked it
func (m MetamodelConfig) Tag() language.Tag {
	tag, err := language.Parse(m.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

// MementoConfig selects where non-persistent objects are parked between requests
type MementoConfig struct {
	Store string        `mapstructure:"store"`
	TTL   time.Duration `mapstructure:"ttl"`
	Redis RedisConfig   `mapstructure:"redis"`
}

// RedisConfig locates the redis server of the redis memento store
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// PersistenceConfig selects the persistence session
type PersistenceConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Table  string `mapstructure:"table"`
	// RetryAttempts above 1 retries deadlocked writes
	RetryAttempts int `mapstructure:"retry_attempts"`
}

// ServerConfig configures the REST viewer
type ServerConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	APIPrefix string `mapstructure:"api_prefix"`
	// JWTSecret enables bearer authentication; without it every request is anonymous
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Addr is host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("metamodel.ignored_packages", []string{})
	v.SetDefault("metamodel.layout_dir", "layouts")
	v.SetDefault("metamodel.translations_dir", "translations")
	v.SetDefault("metamodel.locale", "en")
	v.SetDefault("metamodel.validate_on_startup", true)
	v.SetDefault("metamodel.watch_layouts", false)

	v.SetDefault("memento.store", StoreMemory)
	v.SetDefault("memento.ttl", 30*time.Minute)
	v.SetDefault("memento.redis.addr", "localhost:6379")
	v.SetDefault("memento.redis.password", "")
	v.SetDefault("memento.redis.db", 0)
	v.SetDefault("memento.redis.prefix", "causeway:")

	v.SetDefault("persistence.driver", DriverMemory)
	v.SetDefault("persistence.dsn", "")
	v.SetDefault("persistence.table", "causeway_objects")
	v.SetDefault("persistence.retry_attempts", 1)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.api_prefix", "")
	v.SetDefault("server.jwt_secret", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads file, or causeway.yaml / causeway.yml in the working directory when file is empty.
// A missing causeway.yaml is not an error; a missing explicit file is.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("causeway")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values of cfg
func Validate(cfg *Config) error {
	if _, err := language.Parse(cfg.Metamodel.Locale); err != nil {
		return fmt.Errorf("%w: metamodel.locale %q: %v", ErrInvalid, cfg.Metamodel.Locale, err)
	}
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalid, err)
	}
	if f := strings.ToLower(cfg.Logging.Format); f != "console" && f != "json" {
		return fmt.Errorf("%w: logging.format must be console or json, got %q", ErrInvalid, cfg.Logging.Format)
	}

	switch cfg.Memento.Store {
	case StoreMemory, StoreCache:
	case StoreRedis:
		if cfg.Memento.Redis.Addr == "" {
			return fmt.Errorf("%w: memento.redis.addr is required for the redis store", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: memento.store must be one of memory, cache, redis, got %q", ErrInvalid, cfg.Memento.Store)
	}
	if cfg.Memento.TTL <= 0 {
		return fmt.Errorf("%w: memento.ttl must be positive", ErrInvalid)
	}

	if !contains(drivers, cfg.Persistence.Driver) {
		return fmt.Errorf("%w: persistence.driver must be one of %s, got %q", ErrInvalid, strings.Join(drivers, ", "), cfg.Persistence.Driver)
	}
	if cfg.Persistence.Driver != DriverMemory && cfg.Persistence.DSN == "" {
		return fmt.Errorf("%w: persistence.dsn is required for driver %s", ErrInvalid, cfg.Persistence.Driver)
	}
	if cfg.Persistence.RetryAttempts < 1 {
		return fmt.Errorf("%w: persistence.retry_attempts must be at least 1", ErrInvalid)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalid, cfg.Server.Port)
	}
	if p := cfg.Server.APIPrefix; p != "" {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%w: server.api_prefix must start with '/', got: %s", ErrInvalid, p)
		}
		if strings.HasSuffix(p, "/") {
			return fmt.Errorf("%w: server.api_prefix must not end with '/', got: %s", ErrInvalid, p)
		}
	}
	return nil
}

// FindProjectRoot walks up from the working directory to the first directory holding a
// causeway.yaml or causeway.yml
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		for _, name := range []string{"causeway.yaml", "causeway.yml"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no causeway.yaml found")
		}
		dir = parent
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
