// Package config loads service settings from an optional .env file, an
// optional orbitrisk.yaml and ORBITRISK_* environment variables, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. ORBITRISK_HTTP_ADDR.
const EnvPrefix = "ORBITRISK"

// Source kinds.
const (
	SourceNone      = "none"
	SourceCelesTrak = "celestrak"
	SourceURL       = "url"
	SourceFile      = "file"
)

// Config is the full service configuration.
type Config struct {
	HTTP        HTTPConfig
	Log         LogConfig
	Propagation PropagationConfig
	Cache       CacheConfig
	Source      SourceConfig
	Tracing     TracingConfig

	// Warnings lists invalid values that were replaced by defaults. They are
	// collected here because the logger is built from this config.
	Warnings []string
}

type HTTPConfig struct {
	Addr            string
	TrustProxy      bool // honour X-Forwarded-For / X-Real-IP
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type PropagationConfig struct {
	Workers int
}

type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
}

// SourceConfig selects where the catalog is loaded from at startup.
type SourceConfig struct {
	Kind            string // none | celestrak | url | file
	Group           string // CelesTrak group
	URL             string
	File            string
	Watch           bool          // reload when File changes
	RefreshInterval time.Duration // periodic refetch of remote sources, 0 disables
	Timeout         time.Duration
	Retries         int
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Exporter    string // stdout | otlp
	Endpoint    string
	SampleRatio float64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.trust_proxy", false)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("propagation.workers", runtime.GOMAXPROCS(0))

	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.max_entries", 1000)

	v.SetDefault("source.kind", SourceNone)
	v.SetDefault("source.group", "active")
	v.SetDefault("source.url", "")
	v.SetDefault("source.file", "")
	v.SetDefault("source.watch", false)
	v.SetDefault("source.refresh_interval", time.Duration(0))
	v.SetDefault("source.timeout", 15*time.Second)
	v.SetDefault("source.retries", 3)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "orbitrisk")
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// Load reads configuration. path names an explicit config file; when empty,
// orbitrisk.yaml is looked up in the working directory and /etc/orbitrisk.
func Load(path string) (Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("orbitrisk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/orbitrisk")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) Config {
	cfg := Config{
		HTTP: HTTPConfig{
			Addr:            v.GetString("http.addr"),
			TrustProxy:      v.GetBool("http.trust_proxy"),
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		Propagation: PropagationConfig{
			Workers: v.GetInt("propagation.workers"),
		},
		Cache: CacheConfig{
			TTL:        v.GetDuration("cache.ttl"),
			MaxEntries: v.GetInt("cache.max_entries"),
		},
		Source: SourceConfig{
			Kind:            strings.ToLower(strings.TrimSpace(v.GetString("source.kind"))),
			Group:           strings.TrimSpace(v.GetString("source.group")),
			URL:             strings.TrimSpace(v.GetString("source.url")),
			File:            strings.TrimSpace(v.GetString("source.file")),
			Watch:           v.GetBool("source.watch"),
			RefreshInterval: v.GetDuration("source.refresh_interval"),
			Timeout:         v.GetDuration("source.timeout"),
			Retries:         v.GetInt("source.retries"),
		},
		Tracing: TracingConfig{
			Enabled:     v.GetBool("tracing.enabled"),
			ServiceName: v.GetString("tracing.service_name"),
			Exporter:    strings.ToLower(v.GetString("tracing.exporter")),
			Endpoint:    v.GetString("tracing.endpoint"),
			SampleRatio: v.GetFloat64("tracing.sample_ratio"),
		},
	}
	cfg.sanitize(v)
	return cfg
}

// sanitize replaces out-of-range values with their defaults.
func (c *Config) sanitize(v *viper.Viper) {
	d := viper.New()
	setDefaults(d)

	warn := func(key string, got any, def any) {
		c.Warnings = append(c.Warnings, fmt.Sprintf("invalid %s value %v, using default %v", key, got, def))
	}

	if c.HTTP.Addr == "" {
		warn("http.addr", v.Get("http.addr"), d.GetString("http.addr"))
		c.HTTP.Addr = d.GetString("http.addr")
	}
	for _, f := range []struct {
		key string
		dst *time.Duration
	}{
		{"http.read_timeout", &c.HTTP.ReadTimeout},
		{"http.write_timeout", &c.HTTP.WriteTimeout},
		{"http.shutdown_timeout", &c.HTTP.ShutdownTimeout},
		{"cache.ttl", &c.Cache.TTL},
		{"source.timeout", &c.Source.Timeout},
	} {
		if *f.dst <= 0 {
			warn(f.key, v.Get(f.key), d.GetDuration(f.key))
			*f.dst = d.GetDuration(f.key)
		}
	}
	if c.Source.RefreshInterval < 0 {
		warn("source.refresh_interval", v.Get("source.refresh_interval"), 0)
		c.Source.RefreshInterval = 0
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		warn("log.level", v.Get("log.level"), "info")
		c.Log.Level = "info"
	}
	if c.Propagation.Workers < 1 {
		warn("propagation.workers", v.Get("propagation.workers"), d.GetInt("propagation.workers"))
		c.Propagation.Workers = d.GetInt("propagation.workers")
	}
	if c.Cache.MaxEntries < 1 {
		warn("cache.max_entries", v.Get("cache.max_entries"), 1000)
		c.Cache.MaxEntries = 1000
	}
	if c.Source.Retries < 0 {
		warn("source.retries", v.Get("source.retries"), 3)
		c.Source.Retries = 3
	}

	switch c.Source.Kind {
	case SourceNone, SourceCelesTrak, SourceURL, SourceFile:
	case "":
		c.Source.Kind = SourceNone
	case "sample":
		c.Source.Kind = SourceFile
	default:
		warn("source.kind", v.Get("source.kind"), SourceNone)
		c.Source.Kind = SourceNone
	}
	if c.Source.Group == "" {
		c.Source.Group = "active"
	}

	switch c.Tracing.Exporter {
	case "stdout", "otlp", "otlpgrpc":
	default:
		warn("tracing.exporter", v.Get("tracing.exporter"), "stdout")
		c.Tracing.Exporter = "stdout"
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		warn("tracing.sample_ratio", v.Get("tracing.sample_ratio"), 1.0)
		c.Tracing.SampleRatio = 1.0
	}
}
