// Package config loads carpintaria settings from an optional YAML file,
// CARPINTARIA_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CARPINTARIA_SERVER_ADDR.
const EnvPrefix = "CARPINTARIA"

// Config mirrors the layout of carpintaria.yaml.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Session SessionConfig `mapstructure:"session"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// Origin is the site proxied through the offline cache. Empty disables the proxy.
	Origin string `mapstructure:"origin"`
}

// CacheConfig drives the offline cache controller.
type CacheConfig struct {
	// Manifest is a manifest file path; empty uses the embedded manifest.
	Manifest    string `mapstructure:"manifest"`
	Policy      string `mapstructure:"policy"`
	Concurrency int    `mapstructure:"concurrency"`
	// Store is "memory" or "redis".
	Store string `mapstructure:"store"`
	// RetryInterval is the first delay before a failed startup install is
	// retried; zero disables retries. Delays grow up to RetryMaxInterval.
	RetryInterval    time.Duration `mapstructure:"retry_interval"`
	RetryMaxInterval time.Duration `mapstructure:"retry_max_interval"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// ChatConfig drives the dialogue engine.
type ChatConfig struct {
	// Graph is a graph file path; empty uses the embedded graph.
	Graph           string        `mapstructure:"graph"`
	Recipient       string        `mapstructure:"recipient"`
	TypingDelay     time.Duration `mapstructure:"typing_delay"`
	DeflectionDelay time.Duration `mapstructure:"deflection_delay"`
}

type SessionConfig struct {
	// Store is "memory", "file" or "redis".
	Store string        `mapstructure:"store"`
	Dir   string        `mapstructure:"dir"`
	TTL   time.Duration `mapstructure:"ttl"`
	// EncryptionKey is a base64 AES-256 key; when set, transcripts are sealed at rest.
	EncryptionKey string `mapstructure:"encryption_key"`
	// MaskPII masks phone numbers and e-mails in user messages before saving.
	MaskPII bool `mapstructure:"mask_pii"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers the default of every key, which also makes every key
// visible to AutomaticEnv.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.origin", "")

	v.SetDefault("cache.manifest", "")
	v.SetDefault("cache.policy", "all-or-nothing")
	v.SetDefault("cache.concurrency", 6)
	v.SetDefault("cache.store", "memory")
	v.SetDefault("cache.retry_interval", "30s")
	v.SetDefault("cache.retry_max_interval", "10m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "carpintaria:")

	v.SetDefault("chat.graph", "")
	v.SetDefault("chat.recipient", "258840000000")
	v.SetDefault("chat.typing_delay", 500*time.Millisecond)
	v.SetDefault("chat.deflection_delay", time.Second)

	v.SetDefault("session.store", "memory")
	v.SetDefault("session.dir", ".carpintaria/sessions")
	v.SetDefault("session.ttl", time.Duration(0))
	v.SetDefault("session.encryption_key", "")
	v.SetDefault("session.mask_pii", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration. path may be empty, in which case
// ./carpintaria.yaml is used when present. flags, when given, override
// matching keys (a flag named "log-level" binds to "log.level").
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("carpintaria")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", ".")
			if !isKnown(v, key) {
				return
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

func isKnown(v *viper.Viper, key string) bool {
	for _, k := range v.AllKeys() {
		if k == key {
			return true
		}
	}
	return false
}
