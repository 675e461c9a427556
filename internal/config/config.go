// Package config loads readaloud settings from a YAML file, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/gpt"
	"github.com/hammamikhairi/readaloud/internal/speech"
)

// EnvPrefix is prepended to every environment override, for example
// READALOUD_VOICE_LANG.
const EnvPrefix = "READALOUD"

// Config is the full runtime configuration.
type Config struct {
	Backend  string             `mapstructure:"backend"`
	LogLevel string             `mapstructure:"log_level"`
	Mute     bool               `mapstructure:"mute"` // never open the audio device
	Voice    domain.VoiceConfig `mapstructure:"voice"`
	Azure    AzureConfig        `mapstructure:"azure"`
	Cache    CacheConfig        `mapstructure:"cache"`
	Queue    QueueConfig        `mapstructure:"queue"`
	Redis    RedisConfig        `mapstructure:"redis"`
	GPT      GPTConfig          `mapstructure:"gpt"`
}

// AzureConfig holds the Azure Speech credentials.
type AzureConfig struct {
	Key    string `mapstructure:"key"`
	Region string `mapstructure:"region"`
	Voice  string `mapstructure:"voice"` // fallback voice name
}

// CacheConfig controls the synthesized audio cache.
type CacheConfig struct {
	Dir     string `mapstructure:"dir"`
	Write   bool   `mapstructure:"write"`
	Entries int    `mapstructure:"entries"` // clips kept in memory
}

// QueueConfig tunes the speech queue.
type QueueConfig struct {
	ChunkSize int  `mapstructure:"chunk_size"`
	Prefetch  bool `mapstructure:"prefetch"`
}

// RedisConfig enables cross-process event publishing when URL is set.
type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Channel string `mapstructure:"channel"`
}

// GPTConfig enables free-form command understanding when both the key
// and the endpoint are set.
type GPTConfig struct {
	Key      string `mapstructure:"key"`
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// New returns a viper instance with every default and environment
// binding in place. Callers may bind flags on it before Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetConfigName("readaloud")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.readaloud")

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The Azure SDK convention names win over the prefixed ones.
	_ = v.BindEnv("azure.key", speech.EnvAzureSpeechKey, EnvPrefix+"_AZURE_KEY")
	_ = v.BindEnv("azure.region", speech.EnvAzureSpeechRegion, EnvPrefix+"_AZURE_REGION")
	_ = v.BindEnv("gpt.key", gpt.EnvChatKey, EnvPrefix+"_GPT_KEY")
	_ = v.BindEnv("gpt.endpoint", gpt.EnvChatEndpoint, EnvPrefix+"_GPT_ENDPOINT")

	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", speech.BackendAuto)
	v.SetDefault("log_level", "normal")
	v.SetDefault("mute", false)

	v.SetDefault("voice.lang", domain.DefaultLanguage)
	v.SetDefault("voice.pitch", domain.DefaultPitch)
	v.SetDefault("voice.rate", domain.DefaultRate)
	v.SetDefault("voice.volume", domain.DefaultVolume)
	v.SetDefault("voice.name", "")

	v.SetDefault("azure.voice", speech.DefaultVoice)

	v.SetDefault("cache.dir", defaultCacheDir())
	v.SetDefault("cache.write", true)
	v.SetDefault("cache.entries", speech.DefaultMemoryEntries)

	v.SetDefault("queue.chunk_size", 400)
	v.SetDefault("queue.prefetch", true)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.channel", "readaloud:events")

	v.SetDefault("gpt.model", "")
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "readaloud", "audio")
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the config file, if any, and decodes everything into a
// Config. An explicit path must exist; the search path may come up empty.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := c.Voice.Validate(); err != nil {
		return err
	}

	switch c.Backend {
	case speech.BackendAuto, speech.BackendGoogle, speech.BackendSilent:
	case speech.BackendAzure:
		if c.Azure.Key == "" || c.Azure.Region == "" {
			return fmt.Errorf("backend azure needs %s and %s", speech.EnvAzureSpeechKey, speech.EnvAzureSpeechRegion)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if c.Cache.Entries <= 0 {
		return fmt.Errorf("cache.entries must be positive, got %d", c.Cache.Entries)
	}
	if c.Queue.ChunkSize < 0 {
		return fmt.Errorf("queue.chunk_size must not be negative, got %d", c.Queue.ChunkSize)
	}
	return nil
}

// HasGPT reports whether a chat endpoint is configured.
func (c *Config) HasGPT() bool {
	return c.GPT.Key != "" && c.GPT.Endpoint != ""
}

// HasAzure reports whether Azure credentials are configured.
func (c *Config) HasAzure() bool {
	return c.Azure.Key != "" && c.Azure.Region != ""
}
