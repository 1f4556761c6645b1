package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultRegistrarTimeout     = 10 * time.Second
	defaultRegistrarRetries     = 3
	defaultRegistrarConcurrency = 4
	defaultDispatchTimeout      = 15 * time.Second
	defaultSyncCacheSize        = 256
	defaultWatchDebounce        = 500 * time.Millisecond
)

// DiscordConfig stores Discord specific configurations.
type DiscordConfig struct {
	BotToken      string   `yaml:"bot_token"`
	ApplicationID string   `yaml:"application_id"`
	GuildIDs      []string `yaml:"guild_ids"`
}

// CommandsConfig controls where commands are loaded from.
// An empty Dir loads every registered command without manifests.
type CommandsConfig struct {
	Dir           string        `yaml:"dir"`
	Watch         bool          `yaml:"watch"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// RegistrarConfig controls how commands are pushed to Discord.
type RegistrarConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    *int          `yaml:"max_retries"`
	Concurrency   int           `yaml:"concurrency"`
	SyncOnReady   *bool         `yaml:"sync_on_ready"`
	SyncCacheSize int           `yaml:"sync_cache_size"`
}

// DispatchConfig controls command execution.
type DispatchConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// Config stores the application configuration.
type Config struct {
	Discord   DiscordConfig   `yaml:"discord"`
	Commands  CommandsConfig  `yaml:"commands"`
	Registrar RegistrarConfig `yaml:"registrar"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	LogLevel  string          `yaml:"log_level"`
}

// envOverrides are read from the process environment after the file.
type envOverrides struct {
	BotToken      string   `env:"DISBOT_BOT_TOKEN"`
	ApplicationID string   `env:"DISBOT_APPLICATION_ID"`
	GuildIDs      []string `env:"DISBOT_GUILD_IDS" envSeparator:","`
	CommandsDir   string   `env:"DISBOT_COMMANDS_DIR"`
	LogLevel      string   `env:"DISBOT_LOG_LEVEL"`
}

// ConfigurationError reports a required setting that is missing or invalid.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("configuration %s: %s", e.Key, e.Reason)
	}

	return fmt.Sprintf("configuration %s is not set", e.Key)
}

// Credentials identify the application when talking to the Discord REST API.
type Credentials struct {
	ApplicationID discord.AppID
	BotToken      string
}

// LoadConfig loads the configuration from the given file path. A .env file in
// the working directory is loaded first if present, and DISBOT_* variables
// override values from the file.
func LoadConfig(filePath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(filePath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filePath, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Everything may come from the environment.
	default:
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	if o.BotToken != "" {
		c.Discord.BotToken = o.BotToken
	}
	if o.ApplicationID != "" {
		c.Discord.ApplicationID = o.ApplicationID
	}
	if len(o.GuildIDs) > 0 {
		c.Discord.GuildIDs = o.GuildIDs
	}
	if o.CommandsDir != "" {
		c.Commands.Dir = o.CommandsDir
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Registrar.Timeout <= 0 {
		c.Registrar.Timeout = defaultRegistrarTimeout
	}
	switch {
	case c.Registrar.MaxRetries == nil:
		retries := defaultRegistrarRetries
		c.Registrar.MaxRetries = &retries
	case *c.Registrar.MaxRetries < 0:
		retries := 0
		c.Registrar.MaxRetries = &retries
	}
	if c.Registrar.Concurrency <= 0 {
		c.Registrar.Concurrency = defaultRegistrarConcurrency
	}
	if c.Registrar.SyncCacheSize <= 0 {
		c.Registrar.SyncCacheSize = defaultSyncCacheSize
	}
	if c.Registrar.SyncOnReady == nil {
		enabled := true
		c.Registrar.SyncOnReady = &enabled
	}
	if c.Dispatch.Timeout <= 0 {
		c.Dispatch.Timeout = defaultDispatchTimeout
	}
	if c.Commands.WatchDebounce <= 0 {
		c.Commands.WatchDebounce = defaultWatchDebounce
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Retries returns how many times a failed submission is retried. An unset
// value means the default, zero disables retrying.
func (r RegistrarConfig) Retries() int {
	if r.MaxRetries == nil {
		return defaultRegistrarRetries
	}

	return max(*r.MaxRetries, 0)
}

// SyncOnReady reports whether commands are registered when the gateway is ready.
func (c *Config) SyncOnReady() bool {
	return c.Registrar.SyncOnReady == nil || *c.Registrar.SyncOnReady
}

// RegistrarCredentials returns the application ID and bot token, failing
// when either is missing instead of sending empty values.
func (c *Config) RegistrarCredentials() (Credentials, error) {
	if c.Discord.BotToken == "" {
		return Credentials{}, &ConfigurationError{Key: "discord.bot_token"}
	}
	if c.Discord.ApplicationID == "" {
		return Credentials{}, &ConfigurationError{Key: "discord.application_id"}
	}

	sf, err := discord.ParseSnowflake(c.Discord.ApplicationID)
	if err != nil || !sf.IsValid() {
		return Credentials{}, &ConfigurationError{Key: "discord.application_id", Reason: "not a valid snowflake"}
	}

	return Credentials{ApplicationID: discord.AppID(sf), BotToken: c.Discord.BotToken}, nil
}

// ConfiguredGuildIDs parses discord.guild_ids. Invalid entries are returned
// separately so callers can log them.
func (c *Config) ConfiguredGuildIDs() (ids []discord.GuildID, invalid []string) {
	for _, raw := range c.Discord.GuildIDs {
		sf, err := discord.ParseSnowflake(raw)
		if err != nil || !sf.IsValid() {
			invalid = append(invalid, raw)

			continue
		}
		ids = append(ids, discord.GuildID(sf))
	}

	return ids, invalid
}
