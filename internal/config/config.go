package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	envPrefix  = "OABOT"
	// ConfigPathEnv overrides the config file location.
	ConfigPathEnv = "OABOT_CONFIG"

	keyDiscordToken          = "discord.token"
	keyDiscordGuildID        = "discord.guild_id"
	keyDiscordPrefix         = "discord.prefix"
	keyControlPath           = "control.path"
	keyControlIdentity       = "control.identity"
	keyControlIdleDelay      = "control.idle_delay"
	keyControlRetryDelay     = "control.retry_delay"
	keyControlMaxRetryDelay  = "control.max_retry_delay"
	keyControlMaxFailures    = "control.max_failures"
	keyControlVocabularyFile = "control.vocabulary_file"
	keyLogLevel              = "log.level"
	keyLogDevelopment        = "log.development"
)

type Config struct {
	Discord DiscordConfig `mapstructure:"discord"`
	Control ControlConfig `mapstructure:"control"`
	Log     LogConfig     `mapstructure:"log"`

	// File is the config file that was read, or the one that would be read
	// if it existed.
	File string `mapstructure:"-"`
}

type DiscordConfig struct {
	Token   string `mapstructure:"token"`
	GuildID string `mapstructure:"guild_id"`
	Prefix  string `mapstructure:"prefix"`
}

type ControlConfig struct {
	Path           string        `mapstructure:"path"`
	Identity       string        `mapstructure:"identity"`
	IdleDelay      time.Duration `mapstructure:"idle_delay"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	MaxRetryDelay  time.Duration `mapstructure:"max_retry_delay"`
	MaxFailures    int           `mapstructure:"max_failures"`
	VocabularyFile string        `mapstructure:"vocabulary_file"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Dir is the default configuration directory under home.
func Dir(homeDir string) string {
	return filepath.Join(homeDir, ".config", "oabot")
}

// Default returns the configuration used when no file or environment
// override is present.
func Default(homeDir string) Config {
	dir := Dir(homeDir)
	return Config{
		Discord: DiscordConfig{Prefix: "~"},
		Control: ControlConfig{
			Path:           "/tmp/oabot",
			Identity:       "oabot",
			IdleDelay:      250 * time.Millisecond,
			RetryDelay:     time.Second,
			MaxRetryDelay:  30 * time.Second,
			MaxFailures:    20,
			VocabularyFile: filepath.Join(dir, "vocabulary.toml"),
		},
		Log:  LogConfig{Level: "info"},
		File: filepath.Join(dir, configName+"."+configType),
	}
}

func Load(cfg *viper.Viper) (Config, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}

	defaults := Default(homeDir)
	setDefaults(cfg, defaults)

	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()
	if err := cfg.BindEnv(keyDiscordToken, envPrefix+"_DISCORD_TOKEN", "DISCORD_TOKEN"); err != nil {
		return Config{}, fmt.Errorf("bind token env: %w", err)
	}

	file := defaults.File
	if path := strings.TrimSpace(os.Getenv(ConfigPathEnv)); path != "" {
		file = path
	}
	cfg.SetConfigFile(file)
	cfg.SetConfigType(configType)

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var loaded Config
	if err := cfg.Unmarshal(&loaded); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	loaded.File = file
	loaded.normalize()

	if err := loaded.Validate(); err != nil {
		return Config{}, err
	}

	return loaded, nil
}

func setDefaults(cfg *viper.Viper, defaults Config) {
	cfg.SetDefault(keyDiscordToken, defaults.Discord.Token)
	cfg.SetDefault(keyDiscordGuildID, defaults.Discord.GuildID)
	cfg.SetDefault(keyDiscordPrefix, defaults.Discord.Prefix)
	cfg.SetDefault(keyControlPath, defaults.Control.Path)
	cfg.SetDefault(keyControlIdentity, defaults.Control.Identity)
	cfg.SetDefault(keyControlIdleDelay, defaults.Control.IdleDelay)
	cfg.SetDefault(keyControlRetryDelay, defaults.Control.RetryDelay)
	cfg.SetDefault(keyControlMaxRetryDelay, defaults.Control.MaxRetryDelay)
	cfg.SetDefault(keyControlMaxFailures, defaults.Control.MaxFailures)
	cfg.SetDefault(keyControlVocabularyFile, defaults.Control.VocabularyFile)
	cfg.SetDefault(keyLogLevel, defaults.Log.Level)
	cfg.SetDefault(keyLogDevelopment, defaults.Log.Development)
}

func (c *Config) normalize() {
	c.Discord.Token = strings.TrimSpace(c.Discord.Token)
	c.Discord.GuildID = strings.TrimSpace(c.Discord.GuildID)
	c.Control.Path = strings.TrimSpace(c.Control.Path)
	c.Control.Identity = strings.TrimSpace(c.Control.Identity)
	c.Control.VocabularyFile = strings.TrimSpace(c.Control.VocabularyFile)
	if c.Control.Path != "" {
		c.Control.Path = filepath.Clean(c.Control.Path)
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Discord.Prefix) == "" {
		return fmt.Errorf("discord.prefix is required")
	}
	if c.Control.Path == "" {
		return fmt.Errorf("control.path is required")
	}
	if c.Control.Identity == "" {
		return fmt.Errorf("control.identity is required")
	}
	if c.Control.IdleDelay <= 0 || c.Control.RetryDelay <= 0 || c.Control.MaxRetryDelay <= 0 {
		return fmt.Errorf("control delays must be positive")
	}
	if c.Control.MaxRetryDelay < c.Control.RetryDelay {
		return fmt.Errorf("control.max_retry_delay must not be shorter than control.retry_delay")
	}
	if c.Control.MaxFailures < 0 {
		return fmt.Errorf("control.max_failures must not be negative")
	}

	return nil
}

// RequireSession checks the settings only `run` needs.
func (c Config) RequireSession() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("discord token is required (set DISCORD_TOKEN or %s)", keyDiscordToken)
	}
	if c.Discord.GuildID == "" {
		return fmt.Errorf("%s is required", keyDiscordGuildID)
	}
	return nil
}
