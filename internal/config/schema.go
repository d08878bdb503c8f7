package config

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	configFileMode  = 0o600
	configDirMode   = 0o700
	tempFilePattern = ".config-*.toml.tmp"
	redacted        = "<redacted>"
)

type fileSchema struct {
	Discord discordSchema `toml:"discord"`
	Control controlSchema `toml:"control"`
	Log     logSchema     `toml:"log"`
}

type discordSchema struct {
	Token   string `toml:"token"`
	GuildID string `toml:"guild_id"`
	Prefix  string `toml:"prefix"`
}

type controlSchema struct {
	Path           string `toml:"path"`
	Identity       string `toml:"identity"`
	IdleDelay      string `toml:"idle_delay"`
	RetryDelay     string `toml:"retry_delay"`
	MaxRetryDelay  string `toml:"max_retry_delay"`
	MaxFailures    int    `toml:"max_failures"`
	VocabularyFile string `toml:"vocabulary_file"`
}

type logSchema struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

func toSchema(c Config) fileSchema {
	return fileSchema{
		Discord: discordSchema{
			Token:   c.Discord.Token,
			GuildID: c.Discord.GuildID,
			Prefix:  c.Discord.Prefix,
		},
		Control: controlSchema{
			Path:           c.Control.Path,
			Identity:       c.Control.Identity,
			IdleDelay:      c.Control.IdleDelay.String(),
			RetryDelay:     c.Control.RetryDelay.String(),
			MaxRetryDelay:  c.Control.MaxRetryDelay.String(),
			MaxFailures:    c.Control.MaxFailures,
			VocabularyFile: c.Control.VocabularyFile,
		},
		Log: logSchema{
			Level:       c.Log.Level,
			Development: c.Log.Development,
		},
	}
}

// Encode renders c as TOML. The token is redacted unless withSecrets is set.
func Encode(c Config, withSecrets bool) ([]byte, error) {
	schema := toSchema(c)
	if !withSecrets && schema.Discord.Token != "" {
		schema.Discord.Token = redacted
	}

	data, err := toml.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// Write atomically replaces the config file at path.
func Write(path string, c Config) error {
	data, err := Encode(c, true)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), configDirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err := tempFile.Chmod(configFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp config file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}

	cleanup = false
	return nil
}
