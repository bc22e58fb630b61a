// Package config loads runtime settings from a JSON file and FORMPILOT_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderEino      = "eino"
	ProviderLangChain = "langchain"
)

type Config struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url" validate:"omitempty,url"`
	Model        string `mapstructure:"model" validate:"required"`
	Provider     string `mapstructure:"provider" validate:"oneof=eino langchain"`
	MaxSteps     int    `mapstructure:"max_steps" validate:"min=1,max=10"`
	HistoryTurns int    `mapstructure:"history_turns" validate:"min=0"`
	Listen       string `mapstructure:"listen" validate:"required"`
	LogLevel     string `mapstructure:"log_level"`
	Env          string `mapstructure:"env"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "")
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("provider", ProviderEino)
	v.SetDefault("max_steps", 3)
	v.SetDefault("history_turns", 50)
	v.SetDefault("listen", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("env", "dev")
}

// Load reads path when it exists, then applies environment overrides
// such as FORMPILOT_API_KEY. A .env file in the working directory is loaded
// first; variables already set in the environment win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env failed: %w", err)
	}
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("formpilot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s failed: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat config %s failed: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config failed: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
