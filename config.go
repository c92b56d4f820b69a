package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the fully resolved run configuration.
type Config struct {
	Root       string
	OutputPath string
	TextPolicy TextPolicy
	LogLevel   string

	Tokens        bool
	Tokenizer     string
	Model         string
	TokenizerFile string

	Clipboard     bool
	LanguagesFile string

	// ConfigFile is the config file that was read, if any.
	ConfigFile string
}

// loadConfig resolves defaults < config file < CODEBASE_* environment for a
// scan of root.
func loadConfig(root string) (Config, error) {
	v := viper.New()

	v.SetDefault("text_policy", string(TextPolicyPermissive))
	v.SetDefault("log_level", "info")
	v.SetDefault("tokens", false)
	v.SetDefault("tokenizer", "tiktoken")
	v.SetDefault("model", "")
	v.SetDefault("tokenizer_file", "")
	v.SetDefault("clipboard", false)
	v.SetDefault("languages_file", "")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "codebase"))
	}
	v.SetConfigName("config")
	v.SetConfigType("toml")

	v.SetEnvPrefix("CODEBASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	policy := TextPolicy(strings.ToLower(v.GetString("text_policy")))
	switch policy {
	case TextPolicyPermissive, TextPolicyStrict:
	default:
		return Config{}, fmt.Errorf("invalid text_policy %q: want %q or %q", policy, TextPolicyPermissive, TextPolicyStrict)
	}

	return Config{
		Root:          root,
		OutputPath:    filepath.Join(root, OutputFileName),
		TextPolicy:    policy,
		LogLevel:      v.GetString("log_level"),
		Tokens:        v.GetBool("tokens"),
		Tokenizer:     v.GetString("tokenizer"),
		Model:         v.GetString("model"),
		TokenizerFile: v.GetString("tokenizer_file"),
		Clipboard:     v.GetBool("clipboard"),
		LanguagesFile: v.GetString("languages_file"),
		ConfigFile:    v.ConfigFileUsed(),
	}, nil
}
