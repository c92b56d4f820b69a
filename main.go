package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is the application version, set via ldflags.
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "codebase",
		Short: "Codebase packs the current directory into a single codebase.md",
		Long: `Codebase walks the current directory, honoring .gitignore, .ignore,
global and repository exclude rules, and writes codebase.md: a tree of the
project followed by the contents of every text file.

Settings are read from $HOME/.config/codebase/config.toml and CODEBASE_*
environment variables.`,
		Version:      version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(".")
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
			}
			defer syncLogger(logger)

			if cfg.ConfigFile != "" {
				logger.Info("Using config file", zap.String("path", cfg.ConfigFile))
			}
			return run(cfg, logger)
		},
	}
}

// run performs one full scan of cfg.Root and writes cfg.OutputPath.
func run(cfg Config, logger *zap.Logger) error {
	startTime := time.Now()
	logger.Info("Starting codebase scan", zap.String("root", cfg.Root))

	rules := loadIgnoreRules(cfg.Root, logger)
	filter := newPathFilter(cfg.Root, cfg.OutputPath, rules)
	paths := walkDirectory(cfg.Root, filter, logger)
	logger.Debug("Collected paths", zap.Int("count", len(paths)))

	if err := os.Remove(cfg.OutputPath); err == nil {
		logger.Info("Removed existing output", zap.String("path", cfg.OutputPath))
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("removing existing %s: %w", cfg.OutputPath, err)
	}

	stats, err := writeDocument(cfg, paths, logger)
	if err != nil {
		return err
	}

	logger.Info("Codebase conversion complete",
		zap.String("output", cfg.OutputPath),
		zap.Int("files", len(stats.Included)),
		zap.Int("binarySkipped", stats.Binary),
		zap.Int("unreadableSkipped", stats.Unreadable),
		zap.Int("decodeFailures", stats.DecodeFailed),
		zap.Duration("elapsed", time.Since(startTime)))

	if info, err := os.Stat(cfg.OutputPath); err == nil {
		logger.Info("Output size", zap.Int64("bytes", info.Size()))
	} else {
		logger.Warn("Could not get output file metadata", zap.Error(err))
	}

	reportLanguages(cfg, stats.Included, logger)
	if cfg.Tokens || cfg.Clipboard {
		publishArtifact(cfg, logger)
	}
	return nil
}

// writeDocument creates the artifact and streams the document into it. The
// file is closed on every path.
func writeDocument(cfg Config, paths []string, logger *zap.Logger) (stats ContentStats, err error) {
	file, err := os.Create(cfg.OutputPath)
	if err != nil {
		return stats, fmt.Errorf("creating %s: %w", cfg.OutputPath, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("closing %s: %w", cfg.OutputPath, closeErr))
		}
	}()

	tree, counts := buildTree(cfg.Root, paths)
	s := &serializer{root: cfg.Root, policy: cfg.TextPolicy, logger: logger}
	stats, err = s.Serialize(file, tree, counts, paths)
	if err != nil {
		return stats, fmt.Errorf("writing %s: %w", cfg.OutputPath, err)
	}
	return stats, nil
}

// reportLanguages logs a per-language breakdown of the included files when a
// languages file is available.
func reportLanguages(cfg Config, included []string, logger *zap.Logger) {
	langFile := cfg.LanguagesFile
	if langFile == "" {
		langFile = defaultLanguagesFile()
		if langFile == "" {
			return
		}
		if _, err := os.Stat(langFile); err != nil {
			return
		}
	}

	langData, err := loadLanguageData(langFile)
	if err != nil {
		logger.Warn("Could not load language definitions", zap.Error(err))
		return
	}
	for _, row := range langData.languageBreakdown(included) {
		logger.Info("Language", zap.String("language", row.Language), zap.Int("files", row.Files))
	}
}

// publishArtifact counts tokens in and/or copies the finished artifact. Both
// are best effort.
func publishArtifact(cfg Config, logger *zap.Logger) {
	data, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		logger.Warn("Could not read output for post-processing", zap.Error(err))
		return
	}
	text := string(data)

	if cfg.Tokens {
		tk, err := newTokenizer(cfg.Tokenizer, cfg.Model, cfg.TokenizerFile, logger)
		if err != nil {
			logger.Warn("Token counting disabled", zap.Error(err))
		} else {
			logger.Info("Token count", zap.String("tokenizer", cfg.Tokenizer), zap.Int("tokens", tk.CountTokens(text)))
		}
	}

	if cfg.Clipboard {
		if err := clipboard.WriteAll(text); err != nil {
			logger.Warn("Could not copy output to clipboard", zap.Error(err))
		} else {
			logger.Info("Output copied to clipboard")
		}
	}
}
