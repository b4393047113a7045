package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/velesk/prosegen/pkg/prosegen"
)

// GenerationConfig holds the default knobs applied to every generation
// request unless overridden by a flag or query parameter.
type GenerationConfig struct {
	WordsPerSentence      int     `yaml:"words_per_sentence"`
	SentencesPerParagraph int     `yaml:"sentences_per_paragraph"`
	TopK                  int     `yaml:"top_k"`
	Distribution          string  `yaml:"distribution"` // "rank-decay" or "exponential"
	ExpLambda             float64 `yaml:"exp_lambda"`
	DeadEndPolicy         string  `yaml:"dead_end_policy"` // "stop" or "restart"
}

// Config is the top-level application configuration.
type Config struct {
	DatabasePath string           `yaml:"database_path"`
	LogLevel     string           `yaml:"log_level"`
	ServeAddr    string           `yaml:"serve_addr"`
	Generation   GenerationConfig `yaml:"generation"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		DatabasePath: "./data/prosegen.db",
		LogLevel:     "info",
		ServeAddr:    ":7279",
		Generation: GenerationConfig{
			WordsPerSentence:      8,
			SentencesPerParagraph: 5,
			TopK:                  prosegen.DefaultTopK,
			Distribution:          "rank-decay",
			ExpLambda:             0.5,
			DeadEndPolicy:         "stop",
		},
	}
}

// LoadConfig reads the configuration from a YAML file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = yaml.Marshal(config)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The application can still run with defaults, so warn instead of failing.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// generatorOptions translates the generation config into prosegen options.
func (gc GenerationConfig) generatorOptions() ([]prosegen.Option, error) {
	opts := []prosegen.Option{
		prosegen.WithWordsPerSentence(gc.WordsPerSentence),
		prosegen.WithSentencesPerParagraph(gc.SentencesPerParagraph),
		prosegen.WithTopK(gc.TopK),
	}

	switch gc.Distribution {
	case "", "rank-decay":
		opts = append(opts, prosegen.WithDistribution(prosegen.RankDecay))
	case "exponential":
		opts = append(opts, prosegen.WithDistribution(prosegen.Exponential(gc.ExpLambda)))
	default:
		return nil, fmt.Errorf("unknown distribution %q (expected 'rank-decay' or 'exponential')", gc.Distribution)
	}

	switch gc.DeadEndPolicy {
	case "", "stop":
		opts = append(opts, prosegen.WithDeadEndPolicy(prosegen.DeadEndStop))
	case "restart":
		opts = append(opts, prosegen.WithDeadEndPolicy(prosegen.DeadEndRestart))
	default:
		return nil, fmt.Errorf("unknown dead-end policy %q (expected 'stop' or 'restart')", gc.DeadEndPolicy)
	}

	return opts, nil
}

// parseLogLevel maps a config string to a slog level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
