package main

import (
	"fmt"
	"strings"

	tiktoken "github.com/pkoukk/tiktoken-go"
	hf "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	"go.uber.org/zap"
)

// Tokenizer counts model tokens in a piece of text.
type Tokenizer interface {
	CountTokens(text string) int
}

// encodeFunc turns text into token ids.
type encodeFunc func(text string) ([]int, error)

// tokenCounter counts the ids its encoder produces. A counter without an
// encoder counts nothing, and an encoding error is logged and counts as zero.
type tokenCounter struct {
	name   string
	encode encodeFunc
	logger *zap.Logger
}

func (c *tokenCounter) CountTokens(text string) int {
	if c == nil || c.encode == nil {
		return 0
	}
	ids, err := c.encode(text)
	if err != nil {
		c.logger.Warn("Tokenizer failed to encode text", zap.String("tokenizer", c.name), zap.Error(err))
		return 0
	}
	return len(ids)
}

const (
	defaultTiktokenModel = "gpt-4o"
	defaultHFModel       = "gpt2"
)

// newTokenizer returns the tokenizer named by kind ("tiktoken" or
// "huggingface"). An empty model selects that tokenizer's default.
func newTokenizer(kind, model, file string, logger *zap.Logger) (Tokenizer, error) {
	switch strings.ToLower(kind) {
	case "tiktoken":
		return loadTiktoken(model, logger)
	case "huggingface":
		return loadHuggingFace(model, file, logger)
	default:
		return nil, fmt.Errorf("unsupported tokenizer %q: use tiktoken or huggingface", kind)
	}
}

func loadTiktoken(model string, logger *zap.Logger) (Tokenizer, error) {
	if model == "" {
		model = defaultTiktokenModel
	}
	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Warn("Tiktoken model not found, falling back to default",
			zap.String("model", model), zap.String("default", defaultTiktokenModel), zap.Error(err))
		tke, err = tiktoken.EncodingForModel(defaultTiktokenModel)
		if err != nil {
			return nil, fmt.Errorf("tiktoken encoding for %s: %w", defaultTiktokenModel, err)
		}
	}
	return &tokenCounter{
		name: "tiktoken",
		encode: func(text string) ([]int, error) {
			return tke.EncodeOrdinary(text), nil
		},
		logger: logger,
	}, nil
}

func loadHuggingFace(model, file string, logger *zap.Logger) (Tokenizer, error) {
	if file == "" {
		if model == "" {
			model = defaultHFModel
		}
		logger.Info("Loading HuggingFace tokenizer (this may download files)", zap.String("model", model))
		cached, err := hf.CachedPath(model, "tokenizer.json")
		if err != nil {
			return nil, fmt.Errorf("cache path for model %s: %w", model, err)
		}
		file = cached
	}
	htk, err := pretrained.FromFile(file)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer from %s: %w", file, err)
	}
	return &tokenCounter{
		name: "huggingface",
		encode: func(text string) ([]int, error) {
			en, err := htk.EncodeSingle(text)
			if err != nil {
				return nil, err
			}
			return en.Ids, nil
		},
		logger: logger,
	}, nil
}
