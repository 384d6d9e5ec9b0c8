package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"go.uber.org/zap"

	"github.com/utkarshx27/ai-powered-interview/internal/ai"
	"github.com/utkarshx27/ai-powered-interview/internal/ai/gemini"
	"github.com/utkarshx27/ai-powered-interview/internal/ai/openai"
	"github.com/utkarshx27/ai-powered-interview/internal/candidate"
	"github.com/utkarshx27/ai-powered-interview/internal/document"
	"github.com/utkarshx27/ai-powered-interview/internal/evaluation"
	"github.com/utkarshx27/ai-powered-interview/internal/extract"
	"github.com/utkarshx27/ai-powered-interview/internal/journal"
	"github.com/utkarshx27/ai-powered-interview/internal/logger"
	"github.com/utkarshx27/ai-powered-interview/internal/record"
	"github.com/utkarshx27/ai-powered-interview/internal/secrets"
)

const (
	providerGemini = "gemini"
	providerOpenAI = "openai"
)

// pipeline holds the collaborators shared by the interview commands.
type pipeline struct {
	config    *Config
	logger    *zap.Logger
	model     ai.Model
	loader    *document.Loader
	builder   *candidate.Builder
	evaluator *evaluation.Evaluator
	journal   journal.Journal
	closers   []func() error
}

func newPipeline(ctx context.Context, config *Config, log *zap.Logger) (*pipeline, error) {
	model, provider, modelName, err := newModel(ctx, config.AI, log)
	if err != nil {
		return nil, fmt.Errorf("building reasoning service: %w", err)
	}

	log = logger.WithFields(log, logger.ServiceFields(provider, modelName)...)
	extractor := extract.NewExtractor(model, log, config.AI.MaxLogLength)

	return &pipeline{
		config:    config,
		logger:    log,
		model:     model,
		loader:    document.NewLoader(log),
		builder:   candidate.NewBuilder(extractor, log),
		evaluator: evaluation.NewEvaluator(extractor, log),
	}, nil
}

// withJournal connects the transcript journal when enabled. A journal that cannot
// be reached is skipped so the interview can still run.
func (p *pipeline) withJournal(ctx context.Context) {
	cfg := p.config.Journal
	if cfg == nil || !cfg.Enabled {
		return
	}

	j, err := journal.Dial(ctx, cfg.Redis)
	if err != nil {
		p.logger.Warn("transcript journal disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		return
	}

	p.journal = j
	p.closers = append(p.closers, j.Close)
	p.logger.Info("transcript journal enabled", zap.String("addr", cfg.Redis.Addr))
}

func (p *pipeline) openStore(ctx context.Context) (record.Store, error) {
	store, err := record.Open(ctx, p.config.Store, p.logger)
	if err != nil {
		return nil, err
	}
	p.closers = append(p.closers, store.Close)
	return store, nil
}

func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			p.logger.Warn("closing resource", zap.Error(err))
		}
	}
	p.closers = nil
}

// loadProfile reads the resume and extracts the candidate profile from it.
func (p *pipeline) loadProfile(ctx context.Context, path string) (*candidate.Profile, error) {
	text, err := p.loader.Text(path)
	if err != nil {
		return nil, err
	}

	p.logger.Info("extracting candidate profile", zap.String("resume", path))
	return p.builder.Build(ctx, text)
}

func newModel(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Model, string, string, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))

	switch provider {
	case "", providerGemini:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			File:  cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, "", "", fmt.Errorf("%w (set GEMINI_API_KEY, GEMINI_API_KEY_FILE or ai.gemini.api-key-file)", err)
		}

		generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.MaxLogLength, log)
		if err != nil {
			return nil, "", "", err
		}
		return generator, providerGemini, generator.Model(), nil

	case providerOpenAI:
		apiKey, err := secrets.LoadOptional(secrets.Source{
			Name:  "openai api key",
			Value: cfg.OpenAI.APIKey,
			File:  cfg.OpenAI.APIKeyFile,
		})
		if err != nil {
			return nil, "", "", err
		}

		client, err := openai.New(openai.Config{
			APIKey:       apiKey,
			Model:        cfg.OpenAI.Model,
			BaseURL:      cfg.OpenAI.BaseURL,
			Temperature:  cfg.OpenAI.Temperature,
			Timeout:      cfg.OpenAI.Timeout,
			MaxLogLength: cfg.MaxLogLength,
		}, log)
		if err != nil {
			return nil, "", "", fmt.Errorf("%w (set OPENAI_API_KEY or ai.openai.api-key-file)", err)
		}
		return client, providerOpenAI, client.Model(), nil

	default:
		return nil, "", "", fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

// resumePath returns the path given on the command line or asks for one.
func resumePath(args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}

	prompt := promptui.Prompt{
		Label: "Path to your resume (PDF, DOCX, TXT)",
		Validate: func(input string) error {
			info, err := os.Stat(strings.TrimSpace(input))
			if err != nil {
				return errors.New("file not found")
			}
			if info.IsDir() {
				return errors.New("path is a directory")
			}
			return nil
		},
	}

	path, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(path), nil
}
