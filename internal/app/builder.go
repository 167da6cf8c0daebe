// Package app wires core services together for the entrypoints.
package app

import (
	"fmt"
	"log/slog"

	"github.com/realcamp/guidebot/internal/catalog"
	"github.com/realcamp/guidebot/internal/completion"
	"github.com/realcamp/guidebot/internal/config"
	"github.com/realcamp/guidebot/internal/dialog"
	"github.com/realcamp/guidebot/internal/i18n"
	"github.com/realcamp/guidebot/internal/storage"
)

// Services holds all initialized core services.
type Services struct {
	Catalog      *catalog.Repository
	Completion   completion.Client
	Fusion       *dialog.Fusion
	Scorer       *dialog.Scorer
	Orchestrator *dialog.Orchestrator
	Translator   *i18n.Translator
}

// SetupServices initializes the catalog, completion client and the dialogue
// core on top of an already opened store.
//
// The caller is responsible for closing the store when done.
func SetupServices(
	logger *slog.Logger,
	cfg *config.Config,
	store *storage.SQLiteStore,
) (*Services, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	translator, err := i18n.NewTranslator(cfg.Bot.Language)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize translator: %w", err)
	}

	cat := catalog.NewRepository(logger, cfg.Catalog.Path)
	if err := cat.Load(); err != nil {
		return nil, fmt.Errorf("failed to load badge catalog: %w", err)
	}

	client, err := completion.NewClient(
		logger,
		cfg.OpenAI.APIKey,
		cfg.OpenAI.BaseURL,
		cfg.OpenAI.Model,
		cfg.OpenAI.ProxyURL,
		cfg.OpenAI.GetTimeout(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize completion client: %w", err)
	}

	fusion := dialog.NewFusion(logger, store, cat)
	scorer := dialog.NewScorer(cat, translator, cfg.Bot.Language)

	orchestrator := dialog.NewOrchestrator(logger, store, cat, client, fusion, scorer, translator,
		dialog.Options{
			Language:           cfg.Bot.Language,
			MaxSuggestions:     cfg.Bot.MaxSuggestions,
			MaxResponseChars:   cfg.Bot.MaxResponseChars,
			DefaultMaxTokens:   cfg.OpenAI.MaxTokens,
			DefaultTemperature: cfg.OpenAI.Temperature,
		})

	return &Services{
		Catalog:      cat,
		Completion:   client,
		Fusion:       fusion,
		Scorer:       scorer,
		Orchestrator: orchestrator,
		Translator:   translator,
	}, nil
}
