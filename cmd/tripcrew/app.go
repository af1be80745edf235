package main

import (
	"context"
	"os"

	"github.com/effective-security/tripcrew/agents"
	"github.com/effective-security/tripcrew/callbacks"
	"github.com/effective-security/tripcrew/orchestrator"
	"github.com/effective-security/tripcrew/pkg/llmfactory"
	"github.com/effective-security/tripcrew/store"
	"github.com/effective-security/tripcrew/tools/tavily"
	"github.com/effective-security/tripcrew/travel"
	"github.com/effective-security/xlog"
)

// newService wires the crew, the run store and the orchestration service
func newService(ctx context.Context, cfg *Config, verbose bool) (*orchestrator.Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	search, err := tavily.New(cfg.Search.TavilyAPIKey)
	if err != nil {
		return nil, err
	}
	if cfg.Search.SearchDepth != "" {
		search = search.WithSearchDepth(cfg.Search.SearchDepth)
	}
	if cfg.Search.BaseURL != "" {
		search = search.WithBaseURL(cfg.Search.BaseURL)
	}

	factory := llmfactory.New(&cfg.LLM)
	model, err := factory.DefaultModel()
	if err != nil {
		return nil, err
	}

	handlers := []callbacks.Handler{
		callbacks.NewRecorder(),
		callbacks.NewPackageLogger(logger),
	}
	if verbose {
		handlers = append(handlers, callbacks.NewPrinter(os.Stderr, callbacks.ModeVerbose))
	}

	opts := []agents.Option{
		agents.WithCallback(callbacks.NewFanout(handlers...)),
	}
	if cfg.Agents.MaxMessages > 0 || cfg.Agents.MaxToolCalls > 0 {
		opts = append(opts, agents.WithLimits(cfg.Agents.MaxMessages, cfg.Agents.MaxToolCalls))
	}
	if cfg.Agents.MaxContentSize > 0 {
		opts = append(opts, agents.WithMaxContentSize(cfg.Agents.MaxContentSize))
	}
	if cfg.Agents.MaxEmptyResponses > 0 {
		opts = append(opts, agents.WithMaxEmptyResponses(cfg.Agents.MaxEmptyResponses))
	}
	if cfg.Agents.Temperature > 0 {
		opts = append(opts, agents.WithTemperature(cfg.Agents.Temperature))
	}

	crew, err := travel.NewCrew(factory, search, opts...)
	if err != nil {
		return nil, err
	}

	runs, err := store.New(ctx, &cfg.Store)
	if err != nil {
		return nil, err
	}

	provider := cfg.LLM.GetDefaultProvider()
	logger.ContextKV(ctx, xlog.INFO,
		"status", "service_ready",
		"provider", provider.Name,
		"model", model.GetName(),
		"store", cfg.Store.Backend,
	)

	return orchestrator.New(&cfg.Orchestrator, crew.Itinerary, crew.Research,
		orchestrator.WithRunStore(runs),
		orchestrator.WithModelInfo(provider.APIType(), model.GetName()),
	)
}
