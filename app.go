package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"auto_blog_writer/config"
	"auto_blog_writer/generator"
	"auto_blog_writer/logging"
	"auto_blog_writer/publisher"
	"auto_blog_writer/search"
	"auto_blog_writer/workflow"
)

// app holds everything wired from one configuration.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	store    workflow.Store
	engine   *workflow.Engine
	registry *prometheus.Registry
}

func loadApp(ctx context.Context, g *globalFlags) (*app, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, logging.New(os.Stderr, level))
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	var store workflow.Store
	switch cfg.Store.Driver {
	case "memory":
		logger.Warn("memory checkpoint store: runs are lost when the process exits")
		store = workflow.NewMemoryStore()
	default:
		s, err := workflow.OpenSQLiteStore(ctx, cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		store = s
	}

	ctrl, err := buildController(ctx, cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engine, err := workflow.NewEngine(store, ctrl,
		workflow.WithLogger(logger),
		workflow.WithMetrics(workflow.NewMetrics(reg)),
		workflow.WithRunTimeout(cfg.Workflow.RunTimeout),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, store: store, engine: engine, registry: reg}, nil
}

func buildController(ctx context.Context, cfg config.Config, logger *slog.Logger) (*workflow.Controller, error) {
	llm, err := generator.NewLLM(ctx, &generator.LLMSettings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	llm = generator.NewRetryingLLM(llm, cfg.LLM.MaxRetries, cfg.LLM.RetryWait, logger)

	searcher, err := buildSearcher(cfg)
	if err != nil {
		return nil, err
	}

	writer, err := publisher.New(cfg.Output.Dir, cfg.Output.ResearchDir,
		publisher.WithAuthor(cfg.Output.Author),
		publisher.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	agent, err := generator.NewAgent(llm, settingsFrom(cfg), logger)
	if err != nil {
		return nil, err
	}
	return workflow.NewController(workflow.Processors{
		Research:  agent.Researcher(searcher, writer),
		Writing:   agent.Writer(),
		Editing:   agent.Editor(),
		Questions: agent.Clarifier(),
		Saver:     writer,
	}, nil)
}

func buildSearcher(cfg config.Config) (search.Searcher, error) {
	switch cfg.Search.Provider {
	case "mock":
		return search.Static{Results: []search.Result{
			{Title: "Example source", URL: "https://example.com", Content: "Placeholder search result.", Score: 1},
		}}, nil
	case "tavily":
		return search.NewTavily(cfg.Search.APIKey, search.WithRetries(cfg.Search.MaxRetries, 30*time.Second))
	default:
		return nil, fmt.Errorf("search provider %q not supported", cfg.Search.Provider)
	}
}

func settingsFrom(cfg config.Config) generator.Settings {
	s := generator.DefaultSettings()
	s.SearchDepth = search.Depth(cfg.Search.Depth)
	s.MaxResults = cfg.Search.MaxResults
	if cfg.Workflow.WritingStyle != "" {
		s.WritingStyle = cfg.Workflow.WritingStyle
	}
	w := cfg.Workflow
	if w.ResearchTemperature > 0 {
		s.ResearchTemperature = w.ResearchTemperature
	}
	if w.WritingTemperature > 0 {
		s.WritingTemperature = w.WritingTemperature
	}
	if w.EditingTemperature > 0 {
		s.EditingTemperature = w.EditingTemperature
	}
	if w.ClarifyTemperature > 0 {
		s.ClarifyTemperature = w.ClarifyTemperature
	}
	return s
}

func (a *app) Close() error {
	return a.store.Close()
}
