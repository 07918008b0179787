package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ai_content_workflow/config"
	"ai_content_workflow/generator"
	"ai_content_workflow/history"
	"ai_content_workflow/logging"
	"ai_content_workflow/metrics"
)

// app bundles the collaborators shared by every subcommand.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	exec    *generator.Executor
	runs    history.Store
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, opts.verbose)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	m := metrics.New(prometheus.NewRegistry())

	exec, err := buildExecutor(cfg, logger, m)
	if err != nil {
		return nil, err
	}
	runs, err := history.Open(ctx, history.Options{
		Driver:      cfg.History.Driver,
		Path:        cfg.History.Path,
		RedisAddr:   cfg.History.RedisAddr,
		RedisPrefix: cfg.History.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	logger.Debug("history opened", zap.String("driver", cfg.History.Driver))
	return &app{cfg: cfg, logger: logger, metrics: m, exec: exec, runs: runs}, nil
}

func (a *app) Close() {
	if err := a.runs.Close(); err != nil {
		a.logger.Warn("close history", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func buildExecutor(cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (*generator.Executor, error) {
	llm, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}
	sampling := generator.DefaultSampling()
	if cfg.LLM.Model != "" {
		sampling.Model = cfg.LLM.Model
	}
	if cfg.LLM.Temperature != nil {
		sampling.Temperature = *cfg.LLM.Temperature
	}
	opts := []generator.ExecutorOption{
		generator.WithSampling(sampling),
		generator.WithLogger(logger),
		generator.WithObserver(m),
	}
	if cfg.TemplatesPath != "" {
		ts, tones, err := generator.LoadTemplates(cfg.TemplatesPath)
		if err != nil {
			return nil, fmt.Errorf("load templates: %w", err)
		}
		opts = append(opts, generator.WithTemplates(ts), generator.WithToneExamples(tones))
	}
	return generator.NewExecutor(llm, opts...)
}

func buildLLM(cfg config.Config) (generator.LLMClient, error) {
	if cfg.LLM == nil || cfg.LLM.Provider == "" {
		return nil, fmt.Errorf("llm config missing; please set llm.provider/model/api_key_env in config")
	}
	settings := &generator.LLMSettings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	}
	if cfg.LLM.MaxRetries != nil {
		settings.MaxRetries = *cfg.LLM.MaxRetries
	}
	switch cfg.LLM.Provider {
	case "openai":
		return generator.NewOpenAILLMFromConfig(settings)
	case "deepseek":
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url（例如官方/网关地址）。
		if cfg.LLM.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(settings)
	case "mock":
		return generator.MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}
