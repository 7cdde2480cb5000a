package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/KamdynS/agentcrew/config"
	"github.com/KamdynS/agentcrew/crew"
	"github.com/KamdynS/agentcrew/dispatch"
	"github.com/KamdynS/agentcrew/history"
	"github.com/KamdynS/agentcrew/llm"
	"github.com/KamdynS/agentcrew/llm/anthropic"
	"github.com/KamdynS/agentcrew/llm/openai"
	"github.com/KamdynS/agentcrew/mcp"
	"github.com/KamdynS/agentcrew/memory"
	"github.com/KamdynS/agentcrew/memory/inmemory"
	"github.com/KamdynS/agentcrew/memory/redis"
	obs "github.com/KamdynS/agentcrew/observability"
	"github.com/KamdynS/agentcrew/observability/prom"
)

const (
	redisPrefix   = "agentcrew:"
	transcriptTTL = 24 * time.Hour
)

// app holds the process-wide dependencies shared by every command.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	metrics *prom.Exporter
	closers []func()
}

func newLogger(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	if debug {
		lvl = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "crewdemo",
		ReportTimestamp: true,
	})
}

// newApp loads configuration and installs the metrics exporter. Logs go to
// logw so stdio transports keep stdout clean.
func newApp(logw io.Writer) (*app, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		logger:  newLogger(logw, cfg.LogLevel),
		metrics: prom.New(),
	}
	log.SetDefault(a.logger)
	obs.SetMetrics(a.metrics)
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildLLM returns a router over every provider with a key. The preferred
// provider, or the one owning CREW_MODEL, is the default. It returns nil
// when no key is configured.
func buildLLM(cfg *config.Config) (llm.Client, error) {
	models := map[llm.Provider]string{}
	prefer := llm.Provider(cfg.Provider)
	if cfg.Model != "" {
		p, err := llm.ProviderForModel(cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("CREW_MODEL: %w", err)
		}
		models[p] = cfg.Model
		prefer = p
	}

	var clients []llm.Client
	if cfg.OpenAIKey != "" {
		c, err := openai.NewClient(openai.Config{APIKey: cfg.OpenAIKey, Model: models[llm.ProviderOpenAI]})
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		clients = append(clients, c)
	}
	if cfg.AnthropicKey != "" {
		c, err := anthropic.NewClient(anthropic.Config{APIKey: cfg.AnthropicKey, Model: models[llm.ProviderAnthropic]})
		if err != nil {
			return nil, fmt.Errorf("anthropic: %w", err)
		}
		clients = append(clients, c)
	}
	if len(clients) == 0 {
		return nil, nil
	}
	for i, c := range clients {
		if c.Provider() == prefer {
			clients[0], clients[i] = clients[i], clients[0]
			break
		}
	}
	if prefer != "" && clients[0].Provider() != prefer {
		return nil, fmt.Errorf("provider %s selected but its API key is not set", prefer)
	}
	r, err := llm.NewRouter(clients...)
	if err != nil {
		return nil, err
	}
	return r, nil
}

type backend interface {
	memory.Store
	memory.Transcript
}

// store returns the Redis store when REDIS_URL is set, otherwise a
// process-local one.
func (a *app) store(ctx context.Context) (backend, error) {
	if a.cfg.RedisURL == "" {
		return inmemory.NewStore(), nil
	}
	s, err := redis.Open(ctx, a.cfg.RedisURL, redisPrefix, transcriptTTL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = s.Close() })
	a.logger.Debug("Using redis memory", "prefix", redisPrefix)
	return s, nil
}

// crewOptions wires the model, memory, MCP tools and crew file into the
// options every crew is built from.
func (a *app) crewOptions(ctx context.Context) (crew.Options, error) {
	opts := crew.Options{
		Logger:       a.logger,
		Verbose:      a.cfg.Verbose || debug,
		OutputDir:    a.cfg.OutputDir,
		SerperAPIKey: a.cfg.SerperAPIKey,
	}

	overrides, err := config.LoadCrewFile(a.cfg.CrewFile)
	if err != nil {
		return opts, err
	}
	opts.Overrides = overrides

	st, err := a.store(ctx)
	if err != nil {
		return opts, err
	}
	opts.Memory = st

	client, err := buildLLM(a.cfg)
	if err != nil {
		return opts, err
	}
	if client != nil && a.cfg.CacheTTL > 0 {
		client = llm.NewCachedClient(client, st, a.cfg.CacheTTL)
	}
	opts.LLM = client

	if a.cfg.MCPServerURL != "" {
		mc, err := mcp.Dial(ctx, a.cfg.MCPServerURL)
		if err != nil {
			a.logger.Warn("MCP server unavailable; continuing without its tools", "url", a.cfg.MCPServerURL, "error", err)
			return opts, nil
		}
		a.closers = append(a.closers, func() { _ = mc.Close() })
		ts, err := mcp.ProxyTools(ctx, mc)
		if err != nil {
			a.logger.Warn("Failed to list MCP tools", "url", a.cfg.MCPServerURL, "error", err)
			return opts, nil
		}
		opts.AnswerTools = append(opts.AnswerTools, ts...)
		a.logger.Debug("Attached MCP tools", "count", len(ts))
	}
	return opts, nil
}

// recorder returns the Postgres recorder when DATABASE_URL is set.
func (a *app) recorder(ctx context.Context) (history.Recorder, error) {
	if a.cfg.DatabaseURL == "" {
		return history.NewMemoryRecorder(), nil
	}
	r, err := history.OpenPostgres(ctx, a.cfg.DatabaseURL, "")
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, r.Close)
	return r, nil
}

func (a *app) handler(ctx context.Context) (*dispatch.Handler, error) {
	opts, err := a.crewOptions(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := a.recorder(ctx)
	if err != nil {
		return nil, err
	}
	return &dispatch.Handler{Options: opts, History: rec, Logger: a.logger}, nil
}
