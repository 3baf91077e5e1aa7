// Command codex-ai runs the Veltris Codex AI service: an HTTP server that
// brokers chat requests to the configured model providers, streams
// normalized events to clients and exposes the coding tool catalogue.
//
// Configuration comes from an optional YAML file (-config) with environment
// overrides:
//
//	HOST, PORT             - listen address (default 0.0.0.0:8000)
//	OPENAI_API_KEY         - enables the GPT-4o provider
//	ANTHROPIC_API_KEY      - enables the Claude provider
//	OLLAMA_BASE_URL        - local provider endpoint (default localhost:11434)
//	MAX_TOKENS, TEMPERATURE, REQUEST_TIMEOUT, RATE_LIMIT_TPM, DEBUG
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goa.design/clue/log"

	"veltris.dev/codex/api"
	"veltris.dev/codex/config"
	"veltris.dev/codex/orchestrator"
	"veltris.dev/codex/provider"
	"veltris.dev/codex/provider/anthropic"
	"veltris.dev/codex/provider/ollama"
	"veltris.dev/codex/provider/openai"
	"veltris.dev/codex/tools"
	"veltris.dev/codex/tools/catalog"
)

func main() {
	var (
		configF = flag.String("config", "", "path to YAML config file (optional)")
		debugF  = flag.Bool("debug", false, "enable debug logs")
	)
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))

	cfg, err := config.Load(*configF)
	if err != nil {
		log.Fatalf(ctx, err, "load configuration")
	}
	if *debugF || cfg.Debug {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatalf(ctx, err, "service failed")
	}
	log.Printf(ctx, "exited")
}

func run(ctx context.Context, cfg config.Config) error {
	if err := cfg.ValidateKeys(); err != nil {
		// The local provider still works without remote credentials; fatal
		// only when production demands a remote model.
		if cfg.IsProduction() {
			return err
		}
		log.Printf(ctx, "no remote AI credentials configured, serving local provider only")
	}

	// Tool handlers generate text through a provider while providers dispatch
	// tool calls back into the registry. Late-bound handles break the cycle:
	// build the registry against an unbound generator, construct the fully
	// wired providers, then bind.
	textGen := &generatorHandle{}
	registry, err := catalog.New(textGen)
	if err != nil {
		return fmt.Errorf("build tool registry: %w", err)
	}
	dispatcher := tools.NewDispatcher(registry)
	descriptors := registry.Descriptors()

	settings := provider.Settings{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}
	limiter := provider.NewLimiter(cfg.RateLimitTPM)

	local, err := ollama.New(ollama.Options{
		BaseURL:    cfg.Ollama.BaseURL,
		Model:      cfg.Ollama.Model,
		Timeout:    cfg.Ollama.Timeout,
		Dispatcher: dispatcher,
		Tools:      descriptors,
	})
	if err != nil {
		return fmt.Errorf("construct local provider: %w", err)
	}
	textGen.bind(local)

	var openaiP, claudeP provider.Streamer
	if cfg.OpenAIAPIKey != "" {
		p, err := openai.NewFromAPIKey(cfg.OpenAIAPIKey, openai.Options{
			Dispatcher: dispatcher,
			Tools:      descriptors,
			Settings:   settings,
			Limiter:    limiter,
		})
		if err != nil {
			return fmt.Errorf("construct openai provider: %w", err)
		}
		openaiP = p
		textGen.bind(p)
		log.Printf(ctx, "openai provider configured")
	}
	if cfg.AnthropicAPIKey != "" {
		p, err := anthropic.NewFromAPIKey(cfg.AnthropicAPIKey, anthropic.Options{
			Dispatcher: dispatcher,
			Tools:      descriptors,
			Settings:   settings,
			Limiter:    limiter,
		})
		if err != nil {
			return fmt.Errorf("construct anthropic provider: %w", err)
		}
		claudeP = p
		if openaiP == nil {
			textGen.bind(p)
		}
		log.Printf(ctx, "anthropic provider configured")
	}

	orch := orchestrator.New(orchestrator.Options{
		OpenAI:     openaiP,
		Claude:     claudeP,
		Local:      local,
		Dispatcher: dispatcher,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.New(orch, dispatcher).Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf(ctx, "listening on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
			return
		}
		errc <- nil
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-stop:
		log.Printf(ctx, "shutting down (%v)", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errc
}

// generatorHandle lets the tool registry be built before the provider that
// backs its LLM-assisted tools exists. Binding order is local first, then the
// strongest configured remote wins.
type generatorHandle struct {
	gen catalog.TextGenerator
}

func (h *generatorHandle) bind(g catalog.TextGenerator) { h.gen = g }

func (h *generatorHandle) GenerateText(ctx context.Context, prompt string) (string, error) {
	if h.gen == nil {
		return "", errors.New("no text generation provider configured")
	}
	return h.gen.GenerateText(ctx, prompt)
}
