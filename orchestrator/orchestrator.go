// Package orchestrator routes chat requests to the provider backing the
// requested model and shapes the resulting event stream: direct tool calls
// bypass the model entirely, model turns are forwarded verbatim, and any
// failure escaping a stream goroutine is contained as one final error event.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"goa.design/clue/log"

	"veltris.dev/codex/chat"
	"veltris.dev/codex/provider"
	"veltris.dev/codex/stream"
)

// ErrUnavailable signals that no configured, reachable provider backs the
// requested model. The HTTP layer maps it to 503 before any event is sent.
var ErrUnavailable = errors.New("ai provider unavailable")

type (
	// Options wires the orchestrator. Any provider may be nil when its
	// credential is absent; the matching model is then unavailable.
	Options struct {
		OpenAI     provider.Streamer
		Claude     provider.Streamer
		Local      provider.Streamer
		Dispatcher provider.ToolDispatcher
	}

	// Orchestrator maps model identifiers to providers and runs requests.
	Orchestrator struct {
		providers  map[string]provider.Streamer
		order      []string
		dispatcher provider.ToolDispatcher
		started    time.Time
	}

	// ModelInfo describes one catalogue entry for the models endpoint.
	ModelInfo struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Provider  string `json:"provider"`
		Available bool   `json:"available"`
	}

	// Health aggregates provider availability for the health endpoint.
	Health struct {
		Status        string          `json:"status"`
		Providers     map[string]bool `json:"providers"`
		UptimeSeconds float64         `json:"uptime_seconds"`
	}
)

// displayNames maps model identifiers to human-readable catalogue names.
var displayNames = map[string]string{
	chat.ModelGPT4o:    "GPT-4o",
	chat.ModelClaude:   "Claude 3.5 Sonnet",
	chat.ModelLocalOSS: "GPT-OSS (Local)",
}

// New builds the orchestrator from the configured providers.
func New(opts Options) *Orchestrator {
	providers := make(map[string]provider.Streamer, 3)
	order := make([]string, 0, 3)
	add := func(model string, p provider.Streamer) {
		order = append(order, model)
		if p != nil {
			providers[model] = p
		}
	}
	add(chat.ModelGPT4o, opts.OpenAI)
	add(chat.ModelClaude, opts.Claude)
	add(chat.ModelLocalOSS, opts.Local)
	return &Orchestrator{
		providers:  providers,
		order:      order,
		dispatcher: opts.Dispatcher,
		started:    time.Now(),
	}
}

// Select resolves the provider for a model identifier. The local provider
// is additionally probed because it carries no construction-time credential
// that would have failed earlier.
func (o *Orchestrator) Select(ctx context.Context, model string) (provider.Streamer, error) {
	p, ok := o.providers[model]
	if !ok {
		return nil, fmt.Errorf("%w: model %s is not configured", ErrUnavailable, model)
	}
	if model == chat.ModelLocalOSS && !p.Available(ctx) {
		return nil, fmt.Errorf("%w: local model service is not reachable", ErrUnavailable)
	}
	return p, nil
}

// Run executes one chat request. Selection failures are returned before any
// event so the HTTP layer can answer with a status code; every other
// failure surfaces on the stream itself.
func (o *Orchestrator) Run(ctx context.Context, req *chat.Request) (<-chan stream.Event, error) {
	p, err := o.Select(ctx, req.Model)
	if err != nil {
		return nil, err
	}
	if req.ToolCall != nil {
		return o.runToolCall(ctx, req), nil
	}
	return o.forward(ctx, p, req), nil
}

// runToolCall executes a tool directly, without a model turn. The event
// sequence is fixed: executing, result, completed, done on success; a
// translated error then done on failure.
func (o *Orchestrator) runToolCall(ctx context.Context, req *chat.Request) <-chan stream.Event {
	out := make(chan stream.Event, 8)
	go func() {
		defer close(out)
		defer o.containPanic(ctx, out)

		name := req.ToolCall.ToolName
		if !provider.Send(ctx, out, stream.Status(name, stream.ToolExecuting)) {
			return
		}
		env := o.dispatcher.Dispatch(ctx, name, req.ToolCall.Parameters, req.Context)
		if env.Success {
			if !provider.Send(ctx, out, stream.Result(name, env.Result)) {
				return
			}
			if !provider.Send(ctx, out, stream.Status(name, stream.ToolCompleted)) {
				return
			}
		} else {
			if !provider.Send(ctx, out, stream.Errorf("%s", env.Error)) {
				return
			}
		}
		provider.Send(ctx, out, stream.Done())
	}()
	return out
}

// forward relays adapter events verbatim.
func (o *Orchestrator) forward(ctx context.Context, p provider.Streamer, req *chat.Request) <-chan stream.Event {
	out := make(chan stream.Event, 8)
	go func() {
		defer close(out)
		defer o.containPanic(ctx, out)

		for ev := range p.Stream(ctx, req) {
			if !provider.Send(ctx, out, ev) {
				return
			}
		}
	}()
	return out
}

// containPanic converts an escaping panic into one final error event so a
// single broken request cannot take the process down or leave the client
// stream dangling without a terminal.
func (o *Orchestrator) containPanic(ctx context.Context, out chan<- stream.Event) {
	r := recover()
	if r == nil {
		return
	}
	log.Errorf(ctx, fmt.Errorf("%v", r), "chat stream panic")
	provider.Send(ctx, out, stream.Errorf("Streaming error: %v", r))
}

// Models lists the model catalogue with live availability flags.
func (o *Orchestrator) Models(ctx context.Context) []ModelInfo {
	infos := make([]ModelInfo, 0, len(o.order))
	for _, id := range o.order {
		info := ModelInfo{ID: id, Name: displayNames[id]}
		if p, ok := o.providers[id]; ok {
			info.Provider = p.Name()
			info.Available = p.Available(ctx)
		}
		infos = append(infos, info)
	}
	return infos
}

// HealthCheck reports aggregate service health: healthy when every
// configured provider answers, degraded when some do, unhealthy when none
// do (or none is configured).
func (o *Orchestrator) HealthCheck(ctx context.Context) Health {
	h := Health{
		Providers:     make(map[string]bool, len(o.providers)),
		UptimeSeconds: time.Since(o.started).Seconds(),
	}
	up := 0
	for _, p := range o.providers {
		ok := p.Available(ctx)
		h.Providers[p.Name()] = ok
		if ok {
			up++
		}
	}
	switch {
	case len(o.providers) == 0 || up == 0:
		h.Status = "unhealthy"
	case up < len(o.providers):
		h.Status = "degraded"
	default:
		h.Status = "healthy"
	}
	return h
}
