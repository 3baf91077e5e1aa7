// Package openai adapts the OpenAI Chat Completions streaming API to the
// normalized event stream. Tool calls arrive as a name fragment followed by
// raw argument fragments; the adapter accumulates them and dispatches when
// the upstream reports finish reason "tool_calls".
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/pagination"
	"github.com/openai/openai-go/packages/ssestream"

	"veltris.dev/codex/chat"
	"veltris.dev/codex/provider"
	"veltris.dev/codex/stream"
	"veltris.dev/codex/tools"
)

// finishToolCalls is the finish reason signalling that the accumulated tool
// call is complete and ready to dispatch.
const finishToolCalls = "tool_calls"

// healthTTL bounds how often the availability probe hits the models
// endpoint.
const healthTTL = 30 * time.Second

type (
	// ChatClient captures the subset of the OpenAI SDK used by the adapter.
	// Satisfied by the SDK's chat completion service so tests can substitute
	// a fake stream.
	ChatClient interface {
		New(ctx context.Context, body oa.ChatCompletionNewParams, opts ...option.RequestOption) (*oa.ChatCompletion, error)
		NewStreaming(ctx context.Context, body oa.ChatCompletionNewParams, opts ...option.RequestOption) *ssestream.Stream[oa.ChatCompletionChunk]
	}

	// ModelLister is the availability probe surface, satisfied by the SDK's
	// model service.
	ModelLister interface {
		List(ctx context.Context, opts ...option.RequestOption) (*pagination.Page[oa.Model], error)
	}

	// Options configures the adapter.
	Options struct {
		Chat       ChatClient
		Models     ModelLister
		Dispatcher provider.ToolDispatcher
		Tools      []tools.Descriptor
		Settings   provider.Settings
		Limiter    *provider.Limiter
		// Model overrides the default model identifier.
		Model string
	}

	// Provider streams chat turns through the OpenAI Chat Completions API.
	Provider struct {
		chat       ChatClient
		models     ModelLister
		dispatcher provider.ToolDispatcher
		tools      []oa.ChatCompletionToolParam
		settings   provider.Settings
		limiter    *provider.Limiter
		model      oa.ChatModel
		health     *provider.HealthCache
	}
)

// New builds the adapter from the provided options.
func New(opts Options) (*Provider, error) {
	if opts.Chat == nil {
		return nil, errors.New("openai chat client is required")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("tool dispatcher is required")
	}
	model := oa.ChatModel(opts.Model)
	if model == "" {
		model = oa.ChatModelGPT4o
	}
	return &Provider{
		chat:       opts.Chat,
		models:     opts.Models,
		dispatcher: opts.Dispatcher,
		tools:      encodeTools(opts.Tools),
		settings:   opts.Settings,
		limiter:    opts.Limiter,
		model:      model,
		health:     provider.NewHealthCache(healthTTL),
	}, nil
}

// NewFromAPIKey constructs the adapter over the default SDK HTTP client.
func NewFromAPIKey(apiKey string, opts Options) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key not configured")
	}
	client := oa.NewClient(option.WithAPIKey(apiKey))
	opts.Chat = &client.Chat.Completions
	opts.Models = &client.Models
	return New(opts)
}

// Name identifies the adapter in logs and health reports.
func (p *Provider) Name() string { return "openai" }

// Stream runs one model turn, translating completion chunks into normalized
// events. The returned channel closes after the terminal event.
func (p *Provider) Stream(ctx context.Context, req *chat.Request) <-chan stream.Event {
	out := make(chan stream.Event, 16)
	go func() {
		defer close(out)
		p.run(ctx, req, out)
	}()
	return out
}

func (p *Provider) run(ctx context.Context, req *chat.Request, out chan<- stream.Event) {
	emit := func(ev stream.Event) bool { return provider.Send(ctx, out, ev) }

	params := p.chatParams(req)
	if err := p.limiter.Wait(ctx, promptChars(req)); err != nil {
		emit(stream.Errorf("OpenAI API error: %v", err))
		return
	}

	s := p.chat.NewStreaming(ctx, params)
	defer func() { _ = s.Close() }()

	var pending *provider.Call
	for s.Next() {
		chunk := s.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		if choice.Delta.Content != "" {
			if !emit(stream.Text(choice.Delta.Content)) {
				return
			}
		}

		for _, tc := range choice.Delta.ToolCalls {
			if tc.Function.Name != "" {
				// A name fragment starts a new call. A second start before the
				// first dispatches replaces it.
				pending = &provider.Call{ID: tc.ID, Name: tc.Function.Name}
				if !emit(stream.Status(tc.Function.Name, stream.ToolExecuting)) {
					return
				}
			}
			if tc.Function.Arguments != "" && pending != nil {
				pending.Append(tc.Function.Arguments)
			}
		}

		if choice.FinishReason == finishToolCalls && pending != nil && pending.HasArguments() {
			args, err := pending.Input()
			if err != nil {
				if !emit(stream.Errorf("Tool execution failed: %v", err)) {
					return
				}
			} else {
				provider.RunTool(ctx, p.dispatcher, pending.Name, args, req.Context, emit)
			}
			pending = nil
		}
	}
	if err := s.Err(); err != nil {
		emit(stream.Errorf("OpenAI API error: %v", err))
		return
	}
	emit(stream.Done())
}

// GenerateText issues a single non-streaming completion and strips any code
// fence the model wrapped around the answer.
func (p *Provider) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx, len(prompt)); err != nil {
		return "", err
	}
	resp, err := p.chat.New(ctx, oa.ChatCompletionNewParams{
		Model:       p.model,
		Messages:    []oa.ChatCompletionMessageParamUnion{oa.UserMessage(prompt)},
		Temperature: oa.Float(p.settings.Temperature),
		MaxTokens:   oa.Int(int64(p.settings.MaxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI text generation error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("OpenAI text generation error: empty completion")
	}
	return stripFence(strings.TrimSpace(resp.Choices[0].Message.Content)), nil
}

// Available probes the models endpoint, caching the outcome briefly.
func (p *Provider) Available(ctx context.Context) bool {
	if p.models == nil {
		return false
	}
	return p.health.Check(ctx, func(ctx context.Context) bool {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_, err := p.models.List(ctx)
		return err == nil
	})
}

func (p *Provider) chatParams(req *chat.Request) oa.ChatCompletionNewParams {
	msgs := make([]oa.ChatCompletionMessageParamUnion, 0, 3)
	msgs = append(msgs, oa.SystemMessage(provider.SystemPrompt))
	if req.Context != nil {
		if cm := req.Context.ContextMessage(); cm != "" {
			msgs = append(msgs, oa.UserMessage(cm))
		}
	}
	msgs = append(msgs, oa.UserMessage(req.Message))

	params := oa.ChatCompletionNewParams{
		Model:       p.model,
		Messages:    msgs,
		Temperature: oa.Float(p.settings.Temperature),
		MaxTokens:   oa.Int(int64(p.settings.MaxTokens)),
	}
	if len(p.tools) > 0 {
		params.Tools = p.tools
		params.ToolChoice = oa.ChatCompletionToolChoiceOptionUnionParam{OfAuto: oa.String("auto")}
	}
	return params
}

func encodeTools(defs []tools.Descriptor) []oa.ChatCompletionToolParam {
	if len(defs) == 0 {
		return nil
	}
	encoded := make([]oa.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		encoded = append(encoded, oa.ChatCompletionToolParam{
			Function: oa.FunctionDefinitionParam{
				Name:        def.Name,
				Description: oa.String(def.Description),
				Parameters:  oa.FunctionParameters(def.Parameters),
			},
		})
	}
	return encoded
}

func promptChars(req *chat.Request) int {
	n := len(provider.SystemPrompt) + len(req.Message)
	if req.Context != nil {
		n += len(req.Context.ContextMessage())
	}
	return n
}

// stripFence removes a leading code fence line and a trailing fence line.
// Models occasionally wrap plain-text answers in markdown despite
// instructions.
func stripFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if strings.HasPrefix(lines[0], "```") {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
