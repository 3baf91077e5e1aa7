// Package anthropic adapts the Anthropic Messages streaming API to the
// normalized event stream. The wire protocol is content-block structured:
// a tool_use block start names the call, input_json deltas fragment the
// arguments, and the block stop finalizes and dispatches.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"veltris.dev/codex/chat"
	"veltris.dev/codex/provider"
	"veltris.dev/codex/stream"
	"veltris.dev/codex/tools"
)

// defaultModel is the concrete Claude identifier behind the public
// claude-3.5-sonnet model name.
const defaultModel = "claude-3-5-sonnet-20241022"

const healthTTL = 30 * time.Second

// systemPrompt is the Claude-family instruction block. Shorter than the
// OpenAI variant: Claude needs less steering toward tool use.
const systemPrompt = `You are an AI coding assistant for Veltris Codex. You help with code generation, analysis, refactoring, and documentation.

Available tools:
- generate_code_diff: Compare two versions of code and show differences
- generate_documentation: Create BRD, SRD, README, or API documentation
- analyze_code_structure: Analyze code patterns, structure, and provide improvement suggestions
- refactor_code: Refactor code with specific strategies (optimize, modernize, add types, extract components)

Use tools when appropriate to help users with their coding tasks. Always provide helpful explanations along with tool results. Be proactive in suggesting improvements and best practices.`

type (
	// MessagesClient captures the subset of the Anthropic SDK client used by
	// the adapter. It is satisfied by *sdk.MessageService so callers can pass
	// either a real client or a fake in tests.
	MessagesClient interface {
		New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
		NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
	}

	// Options configures the adapter.
	Options struct {
		Messages   MessagesClient
		Dispatcher provider.ToolDispatcher
		Tools      []tools.Descriptor
		Settings   provider.Settings
		Limiter    *provider.Limiter
		// Model overrides the default Claude identifier.
		Model string
	}

	// Provider streams chat turns through the Anthropic Messages API.
	Provider struct {
		msg        MessagesClient
		dispatcher provider.ToolDispatcher
		tools      []sdk.ToolUnionParam
		settings   provider.Settings
		limiter    *provider.Limiter
		model      string
		health     *provider.HealthCache
	}
)

// New builds the adapter from the provided options.
func New(opts Options) (*Provider, error) {
	if opts.Messages == nil {
		return nil, errors.New("anthropic client is required")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("tool dispatcher is required")
	}
	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	return &Provider{
		msg:        opts.Messages,
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
		return nil, errors.New("Anthropic API key not configured")
	}
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	opts.Messages = &client.Messages
	return New(opts)
}

// Name identifies the adapter in logs and health reports.
func (p *Provider) Name() string { return "claude" }

// Stream runs one model turn, translating message stream events into
// normalized events. The returned channel closes after the terminal event.
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

	params := p.messageParams(req)
	if err := p.limiter.Wait(ctx, promptChars(req)); err != nil {
		emit(stream.Errorf("Claude API error: %v", err))
		return
	}

	s := p.msg.NewStreaming(ctx, params)
	defer func() { _ = s.Close() }()

	var pending *provider.Call
	for s.Next() {
		switch ev := s.Current().AsAny().(type) {
		case sdk.ContentBlockStartEvent:
			if block, ok := ev.ContentBlock.AsAny().(sdk.ToolUseBlock); ok {
				pending = &provider.Call{ID: block.ID, Name: block.Name}
				if !emit(stream.Status(block.Name, stream.ToolExecuting)) {
					return
				}
			}
		case sdk.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case sdk.TextDelta:
				if delta.Text != "" && !emit(stream.Text(delta.Text)) {
					return
				}
			case sdk.InputJSONDelta:
				if pending != nil {
					pending.Append(delta.PartialJSON)
				}
			}
		case sdk.ContentBlockStopEvent:
			if pending == nil {
				continue
			}
			args, err := pending.Input()
			if err != nil {
				if !emit(stream.Errorf("Tool execution failed: %v", err)) {
					return
				}
			} else {
				provider.RunTool(ctx, p.dispatcher, pending.Name, args, req.Context, emit)
			}
			pending = nil
		case sdk.MessageStopEvent:
			emit(stream.Done())
			return
		}
	}
	if err := s.Err(); err != nil {
		emit(stream.Errorf("Claude API error: %v", err))
		return
	}
	emit(stream.Done())
}

// GenerateText issues a single non-streaming message and concatenates its
// text blocks.
func (p *Provider) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx, len(prompt)); err != nil {
		return "", err
	}
	msg, err := p.msg.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(p.model),
		MaxTokens:   int64(p.settings.MaxTokens),
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
		Temperature: sdk.Float(p.settings.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("Claude text generation error: %w", err)
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// Available probes the API with a minimal one-token message, caching the
// outcome briefly.
func (p *Provider) Available(ctx context.Context) bool {
	return p.health.Check(ctx, func(ctx context.Context) bool {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_, err := p.msg.New(ctx, sdk.MessageNewParams{
			Model:     sdk.Model(p.model),
			MaxTokens: 1,
			Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock("test"))},
		})
		return err == nil
	})
}

func (p *Provider) messageParams(req *chat.Request) sdk.MessageNewParams {
	msgs := make([]sdk.MessageParam, 0, 2)
	if req.Context != nil {
		if cm := req.Context.ContextMessage(); cm != "" {
			msgs = append(msgs, sdk.NewUserMessage(sdk.NewTextBlock(cm)))
		}
	}
	msgs = append(msgs, sdk.NewUserMessage(sdk.NewTextBlock(req.Message)))

	params := sdk.MessageNewParams{
		Model:       sdk.Model(p.model),
		MaxTokens:   int64(p.settings.MaxTokens),
		Messages:    msgs,
		System:      []sdk.TextBlockParam{{Text: systemPrompt}},
		Temperature: sdk.Float(p.settings.Temperature),
	}
	if len(p.tools) > 0 {
		params.Tools = p.tools
		params.ToolChoice = sdk.ToolChoiceUnionParam{OfAuto: &sdk.ToolChoiceAutoParam{}}
	}
	return params
}

func encodeTools(defs []tools.Descriptor) []sdk.ToolUnionParam {
	if len(defs) == 0 {
		return nil
	}
	encoded := make([]sdk.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		u := sdk.ToolUnionParamOfTool(sdk.ToolInputSchemaParam{ExtraFields: def.Parameters}, def.Name)
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(def.Description)
		}
		encoded = append(encoded, u)
	}
	return encoded
}

func promptChars(req *chat.Request) int {
	n := len(systemPrompt) + len(req.Message)
	if req.Context != nil {
		n += len(req.Context.ContextMessage())
	}
	return n
}
