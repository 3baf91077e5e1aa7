// Package ollama adapts a local Ollama server to the normalized event
// stream. The wire format is line-delimited JSON over plain HTTP: /api/chat
// for tool-capable models, /api/generate as a plain-text fallback when the
// chat endpoint rejects the request, and /api/tags as the health probe.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"veltris.dev/codex/chat"
	"veltris.dev/codex/provider"
	"veltris.dev/codex/stream"
	"veltris.dev/codex/tools"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "gpt-oss:latest"
	defaultTimeout = 120 * time.Second

	// maxLineBytes caps a single NDJSON line. Tool results embedded in a
	// line can be large.
	maxLineBytes = 1 << 20
)

// fallbackSystem seeds the flattened prompt used with /api/generate, which
// has no message roles.
const fallbackSystem = "You are an AI coding assistant for Veltris Codex. You help with code generation, analysis, refactoring, and documentation."

type (
	// Options configures the adapter.
	Options struct {
		BaseURL    string
		Model      string
		Timeout    time.Duration
		HTTPClient *http.Client
		Dispatcher provider.ToolDispatcher
		Tools      []tools.Descriptor
	}

	// Provider streams chat turns through a local Ollama server.
	Provider struct {
		baseURL    string
		model      string
		client     *http.Client
		dispatcher provider.ToolDispatcher
		tools      []map[string]any
	}

	chatLine struct {
		Message *struct {
			Content   string         `json:"content"`
			ToolCalls []wireToolCall `json:"tool_calls"`
		} `json:"message"`
		Done bool `json:"done"`
	}

	generateLine struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}

	wireToolCall struct {
		Function struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		} `json:"function"`
	}
)

// New builds the adapter. The local server needs no credential, so
// construction never fails on configuration alone.
func New(opts Options) (*Provider, error) {
	if opts.Dispatcher == nil {
		return nil, errors.New("tool dispatcher is required")
	}
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Provider{
		baseURL:    baseURL,
		model:      model,
		client:     client,
		dispatcher: opts.Dispatcher,
		tools:      encodeTools(opts.Tools),
	}, nil
}

// Name identifies the adapter in logs and health reports.
func (p *Provider) Name() string { return "ollama" }

// Stream runs one model turn against /api/chat, falling back to
// /api/generate when the chat endpoint is unavailable for the model.
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

	payload := map[string]any{
		"model":    p.model,
		"messages": p.chatMessages(req),
		"stream":   true,
	}
	if len(p.tools) > 0 {
		payload["tools"] = p.tools
	}

	resp, err := p.post(ctx, "/api/chat", payload)
	if err != nil {
		emit(stream.Errorf("Ollama API error: %v", err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Older models have no chat endpoint support. Regenerate the request
		// as a single flattened prompt.
		p.fallbackGenerate(ctx, req, emit)
		return
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var msg chatLine
		if err := json.Unmarshal(line, &msg); err != nil {
			// Malformed lines are noise, not a protocol failure.
			continue
		}
		if msg.Message != nil {
			if msg.Message.Content != "" {
				if !emit(stream.Text(msg.Message.Content)) {
					return
				}
			}
			for _, tc := range msg.Message.ToolCalls {
				if !p.handleToolCall(ctx, tc, req.Context, emit) {
					return
				}
			}
		}
		if msg.Done {
			emit(stream.Done())
			return
		}
	}
	if err := sc.Err(); err != nil {
		emit(stream.Errorf("Ollama API error: %v", err))
		return
	}
	emit(stream.Done())
}

// handleToolCall dispatches one complete tool call. Ollama delivers
// arguments whole, either as a JSON object or as an encoded string.
func (p *Provider) handleToolCall(ctx context.Context, tc wireToolCall, chatCtx *chat.Context, emit func(stream.Event) bool) bool {
	name := tc.Function.Name
	if name == "" {
		return true
	}
	args, err := decodeArguments(tc.Function.Arguments)
	if err != nil {
		return emit(stream.Errorf("Tool call error: %v", err))
	}
	if !emit(stream.Status(name, stream.ToolExecuting)) {
		return false
	}
	provider.RunTool(ctx, p.dispatcher, name, args, chatCtx, emit)
	return true
}

func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err == nil {
		return args, nil
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("parse tool arguments: %w", err)
	}
	if strings.TrimSpace(encoded) == "" {
		return map[string]any{}, nil
	}
	if err := json.Unmarshal([]byte(encoded), &args); err != nil {
		return nil, fmt.Errorf("parse tool arguments: %w", err)
	}
	return args, nil
}

func (p *Provider) fallbackGenerate(ctx context.Context, req *chat.Request, emit func(stream.Event) bool) {
	prompt := chat.FlattenPrompt(fallbackSystem, req.Context, req.Message)
	payload := map[string]any{
		"model":  p.model,
		"prompt": prompt,
		"stream": true,
	}
	resp, err := p.post(ctx, "/api/generate", payload)
	if err != nil {
		emit(stream.Errorf("Ollama generation error: %v", err))
		return
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		emit(stream.Errorf("Ollama generation error: status %d", resp.StatusCode))
		return
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var msg generateLine
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}
		if msg.Response != "" {
			if !emit(stream.Text(msg.Response)) {
				return
			}
		}
		if msg.Done {
			emit(stream.Done())
			return
		}
	}
	if err := sc.Err(); err != nil {
		emit(stream.Errorf("Ollama generation error: %v", err))
		return
	}
	emit(stream.Done())
}

// GenerateText issues a single non-streaming generation.
func (p *Provider) GenerateText(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model":  p.model,
		"prompt": prompt,
		"stream": false,
	}
	resp, err := p.post(ctx, "/api/generate", payload)
	if err != nil {
		return "", fmt.Errorf("Ollama text generation error: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Ollama text generation error: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("Ollama text generation error: %w", err)
	}
	var msg generateLine
	if err := json.Unmarshal(body, &msg); err != nil {
		return "", fmt.Errorf("Ollama text generation error: %w", err)
	}
	return stripFence(strings.TrimSpace(msg.Response)), nil
}

// Available reports whether the local server answers its tags endpoint.
func (p *Provider) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

func (p *Provider) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return p.client.Do(req)
}

func (p *Provider) chatMessages(req *chat.Request) []map[string]string {
	msgs := make([]map[string]string, 0, 3)
	msgs = append(msgs, map[string]string{"role": "system", "content": provider.SystemPrompt})
	if req.Context != nil {
		if cm := req.Context.ContextMessage(); cm != "" {
			msgs = append(msgs, map[string]string{"role": "user", "content": cm})
		}
	}
	msgs = append(msgs, map[string]string{"role": "user", "content": req.Message})
	return msgs
}

func encodeTools(defs []tools.Descriptor) []map[string]any {
	if len(defs) == 0 {
		return nil
	}
	encoded := make([]map[string]any, 0, len(defs))
	for _, def := range defs {
		encoded = append(encoded, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        def.Name,
				"description": def.Description,
				"parameters":  def.Parameters,
			},
		})
	}
	return encoded
}

// stripFence unwraps an answer the model wrapped entirely in a code fence.
func stripFence(content string) string {
	if !strings.HasPrefix(content, "```") || !strings.HasSuffix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) <= 2 {
		return content
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}
