// Package chat defines the request types shared by the HTTP surface, the
// orchestrator and the provider adapters: the user message, its optional
// editing context and the direct tool-call bypass.
package chat

import (
	"fmt"
	"sort"
	"strings"
)

// Model identifiers accepted by the chat endpoint. Each maps to exactly one
// configured provider adapter.
const (
	ModelGPT4o    = "gpt-4o"
	ModelClaude   = "claude-3.5-sonnet"
	ModelLocalOSS = "gpt-oss"
)

// MaxMessageLength caps the user message size accepted by the chat endpoint.
const MaxMessageLength = 10000

type (
	// Request is one chat invocation. When ToolCall is set the model turn is
	// skipped entirely and the named tool is dispatched directly.
	Request struct {
		Message  string    `json:"message"`
		Model    string    `json:"model"`
		Context  *Context  `json:"context,omitempty"`
		ToolCall *ToolCall `json:"tool_call,omitempty"`
	}

	// Context carries the editor state accompanying a chat request. All fields
	// are optional. WorkingDirectory is merged into tool parameters by the
	// dispatcher so filesystem tools can resolve relative paths.
	Context struct {
		FilePath         string            `json:"file_path,omitempty"`
		CodeContent      string            `json:"code_content,omitempty"`
		ProjectStructure string            `json:"project_structure,omitempty"`
		ReferencedFiles  map[string]string `json:"referenced_files,omitempty"`
		WorkingDirectory string            `json:"working_directory,omitempty"`
	}

	// ToolCall names a registry tool and its raw parameters for the direct
	// bypass path.
	ToolCall struct {
		ToolName   string         `json:"tool_name"`
		Parameters map[string]any `json:"parameters"`
	}
)

// Validate checks the request invariants enforced before any streaming
// starts. Model mapping is the orchestrator's concern and is not checked here.
func (r *Request) Validate() error {
	if r.ToolCall != nil {
		if r.ToolCall.ToolName == "" {
			return fmt.Errorf("tool_call.tool_name is required")
		}
		return nil
	}
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("message is required")
	}
	if len(r.Message) > MaxMessageLength {
		return fmt.Errorf("message exceeds %d characters", MaxMessageLength)
	}
	if r.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}

// Sections renders the context as ordered text blocks. This is the single
// source of truth for turning editor context into prompt text: adapters join
// the sections into a context message, and the local provider's plain-text
// fallback flattens them into one prompt string.
func (c *Context) Sections() []string {
	if c == nil {
		return nil
	}
	var parts []string
	if c.FilePath != "" {
		parts = append(parts, fmt.Sprintf("File: %s", c.FilePath))
	}
	if c.CodeContent != "" {
		parts = append(parts, fmt.Sprintf("Code:\n```\n%s\n```", c.CodeContent))
	}
	if c.ProjectStructure != "" {
		parts = append(parts, fmt.Sprintf("Project structure:\n%s", c.ProjectStructure))
	}
	if c.WorkingDirectory != "" {
		parts = append(parts, fmt.Sprintf("Working directory: %s", c.WorkingDirectory))
	}
	if len(c.ReferencedFiles) > 0 {
		parts = append(parts, "Referenced files:")
		paths := make([]string, 0, len(c.ReferencedFiles))
		for path := range c.ReferencedFiles {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			parts = append(parts, fmt.Sprintf("@%s:\n```\n%s\n```", path, c.ReferencedFiles[path]))
		}
	}
	return parts
}

// ContextMessage joins the context sections into the single pseudo-user
// message adapters prepend to the conversation. Returns "" when there is no
// context to convey.
func (c *Context) ContextMessage() string {
	sections := c.Sections()
	if len(sections) == 0 {
		return ""
	}
	return "Current context:\n" + strings.Join(sections, "\n")
}

// FlattenPrompt renders the system preamble, context and user message as one
// plain prompt string for upstream endpoints without chat semantics.
func FlattenPrompt(system string, c *Context, message string) string {
	parts := []string{system}
	parts = append(parts, c.Sections()...)
	parts = append(parts, fmt.Sprintf("User request: %s", message))
	return strings.Join(parts, "\n\n")
}
