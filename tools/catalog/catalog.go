// Package catalog assembles the fixed tool registry exposed to the model.
// The set of tools and their parameter schemas is decided at startup and
// never changes afterwards.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"veltris.dev/codex/tools"
	"veltris.dev/codex/tools/analysis"
	"veltris.dev/codex/tools/codediff"
	"veltris.dev/codex/tools/codegen"
	"veltris.dev/codex/tools/docgen"
	"veltris.dev/codex/tools/filemod"
	"veltris.dev/codex/tools/fsops"
	"veltris.dev/codex/tools/refactor"
)

// TextGenerator produces completions for the tools that delegate writing
// to a model. A nil generator degrades those tools gracefully.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// New builds the registry with every tool wired to its implementation.
func New(provider TextGenerator) (*tools.Registry, error) {
	docs := docgen.NewGenerator(provider)
	code := codegen.NewGenerator(provider)
	modifier := filemod.NewModifier(provider)
	smart := filemod.NewSmartAction(provider)
	reviewer := analysis.NewReviewer(provider)

	b := tools.NewBuilder()
	for _, reg := range []struct {
		desc    tools.Descriptor
		handler tools.Handler
	}{
		{readFileDescriptor(), readFileHandler},
		{writeFileDescriptor(), writeFileHandler},
		{listDirectoryDescriptor(), listDirectoryHandler},
		{codeDiffDescriptor(), codeDiffHandler},
		{analyzeDescriptor(), analyzeHandler},
		{refactorDescriptor(), refactorHandler},
		{securityDescriptor(), securityHandler},
		{documentationDescriptor(), documentationHandler(docs)},
		{multiDocumentationDescriptor(), multiDocumentationHandler(docs)},
		{generateCodeDescriptor(), generateCodeHandler(code)},
		{modifyFileDescriptor(), modifyFileHandler(modifier)},
		{smartActionDescriptor(), smartActionHandler(smart)},
		{reviewDescriptor(), reviewHandler(reviewer)},
	} {
		if err := b.Register(reg.desc, reg.handler); err != nil {
			return nil, fmt.Errorf("register %s: %w", reg.desc.Name, err)
		}
	}
	return b.Build(), nil
}

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func workingDir(params map[string]any) string {
	return stringParam(params, tools.WorkingDirectoryKey)
}

// basePath resolves the sandbox root for file tools: an explicit base_path
// parameter wins over the injected working directory.
func basePath(params map[string]any) string {
	if base := stringParam(params, "base_path"); base != "" {
		return base
	}
	return workingDir(params)
}

func readFileDescriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "read_file",
		Description: "Reads the content of a specified file.",
		Parameters: tools.ObjectSchema(map[string]any{
			"absolute_path": map[string]any{
				"type":        "string",
				"description": "The path to the file to read (relative to project root)",
			},
			"base_path": map[string]any{
				"type":        "string",
				"description": "Project root to resolve against (optional, defaults to the request working directory)",
			},
		}, "absolute_path"),
	}
}

func readFileHandler(ctx context.Context, params map[string]any) (any, error) {
	content, err := fsops.ReadFile(basePath(params), stringParam(params, "absolute_path"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"content": content}, nil
}

func writeFileDescriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "write_file",
		Description: "Writes content to a specified file.",
		Parameters: tools.ObjectSchema(map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "The path to the file to write (relative to project root)",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "The content to write to the file",
			},
			"base_path": map[string]any{
				"type":        "string",
				"description": "Project root to resolve against (optional, defaults to the request working directory)",
			},
		}, "file_path", "content"),
	}
}

func writeFileHandler(ctx context.Context, params map[string]any) (any, error) {
	filePath := stringParam(params, "file_path")
	if err := fsops.WriteFile(basePath(params), filePath, stringParam(params, "content")); err != nil {
		return nil, err
	}
	return map[string]any{
		"success": true,
		"message": fmt.Sprintf("File %s written successfully.", filePath),
	}, nil
}

func listDirectoryDescriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "list_directory",
		Description: "Lists the directory tree of a project folder, skipping ignored files.",
		Parameters: tools.ObjectSchema(map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Directory to list (defaults to the project root)",
			},
		}),
	}
}

func listDirectoryHandler(ctx context.Context, params map[string]any) (any, error) {
	path := stringParam(params, "path")
	if path == "" {
		path = "."
	}
	if wd := workingDir(params); wd != "" && !filepath.IsAbs(path) {
		path = filepath.Join(wd, path)
	}
	tree, err := fsops.ListDirectory(ctx, path)
	if err != nil {
		return nil, err
	}
	return map[string]any{"tree": tree}, nil
}

func codeDiffDescriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "generate_code_diff",
		Description: "Generate and display code differences",
		Parameters: tools.ObjectSchema(map[string]any{
			"old_code": map[string]any{
				"type":        "string",
				"description": "Original version of the code",
			},
			"new_code": map[string]any{
				"type":        "string",
				"description": "Updated version of the code",
			},
			"language": map[string]any{
				"type":        "string",
				"description": "Programming language (optional)",
			},
		}, "old_code", "new_code"),
	}
}

func codeDiffHandler(ctx context.Context, params map[string]any) (any, error) {
	return codediff.Diff(stringParam(params, "old_code"), stringParam(params, "new_code")), nil
}

func analyzeDescriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "analyze_code_structure",
		Description: "Analyze a file or project to detect patterns and structure",
		Parameters: tools.ObjectSchema(map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Relative file path",
			},
			"code_content": map[string]any{
				"type":        "string",
				"description": "Source code to analyze",
			},
		}, "file_path", "code_content"),
	}
}

func analyzeHandler(ctx context.Context, params map[string]any) (any, error) {
	return analysis.Analyze(stringParam(params, "file_path"), stringParam(params, "code_content")), nil
}

func refactorDescriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "refactor_code",
		Description: "Refactor code with a specific strategy",
		Parameters: tools.ObjectSchema(map[string]any{
			"original_code": map[string]any{
				"type":        "string",
				"description": "The source code to be refactored",
			},
			"refactor_type": map[string]any{
				"type":        "string",
				"enum":        []any{"optimize", "modernize", "add_types", "extract_components"},
				"description": "The type of refactoring to apply",
			},
		}, "original_code", "refactor_type"),
	}
}

func refactorHandler(ctx context.Context, params map[string]any) (any, error) {
	return refactor.Refactor(stringParam(params, "original_code"), stringParam(params, "refactor_type"))
}

func securityDescriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "security_analysis",
		Description: "Perform comprehensive security analysis to find vulnerabilities, weak cryptography, and security issues",
		Parameters: tools.ObjectSchema(map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path to the file to analyze for security issues",
			},
			"code_content": map[string]any{
				"type":        "string",
				"description": "Source code to analyze for security vulnerabilities",
			},
		}, "file_path", "code_content"),
	}
}

func securityHandler(ctx context.Context, params map[string]any) (any, error) {
	result := analysis.AnalyzeSecurity(stringParam(params, "file_path"), stringParam(params, "code_content"))
	return map[string]any{
		"success":         true,
		"issues":          result.Issues,
		"security_score":  result.SecurityScore,
		"summary":         result.Summary,
		"recommendations": result.Recommendations,
	}, nil
}

func documentationDescriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "generate_documentation",
		Description: "Generate technical documentation like BRD, SRD, or README",
		Parameters: tools.ObjectSchema(map[string]any{
			"doc_type": map[string]any{
				"type":        "string",
				"enum":        []any{"BRD", "SRD", "README", "API_DOCS"},
				"description": "Type of documentation to generate",
			},
			"project_context": map[string]any{
				"type":        "string",
				"description": "Project-level description, user goal, or business purpose",
			},
			"code_structure": map[string]any{
				"type":        "string",
				"description": "Description of file structure or key components (optional)",
			},
		}, "doc_type", "project_context"),
	}
}

func documentationHandler(docs *docgen.Generator) tools.Handler {
	return func(ctx context.Context, params map[string]any) (any, error) {
		return docs.Generate(ctx,
			stringParam(params, "doc_type"),
			stringParam(params, "project_context"),
			stringParam(params, "code_structure"))
	}
}

func multiDocumentationDescriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "generate_multiple_documentation",
		Description: "Generate multiple types of technical documentation (BRD, SRD, README, API_DOCS) in one request",
		Parameters: tools.ObjectSchema(map[string]any{
			"doc_types": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "string",
					"enum": []any{"BRD", "SRD", "README", "API_DOCS"},
				},
				"description": "List of documentation types to generate",
			},
			"project_context": map[string]any{
				"type":        "string",
				"description": "Project-level description, user goal, or business purpose",
			},
			"code_structure": map[string]any{
				"type":        "string",
				"description": "Description of file structure or key components (optional)",
			},
		}, "doc_types", "project_context"),
	}
}

func multiDocumentationHandler(docs *docgen.Generator) tools.Handler {
	return func(ctx context.Context, params map[string]any) (any, error) {
		var docTypes []string
		if err := decodeParam(params["doc_types"], &docTypes); err != nil {
			return nil, fmt.Errorf("invalid doc_types: %w", err)
		}
		reports := docs.GenerateMultiple(ctx, docTypes,
			stringParam(params, "project_context"),
			stringParam(params, "code_structure"),
			workingDir(params))
		return map[string]any{"results": reports}, nil
	}
}

func generateCodeDescriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "generate_code",
		Description: "Generates code for multiple files based on a list of prompts and saves them to specified file paths.",
		Parameters: tools.ObjectSchema(map[string]any{
			"items": map[string]any{
				"type":        "array",
				"description": "A list of code generation requests.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"prompt": map[string]any{
							"type":        "string",
							"description": "Natural language description of the code to generate for this item",
						},
						"file_path": map[string]any{
							"type":        "string",
							"description": "The specific file path (relative to project root) where this code should be saved",
						},
						"language": map[string]any{
							"type":        "string",
							"description": "Programming language for this code item (e.g., python, javascript, typescript)",
						},
					},
					"required": []any{"prompt", "file_path"},
				},
			},
		}, "items"),
	}
}

func generateCodeHandler(code *codegen.Generator) tools.Handler {
	return func(ctx context.Context, params map[string]any) (any, error) {
		var items []codegen.Item
		if err := decodeParam(params["items"], &items); err != nil {
			return nil, fmt.Errorf("invalid items: %w", err)
		}
		reports := code.Generate(ctx, items, workingDir(params))
		return map[string]any{"results": reports}, nil
	}
}

func modifyFileDescriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "modify_file_with_diff",
		Description: "Modify an existing file with AI assistance and generate a diff for user approval. Use this when the user wants to make changes to a specific file.",
		Parameters: tools.ObjectSchema(map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path to the file to modify (relative to project root)",
			},
			"modification_request": map[string]any{
				"type":        "string",
				"description": "Description of the changes to make to the file",
			},
			"current_content": map[string]any{
				"type":        "string",
				"description": "Current file content (optional, will be auto-fetched if not provided)",
			},
		}, "file_path", "modification_request"),
	}
}

func modifyFileHandler(modifier *filemod.Modifier) tools.Handler {
	return func(ctx context.Context, params map[string]any) (any, error) {
		return modifier.ModifyWithDiff(ctx,
			workingDir(params),
			stringParam(params, "file_path"),
			stringParam(params, "modification_request"),
			stringParam(params, "current_content"))
	}
}

func smartActionDescriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "smart_code_action",
		Description: "Perform intelligent code improvements based on natural language requests. Can optimize code, add type hints, modernize syntax, add error handling, etc.",
		Parameters: tools.ObjectSchema(map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path to the file to improve",
			},
			"action_request": map[string]any{
				"type":        "string",
				"description": "Natural language description of the improvement to make (e.g., 'optimize for performance', 'add type hints', 'add error handling')",
			},
			"file_content": map[string]any{
				"type":        "string",
				"description": "Current file content (optional, will be auto-fetched if not provided)",
			},
		}, "file_path", "action_request"),
	}
}

func smartActionHandler(smart *filemod.SmartAction) tools.Handler {
	return func(ctx context.Context, params map[string]any) (any, error) {
		return smart.Perform(ctx,
			workingDir(params),
			stringParam(params, "file_path"),
			stringParam(params, "action_request"),
			stringParam(params, "file_content"))
	}
}

func reviewDescriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "comprehensive_code_review",
		Description: "Perform a comprehensive code review combining security analysis, code quality metrics, and AI insights",
		Parameters: tools.ObjectSchema(map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path to the file to review",
			},
			"file_content": map[string]any{
				"type":        "string",
				"description": "Source code content (optional, will be auto-fetched if not provided)",
			},
			"review_focus": map[string]any{
				"type":        "string",
				"enum":        []any{"all", "security", "performance", "maintainability", "style"},
				"description": "Focus area for the review (default: all)",
			},
		}, "file_path"),
	}
}

func reviewHandler(reviewer *analysis.Reviewer) tools.Handler {
	return func(ctx context.Context, params map[string]any) (any, error) {
		filePath := stringParam(params, "file_path")
		content := stringParam(params, "file_content")
		if content == "" {
			read, err := fsops.ReadFile(workingDir(params), filePath)
			if err != nil {
				return nil, fmt.Errorf("could not read file %s: %w", filePath, err)
			}
			content = read
		}
		return reviewer.Review(ctx, filePath, content, stringParam(params, "review_focus")), nil
	}
}

// decodeParam converts a loosely typed JSON value into a concrete type via
// a marshal round trip.
func decodeParam(value any, out any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
