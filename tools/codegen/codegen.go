// Package codegen implements the generate_code tool: plain text generation
// per requested file, written into the working directory sandbox.
package codegen

import (
	"context"
	"fmt"

	"veltris.dev/codex/tools/fsops"
)

// TextGenerator produces source code from a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type (
	// Item is one file to generate.
	Item struct {
		Prompt   string `json:"prompt"`
		FilePath string `json:"file_path"`
		Language string `json:"language,omitempty"`
	}

	// Report records the outcome for one item.
	Report struct {
		FilePath string `json:"file_path"`
		Success  bool   `json:"success"`
		Message  string `json:"message"`
		Code     string `json:"code,omitempty"`
	}

	// Generator renders code through a text generator.
	Generator struct {
		provider TextGenerator
	}
)

// NewGenerator returns a generator backed by provider, which may be nil.
func NewGenerator(provider TextGenerator) *Generator {
	return &Generator{provider: provider}
}

// Generate processes items sequentially. Items keep generating after earlier
// failures; each report carries its own outcome.
func (g *Generator) Generate(ctx context.Context, items []Item, workingDir string) []Report {
	reports := make([]Report, 0, len(items))
	for _, item := range items {
		reports = append(reports, g.generateOne(ctx, item, workingDir))
	}
	return reports
}

func (g *Generator) generateOne(ctx context.Context, item Item, workingDir string) Report {
	report := Report{FilePath: item.FilePath}
	if g.provider == nil {
		report.Message = "No AI provider configured or available for code generation."
		return report
	}

	code, err := g.provider.GenerateText(ctx, codePrompt(item))
	if err != nil {
		report.Message = fmt.Sprintf("AI code generation failed: %v", err)
		return report
	}

	if err := fsops.WriteFile(workingDir, item.FilePath, code); err != nil {
		report.Message = fmt.Sprintf("Error: %v", err)
		report.Code = code // preserve the generated code when the write fails
		return report
	}
	report.Success = true
	report.Message = fmt.Sprintf("File %s written successfully.", item.FilePath)
	return report
}

func codePrompt(item Item) string {
	return fmt.Sprintf(`Generate a complete and runnable %s script for the following prompt: %s

CRITICAL REQUIREMENTS:
- The script should be fully executable.
- The script MUST print its result to the console.
- Do NOT include any markdown formatting, explanations, or comments.
`, item.Language, item.Prompt)
}
