// Package filemod implements the AI assisted file modification tools:
// modify_file_with_diff produces a proposed rewrite plus a structured diff
// for client side approval, and smart_code_action routes a natural language
// request to the most suitable improvement strategy.
package filemod

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"veltris.dev/codex/tools/codediff"
	"veltris.dev/codex/tools/fsops"
)

// ErrNoProvider is returned when no text generator is available.
var ErrNoProvider = errors.New("no AI provider available for file modification")

// TextGenerator produces modified code from a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type (
	// ModificationResult is the modify_file_with_diff tool payload. The file
	// itself is not touched; the client applies the change after approval.
	ModificationResult struct {
		FilePath            string          `json:"file_path"`
		OriginalContent     string          `json:"original_content"`
		ModifiedContent     string          `json:"modified_content"`
		Diff                codediff.Result `json:"diff"`
		ModificationSummary string          `json:"modification_summary"`
	}

	// Modifier proposes file rewrites through a text generator.
	Modifier struct {
		provider TextGenerator
	}
)

// NewModifier returns a modifier backed by provider, which may be nil.
func NewModifier(provider TextGenerator) *Modifier {
	return &Modifier{provider: provider}
}

// ModifyWithDiff rewrites a file's content per request and returns the
// proposal with a line diff. currentContent is read from the sandbox when
// empty.
func (m *Modifier) ModifyWithDiff(ctx context.Context, baseDir, filePath, request, currentContent string) (ModificationResult, error) {
	if currentContent == "" {
		content, err := fsops.ReadFile(baseDir, filePath)
		if err != nil {
			return ModificationResult{}, fmt.Errorf("could not read file %s: %w", filePath, err)
		}
		currentContent = content
	}
	if m.provider == nil {
		return ModificationResult{}, ErrNoProvider
	}

	modified, err := m.provider.GenerateText(ctx, modificationPrompt(request, currentContent))
	if err != nil {
		return ModificationResult{}, fmt.Errorf("AI modification failed: %w", err)
	}

	diff := codediff.Diff(currentContent, modified)
	return ModificationResult{
		FilePath:            filePath,
		OriginalContent:     currentContent,
		ModifiedContent:     modified,
		Diff:                diff,
		ModificationSummary: summarize(diff.Summary, request),
	}, nil
}

func modificationPrompt(request, content string) string {
	return fmt.Sprintf(`Please modify the following code according to this request: %s

Current code:
`+"```"+`
%s
`+"```"+`

Requirements:
- Make only the necessary changes requested
- Maintain the existing code structure and style
- Return ONLY the complete modified code
- Do not include explanations or markdown formatting
- Ensure the code remains functional and syntactically correct
`, request, content)
}

func summarize(s codediff.Summary, request string) string {
	var changes []string
	if s.LinesAdded > 0 {
		changes = append(changes, fmt.Sprintf("%d lines added", s.LinesAdded))
	}
	if s.LinesRemoved > 0 {
		changes = append(changes, fmt.Sprintf("%d lines removed", s.LinesRemoved))
	}
	if s.LinesChanged > 0 {
		changes = append(changes, fmt.Sprintf("%d lines modified", s.LinesChanged))
	}
	if len(changes) == 0 {
		return "No changes detected"
	}
	return fmt.Sprintf("Applied changes: %s. Summary: %s.", request, strings.Join(changes, ", "))
}

var languageByExt = map[string]string{
	".py": "python", ".js": "javascript", ".ts": "typescript",
	".tsx": "typescript", ".jsx": "javascript", ".java": "java",
	".cpp": "cpp", ".c": "c", ".go": "go", ".rs": "rust",
	".php": "php", ".rb": "ruby", ".cs": "csharp", ".kt": "kotlin",
	".swift": "swift", ".md": "markdown", ".html": "html",
	".css": "css", ".scss": "scss", ".json": "json",
	".yaml": "yaml", ".yml": "yaml", ".xml": "xml",
}

// FileLanguage maps a file extension to a language name, defaulting to
// "text".
func FileLanguage(filePath string) string {
	if lang, ok := languageByExt[strings.ToLower(filepath.Ext(filePath))]; ok {
		return lang
	}
	return "text"
}
