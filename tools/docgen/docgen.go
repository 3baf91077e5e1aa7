// Package docgen implements the documentation generation tools. Single
// documents are produced with one model call against a fixed section
// template; multi-document generation fans out concurrently and isolates
// per-document failures.
package docgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"veltris.dev/codex/tools/fsops"
)

// Supported documentation types.
const (
	TypeBRD     = "BRD"
	TypeSRD     = "SRD"
	TypeReadme  = "README"
	TypeAPIDocs = "API_DOCS"
)

// ErrNoProvider is returned when no text generator is available.
var ErrNoProvider = errors.New("no AI provider is configured")

// TextGenerator produces document content from a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type (
	template struct {
		title    string
		sections []string
	}

	// Document is the generate_documentation tool payload.
	Document struct {
		Content   string   `json:"content"`
		DocType   string   `json:"doc_type"`
		Sections  []string `json:"sections"`
		WordCount int      `json:"word_count"`
	}

	// WriteReport records the outcome of one document in a multi-doc run.
	WriteReport struct {
		DocType   string `json:"doc_type"`
		FilePath  string `json:"file_path"`
		Success   bool   `json:"success"`
		Message   string `json:"message"`
		WordCount int    `json:"word_count"`
	}

	// Generator renders documentation through a text generator.
	Generator struct {
		provider TextGenerator
		now      func() time.Time
	}
)

var templates = map[string]template{
	TypeBRD: {
		title: "Business Requirements Document",
		sections: []string{
			"Executive Summary",
			"Business Objectives",
			"Scope and Deliverables",
			"Functional Requirements",
			"Non-Functional Requirements",
			"Assumptions and Dependencies",
			"Success Criteria",
		},
	},
	TypeSRD: {
		title: "Software Requirements Document",
		sections: []string{
			"Introduction",
			"System Overview",
			"Functional Requirements",
			"Technical Requirements",
			"System Architecture",
			"Interface Requirements",
			"Data Requirements",
			"Security Requirements",
			"Performance Requirements",
		},
	},
	TypeReadme: {
		title: "README Documentation",
		sections: []string{
			"Project Title",
			"Description",
			"Installation",
			"Usage",
			"Features",
			"API Documentation",
			"Contributing",
			"License",
		},
	},
	TypeAPIDocs: {
		title: "API Documentation",
		sections: []string{
			"Overview",
			"Authentication",
			"Endpoints",
			"Request/Response Examples",
			"Error Codes",
			"Rate Limiting",
			"SDK Information",
		},
	},
}

// NewGenerator returns a generator backed by provider. provider may be nil;
// generation then fails with ErrNoProvider.
func NewGenerator(provider TextGenerator) *Generator {
	return &Generator{provider: provider, now: time.Now}
}

// Generate produces one document of docType for the given project context.
func (g *Generator) Generate(ctx context.Context, docType, projectContext, codeStructure string) (Document, error) {
	tmpl, ok := templates[docType]
	if !ok {
		return Document{}, fmt.Errorf("unsupported documentation type: %s", docType)
	}
	if g.provider == nil {
		return Document{}, ErrNoProvider
	}

	content, err := g.provider.GenerateText(ctx, documentPrompt(tmpl, projectContext, codeStructure))
	if err != nil {
		return Document{}, fmt.Errorf("failed to generate documentation: %w", err)
	}
	content += fmt.Sprintf("\n\n---\n*Generated on %s*\n", g.now().Format(time.RFC3339))

	return Document{
		Content:   content,
		DocType:   docType,
		Sections:  tmpl.sections,
		WordCount: len(strings.Fields(content)),
	}, nil
}

// GenerateMultiple renders every requested document concurrently and writes
// each under generated_docs/ in workingDir. A failing document is reported in
// its slot and does not affect the others.
func (g *Generator) GenerateMultiple(ctx context.Context, docTypes []string, projectContext, codeStructure, workingDir string) []WriteReport {
	reports := make([]WriteReport, len(docTypes))
	var wg sync.WaitGroup
	for i, docType := range docTypes {
		wg.Add(1)
		go func(i int, docType string) {
			defer wg.Done()
			reports[i] = g.generateAndWrite(ctx, docType, projectContext, codeStructure, workingDir)
		}(i, docType)
	}
	wg.Wait()
	return reports
}

func (g *Generator) generateAndWrite(ctx context.Context, docType, projectContext, codeStructure, workingDir string) WriteReport {
	filePath := fmt.Sprintf("generated_docs/%s.md", docType)
	report := WriteReport{DocType: docType, FilePath: filePath}

	doc, err := g.Generate(ctx, docType, projectContext, codeStructure)
	if err != nil {
		report.Message = fmt.Sprintf("Failed to generate %s: %v", docType, err)
		return report
	}
	if err := fsops.WriteFile(workingDir, filePath, doc.Content); err != nil {
		report.Message = fmt.Sprintf("Error: %v", err)
		return report
	}
	report.Success = true
	report.Message = fmt.Sprintf("File %s written successfully.", filePath)
	report.WordCount = doc.WordCount
	return report
}

func documentPrompt(tmpl template, projectContext, codeStructure string) string {
	var sections strings.Builder
	for _, s := range tmpl.sections {
		sections.WriteString("- ")
		sections.WriteString(s)
		sections.WriteString("\n")
	}
	structurePart := ""
	if codeStructure != "" {
		structurePart = fmt.Sprintf("\nCode Structure:\n```\n%s\n```", codeStructure)
	}
	return fmt.Sprintf(`Please generate a complete '%s' document.

**Project Context:**
%s
%s

**Instructions:**
1.  Generate content for all the following sections:
%s2.  Format the entire output as a single, well-structured Markdown document.
3.  Ensure the content is professional, detailed, and directly relevant to the project context.
4.  Start directly with the document title ('# %s').
`, tmpl.title, projectContext, structurePart, sections.String(), tmpl.title)
}

// Types returns the supported documentation type names.
func Types() []string {
	return []string{TypeBRD, TypeSRD, TypeReadme, TypeAPIDocs}
}
