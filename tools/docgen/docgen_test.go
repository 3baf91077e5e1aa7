package docgen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	mu      sync.Mutex
	content string
	err     error
	prompts []string
}

func (s *stubProvider) GenerateText(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	return s.content, s.err
}

func TestGenerateUnsupportedType(t *testing.T) {
	g := NewGenerator(&stubProvider{content: "doc"})
	_, err := g.Generate(context.Background(), "WIKI", "ctx", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported documentation type")
}

func TestGenerateNoProvider(t *testing.T) {
	g := NewGenerator(nil)
	_, err := g.Generate(context.Background(), TypeReadme, "ctx", "")
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestGenerateDocument(t *testing.T) {
	p := &stubProvider{content: "# README Documentation\n\nA project."}
	g := NewGenerator(p)

	doc, err := g.Generate(context.Background(), TypeReadme, "a CLI tool", "cmd/\n  main.go")
	require.NoError(t, err)

	assert.Equal(t, TypeReadme, doc.DocType)
	assert.Contains(t, doc.Content, "# README Documentation")
	assert.Contains(t, doc.Content, "*Generated on ")
	assert.Equal(t, templates[TypeReadme].sections, doc.Sections)
	assert.Greater(t, doc.WordCount, 0)

	require.Len(t, p.prompts, 1)
	assert.Contains(t, p.prompts[0], "a CLI tool")
	assert.Contains(t, p.prompts[0], "Code Structure:")
	assert.Contains(t, p.prompts[0], "- Installation")
}

func TestGenerateProviderError(t *testing.T) {
	g := NewGenerator(&stubProvider{err: errors.New("rate limited")})
	_, err := g.Generate(context.Background(), TypeBRD, "ctx", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate documentation")
}

func TestGenerateMultipleWritesFiles(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(&stubProvider{content: "generated body"})

	reports := g.GenerateMultiple(context.Background(), []string{TypeBRD, TypeSRD}, "ctx", "", dir)
	require.Len(t, reports, 2)

	for i, docType := range []string{TypeBRD, TypeSRD} {
		assert.True(t, reports[i].Success, reports[i].Message)
		assert.Equal(t, docType, reports[i].DocType)
		assert.Equal(t, "generated_docs/"+docType+".md", reports[i].FilePath)

		data, err := os.ReadFile(filepath.Join(dir, "generated_docs", docType+".md"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "generated body"))
	}
}

func TestGenerateMultiplePartialFailure(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(&stubProvider{content: "body"})

	reports := g.GenerateMultiple(context.Background(), []string{"BOGUS", TypeReadme}, "ctx", "", dir)
	require.Len(t, reports, 2)

	assert.False(t, reports[0].Success)
	assert.Contains(t, reports[0].Message, "Failed to generate BOGUS")
	assert.Equal(t, 0, reports[0].WordCount)

	assert.True(t, reports[1].Success, reports[1].Message)
}

func TestTypes(t *testing.T) {
	assert.Equal(t, []string{TypeBRD, TypeSRD, TypeReadme, TypeAPIDocs}, Types())
}
