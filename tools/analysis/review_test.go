package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	response string
	err      error
}

func (s *stubGenerator) GenerateText(context.Context, string) (string, error) {
	return s.response, s.err
}

func TestReviewCombinesAnalyzers(t *testing.T) {
	code := `// TODO clean up
el.innerHTML = prefix + input;
var x = 1;
`
	r := NewReviewer(nil)
	res := r.Review(context.Background(), "widget.js", code, "all")

	assert.Equal(t, "widget.js", res.FilePath)
	assert.Equal(t, "all", res.ReviewFocus)

	categories := make(map[string]bool)
	for _, issue := range res.Issues {
		categories[issue.Category] = true
	}
	assert.True(t, categories["security"], "security findings should be folded in")

	assert.GreaterOrEqual(t, res.OverallScore, 0.0)
	assert.LessOrEqual(t, res.OverallScore, 100.0)
	assert.NotEmpty(t, res.Recommendations)
	assert.Equal(t, fallbackInsights, res.AIInsights)
}

func TestReviewFocusFilter(t *testing.T) {
	code := `el.innerHTML = prefix + input;
// TODO tidy
`
	r := NewReviewer(nil)
	res := r.Review(context.Background(), "widget.js", code, "security")

	require.NotEmpty(t, res.Issues)
	for _, issue := range res.Issues {
		assert.Equal(t, "security", issue.Category)
	}
}

func TestReviewPriorityFixes(t *testing.T) {
	code := `password = "topsecret123"
el.innerHTML = a + b;
`
	r := NewReviewer(nil)
	res := r.Review(context.Background(), "auth.js", code, "all")

	require.NotEmpty(t, res.PriorityFixes)
	// Critical issues sort before high ones.
	assert.Equal(t, "critical", res.PriorityFixes[0].Severity)
	for _, fix := range res.PriorityFixes {
		assert.Contains(t, []string{"critical", "high"}, fix.Severity)
	}
}

func TestReviewInsightsParsed(t *testing.T) {
	r := NewReviewer(&stubGenerator{response: "- Use a connection pool\n- Cache parsed templates\nnoise line\n"})
	res := r.Review(context.Background(), "x.go", "package main\n", "all")

	assert.Equal(t, []string{"Use a connection pool", "Cache parsed templates"}, res.AIInsights)
}

func TestReviewInsightsFallbackOnError(t *testing.T) {
	r := NewReviewer(&stubGenerator{err: errors.New("upstream down")})
	res := r.Review(context.Background(), "x.go", "package main\n", "all")

	assert.Equal(t, fallbackInsights, res.AIInsights)
}

func TestReviewDefaultsFocus(t *testing.T) {
	r := NewReviewer(nil)
	res := r.Review(context.Background(), "x.go", "package main\n", "")
	assert.Equal(t, "all", res.ReviewFocus)
}

func TestReviewMetricsShape(t *testing.T) {
	r := NewReviewer(nil)
	res := r.Review(context.Background(), "x.py", "def f():\n    return 1\n", "all")

	cq, ok := res.Metrics["code_quality"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, cq["lines_of_code"])

	sec, ok := res.Metrics["security"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0, sec["vulnerabilities_found"])
}
