package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findByCategory(issues []SecurityIssue, category string) []SecurityIssue {
	var out []SecurityIssue
	for _, i := range issues {
		if i.Category == category {
			out = append(out, i)
		}
	}
	return out
}

func TestAnalyzeSecurityCleanCode(t *testing.T) {
	res := AnalyzeSecurity("safe.go", "package main\n\nfunc main() {}\n")

	assert.Empty(t, res.Issues)
	assert.Equal(t, 100.0, res.SecurityScore)
	assert.Equal(t, 0, res.Summary["critical"])
}

func TestAnalyzeSecuritySQLInjection(t *testing.T) {
	code := `query := "SELECT * FROM users WHERE id = " + "'" + userID
db.query("x" + input)
`
	res := AnalyzeSecurity("db.go", code)

	found := findByCategory(res.Issues, "sql_injection")
	require.NotEmpty(t, found)
	assert.Equal(t, "critical", found[0].Severity)
	assert.Equal(t, "CWE-89", found[0].CWEID)
	assert.Less(t, res.SecurityScore, 100.0)
	assert.Contains(t, res.Recommendations, "Use parameterized queries and prepared statements for all database operations")
}

func TestAnalyzeSecurityHardcodedSecretRedacted(t *testing.T) {
	code := `password = "hunter2secret"`
	res := AnalyzeSecurity("settings.py", code)

	found := findByCategory(res.Issues, "hardcoded_secrets")
	require.Len(t, found, 1)
	assert.Equal(t, "[REDACTED - May contain sensitive data]", found[0].CodeSnippet)
	assert.NotContains(t, found[0].CodeSnippet, "hunter2secret")
}

func TestAnalyzeSecurityXSSLineNumber(t *testing.T) {
	code := "const a = 1;\nconst b = 2;\nel.innerHTML = prefix + userInput;\n"
	res := AnalyzeSecurity("view.js", code)

	found := findByCategory(res.Issues, "xss")
	require.Len(t, found, 1)
	assert.Equal(t, 3, found[0].LineNumber)
	assert.Contains(t, found[0].CodeSnippet, "innerHTML")
}

func TestAnalyzeSecurityTodoComment(t *testing.T) {
	code := "# TODO: fix auth token validation\nx = 1\n"
	res := AnalyzeSecurity("auth.py", code)

	found := findByCategory(res.Issues, "security_todo")
	require.Len(t, found, 1)
	assert.Equal(t, "low", found[0].Severity)
	assert.Equal(t, 1, found[0].LineNumber)
}

func TestAnalyzeSecuritySummaryCounts(t *testing.T) {
	code := "el.innerHTML = a + b;\npassword = \"supersecret123\"\n"
	res := AnalyzeSecurity("mixed.js", code)

	assert.Equal(t, 1, res.Summary["high"])
	assert.Equal(t, 1, res.Summary["critical"])
}

func TestAnalyzeSecurityLanguageRecommendations(t *testing.T) {
	res := AnalyzeSecurity("app.py", "eval(x + y)\n")
	assert.Contains(t, res.Recommendations, "Use virtual environments to manage dependencies")

	res = AnalyzeSecurity("app.ts", "eval(x + y)\n")
	assert.Contains(t, res.Recommendations, "Use Content Security Policy (CSP) headers")
}
