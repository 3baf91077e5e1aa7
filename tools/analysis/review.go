package analysis

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"goa.design/clue/log"
)

// InsightGenerator produces freeform review insights from a prompt. Model
// providers satisfy it; the reviewer degrades to canned insights when the
// generator is nil or fails.
type InsightGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type (
	// ReviewIssue is one finding of a comprehensive review.
	ReviewIssue struct {
		Severity    string `json:"severity"`
		Category    string `json:"category"`
		Title       string `json:"title"`
		Description string `json:"description"`
		LineNumber  int    `json:"line_number"`
		CodeSnippet string `json:"code_snippet"`
		Suggestion  string `json:"suggestion"`
		Impact      string `json:"impact"`
		Effort      string `json:"effort"`
	}

	// ReviewResult is the comprehensive_code_review tool payload.
	ReviewResult struct {
		FilePath        string         `json:"file_path"`
		ReviewFocus     string         `json:"review_focus"`
		OverallScore    float64        `json:"overall_score"`
		Issues          []ReviewIssue  `json:"issues"`
		Summary         map[string]int `json:"summary"`
		Strengths       []string       `json:"strengths"`
		PriorityFixes   []ReviewIssue  `json:"priority_fixes"`
		Recommendations []string       `json:"recommendations"`
		Metrics         map[string]any `json:"metrics"`
		AIInsights      []string       `json:"ai_insights"`
	}

	// Reviewer runs the combined review pipeline.
	Reviewer struct {
		insights InsightGenerator
	}
)

// NewReviewer returns a reviewer. generator may be nil, in which case only
// fallback insights are produced.
func NewReviewer(generator InsightGenerator) *Reviewer {
	return &Reviewer{insights: generator}
}

var fallbackInsights = []string{
	"Consider adding more comprehensive error handling",
	"Look for opportunities to extract reusable functions",
	"Ensure all edge cases are handled properly",
	"Consider adding unit tests for critical functions",
}

// Review combines structural analysis, security scanning and model insights
// into one scored report. focus narrows the issue list to a single category;
// "all" or empty keeps everything.
func (r *Reviewer) Review(ctx context.Context, filePath, content, focus string) ReviewResult {
	if focus == "" {
		focus = "all"
	}
	codeResult := Analyze(filePath, content)
	secResult := AnalyzeSecurity(filePath, content)

	issues := suggestionIssues(codeResult.Suggestions)
	issues = append(issues, securityReviewIssues(secResult.Issues)...)
	issues = append(issues, performanceIssues(content)...)
	issues = append(issues, maintainabilityIssues(content)...)

	if focus != "all" {
		filtered := issues[:0]
		for _, issue := range issues {
			if issue.Category == focus {
				filtered = append(filtered, issue)
			}
		}
		issues = filtered
	}
	if issues == nil {
		issues = []ReviewIssue{}
	}

	summary := map[string]int{"critical": 0, "high": 0, "medium": 0, "low": 0, "info": 0}
	for _, issue := range issues {
		summary[issue.Severity]++
	}

	priority := make([]ReviewIssue, 0)
	for _, issue := range issues {
		if issue.Severity == "critical" || issue.Severity == "high" {
			priority = append(priority, issue)
		}
	}
	sort.SliceStable(priority, func(i, j int) bool {
		rank := map[string]int{"critical": 0, "high": 1}
		return rank[priority[i].Severity] < rank[priority[j].Severity]
	})

	return ReviewResult{
		FilePath:        filePath,
		ReviewFocus:     focus,
		OverallScore:    overallScore(codeResult, secResult, issues),
		Issues:          issues,
		Summary:         summary,
		Strengths:       strengths(codeResult, secResult, content),
		PriorityFixes:   priority,
		Recommendations: reviewRecommendations(codeResult, secResult, issues),
		Metrics: map[string]any{
			"code_quality": map[string]any{
				"lines_of_code":         codeResult.Metrics.LinesOfCode,
				"complexity":            codeResult.Metrics.Complexity,
				"maintainability_score": codeResult.Metrics.MaintainabilityScore,
			},
			"security": map[string]any{
				"security_score":        secResult.SecurityScore,
				"vulnerabilities_found": len(secResult.Issues),
			},
			"structure": map[string]any{
				"functions": len(codeResult.Structure.Functions),
				"classes":   len(codeResult.Structure.Classes),
				"imports":   len(codeResult.Structure.Imports),
			},
		},
		AIInsights: r.generateInsights(ctx, filePath, content, codeResult),
	}
}

func (r *Reviewer) generateInsights(ctx context.Context, filePath, content string, res Result) []string {
	if r.insights == nil {
		return fallbackInsights
	}
	response, err := r.insights.GenerateText(ctx, insightPrompt(filePath, content, res))
	if err != nil {
		log.Debugf(ctx, "review insights unavailable: %v", err)
		return fallbackInsights
	}
	var insights []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "- ") && len(line) > 5 {
			insights = append(insights, strings.TrimPrefix(line, "- "))
		}
		if len(insights) == 10 {
			break
		}
	}
	if len(insights) == 0 {
		return fallbackInsights
	}
	return insights
}

func insightPrompt(filePath, content string, res Result) string {
	snippet := content
	if len(snippet) > 3000 {
		snippet = snippet[:3000] + "..."
	}
	return fmt.Sprintf(`You are a senior code reviewer. Analyze this code and provide specific, actionable insights.

FILE: %s
METRICS:
- Lines of Code: %d
- Complexity: %d
- Maintainability: %.1f/100

STRUCTURE:
- Functions: %s
- Classes: %s
- Patterns: %s

CODE:
`+"```"+`
%s
`+"```"+`

Provide 3-5 specific, actionable insights about code quality, potential bugs,
performance and maintainability. Format as a simple list of insights, each on
a new line starting with "- ".`,
		filePath,
		res.Metrics.LinesOfCode,
		res.Metrics.Complexity,
		res.Metrics.MaintainabilityScore,
		strings.Join(res.Structure.Functions, ", "),
		strings.Join(res.Structure.Classes, ", "),
		strings.Join(res.Patterns, ", "),
		snippet,
	)
}

func suggestionIssues(suggestions []string) []ReviewIssue {
	issues := make([]ReviewIssue, 0, len(suggestions))
	for _, s := range suggestions {
		title := s
		if len(title) > 100 {
			title = title[:100] + "..."
		}
		issues = append(issues, ReviewIssue{
			Severity:    suggestionSeverity(s),
			Category:    suggestionCategory(s),
			Title:       title,
			Description: s,
			Suggestion:  fixSuggestion(s),
			Impact:      suggestionImpact(s),
			Effort:      suggestionEffort(s),
		})
	}
	return issues
}

func securityReviewIssues(secIssues []SecurityIssue) []ReviewIssue {
	issues := make([]ReviewIssue, 0, len(secIssues))
	for _, si := range secIssues {
		effort := "low"
		switch si.Severity {
		case "critical":
			effort = "high"
		case "high":
			effort = "medium"
		}
		issues = append(issues, ReviewIssue{
			Severity:    si.Severity,
			Category:    "security",
			Title:       si.Description,
			Description: fmt.Sprintf("%s (%s)", si.Description, si.Category),
			LineNumber:  si.LineNumber,
			CodeSnippet: si.CodeSnippet,
			Suggestion:  si.Recommendation,
			Impact:      "Security vulnerability: " + si.Category,
			Effort:      effort,
		})
	}
	return issues
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func suggestionSeverity(s string) string {
	s = strings.ToLower(s)
	switch {
	case containsAny(s, "critical", "security", "vulnerability", "unsafe"):
		return "critical"
	case containsAny(s, "error", "exception", "bug", "fail"):
		return "high"
	case containsAny(s, "performance", "slow", "optimize"):
		return "medium"
	case containsAny(s, "style", "format", "comment", "doc"):
		return "low"
	}
	return "medium"
}

func suggestionCategory(s string) string {
	s = strings.ToLower(s)
	switch {
	case containsAny(s, "security", "vulnerability", "unsafe"):
		return "security"
	case containsAny(s, "performance", "slow", "optimize", "memory"):
		return "performance"
	case containsAny(s, "style", "format", "convention"):
		return "style"
	case containsAny(s, "bug", "error", "exception"):
		return "bug_risk"
	}
	return "maintainability"
}

func fixSuggestion(s string) string {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "docstring"):
		return "Add descriptive documentation following standard conventions"
	case strings.Contains(s, "long") && strings.Contains(s, "function"):
		return "Break down large functions into smaller, focused functions with clear responsibilities"
	case strings.Contains(s, "type"):
		return "Add type annotations to improve code clarity"
	case strings.Contains(s, "error"):
		return "Add proper error handling with meaningful messages"
	case strings.Contains(s, "todo"):
		return "Address TODO/FIXME comments or remove them if no longer relevant"
	}
	return "Review and implement the suggested improvement"
}

func suggestionImpact(s string) string {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "security"):
		return "Potential security vulnerabilities and data exposure"
	case strings.Contains(s, "performance"):
		return "Reduced application performance and user experience"
	case strings.Contains(s, "maintain"):
		return "Increased development time and harder bug fixes"
	case strings.Contains(s, "error"):
		return "Potential runtime failures and poor error handling"
	}
	return "Reduced code quality and team productivity"
}

func suggestionEffort(s string) string {
	s = strings.ToLower(s)
	switch {
	case containsAny(s, "refactor", "break", "extract", "restructure"):
		return "high"
	case containsAny(s, "add", "include", "implement"):
		return "medium"
	case containsAny(s, "remove", "fix", "address", "format"):
		return "low"
	}
	return "medium"
}

var (
	nestedLoopPattern = regexp.MustCompile(`(?m)for\s+.*[:{]\s*\n.*for\s+.*[:{]`)
	stringConcatLoop  = regexp.MustCompile(`(?mi)for\s+.*[:{].*\+=.*str`)
	magicNumbers      = regexp.MustCompile(`\b\d{2,}\b`)
)

func performanceIssues(content string) []ReviewIssue {
	var issues []ReviewIssue
	if n := len(nestedLoopPattern.FindAllString(content, -1)); n > 0 {
		issues = append(issues, ReviewIssue{
			Severity:    "medium",
			Category:    "performance",
			Title:       "Nested loops detected",
			Description: fmt.Sprintf("Found %d nested loop(s) which may cause quadratic complexity", n),
			Suggestion:  "Consider optimizing nested loops or using more efficient algorithms",
			Impact:      "Slow performance with large datasets",
			Effort:      "medium",
		})
	}
	if stringConcatLoop.MatchString(content) {
		issues = append(issues, ReviewIssue{
			Severity:    "medium",
			Category:    "performance",
			Title:       "String concatenation in loop",
			Description: "String concatenation in loops is inefficient",
			Suggestion:  "Accumulate parts and join once for better performance",
			Impact:      "Poor performance with large iterations",
			Effort:      "low",
		})
	}
	return issues
}

func maintainabilityIssues(content string) []ReviewIssue {
	var issues []ReviewIssue
	if n := len(magicNumbers.FindAllString(content, -1)); n > 3 {
		issues = append(issues, ReviewIssue{
			Severity:    "low",
			Category:    "maintainability",
			Title:       "Magic numbers detected",
			Description: fmt.Sprintf("Found %d magic numbers that should be constants", n),
			Suggestion:  "Replace magic numbers with named constants",
			Impact:      "Harder to understand and maintain code",
			Effort:      "low",
		})
	}
	maxIndent := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent > maxIndent {
			maxIndent = indent
		}
	}
	if maxIndent > 16 {
		issues = append(issues, ReviewIssue{
			Severity:    "medium",
			Category:    "maintainability",
			Title:       "Deep nesting detected",
			Description: fmt.Sprintf("Maximum indentation level is %d which indicates deep nesting", maxIndent/4),
			Suggestion:  "Reduce nesting by extracting functions or using guard clauses",
			Impact:      "Code is harder to read and understand",
			Effort:      "medium",
		})
	}
	return issues
}

func overallScore(code Result, sec SecurityResult, issues []ReviewIssue) float64 {
	score := (code.Metrics.MaintainabilityScore + sec.SecurityScore) / 2
	for _, issue := range issues {
		switch issue.Severity {
		case "critical":
			score -= 10
		case "high":
			score -= 5
		case "medium":
			score -= 2
		}
	}
	return clampScore(score)
}

func strengths(code Result, sec SecurityResult, content string) []string {
	var out []string
	if code.Metrics.MaintainabilityScore > 80 {
		out = append(out, "High maintainability score - well-structured code")
	}
	if code.Metrics.Complexity < 10 {
		out = append(out, "Low cyclomatic complexity - easy to understand and test")
	}
	if len(code.Structure.Functions) > 0 {
		out = append(out, "Good function decomposition - modular design")
	}
	switch {
	case sec.SecurityScore > 90:
		out = append(out, "Excellent security score - follows security best practices")
	case sec.SecurityScore > 70:
		out = append(out, "Good security practices implemented")
	}
	for _, p := range code.Patterns {
		switch p {
		case "Async/Await Pattern":
			out = append(out, "Uses modern async/await patterns")
		case "Object-Oriented Programming":
			out = append(out, "Good use of object-oriented design principles")
		}
	}
	lower := strings.ToLower(content)
	if strings.Contains(lower, "try") && (strings.Contains(lower, "except") || strings.Contains(lower, "catch")) {
		out = append(out, "Implements proper error handling")
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func reviewRecommendations(code Result, sec SecurityResult, issues []ReviewIssue) []string {
	var out []string

	critical, high := 0, 0
	categories := make(map[string]bool)
	for _, issue := range issues {
		categories[issue.Category] = true
		switch issue.Severity {
		case "critical":
			critical++
		case "high":
			high++
		}
	}
	if critical > 0 {
		out = append(out, fmt.Sprintf("Address %d critical issue(s) immediately", critical))
	}
	if high > 0 {
		out = append(out, fmt.Sprintf("Fix %d high-priority issue(s) in next iteration", high))
	}
	if categories["security"] {
		limit := 3
		if len(sec.Recommendations) < limit {
			limit = len(sec.Recommendations)
		}
		out = append(out, sec.Recommendations[:limit]...)
	}
	if categories["performance"] {
		out = append(out, "Profile code performance and optimize bottlenecks")
	}
	if categories["maintainability"] {
		out = append(out, "Refactor complex functions to improve maintainability")
	}
	if code.Metrics.LinesOfCode > 200 {
		out = append(out, "Consider splitting large files into smaller modules")
	}
	out = append(out,
		"Add comprehensive unit tests for critical functions",
		"Ensure all public APIs have proper documentation",
	)
	return out
}
