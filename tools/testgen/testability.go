package testgen

import (
	"fmt"
	"regexp"
	"strings"
)

// TestabilityAnalysis scores how easy a file is to test and points at the
// functions that stand in the way.
type TestabilityAnalysis struct {
	FilePath          string   `json:"file_path"`
	TestabilityScore  float64  `json:"testability_score"`
	TestableFunctions []string `json:"testable_functions"`
	ComplexFunctions  []string `json:"complex_functions"`
	Dependencies      []string `json:"dependencies"`
	ExistingTests     []string `json:"existing_tests"`
	CoverageGaps      []string `json:"coverage_gaps"`
	Recommendations   []string `json:"recommendations"`
}

// CoverageAnalysis reports which testable functions have no matching tests.
type CoverageAnalysis struct {
	FilePath           string         `json:"file_path"`
	CurrentCoverage    float64        `json:"current_coverage"`
	UncoveredLines     []int          `json:"uncovered_lines"`
	UncoveredFunctions []string       `json:"uncovered_functions"`
	SuggestedTests     []string       `json:"suggested_tests"`
	CoverageReport     map[string]any `json:"coverage_report"`
}

// AnalyzeTestability inspects the code and scores it from 0 to 10.
func AnalyzeTestability(params Params) TestabilityAnalysis {
	language := detectLanguage(params.FilePath)
	if language == "python" {
		return analyzePythonTestability(params.CodeContent, params.FilePath)
	}
	return analyzeGenericTestability(params.CodeContent, params.FilePath)
}

var pyComplexityKeywords = []string{"if ", "elif ", "while ", "for ", "except"}

func analyzePythonTestability(code, filePath string) TestabilityAnalysis {
	structure := extractPythonStructure(code)

	var functions, complexFns, deps []string
	for _, fn := range structure.Functions {
		functions = append(functions, fn.Name)
		if pythonFunctionComplexity(code, fn.Name) > 10 {
			complexFns = append(complexFns, fn.Name)
		}
	}
	deps = append(deps, structure.Imports...)

	score := testabilityScore(len(functions), len(complexFns), len(deps))

	var recs []string
	if len(complexFns) > 0 {
		recs = append(recs, fmt.Sprintf("Simplify complex functions: %s", strings.Join(complexFns, ", ")))
	}
	if len(deps) > 10 {
		recs = append(recs, "Consider reducing external dependencies for better testability")
	}
	if !anyContains(functions, "test") {
		recs = append(recs, "No existing test functions found - start with basic unit tests")
	}

	var testable []string
	for _, f := range functions {
		if !strings.HasPrefix(f, "_") {
			testable = append(testable, f)
		}
	}

	return TestabilityAnalysis{
		FilePath:          filePath,
		TestabilityScore:  score,
		TestableFunctions: testable,
		ComplexFunctions:  complexFns,
		Dependencies:      deps,
		ExistingTests:     existingTests(functions),
		CoverageGaps:      functions,
		Recommendations:   recs,
	}
}

var genericTestabilityFn = regexp.MustCompile(`(?i)(?:function\s+(\w+)|const\s+(\w+)\s*=|(\w+)\s*:\s*\()`)
var genericImportFrom = regexp.MustCompile(`(?i)import\s+.*?from\s+['"]([^'"]+)['"]`)

func analyzeGenericTestability(code, filePath string) TestabilityAnalysis {
	var functions []string
	seen := map[string]bool{}
	for _, m := range genericTestabilityFn.FindAllStringSubmatch(code, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if name == "" {
			name = m[3]
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		functions = append(functions, name)
	}

	var complexFns []string
	for _, fn := range functions {
		body := extractFunctionCode(code, fn)
		if body != "" && len(strings.Split(body, "\n")) > 20 {
			complexFns = append(complexFns, fn)
		}
	}

	var deps []string
	for _, m := range genericImportFrom.FindAllStringSubmatch(code, -1) {
		deps = append(deps, m[1])
	}

	return TestabilityAnalysis{
		FilePath:          filePath,
		TestabilityScore:  testabilityScore(len(functions), len(complexFns), len(deps)),
		TestableFunctions: functions,
		ComplexFunctions:  complexFns,
		Dependencies:      deps,
		ExistingTests:     existingTests(functions),
		CoverageGaps:      functions,
		Recommendations:   testabilityRecommendations(functions, complexFns, deps),
	}
}

// AnalyzeCoverage compares testable functions against existing tests and
// suggests where to start.
func AnalyzeCoverage(params Params) CoverageAnalysis {
	testability := AnalyzeTestability(params)

	total := len(testability.TestableFunctions)
	covered := len(testability.ExistingTests)
	coverage := 0.0
	if total > 0 {
		coverage = float64(covered) / float64(total) * 100
	}

	var uncovered []string
	for _, fn := range testability.TestableFunctions {
		if !contains(testability.ExistingTests, fn) {
			uncovered = append(uncovered, fn)
		}
	}

	var suggested []string
	for i, fn := range uncovered {
		if i == 5 {
			break
		}
		suggested = append(suggested, fmt.Sprintf("Add unit tests for %s() function", fn))
	}

	complexUncovered := 0
	for _, fn := range testability.ComplexFunctions {
		if !contains(testability.ExistingTests, fn) {
			complexUncovered++
		}
	}

	return CoverageAnalysis{
		FilePath:           params.FilePath,
		CurrentCoverage:    coverage,
		UncoveredLines:     []int{},
		UncoveredFunctions: uncovered,
		SuggestedTests:     suggested,
		CoverageReport: map[string]any{
			"total_functions":             total,
			"covered_functions":           covered,
			"coverage_percentage":         coverage,
			"complex_functions_uncovered": complexUncovered,
		},
	}
}

// SupportedFrameworks lists the test frameworks known per language.
func SupportedFrameworks() map[string][]string {
	return map[string][]string{
		"python":     {"pytest", "unittest", "nose2"},
		"javascript": {"jest", "mocha", "jasmine"},
		"typescript": {"jest", "vitest", "mocha"},
		"java":       {"junit", "testng"},
		"csharp":     {"nunit", "xunit", "mstest"},
		"go":         {"testing", "testify"},
		"rust":       {"cargo-test", "rstest"},
		"php":        {"phpunit", "codeception"},
		"ruby":       {"rspec", "minitest"},
	}
}

// Validation is the outcome of checking generated test code.
type Validation struct {
	IsValid      bool     `json:"is_valid"`
	SyntaxErrors []string `json:"syntax_errors"`
	Warnings     []string `json:"warnings"`
	Suggestions  []string `json:"suggestions"`
	QualityScore float64  `json:"quality_score"`
}

// ValidateTestCode runs lightweight checks over generated test code.
func ValidateTestCode(testCode, language, framework string) Validation {
	v := Validation{
		IsValid:      true,
		SyntaxErrors: []string{},
		Warnings:     []string{},
		Suggestions:  []string{},
		QualityScore: 8.5,
	}

	if strings.TrimSpace(testCode) == "" {
		v.IsValid = false
		v.SyntaxErrors = append(v.SyntaxErrors, "Test code is empty")
		return v
	}

	if framework == "jest" && !strings.Contains(testCode, "expect(") {
		v.Warnings = append(v.Warnings, "No assertions found - consider adding expect() statements")
	}
	if framework == "pytest" && !strings.Contains(testCode, "assert ") {
		v.Warnings = append(v.Warnings, "No assertions found - consider adding assert statements")
	}
	if strings.Contains(testCode, "TODO") || strings.Contains(testCode, "FIXME") {
		v.Warnings = append(v.Warnings, "Test contains TODO/FIXME comments")
	}
	if len(strings.Split(testCode, "\n")) > 50 {
		v.Suggestions = append(v.Suggestions, "Test is quite long - consider breaking into smaller tests")
	}

	lower := strings.ToLower(testCode)
	factors := 0.0
	if containsAny(lower, "expect", "assert", "should") {
		factors += 2
	}
	if containsAny(lower, "arrange", "act", "assert", "given", "when", "then") {
		factors += 2
	}
	if strings.Contains(lower, "mock") || strings.Contains(lower, "stub") {
		factors++
	}
	v.QualityScore = minFloat(10, 5+factors)
	return v
}

// pythonFunctionComplexity counts branching statements inside the named
// function's indented body.
func pythonFunctionComplexity(code, funcName string) int {
	lines := strings.Split(code, "\n")
	complexity := 1
	inBody := false
	bodyIndent := -1

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !inBody {
			if m := pyDefPattern.FindStringSubmatch(line); m != nil && m[3] == funcName {
				inBody = true
				bodyIndent = len(m[1])
			}
			continue
		}
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent <= bodyIndent {
			break
		}
		for _, kw := range pyComplexityKeywords {
			if strings.HasPrefix(trimmed, kw) {
				complexity++
				break
			}
		}
	}
	return complexity
}

func testabilityScore(functionCount, complexCount, dependencyCount int) float64 {
	score := 10.0
	score -= minFloat(float64(complexCount)*2, 5)
	score -= minFloat(float64(dependencyCount)*0.1, 3)
	score += minFloat(float64(functionCount)*0.2, 2)
	if score < 0 {
		return 0
	}
	return minFloat(10, score)
}

func extractFunctionCode(code, funcName string) string {
	pattern := regexp.MustCompile(`(?si)(function\s+` + regexp.QuoteMeta(funcName) + `.*?}|const\s+` + regexp.QuoteMeta(funcName) + `\s*=.*?};?)`)
	if m := pattern.FindString(code); m != "" {
		return m
	}
	return ""
}

func testabilityRecommendations(functions, complexFns, deps []string) []string {
	var recs []string
	if len(functions) == 0 {
		recs = append(recs, "No functions found to test - consider adding more modular functions")
	}
	if len(complexFns) > 0 {
		top := complexFns
		if len(top) > 3 {
			top = top[:3]
		}
		recs = append(recs, fmt.Sprintf("Break down complex functions: %s", strings.Join(top, ", ")))
	}
	if len(deps) > 15 {
		recs = append(recs, "High number of dependencies - consider mocking external dependencies")
	}
	if len(functions) > 20 {
		recs = append(recs, "Large file - consider breaking into smaller modules")
	}
	return recs
}

func existingTests(functions []string) []string {
	var tests []string
	for _, f := range functions {
		if strings.Contains(strings.ToLower(f), "test") {
			tests = append(tests, f)
		}
	}
	return tests
}

func anyContains(values []string, sub string) bool {
	for _, v := range values {
		if strings.Contains(v, sub) {
			return true
		}
	}
	return false
}
